// Package domain defines the core business entities and interfaces for git-observer.
package domain

import "sort"

// BranchRefPrefix is stripped from a push ref to obtain the branch name.
const BranchRefPrefix = "refs/heads/"

// SignaturePrefix tags the hex HMAC carried in the signature header.
const SignaturePrefix = "sha1="

// ServiceDefinition identifies one deployable unit of the compose deployment.
type ServiceDefinition struct {
	// Name is the unique service key. It is also matched against changed file paths.
	Name string

	// BuildContext is the declared build context relative to the repository,
	// cleaned and slash-separated. Empty when the service has no build section.
	BuildContext string
}

// Catalog is the set of deployable services known for one event.
// It is re-derived for every event and never cached.
type Catalog struct {
	services map[string]ServiceDefinition
}

// NewCatalog builds a Catalog from service definitions. Later duplicates win.
func NewCatalog(defs ...ServiceDefinition) *Catalog {
	c := &Catalog{services: make(map[string]ServiceDefinition, len(defs))}
	for _, def := range defs {
		c.services[def.Name] = def
	}
	return c
}

// EmptyCatalog is the catalog used when the service source is unavailable.
func EmptyCatalog() *Catalog {
	return NewCatalog()
}

// Len returns the number of services. A nil catalog is empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.services)
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (ServiceDefinition, bool) {
	if c == nil {
		return ServiceDefinition{}, false
	}
	def, ok := c.services[name]
	return def, ok
}

// Services returns all definitions sorted by name.
func (c *Catalog) Services() []ServiceDefinition {
	if c == nil {
		return nil
	}
	defs := make([]ServiceDefinition, 0, len(c.services))
	for _, def := range c.services {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the service names sorted.
func (c *Catalog) Names() []string {
	defs := c.Services()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// PushEvent is the normalized form of an authenticated push notification.
type PushEvent struct {
	// Branch is the pushed ref with BranchRefPrefix removed.
	Branch string

	// ModifiedFiles lists the paths modified by the head commit, in payload order.
	ModifiedFiles []string
}

// ImpactSet is the ordered, de-duplicated set of services that need rebuilding.
// Iteration order is first-seen order.
type ImpactSet struct {
	order []ServiceDefinition
	seen  map[string]struct{}
}

// NewImpactSet creates an empty ImpactSet.
func NewImpactSet() *ImpactSet {
	return &ImpactSet{seen: make(map[string]struct{})}
}

// Add inserts def unless a service with the same name is already present.
// The zero value is ready to use.
func (s *ImpactSet) Add(def ServiceDefinition) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[def.Name]; ok {
		return
	}
	s.seen[def.Name] = struct{}{}
	s.order = append(s.order, def)
}

// Contains reports whether name is in the set.
func (s *ImpactSet) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[name]
	return ok
}

// Len returns the number of impacted services.
func (s *ImpactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Services returns the impacted services in first-seen order.
func (s *ImpactSet) Services() []ServiceDefinition {
	if s == nil {
		return nil
	}
	out := make([]ServiceDefinition, len(s.order))
	copy(out, s.order)
	return out
}

// Names returns the impacted service names in first-seen order.
func (s *ImpactSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.order))
	for i, def := range s.order {
		names[i] = def.Name
	}
	return names
}

// PlanKind tags the active case of a RebuildPlan.
type PlanKind int

const (
	// PlanNone means no action is taken.
	PlanNone PlanKind = iota
	// PlanSelective rebuilds only the impacted services and then restarts the gateway.
	PlanSelective
	// PlanFull rebuilds everything with the catch-all rebuild command.
	PlanFull
)

// String returns the lower-case plan name used in logs.
func (k PlanKind) String() string {
	switch k {
	case PlanSelective:
		return "selective"
	case PlanFull:
		return "full"
	default:
		return "none"
	}
}

// RebuildPlan is the decision computed for one push event.
type RebuildPlan struct {
	Kind PlanKind

	// Impacted holds the impacted services for a selective plan, in ImpactSet order.
	Impacted []ServiceDefinition

	// Gateway is the service restarted last by a selective plan. Empty disables the restart.
	Gateway string
}

// Services returns the services a selective plan touches: the impacted services
// followed by the gateway, which appears once and always last.
func (p RebuildPlan) Services() []string {
	if p.Kind != PlanSelective {
		return nil
	}
	names := make([]string, 0, len(p.Impacted)+1)
	for _, def := range p.Impacted {
		if def.Name == p.Gateway {
			continue
		}
		names = append(names, def.Name)
	}
	if p.Gateway != "" {
		names = append(names, p.Gateway)
	}
	return names
}

// ActionOp is one abstract ActionExecutor operation.
type ActionOp string

// ActionExecutor operations, in the vocabulary of the executor interface.
const (
	OpRunFull        ActionOp = "run_full"
	OpStopService    ActionOp = "stop_service"
	OpRemoveService  ActionOp = "remove_service"
	OpRebuildAll     ActionOp = "rebuild_all"
	OpRestartGateway ActionOp = "restart_gateway"
)

// Action is one step of a plan's ordered action list.
type Action struct {
	Op ActionOp

	// Service is set for OpStopService and OpRemoveService.
	Service string
}

// Actions expands the plan into the ordered action list handed to the executor.
func (p RebuildPlan) Actions() []Action {
	switch p.Kind {
	case PlanFull:
		return []Action{{Op: OpRunFull}}
	case PlanSelective:
		actions := make([]Action, 0, 2*len(p.Impacted)+2)
		for _, def := range p.Impacted {
			actions = append(actions,
				Action{Op: OpStopService, Service: def.Name},
				Action{Op: OpRemoveService, Service: def.Name},
			)
		}
		actions = append(actions, Action{Op: OpRebuildAll})
		if p.Gateway != "" {
			actions = append(actions, Action{Op: OpRestartGateway})
		}
		return actions
	default:
		return nil
	}
}

// MatchMode selects how changed files are mapped to services.
type MatchMode string

const (
	// MatchSubstring impacts a service when the path contains its name anywhere.
	// Coarse: a service named "api" matches "docs/api-notes.md".
	MatchSubstring MatchMode = "substring"

	// MatchBuildContext impacts a service when the path lies under its build context.
	MatchBuildContext MatchMode = "context"
)

// RepositoryInfo describes the deployment checkout.
type RepositoryInfo struct {
	// HeadSHA is the full commit SHA of HEAD.
	HeadSHA string

	// Branch is the checked-out branch, empty when HEAD is detached.
	Branch string

	// Repository is the origin repository in owner/repo format.
	Repository string
}

// InboundEvent is the raw material of one webhook delivery.
// Body is the complete request body; it is never read in chunks.
type InboundEvent struct {
	Body       []byte
	Signature  string
	EventType  string
	DeliveryID string
}

// EventState is the terminal state of one event's lifecycle.
type EventState string

const (
	StateRejected  EventState = "rejected"
	StateIgnored   EventState = "ignored"
	StateMalformed EventState = "malformed"
	StateSkipped   EventState = "skipped"
	StatePulled    EventState = "pulled"
	StateExecuted  EventState = "executed"
	StateFailed    EventState = "failed"
)

// Outcome reports how an event terminated.
type Outcome struct {
	State EventState

	// Event is set once extraction succeeded.
	Event *PushEvent

	// Plan is set once planning ran.
	Plan *RebuildPlan

	// Err holds the cause for rejected, malformed, skipped and failed outcomes.
	Err error
}
