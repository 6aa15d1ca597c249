// Package usecases contains the application business logic.
// The decision functions (VerifySignature, ExtractPushEvent, ResolveImpact,
// PlanRebuild) are pure; Observer wires them into the per-event state machine.
package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/MyCarrier-DevOps/git-observer/internal/domain"
)

// Logger defines the logging interface required by the observer.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// PushEventType is the only webhook event type acted upon.
const PushEventType = "push"

// ObserverConfig is the immutable configuration of the decision core.
type ObserverConfig struct {
	// Secret is the shared webhook secret.
	Secret string

	// BranchPattern filters pushes by branch; empty accepts every branch.
	BranchPattern string

	// Gateway is restarted last by selective plans; empty disables the restart.
	Gateway string

	// PullOnly stops processing after the checkout is updated.
	PullOnly bool

	// MatchMode selects the file-to-service matching strategy.
	MatchMode domain.MatchMode

	// Target identifies the deployment; executions for one target never overlap.
	Target string
}

// Observer handles push events end to end:
// authenticate, extract, pull, resolve, plan and execute.
type Observer struct {
	cfg      ObserverConfig
	catalog  domain.CatalogSource
	puller   domain.RepositoryPuller
	executor domain.ActionExecutor
	output   domain.OutputWriter
	locks    *TargetLocks
	logger   Logger
}

// NewObserver creates an Observer. output may be nil. locks may be shared between
// observers of different targets; nil allocates a private table.
func NewObserver(
	cfg ObserverConfig,
	catalog domain.CatalogSource,
	puller domain.RepositoryPuller,
	executor domain.ActionExecutor,
	output domain.OutputWriter,
	locks *TargetLocks,
	log Logger,
) *Observer {
	if cfg.MatchMode == "" {
		cfg.MatchMode = domain.MatchSubstring
	}
	if locks == nil {
		locks = NewTargetLocks()
	}
	return &Observer{
		cfg:      cfg,
		catalog:  catalog,
		puller:   puller,
		executor: executor,
		output:   output,
		locks:    locks,
		logger:   log,
	}
}

// HandleEvent runs one inbound event to its terminal state. Every path returns;
// nothing is retried here.
func (o *Observer) HandleEvent(ctx context.Context, event domain.InboundEvent) domain.Outcome {
	if !VerifySignature(event.Body, event.Signature, o.cfg.Secret) {
		o.logger.Debug(ctx, "dropping event with invalid signature", map[string]interface{}{
			"has_signature": event.Signature != "",
			"body_bytes":    len(event.Body),
		})
		return domain.Outcome{State: domain.StateRejected, Err: domain.ErrAuthenticationFailure}
	}

	if event.EventType != "" && event.EventType != PushEventType {
		o.logger.Info(ctx, "ignoring non-push event", map[string]interface{}{
			"event_type": event.EventType,
		})
		return domain.Outcome{State: domain.StateIgnored}
	}

	push, err := ExtractPushEvent(event.Body, o.cfg.BranchPattern)
	if err != nil {
		if errors.Is(err, domain.ErrBranchFiltered) {
			o.logger.Info(ctx, "push to unmonitored branch", map[string]interface{}{
				"branch_pattern": o.cfg.BranchPattern,
				"reason":         err.Error(),
			})
			return domain.Outcome{State: domain.StateSkipped, Err: err}
		}
		o.logger.Warn(ctx, "could not decode push payload", map[string]interface{}{
			"error": err.Error(),
		})
		return domain.Outcome{State: domain.StateMalformed, Err: err}
	}

	o.logger.Info(ctx, "seeing a push, going to pull", map[string]interface{}{
		"branch":         push.Branch,
		"modified_files": len(push.ModifiedFiles),
	})

	unlock := o.locks.Lock(o.cfg.Target)
	defer unlock()

	if err := o.puller.Pull(ctx); err != nil {
		o.logger.Error(ctx, "failed to pull repository", err, map[string]interface{}{
			"target": o.cfg.Target,
		})
		return domain.Outcome{State: domain.StateFailed, Event: push, Err: fmt.Errorf("%w: %w", domain.ErrPullFailed, err)}
	}

	if o.cfg.PullOnly {
		o.logger.Info(ctx, "pull-only mode, skipping rebuild", nil)
		return domain.Outcome{State: domain.StatePulled, Event: push}
	}

	plan := o.Plan(ctx, push)
	if err := o.execute(ctx, plan); err != nil {
		o.logger.Error(ctx, "deployment failed", err, map[string]interface{}{
			"plan": plan.Kind.String(),
		})
		return domain.Outcome{State: domain.StateFailed, Event: push, Plan: &plan, Err: err}
	}

	o.logger.Info(ctx, "finished making updates", map[string]interface{}{
		"plan":     plan.Kind.String(),
		"services": plan.Services(),
	})
	if o.output != nil && plan.Kind != domain.PlanNone {
		if err := o.output.WriteDeployment(plan); err != nil {
			o.logger.Warn(ctx, "failed to write deployment summary", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return domain.Outcome{State: domain.StateExecuted, Event: push, Plan: &plan}
}

// Plan loads the current catalog and computes the rebuild plan for push.
// An unavailable catalog degrades to an empty one, which always plans nothing.
func (o *Observer) Plan(ctx context.Context, push *domain.PushEvent) domain.RebuildPlan {
	catalog, err := o.catalog.Load(ctx)
	if err != nil {
		o.logger.Warn(ctx, "service catalog unavailable, treating as empty", map[string]interface{}{
			"error": err.Error(),
		})
		catalog = domain.EmptyCatalog()
	}

	impact := ResolveImpact(catalog, push.ModifiedFiles, o.cfg.MatchMode)
	plan := PlanRebuild(catalog, impact, o.cfg.Gateway)

	o.logger.Info(ctx, "computed rebuild plan", map[string]interface{}{
		"plan":       plan.Kind.String(),
		"catalog":    catalog.Names(),
		"impacted":   impact.Names(),
		"match_mode": string(o.cfg.MatchMode),
	})
	if plan.Kind == domain.PlanNone {
		o.logger.Info(ctx, "there was a push, but no service folders changed", map[string]interface{}{
			"modified_files": push.ModifiedFiles,
		})
	}
	return plan
}

// execute invokes the executor for each action of plan, stopping at the first failure.
func (o *Observer) execute(ctx context.Context, plan domain.RebuildPlan) error {
	for _, action := range plan.Actions() {
		o.logger.Debug(ctx, "running action", map[string]interface{}{
			"op":      string(action.Op),
			"service": action.Service,
		})

		var err error
		switch action.Op {
		case domain.OpRunFull:
			err = o.executor.RunFull(ctx)
		case domain.OpStopService:
			err = o.executor.StopService(ctx, action.Service)
		case domain.OpRemoveService:
			err = o.executor.RemoveService(ctx, action.Service)
		case domain.OpRebuildAll:
			err = o.executor.RebuildAll(ctx)
		case domain.OpRestartGateway:
			err = o.executor.RestartGateway(ctx)
		default:
			err = fmt.Errorf("unknown action %q", action.Op)
		}
		if err != nil {
			return fmt.Errorf("%w: %s %s: %w", domain.ErrActionFailed, action.Op, action.Service, err)
		}
	}
	return nil
}
