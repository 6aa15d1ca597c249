// Package domain defines the core business entities and interfaces for git-observer.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors. None of them is fatal to the process.
var (
	// ErrAuthenticationFailure indicates a missing or mismatching signature.
	ErrAuthenticationFailure = errors.New("webhook signature verification failed")

	// ErrBranchFiltered indicates an authenticated push to a branch outside the pattern.
	ErrBranchFiltered = errors.New("branch does not match the configured pattern")

	// ErrCatalogUnavailable indicates the service definition source is missing or malformed.
	ErrCatalogUnavailable = errors.New("service catalog unavailable")

	// ErrMalformedPayload indicates the body is not a decodable push payload.
	ErrMalformedPayload = errors.New("malformed push payload")

	// ErrRepositoryNotFound indicates the deployment path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrNoRemoteOrigin indicates no 'origin' remote is configured in the repository.
	ErrNoRemoteOrigin = errors.New("no 'origin' remote configured; cannot determine repository name")

	// ErrInvalidRemoteURL indicates the remote URL could not be parsed to extract owner/repo.
	ErrInvalidRemoteURL = errors.New("could not parse repository name from remote URL")

	// ErrPullFailed indicates the deployment checkout could not be updated.
	ErrPullFailed = errors.New("failed to pull deployment repository")

	// ErrActionFailed indicates an executor operation failed.
	ErrActionFailed = errors.New("deployment action failed")
)

// CatalogSource loads the current service catalog.
type CatalogSource interface {
	// Load reads the service definitions. It returns an error wrapping
	// ErrCatalogUnavailable when the source is missing or malformed.
	Load(ctx context.Context) (*Catalog, error)
}

// RepositoryPuller updates the deployment checkout.
type RepositoryPuller interface {
	// Pull fetches and merges the tracked branch. Already up to date is not an error.
	Pull(ctx context.Context) error
}

// RepositoryInspector reports the state of the deployment checkout.
type RepositoryInspector interface {
	// Describe returns HEAD, branch and origin repository of the checkout.
	Describe(ctx context.Context) (*RepositoryInfo, error)
}

// ActionExecutor carries out the abstract operations of a RebuildPlan.
// Implementations own process execution; the core never builds command lines.
type ActionExecutor interface {
	RunFull(ctx context.Context) error
	StopService(ctx context.Context, name string) error
	RemoveService(ctx context.Context, name string) error
	RebuildAll(ctx context.Context) error
	RestartGateway(ctx context.Context) error
}

// EventHandler drives one inbound event to a terminal Outcome.
type EventHandler interface {
	HandleEvent(ctx context.Context, event InboundEvent) Outcome
}

// OutputWriter writes human-readable status to the operator's terminal.
type OutputWriter interface {
	// WriteBanner announces that the observer is listening.
	WriteBanner(addr, repoPath string) error

	// WriteDeployment summarizes a finished deployment.
	WriteDeployment(plan RebuildPlan) error
}
