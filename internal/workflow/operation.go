package workflow

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/temirov/appcheckout/internal/actions"
	"github.com/temirov/appcheckout/internal/checkout"
	"github.com/temirov/appcheckout/internal/githubauth"
	"github.com/temirov/appcheckout/internal/gitrepo"
	pathutils "github.com/temirov/appcheckout/internal/utils/path"
)

// Operation coordinates a single pipeline step.
type Operation interface {
	Name() string
	Execute(executionContext context.Context, environment *Environment, state *State) error
}

// RunContext is the CI runner surface the pipeline talks to.
type RunContext interface {
	Input(name string) string
	RequiredInput(name string) (string, error)
	Mask(secret string)
	Fail(message string)
	Failed() bool
	FailureCount() int
	Info(message string)
	Warn(message string)
	SetOutput(name string, value string)
}

// TokenBroker exchanges app credentials for installation tokens.
type TokenBroker interface {
	ResolveInstallation(executionContext context.Context, credential githubauth.AppCredential, target githubauth.InstallationTarget) (int64, error)
	Acquire(executionContext context.Context, credential githubauth.AppCredential, permissions githubauth.PermissionSet, target githubauth.InstallationTarget) (githubauth.InstallationToken, error)
}

// CheckoutDispatcher checks out parsed targets.
type CheckoutDispatcher interface {
	Dispatch(executionContext context.Context, targets []checkout.Target, tokenSource oauth2.TokenSource) checkout.Summary
}

// CredentialRewriter installs the token into the global git configuration.
type CredentialRewriter interface {
	Rewrite(executionContext context.Context, origin gitrepo.ServerOrigin, token string) error
}

// CredentialRewriterFactory builds a CredentialRewriter that runs git in workingDirectory.
type CredentialRewriterFactory func(workingDirectory string) (CredentialRewriter, error)

// Environment exposes shared dependencies for pipeline operations.
type Environment struct {
	Logger                    *zap.Logger
	RunContext                RunContext
	Runner                    actions.RunnerEnvironment
	ServerOrigin              gitrepo.ServerOrigin
	Broker                    TokenBroker
	Dispatcher                CheckoutDispatcher
	CredentialRewriterFactory CredentialRewriterFactory
	LocationResolver          *pathutils.LocationResolver
	Configuration             Configuration
	DryRun                    bool
	OwnerOverride             string
	AddGitConfigOverride      *bool
}

// DefaultOperations returns the checkout pipeline in execution order.
func DefaultOperations() []Operation {
	return []Operation{
		&ParseInputsOperation{},
		&AcquireTokenOperation{},
		&CheckoutOperation{},
		&WriteReportOperation{},
		&ConfigureGitCredentialsOperation{},
	}
}
