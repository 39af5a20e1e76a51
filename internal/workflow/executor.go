package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/appcheckout/internal/actions"
	"github.com/temirov/appcheckout/internal/gitrepo"
	pathutils "github.com/temirov/appcheckout/internal/utils/path"
)

const (
	workflowExecutionErrorTemplateConstant = "%s: %w"
	workflowExecutorDependenciesMessage    = "checkout pipeline requires a run context, token broker and checkout dispatcher"
	runFailedErrorTemplateConstant         = "%d checkout(s) failed"
	operationStartedLogMessage             = "Running pipeline operation"
	operationFieldConstant                 = "operation"
)

// ErrExecutorDependencies indicates the executor was missing a required collaborator.
var ErrExecutorDependencies = errors.New(workflowExecutorDependenciesMessage)

// RunFailedError reports that the pipeline finished but recorded per-target failures.
type RunFailedError struct {
	FailureCount int
}

// Error describes how many checkouts failed.
func (runError RunFailedError) Error() string {
	return fmt.Sprintf(runFailedErrorTemplateConstant, runError.FailureCount)
}

// Dependencies configures shared collaborators for pipeline execution.
type Dependencies struct {
	Logger                    *zap.Logger
	RunContext                RunContext
	Runner                    actions.RunnerEnvironment
	ServerOrigin              gitrepo.ServerOrigin
	Broker                    TokenBroker
	Dispatcher                CheckoutDispatcher
	CredentialRewriterFactory CredentialRewriterFactory
	LocationResolver          *pathutils.LocationResolver
	Configuration             Configuration
}

// RuntimeOptions captures user-provided execution modifiers.
type RuntimeOptions struct {
	DryRun               bool
	OwnerOverride        string
	AddGitConfigOverride *bool
}

// Executor runs the pipeline operations in order over one shared State.
type Executor struct {
	operations   []Operation
	dependencies Dependencies
}

// NewExecutor constructs an Executor instance.
func NewExecutor(operations []Operation, dependencies Dependencies) *Executor {
	return &Executor{operations: append([]Operation{}, operations...), dependencies: dependencies}
}

// Execute runs every operation. The first operation error aborts the run. When all operations succeed
// but the run context recorded failures, RunFailedError is returned.
func (executor *Executor) Execute(executionContext context.Context, runtimeOptions RuntimeOptions) error {
	if executor.dependencies.RunContext == nil || executor.dependencies.Broker == nil || executor.dependencies.Dispatcher == nil {
		return ErrExecutorDependencies
	}

	logger := executor.dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locationResolver := executor.dependencies.LocationResolver
	if locationResolver == nil {
		locationResolver = pathutils.NewLocationResolver()
	}

	environment := &Environment{
		Logger:                    logger,
		RunContext:                executor.dependencies.RunContext,
		Runner:                    executor.dependencies.Runner,
		ServerOrigin:              executor.dependencies.ServerOrigin,
		Broker:                    executor.dependencies.Broker,
		Dispatcher:                executor.dependencies.Dispatcher,
		CredentialRewriterFactory: executor.dependencies.CredentialRewriterFactory,
		LocationResolver:          locationResolver,
		Configuration:             executor.dependencies.Configuration,
		DryRun:                    runtimeOptions.DryRun,
		OwnerOverride:             runtimeOptions.OwnerOverride,
		AddGitConfigOverride:      runtimeOptions.AddGitConfigOverride,
	}
	state := &State{}

	for operationIndex := range executor.operations {
		operation := executor.operations[operationIndex]
		if operation == nil {
			continue
		}
		logger.Debug(operationStartedLogMessage, zap.String(operationFieldConstant, operation.Name()))
		if executeError := operation.Execute(executionContext, environment, state); executeError != nil {
			return fmt.Errorf(workflowExecutionErrorTemplateConstant, operation.Name(), executeError)
		}
	}

	if environment.RunContext.Failed() {
		return RunFailedError{FailureCount: environment.RunContext.FailureCount()}
	}
	return nil
}
