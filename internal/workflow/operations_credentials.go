package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	configureCredentialsOperationName = "configure-git-credentials"
	missingRewriterFactoryMessage     = "credential rewrite requested but no git config collaborator is configured"
	credentialsConfiguredLogMessage   = "Configured global git credentials"
	credentialsSkippedLogMessage      = "Skipping global git credential configuration"
	originLogFieldConstant            = "origin"
	dryRunLogFieldConstant            = "dry_run"
)

var errCredentialRewriterFactoryMissing = errors.New(missingRewriterFactoryMessage)

// ConfigureGitCredentialsOperation installs the token into the global git configuration after all
// checkouts have finished. It runs only when add_git_config is enabled.
type ConfigureGitCredentialsOperation struct{}

// Name identifies the operation.
func (operation *ConfigureGitCredentialsOperation) Name() string {
	return configureCredentialsOperationName
}

// Execute rewrites the global git credentials.
func (operation *ConfigureGitCredentialsOperation) Execute(executionContext context.Context, environment *Environment, state *State) error {
	if !state.AddGitConfig || environment.DryRun {
		environment.Logger.Debug(credentialsSkippedLogMessage, zap.Bool(dryRunLogFieldConstant, environment.DryRun))
		return nil
	}
	if state.Token == nil {
		return errMissingInstallationToken
	}
	if environment.CredentialRewriterFactory == nil {
		return errCredentialRewriterFactoryMissing
	}

	rewriter, rewriterError := environment.CredentialRewriterFactory(state.WorkingDirectory)
	if rewriterError != nil {
		return rewriterError
	}
	if rewriteError := rewriter.Rewrite(executionContext, environment.ServerOrigin, state.Token.Value()); rewriteError != nil {
		return rewriteError
	}
	environment.Logger.Info(credentialsConfiguredLogMessage, zap.String(originLogFieldConstant, environment.ServerOrigin.Origin()))
	return nil
}
