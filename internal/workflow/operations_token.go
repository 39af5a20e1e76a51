package workflow

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

// Step output names.
const (
	InstallationIDOutputName   = "installation_id"
	CheckoutFailuresOutputName = "checkout_failures"
)

const (
	acquireTokenOperationNameConstant = "acquire-token"
	installationResolvedLogMessage    = "Resolved installation without minting a token"
	tokenAcquiredLogMessage           = "Acquired installation token"
	installationIDLogFieldConstant    = "installation_id"
	expiresAtLogFieldConstant         = "expires_at"
)

// AcquireTokenOperation runs the installation token broker. Dry runs stop after installation resolution.
type AcquireTokenOperation struct{}

// Name identifies the operation.
func (operation *AcquireTokenOperation) Name() string {
	return acquireTokenOperationNameConstant
}

// Execute records the installation id and, outside dry runs, the minted token.
func (operation *AcquireTokenOperation) Execute(executionContext context.Context, environment *Environment, state *State) error {
	if environment.DryRun {
		installationID, resolveError := environment.Broker.ResolveInstallation(executionContext, state.Credential, state.Installation)
		if resolveError != nil {
			return resolveError
		}
		state.InstallationID = installationID
		environment.RunContext.SetOutput(InstallationIDOutputName, strconv.FormatInt(installationID, 10))
		environment.Logger.Info(installationResolvedLogMessage, zap.Int64(installationIDLogFieldConstant, installationID))
		return nil
	}

	token, acquireError := environment.Broker.Acquire(executionContext, state.Credential, state.Permissions, state.Installation)
	if acquireError != nil {
		return acquireError
	}
	state.Token = &token
	state.InstallationID = token.InstallationID()
	environment.RunContext.SetOutput(InstallationIDOutputName, strconv.FormatInt(token.InstallationID(), 10))
	environment.Logger.Info(
		tokenAcquiredLogMessage,
		zap.Int64(installationIDLogFieldConstant, token.InstallationID()),
		zap.Time(expiresAtLogFieldConstant, token.ExpiresAt()),
	)
	return nil
}
