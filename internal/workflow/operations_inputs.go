package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/appcheckout/internal/actions"
	"github.com/temirov/appcheckout/internal/checkout"
	"github.com/temirov/appcheckout/internal/githubauth"
	"github.com/temirov/appcheckout/internal/utils/flags"
)

// Step input names.
const (
	AppIDInputName            = "app_id"
	AppPrivateKeyInputName    = "app_private_key"
	AppPermissionInputName    = "app_permission"
	CheckoutInputName         = "checkout"
	WorkingDirectoryInputName = "cwd"
	AddGitConfigInputName     = "add_git_config"
)

const (
	parseInputsOperationNameConstant = "parse-inputs"
	emptyPermissionSetWarningMessage = "app_permission did not name any known capability; the token will carry the installation's default permissions"
	inputsParsedLogMessage           = "Parsed step inputs"
	workingDirectoryResolveTemplate  = "unable to resolve working directory %s: %w"
	runOwnerErrorTemplateConstant    = "unable to determine run owner: %w"
	addGitConfigInputErrorTemplate   = "invalid %s input: %w"
	permissionsLogFieldConstant      = "permissions"
	workingDirectoryLogFieldConstant = "cwd"
	targetsLogFieldConstant          = "targets"
	appIDLogFieldConstant            = "app_id"
)

// ParseInputsOperation validates the app block, the permission list, the working directory and the
// checkout block. Every malformed input aborts the run before any network call.
type ParseInputsOperation struct{}

// Name identifies the operation.
func (operation *ParseInputsOperation) Name() string {
	return parseInputsOperationNameConstant
}

// Execute fills the credential, permission, installation, working directory and target fields of state.
func (operation *ParseInputsOperation) Execute(executionContext context.Context, environment *Environment, state *State) error {
	runContext := environment.RunContext

	credentialInputs := githubauth.ResolveAppCredentialInputs(githubauth.AppCredentialInputs{
		AppID:      runContext.Input(AppIDInputName),
		PrivateKey: runContext.Input(AppPrivateKeyInputName),
	}, nil)
	if len(credentialInputs.PrivateKey) > 0 {
		runContext.Mask(credentialInputs.PrivateKey)
	}
	credential, credentialError := githubauth.ResolveAppCredential(credentialInputs, nil)
	if credentialError != nil {
		return credentialError
	}
	runContext.Mask(string(credential.PrivateKey))

	permissionList, permissionError := runContext.RequiredInput(AppPermissionInputName)
	if permissionError != nil {
		return permissionError
	}
	permissions := githubauth.ParsePermissionSet(permissionList)
	if permissions.IsEmpty() {
		runContext.Warn(emptyPermissionSetWarningMessage)
	}

	workingDirectory, workingDirectoryError := operation.resolveWorkingDirectory(environment)
	if workingDirectoryError != nil {
		return workingDirectoryError
	}

	installation, installationError := operation.resolveInstallationTarget(environment)
	if installationError != nil {
		return installationError
	}

	addGitConfig, addGitConfigError := operation.resolveAddGitConfig(environment)
	if addGitConfigError != nil {
		return addGitConfigError
	}

	parser := checkout.NewTargetParser(installation.Organization, workingDirectory, environment.LocationResolver)
	targets, parseError := parser.Parse(runContext.Input(CheckoutInputName))
	if parseError != nil {
		return parseError
	}

	state.Credential = credential
	state.Permissions = permissions
	state.Installation = installation
	state.WorkingDirectory = workingDirectory
	state.AddGitConfig = addGitConfig
	state.Targets = targets

	environment.Logger.Info(
		inputsParsedLogMessage,
		zap.Int64(appIDLogFieldConstant, credential.AppID),
		zap.String(permissionsLogFieldConstant, permissions.String()),
		zap.String(workingDirectoryLogFieldConstant, workingDirectory),
		zap.Int(targetsLogFieldConstant, len(targets)),
	)
	return nil
}

func (operation *ParseInputsOperation) resolveWorkingDirectory(environment *Environment) (string, error) {
	workingDirectory := strings.TrimSpace(environment.RunContext.Input(WorkingDirectoryInputName))
	if len(workingDirectory) == 0 {
		workingDirectory = strings.TrimSpace(environment.Runner.Workspace)
	}
	if len(workingDirectory) == 0 {
		return "", actions.MissingInputError{Name: WorkingDirectoryInputName}
	}

	resolvedDirectory, resolveError := environment.LocationResolver.Resolve(workingDirectory, ".")
	if resolveError != nil {
		return "", fmt.Errorf(workingDirectoryResolveTemplate, workingDirectory, resolveError)
	}
	return resolvedDirectory, nil
}

func (operation *ParseInputsOperation) resolveInstallationTarget(environment *Environment) (githubauth.InstallationTarget, error) {
	repositoryOwner, repositoryName, identityError := environment.Runner.RepositoryIdentity()
	if identityError != nil {
		return githubauth.InstallationTarget{}, identityError
	}

	organization := strings.TrimSpace(environment.OwnerOverride)
	if len(organization) == 0 {
		runOwner, ownerError := environment.Runner.Owner()
		if ownerError != nil {
			return githubauth.InstallationTarget{}, fmt.Errorf(runOwnerErrorTemplateConstant, ownerError)
		}
		organization = runOwner
	}

	return githubauth.InstallationTarget{
		Organization: organization,
		Owner:        repositoryOwner,
		Repository:   repositoryName,
	}, nil
}

func (operation *ParseInputsOperation) resolveAddGitConfig(environment *Environment) (bool, error) {
	if environment.AddGitConfigOverride != nil {
		return *environment.AddGitConfigOverride, nil
	}

	rawValue := strings.TrimSpace(environment.RunContext.Input(AddGitConfigInputName))
	if len(rawValue) == 0 {
		return environment.Configuration.Credentials.AddGitConfig, nil
	}

	parsedValue, parseError := flags.ParseToggleValue(rawValue)
	if parseError != nil {
		return false, fmt.Errorf(addGitConfigInputErrorTemplate, AddGitConfigInputName, parseError)
	}
	return parsedValue, nil
}
