package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

const (
	repositorySeparatorConstant            = "/"
	runnerEnvironmentLoadErrorTemplate     = "unable to read runner environment: %w"
	runnerEnvironmentErrorTemplateConstant = "runner environment %s: %s"
	missingValueMessageConstant            = "is not set"
	malformedRepositoryMessageConstant     = "must have the form owner/name"
	repositoryVariableNameConstant         = "GITHUB_REPOSITORY"
	repositoryOwnerVariableNameConstant    = "GITHUB_REPOSITORY_OWNER"
)

// RunnerEnvironment describes the repository and endpoints of the current CI run.
type RunnerEnvironment struct {
	Repository      string `env:"GITHUB_REPOSITORY"`
	RepositoryOwner string `env:"GITHUB_REPOSITORY_OWNER"`
	ServerURL       string `env:"GITHUB_SERVER_URL,default=https://github.com"`
	APIURL          string `env:"GITHUB_API_URL,default=https://api.github.com"`
	Workspace       string `env:"GITHUB_WORKSPACE"`
}

// RunnerEnvironmentError reports a missing or malformed runner variable.
type RunnerEnvironmentError struct {
	Variable string
	Message  string
}

// Error describes the offending variable.
func (environmentError RunnerEnvironmentError) Error() string {
	return fmt.Sprintf(runnerEnvironmentErrorTemplateConstant, environmentError.Variable, environmentError.Message)
}

// LoadRunnerEnvironment reads the runner variables through the supplied lookuper.
func LoadRunnerEnvironment(executionContext context.Context, lookuper envconfig.Lookuper) (RunnerEnvironment, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	var environment RunnerEnvironment
	processError := envconfig.ProcessWith(executionContext, &envconfig.Config{
		Target:   &environment,
		Lookuper: lookuper,
	})
	if processError != nil {
		return RunnerEnvironment{}, fmt.Errorf(runnerEnvironmentLoadErrorTemplate, processError)
	}
	return environment, nil
}

// RepositoryIdentity returns the owner and name of the repository that triggered the run.
func (environment RunnerEnvironment) RepositoryIdentity() (string, string, error) {
	trimmedRepository := strings.TrimSpace(environment.Repository)
	if len(trimmedRepository) == 0 {
		return "", "", RunnerEnvironmentError{Variable: repositoryVariableNameConstant, Message: missingValueMessageConstant}
	}

	owner, name, found := strings.Cut(trimmedRepository, repositorySeparatorConstant)
	if !found || len(owner) == 0 || len(name) == 0 || strings.Contains(name, repositorySeparatorConstant) {
		return "", "", RunnerEnvironmentError{Variable: repositoryVariableNameConstant, Message: malformedRepositoryMessageConstant}
	}
	return owner, name, nil
}

// Owner returns the organization or user owning the run. GITHUB_REPOSITORY_OWNER wins over the
// owner segment of GITHUB_REPOSITORY.
func (environment RunnerEnvironment) Owner() (string, error) {
	trimmedOwner := strings.TrimSpace(environment.RepositoryOwner)
	if len(trimmedOwner) > 0 {
		return trimmedOwner, nil
	}

	owner, _, identityError := environment.RepositoryIdentity()
	if identityError != nil {
		return "", RunnerEnvironmentError{Variable: repositoryOwnerVariableNameConstant, Message: missingValueMessageConstant}
	}
	return owner, nil
}
