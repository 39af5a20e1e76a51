package githubauth

import (
	"fmt"
)

const (
	configurationErrorTemplateConstant       = "invalid app configuration: %s %s"
	authConfigurationErrorTemplateConstant   = "app authentication failed: %v"
	organizationInstallationTemplateConstant = "installation lookup failed: Could not get repo installation. Is the app installed on this org (%s)? %v"
	repositoryInstallationTemplateConstant   = "installation lookup failed: the app is not authorized for repository %s/%s. Request access to this repository for the app in the organization's installation settings. %v"
	tokenMintingErrorTemplateConstant        = "installation token request failed for installation %d: %v"
	installationScopeOrganizationConstant    = "organization"
	installationScopeRepositoryConstant      = "repository"
)

// ConfigurationError reports a missing or malformed app credential. It is raised before any network call.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error describes the invalid field without echoing its value.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Field, configurationError.Reason)
}

// AuthConfigurationError reports that the provider rejected the app-level credential or the key could not be used.
type AuthConfigurationError struct {
	Cause error
}

// Error describes the authentication failure.
func (authError AuthConfigurationError) Error() string {
	return fmt.Sprintf(authConfigurationErrorTemplateConstant, authError.Cause)
}

// Unwrap exposes the provider error.
func (authError AuthConfigurationError) Unwrap() error {
	return authError.Cause
}

// InstallationScope identifies which installation lookup failed.
type InstallationScope string

// Installation lookup scopes.
const (
	InstallationScopeOrganization InstallationScope = InstallationScope(installationScopeOrganizationConstant)
	InstallationScopeRepository   InstallationScope = InstallationScope(installationScopeRepositoryConstant)
)

// InstallationNotFoundError reports that the app is not installed on, or not authorized for, the run's repository.
type InstallationNotFoundError struct {
	Scope      InstallationScope
	Owner      string
	Repository string
	Cause      error
}

// Error explains what the operator has to grant.
func (notFoundError InstallationNotFoundError) Error() string {
	if notFoundError.Scope == InstallationScopeOrganization {
		return fmt.Sprintf(organizationInstallationTemplateConstant, notFoundError.Owner, notFoundError.Cause)
	}
	return fmt.Sprintf(repositoryInstallationTemplateConstant, notFoundError.Owner, notFoundError.Repository, notFoundError.Cause)
}

// Unwrap exposes the provider error.
func (notFoundError InstallationNotFoundError) Unwrap() error {
	return notFoundError.Cause
}

// TokenMintingError reports a failure creating the installation access token.
type TokenMintingError struct {
	InstallationID int64
	Cause          error
}

// Error describes the failed token request.
func (mintingError TokenMintingError) Error() string {
	return fmt.Sprintf(tokenMintingErrorTemplateConstant, mintingError.InstallationID, mintingError.Cause)
}

// Unwrap exposes the provider error.
func (mintingError TokenMintingError) Unwrap() error {
	return mintingError.Cause
}
