package githubauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v84/github"
	"go.uber.org/zap"
)

const (
	defaultAPIBaseURLConstant          = "https://api.github.com/"
	urlPathSeparatorConstant           = "/"
	currentAppSlugConstant             = ""
	invalidAPIBaseURLTemplateConstant  = "invalid API base URL %q: %w"
	missingTokenMessageConstant        = "provider returned an empty token"
	missingInstallationMessageConstant = "provider returned no installation id"
	authenticatedLogMessageConstant    = "Authenticated as GitHub App"
	installationLogMessageConstant     = "Resolved GitHub App installation"
	mintedLogMessageConstant           = "Minted installation token"
	appIDLogFieldConstant              = "app_id"
	appSlugLogFieldConstant            = "app_slug"
	installationIDLogFieldConstant     = "installation_id"
	installationScopeLogFieldConstant  = "scope"
	ownerLogFieldConstant              = "owner"
	repositoryLogFieldConstant         = "repository"
	permissionsLogFieldConstant        = "permissions"
	expiresAtLogFieldConstant          = "expires_at"
)

var (
	// ErrSecretMaskerNotConfigured indicates the broker was built without a secret masker.
	ErrSecretMaskerNotConfigured = errors.New("secret masker not configured")
	errEmptyToken                = errors.New(missingTokenMessageConstant)
	errMissingInstallation       = errors.New(missingInstallationMessageConstant)
)

// SecretMasker registers values the runner must redact from its logs.
type SecretMasker interface {
	Mask(secret string)
}

// InstallationTarget names the repository whose installation is resolved.
// Organization is used for the broad lookup, Owner and Repository for the authoritative one.
type InstallationTarget struct {
	Organization string
	Owner        string
	Repository   string
}

// BrokerConfiguration configures the provider endpoint.
type BrokerConfiguration struct {
	APIBaseURL string
	Transport  http.RoundTripper
}

// Broker exchanges an app credential for an installation access token.
type Broker struct {
	logger     *zap.Logger
	masker     SecretMasker
	apiBaseURL *url.URL
	transport  http.RoundTripper
}

// NewBroker constructs a Broker. An empty APIBaseURL means api.github.com and a nil Transport means http.DefaultTransport.
func NewBroker(logger *zap.Logger, masker SecretMasker, configuration BrokerConfiguration) (*Broker, error) {
	if masker == nil {
		return nil, ErrSecretMaskerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURLText := strings.TrimSpace(configuration.APIBaseURL)
	if len(baseURLText) == 0 {
		baseURLText = defaultAPIBaseURLConstant
	}
	if !strings.HasSuffix(baseURLText, urlPathSeparatorConstant) {
		baseURLText += urlPathSeparatorConstant
	}
	apiBaseURL, parseError := url.Parse(baseURLText)
	if parseError != nil {
		return nil, fmt.Errorf(invalidAPIBaseURLTemplateConstant, baseURLText, parseError)
	}

	transport := configuration.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Broker{logger: logger, masker: masker, apiBaseURL: apiBaseURL, transport: transport}, nil
}

// ResolveInstallation authenticates as the app and returns the installation id for target.
func (broker *Broker) ResolveInstallation(executionContext context.Context, credential AppCredential, target InstallationTarget) (int64, error) {
	client, clientError := broker.authenticate(executionContext, credential)
	if clientError != nil {
		return 0, clientError
	}
	return broker.resolveInstallation(executionContext, client, target)
}

// Acquire runs the full exchange: app authentication, installation resolution and token minting.
// The token value is masked before Acquire returns.
func (broker *Broker) Acquire(executionContext context.Context, credential AppCredential, permissions PermissionSet, target InstallationTarget) (InstallationToken, error) {
	client, clientError := broker.authenticate(executionContext, credential)
	if clientError != nil {
		return InstallationToken{}, clientError
	}

	installationID, installationError := broker.resolveInstallation(executionContext, client, target)
	if installationError != nil {
		return InstallationToken{}, installationError
	}

	tokenResponse, _, mintError := client.Apps.CreateInstallationToken(executionContext, installationID, &github.InstallationTokenOptions{
		Permissions: permissions.InstallationPermissions(),
	})
	if mintError != nil {
		return InstallationToken{}, TokenMintingError{InstallationID: installationID, Cause: mintError}
	}
	tokenValue := tokenResponse.GetToken()
	if len(tokenValue) == 0 {
		return InstallationToken{}, TokenMintingError{InstallationID: installationID, Cause: errEmptyToken}
	}
	broker.masker.Mask(tokenValue)

	token := NewInstallationToken(tokenValue, installationID, permissions, tokenResponse.GetExpiresAt().Time)
	broker.logger.Info(mintedLogMessageConstant,
		zap.Int64(installationIDLogFieldConstant, installationID),
		zap.String(permissionsLogFieldConstant, permissions.String()),
		zap.Time(expiresAtLogFieldConstant, token.ExpiresAt()),
	)
	return token, nil
}

func (broker *Broker) authenticate(executionContext context.Context, credential AppCredential) (*github.Client, error) {
	appsTransport, transportError := ghinstallation.NewAppsTransport(broker.transport, credential.AppID, credential.PrivateKey)
	if transportError != nil {
		return nil, AuthConfigurationError{Cause: transportError}
	}
	appsTransport.BaseURL = strings.TrimSuffix(broker.apiBaseURL.String(), urlPathSeparatorConstant)

	client := github.NewClient(&http.Client{Transport: appsTransport})
	client.BaseURL = broker.apiBaseURL

	app, _, verifyError := client.Apps.Get(executionContext, currentAppSlugConstant)
	if verifyError != nil {
		return nil, AuthConfigurationError{Cause: verifyError}
	}
	broker.logger.Info(authenticatedLogMessageConstant,
		zap.Int64(appIDLogFieldConstant, credential.AppID),
		zap.String(appSlugLogFieldConstant, app.GetSlug()),
	)
	return client, nil
}

// resolveInstallation performs the broad organization lookup first and lets the repository lookup overwrite it.
func (broker *Broker) resolveInstallation(executionContext context.Context, client *github.Client, target InstallationTarget) (int64, error) {
	organizationInstallation, _, organizationError := client.Apps.FindOrganizationInstallation(executionContext, target.Organization)
	if organizationError != nil {
		return 0, InstallationNotFoundError{Scope: InstallationScopeOrganization, Owner: target.Organization, Cause: organizationError}
	}
	installationID := organizationInstallation.GetID()
	broker.logInstallation(InstallationScopeOrganization, target, installationID)

	repositoryInstallation, _, repositoryError := client.Apps.FindRepositoryInstallation(executionContext, target.Owner, target.Repository)
	if repositoryError != nil {
		return 0, InstallationNotFoundError{Scope: InstallationScopeRepository, Owner: target.Owner, Repository: target.Repository, Cause: repositoryError}
	}
	installationID = repositoryInstallation.GetID()
	if installationID == 0 {
		return 0, InstallationNotFoundError{Scope: InstallationScopeRepository, Owner: target.Owner, Repository: target.Repository, Cause: errMissingInstallation}
	}
	broker.logInstallation(InstallationScopeRepository, target, installationID)
	return installationID, nil
}

func (broker *Broker) logInstallation(scope InstallationScope, target InstallationTarget, installationID int64) {
	broker.logger.Debug(installationLogMessageConstant,
		zap.String(installationScopeLogFieldConstant, string(scope)),
		zap.String(ownerLogFieldConstant, target.Owner),
		zap.String(repositoryLogFieldConstant, target.Repository),
		zap.Int64(installationIDLogFieldConstant, installationID),
	)
}
