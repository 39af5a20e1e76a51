package githubauth

import (
	"time"

	"golang.org/x/oauth2"
)

const (
	redactedTokenConstant = "<redacted>"
	installationTokenType = "token"
)

// InstallationToken is a short-lived installation access token. Its value is a secret:
// String and the logging helpers never reveal it.
type InstallationToken struct {
	value          string
	installationID int64
	permissions    PermissionSet
	expiresAt      time.Time
}

// NewInstallationToken wraps a token value obtained outside the broker.
func NewInstallationToken(value string, installationID int64, permissions PermissionSet, expiresAt time.Time) InstallationToken {
	return InstallationToken{value: value, installationID: installationID, permissions: permissions, expiresAt: expiresAt}
}

// Value returns the secret token value.
func (token InstallationToken) Value() string {
	return token.value
}

// InstallationID returns the installation the token was minted for.
func (token InstallationToken) InstallationID() int64 {
	return token.installationID
}

// Permissions returns the permission set requested for the token.
func (token InstallationToken) Permissions() PermissionSet {
	return token.permissions
}

// ExpiresAt returns the expiry reported by the provider, or the zero time when none was reported.
func (token InstallationToken) ExpiresAt() time.Time {
	return token.expiresAt
}

// TokenSource exposes the token to oauth2-aware clients.
func (token InstallationToken) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.value,
		TokenType:   installationTokenType,
		Expiry:      token.expiresAt,
	})
}

// String hides the token value.
func (token InstallationToken) String() string {
	return redactedTokenConstant
}
