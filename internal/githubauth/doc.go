// Package githubauth exchanges a GitHub App identity for an installation access token.
//
// ResolveAppCredential and ParsePermissionSet turn step inputs into an
// AppCredential and a PermissionSet. Broker then authenticates as the app,
// resolves the installation for the current repository (organization first,
// repository second) and mints a token restricted to the requested
// permissions. Each step fails with its own error type so operators can tell
// a bad key from a missing installation.
package githubauth
