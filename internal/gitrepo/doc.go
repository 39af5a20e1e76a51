// Package gitrepo manages the git configuration that authenticates later git commands as a GitHub App.
//
// ServerOrigin derives the config keys and URL rewrites for a hosting server, ConfigManager edits
// git configuration through the git CLI, and CredentialRewriter installs an installation token as a
// global extra header with best-effort cleanup when a write fails.
package gitrepo
