package workflow

import (
	"github.com/temirov/appcheckout/internal/checkout"
	"github.com/temirov/appcheckout/internal/githubauth"
)

// State carries values produced by earlier operations to later ones.
type State struct {
	Credential       githubauth.AppCredential
	Permissions      githubauth.PermissionSet
	Installation     githubauth.InstallationTarget
	WorkingDirectory string
	AddGitConfig     bool
	Targets          []checkout.Target
	InstallationID   int64
	Token            *githubauth.InstallationToken
	Summary          *checkout.Summary
}
