package flags

import "github.com/spf13/cobra"

const (
	// OwnerFlagName exposes the run owner override flag name.
	OwnerFlagName = "owner"
	// OwnerFlagUsage describes the run owner override flag.
	OwnerFlagUsage = "Repository owner to check out from (defaults to the runner's repository owner)"
	// RepositoryFlagName exposes the run repository override flag name.
	RepositoryFlagName = "repository"
	// RepositoryFlagUsage describes the run repository override flag.
	RepositoryFlagUsage = "Repository (owner/name) used to resolve the app installation (defaults to the runner's repository)"
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Resolve the installation and list checkouts without minting a token or touching the filesystem"
)

// RepositoryFlagDefinition captures configuration for repository context flags.
type RepositoryFlagDefinition struct {
	Name    string
	Usage   string
	Enabled bool
}

// RepositoryFlagDefinitions groups repository context flag definitions.
type RepositoryFlagDefinitions struct {
	Owner      RepositoryFlagDefinition
	Repository RepositoryFlagDefinition
}

// RepositoryFlagValues stores repository context flag values.
type RepositoryFlagValues struct {
	Owner      string
	Repository string
}

// BindRepositoryFlags attaches repository context flags to the provided command.
func BindRepositoryFlags(command *cobra.Command, defaults RepositoryFlagValues, definitions RepositoryFlagDefinitions) *RepositoryFlagValues {
	values := defaults
	if command == nil {
		return &values
	}

	persistentFlagSet := command.PersistentFlags()
	if definitions.Owner.Enabled && len(definitions.Owner.Name) > 0 {
		persistentFlagSet.StringVar(&values.Owner, definitions.Owner.Name, defaults.Owner, definitions.Owner.Usage)
	}
	if definitions.Repository.Enabled && len(definitions.Repository.Name) > 0 {
		persistentFlagSet.StringVar(&values.Repository, definitions.Repository.Name, defaults.Repository, definitions.Repository.Usage)
	}

	return &values
}
