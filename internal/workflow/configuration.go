package workflow

import (
	"time"
)

// Configuration keys consumed by the checkout pipeline.
const (
	CheckoutConcurrencyConfigurationKey     = "checkout.concurrency"
	CheckoutDepthConfigurationKey           = "checkout.depth"
	CheckoutCleanConfigurationKey           = "checkout.clean"
	CheckoutTimeoutConfigurationKey         = "checkout.timeout"
	CheckoutDefaultRefConfigurationKey      = "checkout.default_ref"
	CheckoutReportPathConfigurationKey      = "checkout.report_path"
	CredentialsAddGitConfigConfigurationKey = "credentials.add_git_config"
)

const (
	defaultCheckoutConcurrencyConstant = 4
	defaultCheckoutDepthConstant       = 1
	defaultCheckoutCleanConstant       = true
	defaultCheckoutTimeoutConstant     = 10 * time.Minute
	defaultCheckoutRefConstant         = "main"
	defaultAddGitConfigConstant        = false
)

// Configuration captures the persisted settings of the checkout pipeline.
type Configuration struct {
	Checkout    CheckoutConfiguration    `mapstructure:"checkout"`
	Credentials CredentialsConfiguration `mapstructure:"credentials"`
}

// CheckoutConfiguration tunes the checkout dispatcher and its git collaborator.
type CheckoutConfiguration struct {
	Concurrency int           `mapstructure:"concurrency"`
	Depth       int           `mapstructure:"depth"`
	Clean       bool          `mapstructure:"clean"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DefaultRef  string        `mapstructure:"default_ref"`
	ReportPath  string        `mapstructure:"report_path"`
}

// CredentialsConfiguration controls the global git credential rewrite.
type CredentialsConfiguration struct {
	AddGitConfig bool `mapstructure:"add_git_config"`
}

// DefaultConfigurationValues returns the defaults applied before configuration files and environment overrides.
func DefaultConfigurationValues() map[string]any {
	return map[string]any{
		CheckoutConcurrencyConfigurationKey:     defaultCheckoutConcurrencyConstant,
		CheckoutDepthConfigurationKey:           defaultCheckoutDepthConstant,
		CheckoutCleanConfigurationKey:           defaultCheckoutCleanConstant,
		CheckoutTimeoutConfigurationKey:         defaultCheckoutTimeoutConstant.String(),
		CheckoutDefaultRefConfigurationKey:      defaultCheckoutRefConstant,
		CheckoutReportPathConfigurationKey:      "",
		CredentialsAddGitConfigConfigurationKey: defaultAddGitConfigConstant,
	}
}
