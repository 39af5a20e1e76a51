package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/appcheckout/internal/actions"
	"github.com/temirov/appcheckout/internal/checkout"
	"github.com/temirov/appcheckout/internal/execshell"
	"github.com/temirov/appcheckout/internal/githubauth"
	"github.com/temirov/appcheckout/internal/gitrepo"
	"github.com/temirov/appcheckout/internal/ui"
	"github.com/temirov/appcheckout/internal/utils"
	"github.com/temirov/appcheckout/internal/utils/flags"
	pathutils "github.com/temirov/appcheckout/internal/utils/path"
	"github.com/temirov/appcheckout/internal/workflow"
)

const (
	applicationNameConstant                 = "app-checkout"
	applicationShortDescriptionConstant     = "Check out organization repositories with a GitHub App installation token"
	applicationLongDescriptionConstant      = "app-checkout exchanges a GitHub App identity for an installation token, checks out every repository listed in the checkout input and optionally installs the token into the global git configuration."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	addGitConfigFlagNameConstant            = "add-git-config"
	addGitConfigFlagUsageConstant           = "Install the token into the global git configuration after checkout (overrides the add_git_config input)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "APPCHECKOUT"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	serverOriginErrorTemplateConstant       = "invalid server URL: %w"
	brokerCreationErrorTemplateConstant     = "unable to create installation token broker: %w"
	dispatcherCreationErrorTemplate         = "unable to create checkout dispatcher: %w"
	gitExecutorCreationErrorTemplate        = "unable to create git executor: %w"
	rootCommandInfoMessageConstant          = "app-checkout started"
	logFieldDryRunConstant                  = "dry_run"
	logFieldRepositoryConstant              = "repository"
	defaultConfigurationSearchPathConstant  = "."
)

var logFormatChoices = []string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common      ApplicationCommonConfiguration    `mapstructure:"common"`
	Checkout    workflow.CheckoutConfiguration    `mapstructure:"checkout"`
	Credentials workflow.CredentialsConfiguration `mapstructure:"credentials"`
}

// PipelineConfiguration returns the settings consumed by the checkout pipeline.
func (configuration ApplicationConfiguration) PipelineConfiguration() workflow.Configuration {
	return workflow.Configuration{Checkout: configuration.Checkout, Credentials: configuration.Credentials}
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, structured logger and the checkout pipeline.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	consoleLogger         *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	addGitConfigFlagValue bool
	dryRunFlagValue       bool
	repositoryFlagValues  *flags.RepositoryFlagValues
	runnerOutput          io.Writer
	getenv                func(string) string
	environmentLookuper   envconfig.Lookuper
}

// NewApplication assembles a CLI application reading the process environment and writing workflow
// commands to stdout.
func NewApplication() *Application {
	return NewApplicationWithEnvironment(nil, nil)
}

// NewApplicationWithEnvironment assembles a CLI application that reads runner variables and step inputs from
// environment instead of the process environment and writes workflow commands to runnerOutput. A nil map
// means the process environment and a nil writer means stdout.
func NewApplicationWithEnvironment(environment map[string]string, runnerOutput io.Writer) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		consoleLogger:       zap.NewNop(),
		runnerOutput:        runnerOutput,
		getenv:              os.Getenv,
		environmentLookuper: envconfig.OsLookuper(),
	}
	if environment != nil {
		application.getenv = func(name string) string { return environment[name] }
		application.environmentLookuper = envconfig.MapLookuper(environment)
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command)
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flags.FormatChoiceUsage(string(utils.LogFormatStructured), logFormatChoices, logFormatFlagUsageConstant))
	persistentFlags.BoolVar(&application.dryRunFlagValue, flags.DryRunFlagName, false, flags.DryRunFlagUsage)
	flags.AddToggleFlag(persistentFlags, &application.addGitConfigFlagValue, addGitConfigFlagNameConstant, "", false, addGitConfigFlagUsageConstant)
	application.repositoryFlagValues = flags.BindRepositoryFlags(cobraCommand, flags.RepositoryFlagValues{}, flags.RepositoryFlagDefinitions{
		Owner:      flags.RepositoryFlagDefinition{Name: flags.OwnerFlagName, Usage: flags.OwnerFlagUsage, Enabled: true},
		Repository: flags.RepositoryFlagDefinition{Name: flags.RepositoryFlagName, Usage: flags.RepositoryFlagUsage, Enabled: true},
	})

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the root command with the process arguments and ensures logger flushing.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the root command with explicit arguments and ensures logger flushing.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	application.rootCommand.SetArgs(flags.NormalizeToggleArguments(arguments))
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range workflow.DefaultConfigurationValues() {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		logFormat, choiceError := flags.ValidateChoice(logFormatFlagNameConstant, application.logFormatFlagValue, logFormatChoices)
		if choiceError != nil {
			return choiceError
		}
		application.configuration.Common.LogFormat = logFormat
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(strings.ToLower(strings.TrimSpace(application.configuration.Common.LogLevel))),
		utils.LogFormat(strings.ToLower(strings.TrimSpace(application.configuration.Common.LogFormat))),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger
	application.consoleLogger = loggerOutputs.ConsoleLogger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

// runRootCommand reports every fatal error as a CI error annotation before returning it.
func (application *Application) runRootCommand(command *cobra.Command) error {
	runContext := actions.NewRunContext(application.runnerOutput, application.getenv)
	runError := application.runPipeline(command, runContext)
	if runError != nil {
		var runFailed workflow.RunFailedError
		if !errors.As(runError, &runFailed) {
			runContext.Fail(runError.Error())
		}
	}
	return runError
}

func (application *Application) runPipeline(command *cobra.Command, runContext *actions.RunContext) error {
	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	runner, runnerError := actions.LoadRunnerEnvironment(executionContext, application.environmentLookuper)
	if runnerError != nil {
		return runnerError
	}
	if repositoryOverride := strings.TrimSpace(application.repositoryFlagValues.Repository); len(repositoryOverride) > 0 {
		runner.Repository = repositoryOverride
	}

	serverOrigin, originError := gitrepo.ParseServerOrigin(runner.ServerURL)
	if originError != nil {
		return fmt.Errorf(serverOriginErrorTemplateConstant, originError)
	}

	broker, brokerError := githubauth.NewBroker(application.logger, runContext, githubauth.BrokerConfiguration{APIBaseURL: runner.APIURL})
	if brokerError != nil {
		return fmt.Errorf(brokerCreationErrorTemplateConstant, brokerError)
	}

	checkoutConfiguration := application.configuration.Checkout
	cloner := checkout.NewGitCloner(application.logger, serverOrigin, checkout.GitClonerOptions{
		Depth: checkoutConfiguration.Depth,
		Clean: checkoutConfiguration.Clean,
	})
	dispatcher, dispatcherError := checkout.NewDispatcher(application.logger, cloner, ui.NewConsoleProgressLogger(application.consoleLogger), checkout.DispatcherOptions{
		Concurrency: checkoutConfiguration.Concurrency,
		DefaultRef:  checkoutConfiguration.DefaultRef,
	})
	if dispatcherError != nil {
		return fmt.Errorf(dispatcherCreationErrorTemplate, dispatcherError)
	}

	runtimeOptions := workflow.RuntimeOptions{
		DryRun:        application.dryRunFlagValue,
		OwnerOverride: application.repositoryFlagValues.Owner,
	}
	if application.persistentFlagChanged(command, addGitConfigFlagNameConstant) {
		addGitConfig := application.addGitConfigFlagValue
		runtimeOptions.AddGitConfigOverride = &addGitConfig
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldRepositoryConstant, runner.Repository),
		zap.Bool(logFieldDryRunConstant, runtimeOptions.DryRun),
	)

	executor := workflow.NewExecutor(workflow.DefaultOperations(), workflow.Dependencies{
		Logger:                    application.logger,
		RunContext:                runContext,
		Runner:                    runner,
		ServerOrigin:              serverOrigin,
		Broker:                    broker,
		Dispatcher:                dispatcher,
		CredentialRewriterFactory: application.credentialRewriterFactory(runContext),
		LocationResolver:          pathutils.NewLocationResolver(),
		Configuration:             application.configuration.PipelineConfiguration(),
	})
	return executor.Execute(executionContext, runtimeOptions)
}

func (application *Application) credentialRewriterFactory(runContext *actions.RunContext) workflow.CredentialRewriterFactory {
	return func(workingDirectory string) (workflow.CredentialRewriter, error) {
		gitExecutor, executorError := execshell.NewShellExecutorWithObserver(
			application.logger,
			execshell.NewOSCommandRunner(),
			ui.NewConsoleCommandEventLogger(application.consoleLogger),
		)
		if executorError != nil {
			return nil, fmt.Errorf(gitExecutorCreationErrorTemplate, executorError)
		}
		configManager, managerError := gitrepo.NewConfigManager(gitExecutor, workingDirectory, gitrepo.ConfigScopeGlobal)
		if managerError != nil {
			return nil, managerError
		}
		rewriter, rewriterError := gitrepo.NewCredentialRewriter(application.logger, configManager, runContext)
		if rewriterError != nil {
			return nil, rewriterError
		}
		return rewriter, nil
	}
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return application.syncLoggerInstance(application.consoleLogger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
