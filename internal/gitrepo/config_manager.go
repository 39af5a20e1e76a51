package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/appcheckout/internal/execshell"
)

const (
	gitConfigSubcommandConstant         = "config"
	gitGlobalFlagConstant               = "--global"
	gitLocalFlagConstant                = "--local"
	gitReplaceAllFlagConstant           = "--replace-all"
	gitAddFlagConstant                  = "--add"
	gitUnsetAllFlagConstant             = "--unset-all"
	gitConfigMissingKeyExitCodeConstant = 5
	executorNotConfiguredMessage        = "git executor not configured"
	configKeyRequiredMessageConstant    = "git config key required"
	configWriteErrorTemplateConstant    = "unable to write git config %s: %w"
	configUnsetErrorTemplateConstant    = "unable to unset git config %s: %w"
)

// ErrGitExecutorNotConfigured indicates a ConfigManager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

var errConfigKeyRequired = errors.New(configKeyRequiredMessageConstant)

// GitExecutor exposes the subset of shell execution needed for git config.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ConfigScope selects which git configuration file is edited.
type ConfigScope string

// Supported configuration scopes.
const (
	ConfigScopeGlobal     ConfigScope = ConfigScope(gitGlobalFlagConstant)
	ConfigScopeRepository ConfigScope = ConfigScope(gitLocalFlagConstant)
)

// ConfigManager writes and removes git configuration entries by running git config.
type ConfigManager struct {
	executor         GitExecutor
	workingDirectory string
	scope            ConfigScope
}

// NewConfigManager constructs a ConfigManager running git in workingDirectory. An empty scope means global.
func NewConfigManager(executor GitExecutor, workingDirectory string, scope ConfigScope) (*ConfigManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if len(scope) == 0 {
		scope = ConfigScopeGlobal
	}
	return &ConfigManager{executor: executor, workingDirectory: workingDirectory, scope: scope}, nil
}

// Set writes value under key. With overwrite every existing value of key is replaced, otherwise value is appended.
func (manager *ConfigManager) Set(executionContext context.Context, key string, value string, overwrite bool) error {
	trimmedKey := strings.TrimSpace(key)
	if len(trimmedKey) == 0 {
		return fmt.Errorf(configWriteErrorTemplateConstant, key, errConfigKeyRequired)
	}

	modeFlag := gitAddFlagConstant
	if overwrite {
		modeFlag = gitReplaceAllFlagConstant
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitConfigSubcommandConstant, string(manager.scope), modeFlag, trimmedKey, value},
		WorkingDirectory: manager.workingDirectory,
	})
	if executionError != nil {
		return fmt.Errorf(configWriteErrorTemplateConstant, trimmedKey, executionError)
	}
	return nil
}

// Unset removes every value of key. A key that is already absent is not an error.
func (manager *ConfigManager) Unset(executionContext context.Context, key string) error {
	trimmedKey := strings.TrimSpace(key)
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitConfigSubcommandConstant, string(manager.scope), gitUnsetAllFlagConstant, trimmedKey},
		WorkingDirectory: manager.workingDirectory,
	})
	if executionError == nil {
		return nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) && failedError.Result.ExitCode == gitConfigMissingKeyExitCodeConstant {
		return nil
	}
	return fmt.Errorf(configUnsetErrorTemplateConstant, trimmedKey, executionError)
}
