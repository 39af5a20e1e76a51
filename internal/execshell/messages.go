package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	redactedValuePlaceholderConstant        = "<redacted>"
	flagPrefixConstant                      = "-"
)

const (
	gitConfigSubcommandNameConstant = "config"
	gitGlobalFlagConstant           = "--global"
	gitUnsetFlagConstant            = "--unset"
	gitUnsetAllFlagConstant         = "--unset-all"
	gitGlobalScopeLabelConstant     = "global"
	gitLocalScopeLabelConstant      = "repository"
)

const (
	gitConfigWriteStartTemplateConstant            = "Setting %s git config %s"
	gitConfigWriteSuccessTemplateConstant          = "Set %s git config %s"
	gitConfigWriteFailureTemplateConstant          = "Failed to set %s git config %s (exit code %d%s)"
	gitConfigWriteExecutionFailureTemplateConstant = "Unable to set %s git config %s: %s"
	gitConfigUnsetStartTemplateConstant            = "Removing %s git config %s"
	gitConfigUnsetSuccessTemplateConstant          = "Removed %s git config %s"
	gitConfigUnsetFailureTemplateConstant          = "Failed to remove %s git config %s (exit code %d%s)"
	gitConfigUnsetExecutionFailureTemplateConstant = "Unable to remove %s git config %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

// RedactArguments returns a copy of the arguments in which git config values are replaced by a placeholder.
// Flags and the configuration key stay visible.
func RedactArguments(arguments []string) []string {
	redacted := append([]string{}, arguments...)
	if len(redacted) == 0 || strings.TrimSpace(redacted[0]) != gitConfigSubcommandNameConstant {
		return redacted
	}

	keySeen := false
	for index := 1; index < len(redacted); index++ {
		argument := strings.TrimSpace(redacted[index])
		if strings.HasPrefix(argument, flagPrefixConstant) {
			continue
		}
		if !keySeen {
			keySeen = true
			continue
		}
		redacted[index] = redactedValuePlaceholderConstant
	}
	return redacted
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitConfigSubcommandNameConstant:
		return formatter.describeGitConfigMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitConfigMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	scope := gitLocalScopeLabelConstant
	if containsArgument(arguments, gitGlobalFlagConstant) {
		scope = gitGlobalScopeLabelConstant
	}
	key := formatter.ensureValue(formatter.extractFirstNonFlagArgument(arguments[1:]))
	standardErrorSuffix := formatter.formatStandardErrorSuffix(result.StandardError)

	if containsArgument(arguments, gitUnsetFlagConstant) || containsArgument(arguments, gitUnsetAllFlagConstant) {
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitConfigUnsetStartTemplateConstant, scope, key)
		case messageStageSuccess:
			return fmt.Sprintf(gitConfigUnsetSuccessTemplateConstant, scope, key)
		case messageStageFailure:
			return fmt.Sprintf(gitConfigUnsetFailureTemplateConstant, scope, key, result.ExitCode, standardErrorSuffix)
		case messageStageExecutionFailure:
			return fmt.Sprintf(gitConfigUnsetExecutionFailureTemplateConstant, scope, key, formatter.describeFailure(failure))
		}
		return emptyStringConstant
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitConfigWriteStartTemplateConstant, scope, key)
	case messageStageSuccess:
		return fmt.Sprintf(gitConfigWriteSuccessTemplateConstant, scope, key)
	case messageStageFailure:
		return fmt.Sprintf(gitConfigWriteFailureTemplateConstant, scope, key, result.ExitCode, standardErrorSuffix)
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitConfigWriteExecutionFailureTemplateConstant, scope, key, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(RedactArguments(command.Details.Arguments), commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) extractFirstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		return trimmed
	}
	return emptyStringConstant
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
