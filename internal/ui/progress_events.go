package ui

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/appcheckout/internal/checkout"
)

const (
	checkoutStartedTemplateConstant   = "Checking out %s@%s into %s"
	checkoutSucceededTemplateConstant = "Checked out %s@%s into %s (%s)"
	checkoutFailedTemplateConstant    = "Failed to check out %s@%s into %s: %v"
	durationRoundingConstant          = 100 * time.Millisecond
)

// CheckoutProgressFormatter builds human-readable messages for checkout progress.
type CheckoutProgressFormatter struct{}

// BuildStartedMessage describes a checkout about to run.
func (formatter CheckoutProgressFormatter) BuildStartedMessage(target checkout.Target, ref string) string {
	return fmt.Sprintf(checkoutStartedTemplateConstant, target.FullName(), ref, target.Location)
}

// BuildFinishedMessage describes a finished checkout.
func (formatter CheckoutProgressFormatter) BuildFinishedMessage(outcome checkout.Outcome) string {
	if outcome.Failure != nil {
		return fmt.Sprintf(checkoutFailedTemplateConstant, outcome.Target.FullName(), outcome.Ref, outcome.Target.Location, outcome.Failure.Cause)
	}
	return fmt.Sprintf(checkoutSucceededTemplateConstant, outcome.Target.FullName(), outcome.Ref, outcome.Target.Location, outcome.Duration.Round(durationRoundingConstant))
}

// ConsoleProgressLogger renders checkout progress on a human-readable zap logger.
type ConsoleProgressLogger struct {
	logger    *zap.Logger
	formatter CheckoutProgressFormatter
}

// NewConsoleProgressLogger constructs a progress logger backed by the provided zap logger.
func NewConsoleProgressLogger(logger *zap.Logger) *ConsoleProgressLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleProgressLogger{logger: logger, formatter: CheckoutProgressFormatter{}}
}

// CheckoutStarted implements checkout.ProgressObserver.
func (progressLogger *ConsoleProgressLogger) CheckoutStarted(target checkout.Target, ref string) {
	progressLogger.logger.Info(progressLogger.formatter.BuildStartedMessage(target, ref))
}

// CheckoutFinished implements checkout.ProgressObserver.
func (progressLogger *ConsoleProgressLogger) CheckoutFinished(outcome checkout.Outcome) {
	if outcome.Failure != nil {
		progressLogger.logger.Warn(progressLogger.formatter.BuildFinishedMessage(outcome))
		return
	}
	progressLogger.logger.Info(progressLogger.formatter.BuildFinishedMessage(outcome))
}
