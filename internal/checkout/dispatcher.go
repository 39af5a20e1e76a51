package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRefConstant              = "main"
	checkoutFailureTemplateConstant = "fail to checkout for %s/%s : %v"
	checkoutPanicTemplateConstant   = "checkout panicked: %v"
	clonerNotConfiguredMessage      = "checkout dispatcher requires a cloner"
	dispatchStartedLogMessage       = "Dispatching checkouts"
	dispatchCompletedLogMessage     = "Checkouts finished"
	checkoutFailedLogMessage        = "Checkout failed"
	targetCountLogFieldConstant     = "targets"
	failureCountLogFieldConstant    = "failures"
	concurrencyLogFieldConstant     = "concurrency"
	locationLogFieldConstant        = "location"
)

// ErrClonerNotConfigured indicates the dispatcher was constructed without a Cloner.
var ErrClonerNotConfigured = errors.New(clonerNotConfiguredMessage)

// OutcomeStatus classifies a finished checkout.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeStatusSucceeded OutcomeStatus = "succeeded"
	OutcomeStatusFailed    OutcomeStatus = "failed"
)

// CheckoutFailure reports a failed checkout of one repository.
type CheckoutFailure struct {
	Owner      string
	Repository string
	Cause      error
}

// Error names the repository and the cause.
func (failure CheckoutFailure) Error() string {
	return fmt.Sprintf(checkoutFailureTemplateConstant, failure.Owner, failure.Repository, failure.Cause)
}

// Unwrap exposes the cause.
func (failure CheckoutFailure) Unwrap() error {
	return failure.Cause
}

// Outcome records the result of one target. Failure is nil on success.
type Outcome struct {
	Target   Target
	Ref      string
	Status   OutcomeStatus
	Failure  *CheckoutFailure
	Duration time.Duration
}

// Summary holds one Outcome per target in input order.
type Summary struct {
	Outcomes []Outcome
}

// Failures returns the failed outcomes' errors in input order.
func (summary Summary) Failures() []CheckoutFailure {
	failures := make([]CheckoutFailure, 0)
	for _, outcome := range summary.Outcomes {
		if outcome.Failure != nil {
			failures = append(failures, *outcome.Failure)
		}
	}
	return failures
}

// ProgressObserver is notified as checkouts start and finish. Calls may arrive concurrently.
type ProgressObserver interface {
	CheckoutStarted(target Target, ref string)
	CheckoutFinished(outcome Outcome)
}

type noopProgressObserver struct{}

func (noopProgressObserver) CheckoutStarted(Target, string) {}

func (noopProgressObserver) CheckoutFinished(Outcome) {}

// DispatcherOptions tunes the dispatcher.
type DispatcherOptions struct {
	Concurrency int
	DefaultRef  string
}

// Dispatcher checks targets out concurrently. A failing target never stops its siblings.
type Dispatcher struct {
	logger   *zap.Logger
	cloner   Cloner
	observer ProgressObserver
	options  DispatcherOptions
}

// EffectiveRef returns ref, or defaultRef when ref is empty, or "main" when both are empty.
func EffectiveRef(ref string, defaultRef string) string {
	if len(ref) > 0 {
		return ref
	}
	if len(defaultRef) > 0 {
		return defaultRef
	}
	return defaultRefConstant
}

// NewDispatcher constructs a Dispatcher. Concurrency below one means one; an empty DefaultRef means "main".
func NewDispatcher(logger *zap.Logger, cloner Cloner, observer ProgressObserver, options DispatcherOptions) (*Dispatcher, error) {
	if cloner == nil {
		return nil, ErrClonerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = noopProgressObserver{}
	}
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}
	options.DefaultRef = EffectiveRef("", options.DefaultRef)
	return &Dispatcher{logger: logger, cloner: cloner, observer: observer, options: options}, nil
}

// Dispatch checks out every target and waits for all of them. Each target gets its own Request.
func (dispatcher *Dispatcher) Dispatch(executionContext context.Context, targets []Target, tokenSource oauth2.TokenSource) Summary {
	outcomes := make([]Outcome, len(targets))
	dispatcher.logger.Info(dispatchStartedLogMessage,
		zap.Int(targetCountLogFieldConstant, len(targets)),
		zap.Int(concurrencyLogFieldConstant, dispatcher.options.Concurrency),
	)

	var group errgroup.Group
	group.SetLimit(dispatcher.options.Concurrency)
	for targetIndex, target := range targets {
		group.Go(func() error {
			outcomes[targetIndex] = dispatcher.checkoutTarget(executionContext, target, tokenSource)
			return nil
		})
	}
	_ = group.Wait()

	summary := Summary{Outcomes: outcomes}
	dispatcher.logger.Info(dispatchCompletedLogMessage,
		zap.Int(targetCountLogFieldConstant, len(targets)),
		zap.Int(failureCountLogFieldConstant, len(summary.Failures())),
	)
	return summary
}

func (dispatcher *Dispatcher) checkoutTarget(executionContext context.Context, target Target, tokenSource oauth2.TokenSource) (outcome Outcome) {
	ref := EffectiveRef(target.Ref, dispatcher.options.DefaultRef)
	request := Request{
		Owner:       target.Owner,
		Repository:  target.RepositoryName,
		Ref:         ref,
		Destination: target.Location,
		TokenSource: tokenSource,
	}

	dispatcher.observer.CheckoutStarted(target, ref)
	startTime := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = dispatcher.failedOutcome(target, ref, fmt.Errorf(checkoutPanicTemplateConstant, recovered), time.Since(startTime))
		}
		dispatcher.observer.CheckoutFinished(outcome)
	}()

	checkoutError := executionContext.Err()
	if checkoutError == nil {
		checkoutError = dispatcher.cloner.Checkout(executionContext, request)
	}
	if checkoutError != nil {
		return dispatcher.failedOutcome(target, ref, checkoutError, time.Since(startTime))
	}
	return Outcome{Target: target, Ref: ref, Status: OutcomeStatusSucceeded, Duration: time.Since(startTime)}
}

func (dispatcher *Dispatcher) failedOutcome(target Target, ref string, cause error, duration time.Duration) Outcome {
	failure := &CheckoutFailure{Owner: target.Owner, Repository: target.RepositoryName, Cause: cause}
	dispatcher.logger.Warn(checkoutFailedLogMessage,
		zap.String(repositoryLogFieldConstant, target.FullName()),
		zap.String(refLogFieldConstant, ref),
		zap.String(locationLogFieldConstant, target.Location),
		zap.Error(cause),
	)
	return Outcome{Target: target, Ref: ref, Status: OutcomeStatusFailed, Failure: failure, Duration: duration}
}
