package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/temirov/appcheckout/internal/checkout"
)

const (
	checkoutOperationNameConstant = "checkout"
	plannedCheckoutTemplate       = "Would check out %s@%s into %s"
	missingTokenMessageConstant   = "no installation token is available for checkout"
)

var errMissingInstallationToken = errors.New(missingTokenMessageConstant)

// CheckoutOperation dispatches every parsed target and waits for all of them. Per-target failures are
// reported through the run context and never abort the operation.
type CheckoutOperation struct{}

// Name identifies the operation.
func (operation *CheckoutOperation) Name() string {
	return checkoutOperationNameConstant
}

// Execute checks out the targets, bounded by the configured timeout.
func (operation *CheckoutOperation) Execute(executionContext context.Context, environment *Environment, state *State) error {
	if environment.DryRun {
		for _, target := range state.Targets {
			environment.RunContext.Info(fmt.Sprintf(plannedCheckoutTemplate, target.FullName(), checkout.EffectiveRef(target.Ref, environment.Configuration.Checkout.DefaultRef), target.Location))
		}
		return nil
	}
	if len(state.Targets) == 0 {
		environment.RunContext.SetOutput(CheckoutFailuresOutputName, strconv.Itoa(0))
		return nil
	}
	if state.Token == nil {
		return errMissingInstallationToken
	}

	dispatchContext := executionContext
	if environment.Configuration.Checkout.Timeout > 0 {
		var cancel context.CancelFunc
		dispatchContext, cancel = context.WithTimeout(executionContext, environment.Configuration.Checkout.Timeout)
		defer cancel()
	}

	summary := environment.Dispatcher.Dispatch(dispatchContext, state.Targets, state.Token.TokenSource())
	state.Summary = &summary

	failures := summary.Failures()
	for _, failure := range failures {
		environment.RunContext.Fail(failure.Error())
	}
	environment.RunContext.SetOutput(CheckoutFailuresOutputName, strconv.Itoa(len(failures)))
	return nil
}
