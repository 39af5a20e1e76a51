package actions_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/appcheckout/internal/actions"
)

const (
	testAppPermissionInputConstant = "app_permission"
	testCheckoutInputConstant      = "checkout"
	testSecretConstant             = "ghs_secretvalue"
)

func newTestRunContext(environment map[string]string) (*actions.RunContext, *bytes.Buffer) {
	output := &bytes.Buffer{}
	runContext := actions.NewRunContext(output, func(key string) string {
		return environment[key]
	})
	return runContext, output
}

func TestRunContextInputs(testInstance *testing.T) {
	runContext, _ := newTestRunContext(map[string]string{
		"INPUT_APP_PERMISSION": "  contents-ro  ",
	})

	require.Equal(testInstance, "contents-ro", runContext.Input(testAppPermissionInputConstant))

	value, inputError := runContext.RequiredInput(testAppPermissionInputConstant)
	require.NoError(testInstance, inputError)
	require.Equal(testInstance, "contents-ro", value)

	_, missingError := runContext.RequiredInput(testCheckoutInputConstant)
	require.Error(testInstance, missingError)
	require.IsType(testInstance, actions.MissingInputError{}, missingError)
	require.EqualError(testInstance, missingError, "input required and not supplied: checkout")
}

func TestRunContextMaskRegistersEachLine(testInstance *testing.T) {
	runContext, output := newTestRunContext(nil)

	runContext.Mask(testSecretConstant)
	runContext.Mask("first\n\nsecond\n")
	runContext.Mask("   ")

	require.Equal(testInstance, "::add-mask::"+testSecretConstant+"\n::add-mask::first\n::add-mask::second\n", output.String())
}

func TestRunContextFailRecordsWithoutAborting(testInstance *testing.T) {
	runContext, output := newTestRunContext(nil)
	require.False(testInstance, runContext.Failed())

	var waitGroup sync.WaitGroup
	for index := 0; index < 3; index++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			runContext.Fail("fail to checkout for octo-org/tools : boom")
		}()
	}
	waitGroup.Wait()

	require.True(testInstance, runContext.Failed())
	require.Equal(testInstance, 3, runContext.FailureCount())
	require.Contains(testInstance, output.String(), "::error::fail to checkout for octo-org/tools : boom")
}
