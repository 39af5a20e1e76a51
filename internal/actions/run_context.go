package actions

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sethvargo/go-githubactions"
)

const (
	missingInputTemplateConstant = "input required and not supplied: %s"
	annotationMessageConstant    = "%s"
)

// MissingInputError reports a required step input that was empty.
type MissingInputError struct {
	Name string
}

// Error names the missing input.
func (inputError MissingInputError) Error() string {
	return fmt.Sprintf(missingInputTemplateConstant, inputError.Name)
}

// RunContext exposes the runner's input, masking, annotation and output primitives.
// Failures are recorded rather than terminating the process so that sibling work can finish.
type RunContext struct {
	action       *githubactions.Action
	failureCount atomic.Int64
}

// NewRunContext writes workflow commands to writer and reads inputs through getenv.
// A nil writer means stdout and a nil getenv means os.Getenv.
func NewRunContext(writer io.Writer, getenv githubactions.GetenvFunc) *RunContext {
	if writer == nil {
		writer = os.Stdout
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	return &RunContext{action: githubactions.New(githubactions.WithWriter(writer), githubactions.WithGetenv(getenv))}
}

// Input returns the trimmed value of a step input.
func (runContext *RunContext) Input(name string) string {
	return strings.TrimSpace(runContext.action.GetInput(name))
}

// RequiredInput returns the trimmed value of a step input or MissingInputError when it is empty.
func (runContext *RunContext) RequiredInput(name string) (string, error) {
	value := runContext.Input(name)
	if len(value) == 0 {
		return "", MissingInputError{Name: name}
	}
	return value, nil
}

// Mask registers a secret so the runner redacts it from every subsequent log line.
// Multi-line secrets are registered line by line.
func (runContext *RunContext) Mask(secret string) {
	for _, line := range strings.Split(secret, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}
		runContext.action.AddMask(trimmedLine)
	}
}

// Fail emits an error annotation and marks the run as failed without aborting it.
func (runContext *RunContext) Fail(message string) {
	runContext.failureCount.Add(1)
	runContext.action.Errorf(annotationMessageConstant, message)
}

// Failed reports whether Fail was called at least once.
func (runContext *RunContext) Failed() bool {
	return runContext.failureCount.Load() > 0
}

// FailureCount reports how many failures were recorded.
func (runContext *RunContext) FailureCount() int {
	return int(runContext.failureCount.Load())
}

// Info writes a plain log line to the runner.
func (runContext *RunContext) Info(message string) {
	runContext.action.Infof(annotationMessageConstant, message)
}

// Warn emits a warning annotation.
func (runContext *RunContext) Warn(message string) {
	runContext.action.Warningf(annotationMessageConstant, message)
}

// SetOutput publishes a step output.
func (runContext *RunContext) SetOutput(name string, value string) {
	runContext.action.SetOutput(name, value)
}
