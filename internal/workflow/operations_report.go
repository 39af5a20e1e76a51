package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/appcheckout/internal/checkout"
)

const (
	writeReportOperationNameConstant = "write-report"
	reportPathResolveErrorTemplate   = "unable to resolve report path %s: %w"
	reportWrittenLogMessage          = "Wrote checkout report"
	reportPathLogFieldConstant       = "path"
)

// WriteReportOperation writes the checkout outcomes as YAML when a report path is configured.
type WriteReportOperation struct{}

// Name identifies the operation.
func (operation *WriteReportOperation) Name() string {
	return writeReportOperationNameConstant
}

// Execute writes the report relative to the working directory.
func (operation *WriteReportOperation) Execute(executionContext context.Context, environment *Environment, state *State) error {
	reportPath := strings.TrimSpace(environment.Configuration.Checkout.ReportPath)
	if len(reportPath) == 0 || state.Summary == nil {
		return nil
	}

	resolvedPath, resolveError := environment.LocationResolver.Resolve(state.WorkingDirectory, reportPath)
	if resolveError != nil {
		return fmt.Errorf(reportPathResolveErrorTemplate, reportPath, resolveError)
	}
	if writeError := checkout.WriteReport(resolvedPath, *state.Summary); writeError != nil {
		return writeError
	}
	environment.Logger.Info(reportWrittenLogMessage, zap.String(reportPathLogFieldConstant, resolvedPath))
	return nil
}
