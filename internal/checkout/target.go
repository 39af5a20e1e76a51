package checkout

import (
	"fmt"
	"strings"

	pathutils "github.com/temirov/appcheckout/internal/utils/path"
)

const (
	lineSeparatorConstant              = "\n"
	carriageReturnConstant             = "\r"
	locationSeparatorConstant          = ":"
	refSeparatorConstant               = "@"
	ownerSeparatorConstant             = "/"
	parseErrorTemplateConstant         = "invalid checkout line %d %q: %s"
	missingColonReasonConstant         = "expected \"repoName[@ref] : location\""
	missingRepositoryReasonConstant    = "repository name is empty"
	qualifiedRepositoryReasonConstant  = "repository name must not include an owner"
	whitespaceRepositoryReasonConstant = "repository name must not contain whitespace"
	missingLocationReasonConstant      = "location is empty"
	duplicateLocationTemplateConstant  = "location %s is already used by line %d"
	nestedLocationTemplateConstant     = "location %s overlaps location %s of line %d"
	unresolvableLocationTemplate       = "location cannot be resolved: %v"
)

// Target is one repository to check out. An empty Ref means the dispatcher default.
type Target struct {
	Owner          string
	RepositoryName string
	Ref            string
	Location       string
	LineNumber     int
}

// FullName returns owner/repository.
func (target Target) FullName() string {
	return target.Owner + ownerSeparatorConstant + target.RepositoryName
}

// ParseError reports a malformed checkout line. Line numbers start at one.
type ParseError struct {
	LineNumber int
	Line       string
	Reason     string
}

// Error describes the malformed line.
func (parseError ParseError) Error() string {
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.LineNumber, parseError.Line, parseError.Reason)
}

// TargetParser parses checkout specifications for one owner and working directory.
type TargetParser struct {
	owner            string
	workingDirectory string
	resolver         *pathutils.LocationResolver
}

// NewTargetParser constructs a TargetParser. A nil resolver uses the operating system home directory.
func NewTargetParser(owner string, workingDirectory string, resolver *pathutils.LocationResolver) *TargetParser {
	if resolver == nil {
		resolver = pathutils.NewLocationResolver()
	}
	return &TargetParser{owner: strings.TrimSpace(owner), workingDirectory: workingDirectory, resolver: resolver}
}

// Parse returns the targets in specification order. Blank lines are skipped. The first malformed line
// fails the whole parse, as does a location equal to, inside or above the location of an earlier line.
func (parser *TargetParser) Parse(specification string) ([]Target, error) {
	normalizedSpecification := strings.ReplaceAll(specification, carriageReturnConstant, "")
	targets := make([]Target, 0)

	for lineIndex, rawLine := range strings.Split(normalizedSpecification, lineSeparatorConstant) {
		lineNumber := lineIndex + 1
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 {
			continue
		}

		target, parseError := parser.parseLine(trimmedLine, lineNumber)
		if parseError != nil {
			return nil, parseError
		}

		if overlapReason, overlaps := locationOverlap(targets, target); overlaps {
			return nil, ParseError{LineNumber: lineNumber, Line: trimmedLine, Reason: overlapReason}
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// locationOverlap reports a location shared with an earlier target or nested with it in either direction.
func locationOverlap(claimedTargets []Target, target Target) (string, bool) {
	for _, claimedTarget := range claimedTargets {
		if pathutils.ComparisonKey(claimedTarget.Location) == pathutils.ComparisonKey(target.Location) {
			return fmt.Sprintf(duplicateLocationTemplateConstant, target.Location, claimedTarget.LineNumber), true
		}
		if pathutils.Contains(claimedTarget.Location, target.Location) || pathutils.Contains(target.Location, claimedTarget.Location) {
			return fmt.Sprintf(nestedLocationTemplateConstant, target.Location, claimedTarget.Location, claimedTarget.LineNumber), true
		}
	}
	return "", false
}

func (parser *TargetParser) parseLine(line string, lineNumber int) (Target, error) {
	repositoryPart, locationPart, found := strings.Cut(line, locationSeparatorConstant)
	if !found {
		return Target{}, ParseError{LineNumber: lineNumber, Line: line, Reason: missingColonReasonConstant}
	}

	repositoryName, ref, _ := strings.Cut(repositoryPart, refSeparatorConstant)
	repositoryName = strings.TrimSpace(repositoryName)
	ref = strings.TrimSpace(ref)
	location := strings.TrimSpace(locationPart)

	switch {
	case len(repositoryName) == 0:
		return Target{}, ParseError{LineNumber: lineNumber, Line: line, Reason: missingRepositoryReasonConstant}
	case strings.Contains(repositoryName, ownerSeparatorConstant):
		return Target{}, ParseError{LineNumber: lineNumber, Line: line, Reason: qualifiedRepositoryReasonConstant}
	case strings.ContainsAny(repositoryName, " \t"):
		return Target{}, ParseError{LineNumber: lineNumber, Line: line, Reason: whitespaceRepositoryReasonConstant}
	case len(location) == 0:
		return Target{}, ParseError{LineNumber: lineNumber, Line: line, Reason: missingLocationReasonConstant}
	}

	resolvedLocation, resolveError := parser.resolver.Resolve(parser.workingDirectory, location)
	if resolveError != nil {
		return Target{}, ParseError{LineNumber: lineNumber, Line: line, Reason: fmt.Sprintf(unresolvableLocationTemplate, resolveError)}
	}

	return Target{
		Owner:          parser.owner,
		RepositoryName: repositoryName,
		Ref:            ref,
		Location:       resolvedLocation,
		LineNumber:     lineNumber,
	}, nil
}
