package pathutils

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant                    = "~"
	tildeForwardSlashPrefixConstant        = "~/"
	windowsOperatingSystemNameConstant     = "windows"
	parentDirectoryConstant                = ".."
	missingWorkingDirectoryMessageConstant = "working directory is required to resolve relative locations"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// ErrWorkingDirectoryRequired indicates a relative location was resolved without a working directory.
var ErrWorkingDirectoryRequired = errors.New(missingWorkingDirectoryMessageConstant)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// LocationResolver turns user-supplied checkout locations into absolute, cleaned paths.
type LocationResolver struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewLocationResolver constructs a LocationResolver using the operating system home lookup.
func NewLocationResolver() *LocationResolver {
	return NewLocationResolverWithProvider(os.UserHomeDir)
}

// NewLocationResolverWithProvider constructs a LocationResolver with a custom home directory provider.
func NewLocationResolverWithProvider(provider HomeDirectoryProvider) *LocationResolver {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &LocationResolver{homeDirectoryProvider: provider}
}

// ExpandHome resolves a leading tilde to the user's home directory. Other paths are returned unchanged.
func (resolver *LocationResolver) ExpandHome(candidatePath string) string {
	if resolver == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	homeDirectory := resolver.resolveHomeDirectory()
	if len(homeDirectory) == 0 {
		return candidatePath
	}

	switch {
	case candidatePath == tildeSymbolConstant:
		return homeDirectory
	case strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant):
		return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant))
	case strings.HasPrefix(candidatePath, tildeWithPathSeparatorPrefix):
		return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, tildeWithPathSeparatorPrefix))
	default:
		return candidatePath
	}
}

// Resolve returns location as an absolute path. Relative locations are joined onto workingDirectory,
// which itself may be relative to the process directory or start with a tilde.
func (resolver *LocationResolver) Resolve(workingDirectory string, location string) (string, error) {
	expandedLocation := resolver.ExpandHome(strings.TrimSpace(location))
	if filepath.IsAbs(expandedLocation) {
		return filepath.Clean(expandedLocation), nil
	}

	expandedWorkingDirectory := resolver.ExpandHome(strings.TrimSpace(workingDirectory))
	if len(expandedWorkingDirectory) == 0 {
		return "", ErrWorkingDirectoryRequired
	}

	absoluteWorkingDirectory, absoluteError := filepath.Abs(expandedWorkingDirectory)
	if absoluteError != nil {
		return "", absoluteError
	}
	return filepath.Join(absoluteWorkingDirectory, expandedLocation), nil
}

// ComparisonKey normalizes an absolute path for equality checks; case is folded on Windows.
func ComparisonKey(path string) string {
	comparison := filepath.Clean(path)
	if runtime.GOOS == windowsOperatingSystemNameConstant {
		comparison = strings.ToLower(comparison)
	}
	return comparison
}

// Contains reports whether candidatePath equals basePath or lies underneath it. Both paths must be absolute.
func Contains(basePath string, candidatePath string) bool {
	relativePath, relativeError := filepath.Rel(ComparisonKey(basePath), ComparisonKey(candidatePath))
	if relativeError != nil {
		return false
	}
	return relativePath != parentDirectoryConstant && !strings.HasPrefix(relativePath, parentDirectoryConstant+string(filepath.Separator))
}

func (resolver *LocationResolver) resolveHomeDirectory() string {
	resolver.initializationGuard.Do(func() {
		resolver.homeDirectory, resolver.homeDirectoryError = resolver.homeDirectoryProvider()
	})
	if resolver.homeDirectoryError != nil {
		return ""
	}
	return resolver.homeDirectory
}
