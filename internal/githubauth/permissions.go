package githubauth

import (
	"sort"
	"strings"

	"github.com/google/go-github/v84/github"
)

// Capability names a permission a GitHub App token may be scoped to.
type Capability string

// Capabilities that can be requested for an installation token.
const (
	CapabilityContents       Capability = "contents"
	CapabilityActions        Capability = "actions"
	CapabilityChecks         Capability = "checks"
	CapabilityAdministration Capability = "administration"
	CapabilityPullRequests   Capability = "pull_requests"
	CapabilityIssues         Capability = "issues"
	CapabilityWorkflows      Capability = "workflows"
)

// AccessLevel is the access granted to one capability.
type AccessLevel string

// Access levels. AccessLevelNone means the capability is not requested.
const (
	AccessLevelNone  AccessLevel = ""
	AccessLevelRead  AccessLevel = "read"
	AccessLevelWrite AccessLevel = "write"
)

const (
	permissionSeparatorConstant  = ","
	readWriteSuffixConstant      = "-rw"
	readOnlySuffixConstant       = "-ro"
	capabilityDashConstant       = "-"
	capabilityUnderscoreConstant = "_"
	permissionAssignmentConstant = "="
)

var knownCapabilities = map[Capability]struct{}{
	CapabilityContents:       {},
	CapabilityActions:        {},
	CapabilityChecks:         {},
	CapabilityAdministration: {},
	CapabilityPullRequests:   {},
	CapabilityIssues:         {},
	CapabilityWorkflows:      {},
}

// PermissionSet maps capabilities to the access level requested for them. The zero value requests nothing.
type PermissionSet struct {
	levels map[Capability]AccessLevel
}

// ParsePermissionSet builds a PermissionSet from a comma-separated list such as "contents-rw,issues-ro".
// Tokens without a -rw or -ro suffix and unknown capabilities are ignored. A capability requested both ways is write.
func ParsePermissionSet(permissionList string) PermissionSet {
	levels := make(map[Capability]AccessLevel)
	for _, rawToken := range strings.Split(permissionList, permissionSeparatorConstant) {
		normalizedToken := strings.ToLower(strings.TrimSpace(rawToken))

		var requestedLevel AccessLevel
		var capabilityName string
		switch {
		case strings.HasSuffix(normalizedToken, readWriteSuffixConstant):
			requestedLevel = AccessLevelWrite
			capabilityName = strings.TrimSuffix(normalizedToken, readWriteSuffixConstant)
		case strings.HasSuffix(normalizedToken, readOnlySuffixConstant):
			requestedLevel = AccessLevelRead
			capabilityName = strings.TrimSuffix(normalizedToken, readOnlySuffixConstant)
		default:
			continue
		}

		capability := Capability(strings.ReplaceAll(capabilityName, capabilityDashConstant, capabilityUnderscoreConstant))
		if _, known := knownCapabilities[capability]; !known {
			continue
		}
		if levels[capability] == AccessLevelWrite {
			continue
		}
		levels[capability] = requestedLevel
	}
	return PermissionSet{levels: levels}
}

// Level returns the access requested for capability.
func (permissionSet PermissionSet) Level(capability Capability) AccessLevel {
	return permissionSet.levels[capability]
}

// IsEmpty reports whether no capability is requested.
func (permissionSet PermissionSet) IsEmpty() bool {
	return len(permissionSet.levels) == 0
}

// String renders the set as sorted capability=level pairs.
func (permissionSet PermissionSet) String() string {
	pairs := make([]string, 0, len(permissionSet.levels))
	for capability, level := range permissionSet.levels {
		pairs = append(pairs, string(capability)+permissionAssignmentConstant+string(level))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, permissionSeparatorConstant)
}

// InstallationPermissions converts the set into the request body of the access token endpoint.
func (permissionSet PermissionSet) InstallationPermissions() *github.InstallationPermissions {
	return &github.InstallationPermissions{
		Contents:       permissionSet.levelPointer(CapabilityContents),
		Actions:        permissionSet.levelPointer(CapabilityActions),
		Checks:         permissionSet.levelPointer(CapabilityChecks),
		Administration: permissionSet.levelPointer(CapabilityAdministration),
		PullRequests:   permissionSet.levelPointer(CapabilityPullRequests),
		Issues:         permissionSet.levelPointer(CapabilityIssues),
		Workflows:      permissionSet.levelPointer(CapabilityWorkflows),
	}
}

func (permissionSet PermissionSet) levelPointer(capability Capability) *string {
	level := permissionSet.Level(capability)
	if level == AccessLevelNone {
		return nil
	}
	return github.Ptr(string(level))
}
