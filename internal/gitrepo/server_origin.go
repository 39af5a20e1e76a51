package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	httpSchemeConstant               = "http"
	httpsSchemeConstant              = "https"
	schemeSeparatorConstant          = "://"
	pathSeparatorConstant            = "/"
	gitSuffixConstant                = ".git"
	gitUserPrefixConstant            = "git@"
	sshGitUserPrefixConstant         = "ssh://git@"
	sshPathDelimiterConstant         = ":"
	serverOriginParseErrorTemplate   = "%s: %s"
	requiredValueMessageConstant     = "value required"
	invalidServerURLMessageConstant  = "invalid server url"
	unsupportedSchemeMessageConstant = "unsupported server url scheme"
	extraHeaderKeyTemplateConstant   = "http.%s/.extraheader"
	insteadOfKeyTemplateConstant     = "url.%s/.insteadOf"
	repositoryURLTemplateConstant    = "%s/%s/%s%s"
)

// ServerOrigin is the scheme://host[:port] of a git hosting server.
type ServerOrigin struct {
	Scheme string
	Host   string
}

// ServerOriginParseError indicates a server URL could not be parsed.
type ServerOriginParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError ServerOriginParseError) Error() string {
	return fmt.Sprintf(serverOriginParseErrorTemplate, parseError.Input, parseError.Message)
}

// ParseServerOrigin extracts the origin from a server URL such as https://github.com or https://ghe.example.com:8443/.
// Paths, queries and user information are discarded.
func ParseServerOrigin(serverURL string) (ServerOrigin, error) {
	trimmedURL := strings.TrimSpace(serverURL)
	if len(trimmedURL) == 0 {
		return ServerOrigin{}, ServerOriginParseError{Input: serverURL, Message: requiredValueMessageConstant}
	}

	parsedURL, parseError := url.Parse(trimmedURL)
	if parseError != nil || len(parsedURL.Host) == 0 || len(parsedURL.Hostname()) == 0 {
		return ServerOrigin{}, ServerOriginParseError{Input: serverURL, Message: invalidServerURLMessageConstant}
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != httpsSchemeConstant && scheme != httpSchemeConstant {
		return ServerOrigin{}, ServerOriginParseError{Input: serverURL, Message: unsupportedSchemeMessageConstant}
	}
	return ServerOrigin{Scheme: scheme, Host: strings.ToLower(parsedURL.Host)}, nil
}

// Origin renders scheme://host[:port].
func (origin ServerOrigin) Origin() string {
	return origin.Scheme + schemeSeparatorConstant + origin.Host
}

// Hostname returns the host without a port.
func (origin ServerOrigin) Hostname() string {
	return (&url.URL{Host: origin.Host}).Hostname()
}

// RepositoryURL returns the HTTPS clone URL of owner/repository.
func (origin ServerOrigin) RepositoryURL(owner string, repository string) string {
	return fmt.Sprintf(repositoryURLTemplateConstant, origin.Origin(), owner, repository, gitSuffixConstant)
}

// ExtraHeaderKey returns the git config key carrying extra HTTP headers for this origin.
func (origin ServerOrigin) ExtraHeaderKey() string {
	return fmt.Sprintf(extraHeaderKeyTemplateConstant, origin.Origin())
}

// InsteadOfKey returns the git config key redirecting other URL forms to this origin.
func (origin ServerOrigin) InsteadOfKey() string {
	return fmt.Sprintf(insteadOfKeyTemplateConstant, origin.Origin())
}

// InsteadOfPrefixes lists the SSH-style remote prefixes that are rewritten to the origin.
func (origin ServerOrigin) InsteadOfPrefixes() []string {
	hostname := origin.Hostname()
	return []string{
		gitUserPrefixConstant + hostname + sshPathDelimiterConstant,
		sshGitUserPrefixConstant + hostname + sshPathDelimiterConstant,
		gitUserPrefixConstant + hostname + pathSeparatorConstant,
		sshGitUserPrefixConstant + hostname + pathSeparatorConstant,
	}
}
