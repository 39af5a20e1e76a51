package githubauth

import (
	"encoding/base64"
	"encoding/pem"
	"os"
	"strconv"
	"strings"
)

// Environment variables consulted when the explicit app inputs are empty.
const (
	EnvGitHubAppID         = "GITHUB_APP_ID"
	EnvGitHubAppPrivateKey = "GITHUB_APP_PRIVATE_KEY"
)

const (
	appIDFieldNameConstant             = "app_id"
	privateKeyFieldNameConstant        = "app_private_key"
	emptyValueReasonConstant           = "is empty"
	nonNumericReasonConstant           = "must be a positive integer"
	undecodableKeyReasonConstant       = "is neither PEM text nor base64-encoded PEM"
	pemBoundaryMarkerConstant          = "-----BEGIN"
	pemTrailingNewlineConstant         = "\n"
	base64WhitespaceCharactersConstant = " \t\r\n"
)

// AppCredential identifies a GitHub App. PrivateKey always holds PEM bytes.
type AppCredential struct {
	AppID      int64
	PrivateKey []byte
}

// AppCredentialInputs carries the raw app id and private key as supplied to the step.
type AppCredentialInputs struct {
	AppID      string
	PrivateKey string
}

// ResolveAppCredentialInputs applies the environment fallbacks to each empty field of inputs without validating
// the result. The returned private key is the raw text that ResolveAppCredential decodes.
func ResolveAppCredentialInputs(inputs AppCredentialInputs, environment map[string]string) AppCredentialInputs {
	return AppCredentialInputs{
		AppID:      resolveValue(inputs.AppID, environment, EnvGitHubAppID),
		PrivateKey: resolveValue(inputs.PrivateKey, environment, EnvGitHubAppPrivateKey),
	}
}

// ResolveAppCredential validates the explicit inputs, falling back to the provided environment map and then
// to the process environment for each empty field.
func ResolveAppCredential(inputs AppCredentialInputs, environment map[string]string) (AppCredential, error) {
	resolvedInputs := ResolveAppCredentialInputs(inputs, environment)
	appIDText := resolvedInputs.AppID
	if len(appIDText) == 0 {
		return AppCredential{}, ConfigurationError{Field: appIDFieldNameConstant, Reason: emptyValueReasonConstant}
	}
	appID, parseError := strconv.ParseInt(appIDText, 10, 64)
	if parseError != nil || appID <= 0 {
		return AppCredential{}, ConfigurationError{Field: appIDFieldNameConstant, Reason: nonNumericReasonConstant}
	}

	privateKeyText := resolvedInputs.PrivateKey
	if len(privateKeyText) == 0 {
		return AppCredential{}, ConfigurationError{Field: privateKeyFieldNameConstant, Reason: emptyValueReasonConstant}
	}
	privateKey, decodeError := DecodePrivateKey(privateKeyText)
	if decodeError != nil {
		return AppCredential{}, decodeError
	}

	return AppCredential{AppID: appID, PrivateKey: privateKey}, nil
}

// DecodePrivateKey returns PEM bytes for a key supplied either as PEM text or as base64-encoded PEM.
// Text carrying a PEM boundary is never base64-decoded.
func DecodePrivateKey(privateKeyText string) ([]byte, error) {
	trimmedKey := strings.TrimSpace(privateKeyText)
	if strings.Contains(trimmedKey, pemBoundaryMarkerConstant) {
		return normalizePEM(trimmedKey)
	}

	compactKey := strings.Map(func(character rune) rune {
		if strings.ContainsRune(base64WhitespaceCharactersConstant, character) {
			return -1
		}
		return character
	}, trimmedKey)
	decodedKey, decodeError := base64.StdEncoding.DecodeString(compactKey)
	if decodeError != nil {
		return nil, ConfigurationError{Field: privateKeyFieldNameConstant, Reason: undecodableKeyReasonConstant}
	}
	return normalizePEM(strings.TrimSpace(string(decodedKey)))
}

func normalizePEM(pemText string) ([]byte, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, ConfigurationError{Field: privateKeyFieldNameConstant, Reason: undecodableKeyReasonConstant}
	}
	return []byte(pemText + pemTrailingNewlineConstant), nil
}

func resolveValue(explicitValue string, environment map[string]string, environmentKey string) string {
	trimmedValue := strings.TrimSpace(explicitValue)
	if len(trimmedValue) > 0 {
		return trimmedValue
	}
	if value, ok := lookup(environment, environmentKey); ok {
		return value
	}
	if value, ok := os.LookupEnv(environmentKey); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func lookup(environment map[string]string, key string) (string, bool) {
	if environment == nil {
		return "", false
	}
	value, exists := environment[key]
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
