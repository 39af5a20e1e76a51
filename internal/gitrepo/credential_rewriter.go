package gitrepo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	accessTokenUsernameConstant          = "x-access-token"
	basicCredentialSeparatorConstant     = ":"
	authorizationHeaderPrefixConstant    = "AUTHORIZATION: basic "
	credentialConfigErrorTemplate        = "unable to configure git credentials (%s): %v"
	rewriterWriterMissingMessageConstant = "credential rewriter requires a config writer"
	rewriterMaskerMissingMessageConstant = "credential rewriter requires a secret masker"
	credentialsConfiguredLogMessage      = "Configured git credentials"
	cleanupFailedLogMessage              = "Unable to remove git extra header after failed credential configuration"
	originLogFieldConstant               = "origin"
	insteadOfCountLogFieldConstant       = "insteadof_rules"
	keyLogFieldConstant                  = "key"
)

var (
	// ErrConfigWriterNotConfigured indicates a CredentialRewriter was built without a config writer.
	ErrConfigWriterNotConfigured = errors.New(rewriterWriterMissingMessageConstant)
	// ErrSecretMaskerNotConfigured indicates a CredentialRewriter was built without a secret masker.
	ErrSecretMaskerNotConfigured = errors.New(rewriterMaskerMissingMessageConstant)
)

// ConfigWriter writes and removes git configuration entries.
type ConfigWriter interface {
	Set(executionContext context.Context, key string, value string, overwrite bool) error
	Unset(executionContext context.Context, key string) error
}

// SecretMasker registers values the runner must redact from its logs.
type SecretMasker interface {
	Mask(secret string)
}

// CredentialConfigError reports a failed credential write. Key names the entry that failed.
type CredentialConfigError struct {
	Key   string
	Cause error
}

// Error describes the failed entry.
func (configError CredentialConfigError) Error() string {
	return fmt.Sprintf(credentialConfigErrorTemplate, configError.Key, configError.Cause)
}

// Unwrap exposes the underlying git failure.
func (configError CredentialConfigError) Unwrap() error {
	return configError.Cause
}

// CredentialRewriter points every later git invocation at an installation token: an extra
// Authorization header for the server origin, plus insteadOf rules sending SSH-style remotes there.
type CredentialRewriter struct {
	logger *zap.Logger
	writer ConfigWriter
	masker SecretMasker
}

// NewCredentialRewriter constructs a CredentialRewriter.
func NewCredentialRewriter(logger *zap.Logger, writer ConfigWriter, masker SecretMasker) (*CredentialRewriter, error) {
	if writer == nil {
		return nil, ErrConfigWriterNotConfigured
	}
	if masker == nil {
		return nil, ErrSecretMaskerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialRewriter{logger: logger, writer: writer, masker: masker}, nil
}

// Rewrite installs the credentials for origin. When any write fails the extra header is removed
// on a best-effort basis and CredentialConfigError is returned.
func (rewriter *CredentialRewriter) Rewrite(executionContext context.Context, origin ServerOrigin, token string) error {
	basicCredential := base64.StdEncoding.EncodeToString([]byte(accessTokenUsernameConstant + basicCredentialSeparatorConstant + token))
	rewriter.masker.Mask(basicCredential)

	extraHeaderKey := origin.ExtraHeaderKey()
	if writeError := rewriter.writer.Set(executionContext, extraHeaderKey, authorizationHeaderPrefixConstant+basicCredential, true); writeError != nil {
		return rewriter.abort(executionContext, extraHeaderKey, extraHeaderKey, writeError)
	}

	insteadOfKey := origin.InsteadOfKey()
	insteadOfPrefixes := origin.InsteadOfPrefixes()
	for _, prefix := range insteadOfPrefixes {
		if writeError := rewriter.writer.Set(executionContext, insteadOfKey, prefix, false); writeError != nil {
			return rewriter.abort(executionContext, extraHeaderKey, insteadOfKey, writeError)
		}
	}

	rewriter.logger.Info(credentialsConfiguredLogMessage,
		zap.String(originLogFieldConstant, origin.Origin()),
		zap.Int(insteadOfCountLogFieldConstant, len(insteadOfPrefixes)),
	)
	return nil
}

func (rewriter *CredentialRewriter) abort(executionContext context.Context, extraHeaderKey string, failedKey string, cause error) error {
	if unsetError := rewriter.writer.Unset(executionContext, extraHeaderKey); unsetError != nil {
		rewriter.logger.Warn(cleanupFailedLogMessage, zap.String(keyLogFieldConstant, extraHeaderKey), zap.Error(unsetError))
	}
	return CredentialConfigError{Key: failedKey, Cause: cause}
}
