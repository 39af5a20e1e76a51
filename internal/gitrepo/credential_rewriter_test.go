package gitrepo

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testRewriteTokenConstant = "ghs_rewriteToken"
	testExtraHeaderKey       = "http.https://example.com/.extraheader"
	testInsteadOfKey         = "url.https://example.com/.insteadOf"
	configOperationSet       = "set"
	configOperationUnset     = "unset"
)

type configOperation struct {
	kind      string
	key       string
	value     string
	overwrite bool
}

type scriptedConfigWriter struct {
	operations  []configOperation
	failOnWrite int
	failure     error
}

func (writer *scriptedConfigWriter) Set(_ context.Context, key string, value string, overwrite bool) error {
	writer.operations = append(writer.operations, configOperation{kind: configOperationSet, key: key, value: value, overwrite: overwrite})
	if writer.failOnWrite > 0 && writer.countWrites() == writer.failOnWrite {
		return writer.failure
	}
	return nil
}

func (writer *scriptedConfigWriter) Unset(_ context.Context, key string) error {
	writer.operations = append(writer.operations, configOperation{kind: configOperationUnset, key: key})
	return nil
}

func (writer *scriptedConfigWriter) countWrites() int {
	writes := 0
	for _, operation := range writer.operations {
		if operation.kind == configOperationSet {
			writes++
		}
	}
	return writes
}

type recordingSecretMasker struct {
	secrets []string
}

func (masker *recordingSecretMasker) Mask(secret string) {
	masker.secrets = append(masker.secrets, secret)
}

func testOrigin(testInstance *testing.T) ServerOrigin {
	testInstance.Helper()
	origin, parseError := ParseServerOrigin("https://example.com")
	require.NoError(testInstance, parseError)
	return origin
}

func TestCredentialRewriterWritesHeaderAndInsteadOfRules(testInstance *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	writer := &scriptedConfigWriter{}
	masker := &recordingSecretMasker{}
	rewriter, rewriterError := NewCredentialRewriter(zap.New(core), writer, masker)
	require.NoError(testInstance, rewriterError)

	require.NoError(testInstance, rewriter.Rewrite(context.Background(), testOrigin(testInstance), testRewriteTokenConstant))

	expectedCredential := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + testRewriteTokenConstant))
	require.Equal(testInstance, []string{expectedCredential}, masker.secrets)
	require.Equal(testInstance, []configOperation{
		{kind: configOperationSet, key: testExtraHeaderKey, value: "AUTHORIZATION: basic " + expectedCredential, overwrite: true},
		{kind: configOperationSet, key: testInsteadOfKey, value: "git@example.com:"},
		{kind: configOperationSet, key: testInsteadOfKey, value: "ssh://git@example.com:"},
		{kind: configOperationSet, key: testInsteadOfKey, value: "git@example.com/"},
		{kind: configOperationSet, key: testInsteadOfKey, value: "ssh://git@example.com/"},
	}, writer.operations)

	for _, entry := range recorded.All() {
		require.NotContains(testInstance, entry.Message, expectedCredential)
		for _, field := range entry.Context {
			require.NotContains(testInstance, field.String, expectedCredential)
		}
	}
}

func TestCredentialRewriterUnsetsHeaderWhenInsteadOfWriteFails(testInstance *testing.T) {
	writeFailure := errors.New("could not lock config file")
	writer := &scriptedConfigWriter{failOnWrite: 3, failure: writeFailure}
	rewriter, rewriterError := NewCredentialRewriter(zap.NewNop(), writer, &recordingSecretMasker{})
	require.NoError(testInstance, rewriterError)

	rewriteError := rewriter.Rewrite(context.Background(), testOrigin(testInstance), testRewriteTokenConstant)

	var configError CredentialConfigError
	require.True(testInstance, errors.As(rewriteError, &configError))
	require.Equal(testInstance, testInsteadOfKey, configError.Key)
	require.ErrorIs(testInstance, rewriteError, writeFailure)
	require.NotContains(testInstance, rewriteError.Error(), testRewriteTokenConstant)

	require.Len(testInstance, writer.operations, 4)
	require.Equal(testInstance, configOperation{kind: configOperationUnset, key: testExtraHeaderKey}, writer.operations[3])
}

func TestCredentialRewriterUnsetsHeaderWhenHeaderWriteFails(testInstance *testing.T) {
	writer := &scriptedConfigWriter{failOnWrite: 1, failure: errors.New("permission denied")}
	rewriter, rewriterError := NewCredentialRewriter(nil, writer, &recordingSecretMasker{})
	require.NoError(testInstance, rewriterError)

	rewriteError := rewriter.Rewrite(context.Background(), testOrigin(testInstance), testRewriteTokenConstant)

	var configError CredentialConfigError
	require.True(testInstance, errors.As(rewriteError, &configError))
	require.Equal(testInstance, testExtraHeaderKey, configError.Key)
	require.Equal(testInstance, configOperationUnset, writer.operations[len(writer.operations)-1].kind)
}

func TestNewCredentialRewriterValidatesCollaborators(testInstance *testing.T) {
	_, writerError := NewCredentialRewriter(nil, nil, &recordingSecretMasker{})
	require.ErrorIs(testInstance, writerError, ErrConfigWriterNotConfigured)

	_, maskerError := NewCredentialRewriter(nil, &scriptedConfigWriter{}, nil)
	require.ErrorIs(testInstance, maskerError, ErrSecretMaskerNotConfigured)
}
