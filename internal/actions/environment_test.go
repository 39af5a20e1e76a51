package actions_test

import (
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"

	"github.com/temirov/appcheckout/internal/actions"
)

func TestLoadRunnerEnvironmentAppliesDefaults(testInstance *testing.T) {
	environment, loadError := actions.LoadRunnerEnvironment(context.Background(), envconfig.MapLookuper(map[string]string{
		"GITHUB_REPOSITORY": "octo-org/pipeline",
		"GITHUB_WORKSPACE":  "/home/runner/work/pipeline",
	}))
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, "https://github.com", environment.ServerURL)
	require.Equal(testInstance, "https://api.github.com", environment.APIURL)
	require.Equal(testInstance, "/home/runner/work/pipeline", environment.Workspace)

	owner, ownerError := environment.Owner()
	require.NoError(testInstance, ownerError)
	require.Equal(testInstance, "octo-org", owner)
}

func TestLoadRunnerEnvironmentHonorsEnterpriseEndpoints(testInstance *testing.T) {
	environment, loadError := actions.LoadRunnerEnvironment(context.Background(), envconfig.MapLookuper(map[string]string{
		"GITHUB_SERVER_URL":       "https://ghe.example.com",
		"GITHUB_API_URL":          "https://ghe.example.com/api/v3",
		"GITHUB_REPOSITORY_OWNER": "platform",
	}))
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, "https://ghe.example.com", environment.ServerURL)
	require.Equal(testInstance, "https://ghe.example.com/api/v3", environment.APIURL)

	owner, ownerError := environment.Owner()
	require.NoError(testInstance, ownerError)
	require.Equal(testInstance, "platform", owner)
}

func TestRunnerEnvironmentRepositoryIdentity(testInstance *testing.T) {
	testCases := []struct {
		name          string
		repository    string
		expectedOwner string
		expectedName  string
		expectError   bool
	}{
		{name: "valid", repository: "octo-org/pipeline", expectedOwner: "octo-org", expectedName: "pipeline"},
		{name: "missing", repository: "", expectError: true},
		{name: "no_separator", repository: "pipeline", expectError: true},
		{name: "nested", repository: "octo-org/pipeline/extra", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			environment := actions.RunnerEnvironment{Repository: testCase.repository}
			owner, name, identityError := environment.RepositoryIdentity()
			if testCase.expectError {
				require.Error(testInstance, identityError)
				require.IsType(testInstance, actions.RunnerEnvironmentError{}, identityError)
				return
			}
			require.NoError(testInstance, identityError)
			require.Equal(testInstance, testCase.expectedOwner, owner)
			require.Equal(testInstance, testCase.expectedName, name)
		})
	}
}
