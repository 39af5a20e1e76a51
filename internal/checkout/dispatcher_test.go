package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"
)

const testDispatchTokenConstant = "ghs_dispatchToken"

type scriptedCloner struct {
	mutex    sync.Mutex
	requests []Request
	failures map[string]error
	panics   map[string]bool
}

func (cloner *scriptedCloner) Checkout(_ context.Context, request Request) error {
	cloner.mutex.Lock()
	cloner.requests = append(cloner.requests, request)
	cloner.mutex.Unlock()
	if cloner.panics[request.Repository] {
		panic("corrupt pack")
	}
	return cloner.failures[request.Repository]
}

type recordingProgressObserver struct {
	mutex    sync.Mutex
	started  []string
	finished []Outcome
}

func (progressObserver *recordingProgressObserver) CheckoutStarted(target Target, ref string) {
	progressObserver.mutex.Lock()
	defer progressObserver.mutex.Unlock()
	progressObserver.started = append(progressObserver.started, target.RepositoryName+"@"+ref)
}

func (progressObserver *recordingProgressObserver) CheckoutFinished(outcome Outcome) {
	progressObserver.mutex.Lock()
	defer progressObserver.mutex.Unlock()
	progressObserver.finished = append(progressObserver.finished, outcome)
}

func threeTargets() []Target {
	return []Target{
		{Owner: testOwnerConstant, RepositoryName: "first", Location: "/workspace/first", LineNumber: 1},
		{Owner: testOwnerConstant, RepositoryName: "second", Ref: "release", Location: "/workspace/second", LineNumber: 2},
		{Owner: testOwnerConstant, RepositoryName: "third", Ref: "v2", Location: "/workspace/third", LineNumber: 3},
	}
}

func TestDispatcherIsolatesFailingTarget(testInstance *testing.T) {
	for _, concurrency := range []int{1, 3} {
		cloner := &scriptedCloner{failures: map[string]error{"second": errors.New("remote: Repository not found.")}}
		progressObserver := &recordingProgressObserver{}
		dispatcher, dispatcherError := NewDispatcher(zap.NewNop(), cloner, progressObserver, DispatcherOptions{Concurrency: concurrency})
		require.NoError(testInstance, dispatcherError)

		summary := dispatcher.Dispatch(context.Background(), threeTargets(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: testDispatchTokenConstant}))

		require.Len(testInstance, cloner.requests, 3)
		require.Len(testInstance, summary.Outcomes, 3)
		require.Equal(testInstance, OutcomeStatusSucceeded, summary.Outcomes[0].Status)
		require.Equal(testInstance, OutcomeStatusFailed, summary.Outcomes[1].Status)
		require.Equal(testInstance, OutcomeStatusSucceeded, summary.Outcomes[2].Status)

		failures := summary.Failures()
		require.Len(testInstance, failures, 1)
		require.Equal(testInstance, "second", failures[0].Repository)
		require.Equal(testInstance, "fail to checkout for acme/second : remote: Repository not found.", failures[0].Error())
		require.NotContains(testInstance, failures[0].Error(), testDispatchTokenConstant)
		require.Len(testInstance, progressObserver.finished, 3)
	}
}

func TestDispatcherBuildsPerTargetRequests(testInstance *testing.T) {
	cloner := &scriptedCloner{}
	dispatcher, dispatcherError := NewDispatcher(nil, cloner, nil, DispatcherOptions{Concurrency: 1, DefaultRef: "trunk"})
	require.NoError(testInstance, dispatcherError)
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: testDispatchTokenConstant})

	summary := dispatcher.Dispatch(context.Background(), threeTargets(), tokenSource)

	require.Equal(testInstance, []Request{
		{Owner: testOwnerConstant, Repository: "first", Ref: "trunk", Destination: "/workspace/first", TokenSource: tokenSource},
		{Owner: testOwnerConstant, Repository: "second", Ref: "release", Destination: "/workspace/second", TokenSource: tokenSource},
		{Owner: testOwnerConstant, Repository: "third", Ref: "v2", Destination: "/workspace/third", TokenSource: tokenSource},
	}, cloner.requests)
	require.Equal(testInstance, "trunk", summary.Outcomes[0].Ref)
	require.Empty(testInstance, summary.Failures())
}

func TestDispatcherRecoversFromClonerPanic(testInstance *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	cloner := &scriptedCloner{panics: map[string]bool{"first": true}}
	dispatcher, dispatcherError := NewDispatcher(zap.New(core), cloner, nil, DispatcherOptions{Concurrency: 2})
	require.NoError(testInstance, dispatcherError)

	summary := dispatcher.Dispatch(context.Background(), threeTargets(), nil)

	failures := summary.Failures()
	require.Len(testInstance, failures, 1)
	require.Contains(testInstance, failures[0].Error(), "checkout panicked: corrupt pack")
	require.Equal(testInstance, 1, recorded.FilterMessage(checkoutFailedLogMessage).Len())
}

func TestDispatcherSkipsWorkAfterCancellation(testInstance *testing.T) {
	cloner := &scriptedCloner{}
	dispatcher, dispatcherError := NewDispatcher(nil, cloner, nil, DispatcherOptions{})
	require.NoError(testInstance, dispatcherError)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	summary := dispatcher.Dispatch(cancelledContext, threeTargets(), nil)

	require.Empty(testInstance, cloner.requests)
	require.Len(testInstance, summary.Failures(), 3)
	require.ErrorIs(testInstance, summary.Failures()[0], context.Canceled)
}

func TestNewDispatcherRequiresCloner(testInstance *testing.T) {
	_, dispatcherError := NewDispatcher(nil, nil, nil, DispatcherOptions{})
	require.ErrorIs(testInstance, dispatcherError, ErrClonerNotConfigured)
}

func TestEffectiveRef(testInstance *testing.T) {
	testCases := []struct {
		name        string
		ref         string
		defaultRef  string
		expectedRef string
	}{
		{name: "explicit_ref_wins", ref: "v2", defaultRef: "develop", expectedRef: "v2"},
		{name: "configured_default", defaultRef: "develop", expectedRef: "develop"},
		{name: "main_when_both_empty", expectedRef: "main"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedRef, EffectiveRef(testCase.ref, testCase.defaultRef))
		})
	}
}
