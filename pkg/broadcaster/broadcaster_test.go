package broadcaster_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vanitydag/vanityd/pkg/broadcaster"
	"github.com/vanitydag/vanityd/pkg/node"
)

func TestBroadcastSucceedsFirstAttempt(t *testing.T) {
	svc := newFakeNode("aa11", 0, 0)
	coordinator := newTestCoordinator(t, svc)

	var stages []string
	var stagesMtx sync.Mutex
	result := coordinator.Broadcast(
		context.Background(),
		[]byte{0x01, 0x02},
		broadcaster.Options{
			RetryAttempts: 2,
			RetryDelay:    time.Millisecond,
			OnProgress: func(u broadcaster.ProgressUpdate) {
				stagesMtx.Lock()
				defer stagesMtx.Unlock()
				stages = append(stages, u.Stage)
			},
		},
	)

	require.NotNil(t, result)
	require.True(t, result.Success)
	require.Equal(t, "aa11", result.TxID)
	require.Equal(t, "rpc", result.Method)
	require.Len(t, result.Attempts, 1)
	require.True(t, result.Attempts[0].Succeeded)
	require.Empty(t, result.ErrorKind)
	require.NotEmpty(t, result.RequestID)
	require.Nil(t, result.Confirmation)
	require.Equal(
		t,
		[]string{broadcaster.StageBroadcasting, broadcaster.StageCompleted},
		stages,
	)
}

func TestBroadcastRetriesThenSucceeds(t *testing.T) {
	svc := newFakeNode("bb22", 2, 0)
	coordinator := newTestCoordinator(t, svc)

	result := coordinator.Broadcast(
		context.Background(),
		[]byte{0x01},
		broadcaster.Options{
			RetryAttempts: 3,
			RetryDelay:    time.Millisecond,
		},
	)

	require.True(t, result.Success)
	require.Equal(t, "bb22", result.TxID)
	require.Len(t, result.Attempts, 3)
	require.False(t, result.Attempts[0].Succeeded)
	require.False(t, result.Attempts[1].Succeeded)
	require.True(t, result.Attempts[2].Succeeded)
}

func TestBroadcastExhaustsRetries(t *testing.T) {
	svc := newFakeNode("", -1, 0)
	coordinator := newTestCoordinator(t, svc)

	retryDelay := 20 * time.Millisecond
	startedAt := time.Now()
	var lastStage string
	result := coordinator.Broadcast(
		context.Background(),
		[]byte{0x01},
		broadcaster.Options{
			RetryAttempts: 2,
			RetryDelay:    retryDelay,
			OnProgress: func(u broadcaster.ProgressUpdate) {
				lastStage = u.Stage
			},
		},
	)

	require.False(t, result.Success)
	require.Len(t, result.Attempts, 3)
	require.Equal(t, int32(3), svc.submitCalls.Load())
	require.GreaterOrEqual(t, time.Since(startedAt), 2*retryDelay)
	require.Equal(t, broadcaster.ErrorKindSubmission, result.ErrorKind)
	require.Contains(t, result.ErrorMessage, "node unavailable")
	require.Equal(t, broadcaster.StageFailed, lastStage)
	for _, attempt := range result.Attempts {
		require.False(t, attempt.Succeeded)
		require.NotEmpty(t, attempt.Error)
	}
}

func TestBroadcastRejectsEmptyTransaction(t *testing.T) {
	svc := newFakeNode("cc33", 0, 0)
	coordinator := newTestCoordinator(t, svc)

	result := coordinator.Broadcast(
		context.Background(), nil, broadcaster.Options{RetryAttempts: 5},
	)

	require.False(t, result.Success)
	require.Equal(t, broadcaster.ErrorKindInput, result.ErrorKind)
	require.Empty(t, result.Attempts)
	require.Zero(t, svc.submitCalls.Load())
}

func TestBroadcastRejectsNegativeRetryAttempts(t *testing.T) {
	svc := newFakeNode("cc33", 0, 0)
	coordinator := newTestCoordinator(t, svc)

	result := coordinator.Broadcast(
		context.Background(), []byte{0x01}, broadcaster.Options{RetryAttempts: -1},
	)

	require.False(t, result.Success)
	require.Equal(t, broadcaster.ErrorKindInput, result.ErrorKind)
	require.Contains(t, result.ErrorMessage, "retry attempts")
	require.Empty(t, result.Attempts)
	require.Zero(t, svc.submitCalls.Load())
}

func TestBroadcastRejectsUnknownMethod(t *testing.T) {
	svc := newFakeNode("cc33", 0, 0)
	coordinator := newTestCoordinator(t, svc)

	result := coordinator.Broadcast(
		context.Background(),
		[]byte{0x01},
		broadcaster.Options{Method: "carrier-pigeon", RetryAttempts: 5},
	)

	require.False(t, result.Success)
	require.Equal(t, broadcaster.ErrorKindInput, result.ErrorKind)
	require.Contains(t, result.ErrorMessage, "carrier-pigeon")
	require.Empty(t, result.Attempts)
	require.Zero(t, svc.submitCalls.Load())
}

func TestBroadcastResolvesAutoMethod(t *testing.T) {
	rpcSvc := newFakeNode("dd44", 0, 0)
	restSvc := newFakeNode("ee55", 0, 0)
	coordinator, err := broadcaster.NewCoordinator(broadcaster.CoordinatorOpts{
		Methods:       map[string]node.Service{"rpc": rpcSvc, "rest": restSvc},
		DefaultMethod: "rpc",
	})
	require.NoError(t, err)

	result := coordinator.Broadcast(
		context.Background(), []byte{0x01},
		broadcaster.Options{Method: broadcaster.MethodAuto},
	)
	require.True(t, result.Success)
	require.Equal(t, "dd44", result.TxID)
	require.Equal(t, "rpc", result.Method)

	result = coordinator.Broadcast(
		context.Background(), []byte{0x01},
		broadcaster.Options{Method: "rest"},
	)
	require.True(t, result.Success)
	require.Equal(t, "ee55", result.TxID)
	require.Equal(t, "rest", result.Method)
}

func TestBroadcastWaitsForConfirmation(t *testing.T) {
	svc := newFakeNode("ff66", 0, 2)
	coordinator := newTestCoordinator(t, svc)

	result := coordinator.Broadcast(
		context.Background(),
		[]byte{0x01},
		broadcaster.Options{
			WaitForConfirmation: true,
			ConfirmationTimeout: 5 * time.Second,
			PollInterval:        10 * time.Millisecond,
		},
	)

	require.True(t, result.Success)
	require.NotNil(t, result.Confirmation)
	require.True(t, result.Confirmation.Confirmed)
	require.False(t, result.Confirmation.TimedOut)
	require.GreaterOrEqual(t, result.Confirmation.Attempts, 1)
	require.Empty(t, result.ErrorKind)
}

func TestBroadcastConfirmationTimesOut(t *testing.T) {
	svc := newFakeNode("0077", 0, -1)
	coordinator := newTestCoordinator(t, svc)

	var updates []broadcaster.ProgressUpdate
	var updatesMtx sync.Mutex
	result := coordinator.Broadcast(
		context.Background(),
		[]byte{0x01},
		broadcaster.Options{
			WaitForConfirmation: true,
			ConfirmationTimeout: 100 * time.Millisecond,
			PollInterval:        10 * time.Millisecond,
			OnProgress: func(u broadcaster.ProgressUpdate) {
				updatesMtx.Lock()
				defer updatesMtx.Unlock()
				updates = append(updates, u)
			},
		},
	)

	require.True(t, result.Success)
	require.Equal(t, "0077", result.TxID)
	require.NotNil(t, result.Confirmation)
	require.True(t, result.Confirmation.TimedOut)
	require.False(t, result.Confirmation.Confirmed)
	require.Equal(t, broadcaster.ErrorKindConfirmationTimeout, result.ErrorKind)
	require.Contains(t, result.ErrorMessage, "0077")

	last := updates[len(updates)-1]
	require.Equal(t, broadcaster.StageCompleted, last.Stage)
	require.Contains(t, last.Message, "not confirmed")
}

func TestBroadcastConfirmationSurvivesPollErrors(t *testing.T) {
	svc := newFakeNode("1188", 0, 1)
	svc.statusErrors = 12
	coordinator := newTestCoordinator(t, svc)

	result := coordinator.Broadcast(
		context.Background(),
		[]byte{0x01},
		broadcaster.Options{
			WaitForConfirmation: true,
			ConfirmationTimeout: 10 * time.Second,
			PollInterval:        10 * time.Millisecond,
		},
	)

	require.True(t, result.Success)
	require.NotNil(t, result.Confirmation)
	require.True(t, result.Confirmation.Confirmed)
	require.False(t, result.Confirmation.TimedOut)
	// 12 failing polls, one unconfirmed, one confirmed
	require.GreaterOrEqual(t, result.Confirmation.Attempts, 13)
	require.Empty(t, result.ErrorKind)
}

func TestBroadcastHonorsContextCancellation(t *testing.T) {
	svc := newFakeNode("", -1, 0)
	coordinator := newTestCoordinator(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := coordinator.Broadcast(
		ctx,
		[]byte{0x01},
		broadcaster.Options{
			RetryAttempts: 100,
			RetryDelay:    time.Hour,
		},
	)

	require.False(t, result.Success)
	require.Equal(t, broadcaster.ErrorKindSubmission, result.ErrorKind)
	require.Contains(t, result.ErrorMessage, context.Canceled.Error())
	require.Len(t, result.Attempts, 1)
}

func TestNewCoordinatorValidatesOpts(t *testing.T) {
	tests := []struct {
		name        string
		opts        broadcaster.CoordinatorOpts
		expectedErr error
	}{
		{
			"no methods",
			broadcaster.CoordinatorOpts{DefaultMethod: "rpc"},
			broadcaster.ErrNoMethods,
		},
		{
			"unknown default",
			broadcaster.CoordinatorOpts{
				Methods:       map[string]node.Service{"rpc": newFakeNode("", 0, 0)},
				DefaultMethod: "rest",
			},
			broadcaster.ErrUnknownDefaultMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coordinator, err := broadcaster.NewCoordinator(tt.opts)
			require.Nil(t, coordinator)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func newTestCoordinator(t *testing.T, svc node.Service) *broadcaster.Coordinator {
	t.Helper()
	coordinator, err := broadcaster.NewCoordinator(broadcaster.CoordinatorOpts{
		Methods:       map[string]node.Service{"rpc": svc},
		DefaultMethod: "rpc",
	})
	require.NoError(t, err)
	return coordinator
}

// fakeNode fails the first failBeforeSuccess submissions, then accepts.
// failBeforeSuccess < 0 means every submission fails. The first statusErrors
// status polls error out; after those, confirmAfter is the number of
// unconfirmed polls before the transaction reports confirmed, and
// confirmAfter < 0 means it never confirms.
type fakeNode struct {
	txid              string
	failBeforeSuccess int
	confirmAfter      int
	statusErrors      int
	submitCalls       atomic.Int32
	statusCalls       atomic.Int32
}

func newFakeNode(txid string, failBeforeSuccess, confirmAfter int) *fakeNode {
	return &fakeNode{
		txid:              txid,
		failBeforeSuccess: failBeforeSuccess,
		confirmAfter:      confirmAfter,
	}
}

func (f *fakeNode) ListUtxos(addr string) ([]node.Utxo, error) {
	return nil, nil
}

func (f *fakeNode) SignTransaction(
	rawTx []byte, opts node.SignOptions,
) ([]byte, error) {
	return rawTx, nil
}

func (f *fakeNode) SubmitTransaction(rawTx []byte) (string, error) {
	calls := f.submitCalls.Add(1)
	if f.failBeforeSuccess < 0 || int(calls) <= f.failBeforeSuccess {
		return "", errors.New("node unavailable")
	}
	return f.txid, nil
}

func (f *fakeNode) GetTransactionStatus(txid string) (node.TxStatus, error) {
	calls := int(f.statusCalls.Add(1))
	if calls <= f.statusErrors {
		return node.TxStatus{}, errors.New("node unavailable")
	}
	if f.confirmAfter < 0 || calls <= f.statusErrors+f.confirmAfter {
		return node.TxStatus{Confirmed: false}, nil
	}
	return node.TxStatus{Confirmed: true}, nil
}
