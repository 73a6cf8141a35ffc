package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	execerrors "github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/tuple"
)

func TestWorkerHandle_ComponentDebugFallsBackToStormID(t *testing.T) {
	wh := NewWorkerHandle("my-topology", nil)
	wh.SetComponentDebug(map[tuple.ComponentID]DebugOptions{
		"my-topology": {Enabled: true, SamplingPct: 5},
	})

	assert.Equal(t, DebugOptions{Enabled: true, SamplingPct: 5}, wh.ComponentDebug("some-bolt"))

	wh.SetComponentDebug(map[tuple.ComponentID]DebugOptions{
		"some-bolt": {Enabled: true, SamplingPct: 50},
	})
	assert.Equal(t, DebugOptions{Enabled: true, SamplingPct: 50}, wh.ComponentDebug("some-bolt"))
}

func TestWorkerHandle_ActiveAndThrottleDefaults(t *testing.T) {
	wh := NewWorkerHandle("t", nil)
	assert.True(t, wh.Active())
	assert.False(t, wh.ThrottleOn())

	wh.SetActive(false)
	wh.SetThrottle(true)
	assert.False(t, wh.Active())
	assert.True(t, wh.ThrottleOn())
}

type recordingReporter struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (r *recordingReporter) ReportError(ctx context.Context, stormID string, componentID tuple.ComponentID, taskID tuple.TaskID, host string, port int, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail {
		return errors.New("cluster state unavailable")
	}
	return nil
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestErrorReporter_RateLimitsRepeatedReports(t *testing.T) {
	rep := &recordingReporter{}
	window := execerrors.RetryConfig{InitialDelay: 50 * time.Millisecond}
	er := NewErrorReporter(rep, window, "topo", "bolt-1", "", 0, nil, nil)

	require.NoError(t, er.ReportError(context.Background(), 1, errors.New("boom")))
	require.NoError(t, er.ReportError(context.Background(), 1, errors.New("boom again")))
	assert.Equal(t, 1, rep.count())

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, er.ReportError(context.Background(), 1, errors.New("boom a third time")))
	assert.Equal(t, 2, rep.count())
}

func TestErrorReporter_NilErrorIsNoop(t *testing.T) {
	rep := &recordingReporter{}
	er := NewErrorReporter(rep, execerrors.DefaultRetryConfig(), "topo", "bolt-1", "", 0, nil, nil)
	require.NoError(t, er.ReportError(context.Background(), 1, nil))
	assert.Equal(t, 0, rep.count())
}

func TestErrorReporter_ReportErrorAndDieAlwaysInvokesSuicide(t *testing.T) {
	rep := &recordingReporter{fail: true}
	var suicided atomic.Bool
	er := NewErrorReporter(rep, execerrors.RetryConfig{}, "topo", "bolt-1", "", 0, func() { suicided.Store(true) }, nil)

	er.ReportErrorAndDie(context.Background(), 1, errors.New("fatal"))
	assert.True(t, suicided.Load())
}

func TestErrorReporter_EmptyHostReportedAsIs(t *testing.T) {
	rep := &recordingReporter{}
	er := NewErrorReporter(rep, execerrors.RetryConfig{}, "topo", "bolt-1", "", 0, nil, nil)
	require.NoError(t, er.ReportError(context.Background(), 1, errors.New("boom")))
	assert.Equal(t, "", er.host)
}
