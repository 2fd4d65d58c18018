package network

import (
	"context"
	"strings"
	stdSync "sync"
	"testing"
	"time"

	"github.com/rintaro216/hokkaido-community-app/kvstore"
	"github.com/rintaro216/hokkaido-community-app/logging"
	"github.com/rintaro216/hokkaido-community-app/outbox"
	"github.com/rintaro216/hokkaido-community-app/types"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "error", Format: "text"})
}

func fastConfig() *Config {
	return &Config{
		UpProbability:   0.9,
		CallFailureRate: 0.5,
		CallLatency:     time.Millisecond,
		Retry:           fastRetryConfig(3),
	}
}

// sequenceRoll returns a roll function that replays values in order and then
// repeats the last one. roll() is already serialized by the service.
func sequenceRoll(values ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func TestInitializeSetsConnectedState(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)

	state := svc.State()
	if state.IsConnected || state.ConnectionType != ConnUnknown {
		t.Errorf("unexpected pre-init state: %+v", state)
	}

	svc.Initialize(context.Background())
	state = svc.State()
	if !state.IsConnected || state.ConnectionType != ConnWifi || !state.IsInternetReachable {
		t.Errorf("unexpected post-init state: %+v", state)
	}
}

func TestConfigDefaults(t *testing.T) {
	svc := New(nil, testLogger(), nil)
	if svc.config.UpProbability != 0.9 {
		t.Errorf("expected up probability 0.9, got %v", svc.config.UpProbability)
	}
	if svc.config.CallFailureRate != 0.2 {
		t.Errorf("expected failure rate 0.2, got %v", svc.config.CallFailureRate)
	}
	if svc.config.CallLatency != time.Second {
		t.Errorf("expected 1s latency, got %v", svc.config.CallLatency)
	}
	if svc.config.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", svc.config.Retry.MaxAttempts)
	}
}

func TestCheckConnectionDeterministic(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)
	svc.Initialize(context.Background())

	svc.randFn = func() float64 { return 0.95 } // above UpProbability
	if svc.CheckConnection(context.Background()) {
		t.Error("expected disconnected on a high roll")
	}
	if svc.State().IsConnected {
		t.Error("expected state to reflect the disconnect")
	}

	svc.randFn = func() float64 { return 0.1 } // below UpProbability
	if !svc.CheckConnection(context.Background()) {
		t.Error("expected connected on a low roll")
	}
}

func TestListenersNotifiedAndUnsubscribed(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)

	var mu stdSync.Mutex
	var got []NetworkState
	unsubscribe := svc.AddListener(func(state NetworkState) {
		mu.Lock()
		got = append(got, state)
		mu.Unlock()
	})

	svc.Initialize(context.Background())
	mu.Lock()
	if len(got) != 1 || !got[0].IsConnected {
		t.Errorf("expected one connected notification, got %v", got)
	}
	mu.Unlock()

	// Same state again is not a change, no notification.
	svc.setState(svc.State())
	mu.Lock()
	if len(got) != 1 {
		t.Errorf("expected no notification without a change, got %d", len(got))
	}
	mu.Unlock()

	unsubscribe()
	svc.setState(NetworkState{IsConnected: false, ConnectionType: ConnNone})
	mu.Lock()
	if len(got) != 1 {
		t.Errorf("expected no notification after unsubscribe, got %d", len(got))
	}
	mu.Unlock()
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)

	svc.AddListener(func(NetworkState) { panic("listener bug") })
	called := false
	svc.AddListener(func(NetworkState) { called = true })

	svc.Initialize(context.Background())
	if !called {
		t.Error("expected the second listener to fire despite the first panicking")
	}
}

func TestConnectionMessage(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)

	svc.setState(NetworkState{IsConnected: false, ConnectionType: ConnNone})
	if got := svc.ConnectionMessage(); got != "オフライン" {
		t.Errorf("unexpected offline message: %q", got)
	}

	svc.setState(NetworkState{IsConnected: true, ConnectionType: ConnWifi, IsInternetReachable: true})
	if got := svc.ConnectionMessage(); got != "Wi-Fi接続" {
		t.Errorf("unexpected wifi message: %q", got)
	}

	svc.setState(NetworkState{IsConnected: true, ConnectionType: ConnCellular, IsInternetReachable: true})
	if got := svc.ConnectionMessage(); got != "モバイル回線" {
		t.Errorf("unexpected cellular message: %q", got)
	}

	svc.setState(NetworkState{IsConnected: true, ConnectionType: ConnWifi, IsInternetReachable: false})
	if got := svc.ConnectionMessage(); got != "インターネットに接続されていません" {
		t.Errorf("unexpected unreachable message: %q", got)
	}
}

func TestAPICallFailsFastWhenDisconnected(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)
	// Never initialized: disconnected.

	start := time.Now()
	resp := svc.APICall(context.Background(), "/posts", "GET", nil, nil)
	if resp.Success {
		t.Error("expected failure while disconnected")
	}
	if resp.Err == "" {
		t.Error("expected a user-facing error message")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("expected fail-fast, not a simulated call")
	}
	if svc.recorder.Len() == 0 {
		t.Error("expected the failure to be recorded")
	}
}

func TestAPICallSucceeds(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)
	svc.Initialize(context.Background())
	svc.randFn = func() float64 { return 0.99 } // never fails

	resp := svc.APICall(context.Background(), "/posts", "GET", nil, nil)
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Err)
	}
	if resp.Data == nil {
		t.Error("expected response data")
	}
	if resp.Timestamp.IsZero() {
		t.Error("expected a response timestamp")
	}
}

func TestAPICallRetriesThenSucceeds(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)
	svc.Initialize(context.Background())
	// First attempt fails, second succeeds.
	svc.randFn = sequenceRoll(0.0, 0.99)

	resp := svc.APICall(context.Background(), "/posts", "GET", nil, nil)
	if !resp.Success {
		t.Fatalf("expected success after retry, got error %q", resp.Err)
	}
}

func TestAPICallTimeoutEnforced(t *testing.T) {
	config := fastConfig()
	config.CallLatency = time.Hour
	svc := New(config, testLogger(), nil)
	svc.Initialize(context.Background())

	start := time.Now()
	resp := svc.APICall(context.Background(), "/slow", "GET", nil,
		&CallOptions{Timeout: 50 * time.Millisecond})
	if resp.Success {
		t.Error("expected timeout failure")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, call took %v", elapsed)
	}
}

func TestUploadImage(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)
	svc.Initialize(context.Background())
	svc.randFn = func() float64 { return 0.99 }

	resp := svc.UploadImage(context.Background(), "file:///tmp/photo.jpg")
	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Err)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data type: %T", resp.Data)
	}
	url, _ := data["url"].(string)
	if !strings.HasPrefix(url, "https://") {
		t.Errorf("expected a hosted url, got %q", url)
	}
}

func TestBatchRequestPartialFailure(t *testing.T) {
	config := fastConfig()
	// Retries for a failed item would re-roll; park them in an hour-long
	// backoff instead and cut them off with the context deadline so each
	// item's first roll decides its fate.
	config.Retry.InitialDelay = time.Hour
	config.Retry.MaxDelay = time.Hour
	svc := New(config, testLogger(), nil)
	svc.Initialize(context.Background())

	// First two rolls fail, the rest succeed. Calls roll at most once each
	// before succeeding or parking, so exactly two distinct items fail.
	svc.randFn = sequenceRoll(0.0, 0.0, 0.99)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	items := []BatchItem{
		{Endpoint: "/a", Method: "GET"},
		{Endpoint: "/b", Method: "GET"},
		{Endpoint: "/c", Method: "GET"},
		{Endpoint: "/d", Method: "GET"},
		{Endpoint: "/e", Method: "GET"},
	}
	resp := svc.BatchRequest(ctx, items)

	if !resp.Success {
		t.Error("expected aggregate success with some calls succeeding")
	}
	data, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("unexpected data type: %T", resp.Data)
	}
	if len(data) != 3 {
		t.Errorf("expected 3 successful results, got %d", len(data))
	}
	if !strings.Contains(resp.Err, "2") {
		t.Errorf("expected the error to report 2 failures, got %q", resp.Err)
	}
}

func TestBatchRequestAllFailWhenDisconnected(t *testing.T) {
	svc := New(fastConfig(), testLogger(), nil)

	resp := svc.BatchRequest(context.Background(), []BatchItem{{Endpoint: "/a"}})
	if resp.Success {
		t.Error("expected failure while disconnected")
	}
	if resp.Err != "ネットワーク接続がありません" {
		t.Errorf("unexpected message: %q", resp.Err)
	}
}

func newTestSyncer(t *testing.T, config *Config) (*Syncer, *outbox.Outbox, *Service) {
	t.Helper()
	store := kvstore.NewMemory()
	logger := testLogger()
	ob := outbox.New(store, logger, nil)
	svc := New(config, logger, nil)
	return NewSyncer(svc, ob, logger), ob, svc
}

func TestSyncSkippedWhenDisconnected(t *testing.T) {
	ctx := context.Background()
	syncer, ob, _ := newTestSyncer(t, fastConfig())
	ob.Add(ctx, types.Post{Content: "queued"})

	result := syncer.Sync(ctx)
	if !result.Skipped {
		t.Error("expected the flush to be skipped while disconnected")
	}
	if got := ob.Pending(ctx); len(got) != 1 {
		t.Errorf("expected the entry to stay queued, got %d", len(got))
	}
}

func TestSyncFlushesAndAcksEachEntry(t *testing.T) {
	ctx := context.Background()
	syncer, ob, svc := newTestSyncer(t, fastConfig())
	svc.Initialize(ctx)
	svc.randFn = func() float64 { return 0.99 }

	ob.Add(ctx, types.Post{Content: "a"})
	ob.Add(ctx, types.Post{Content: "b"})

	result := syncer.Sync(ctx)
	if result.Skipped {
		t.Fatal("unexpected skip")
	}
	if result.Synced != 2 || result.Failed != 0 {
		t.Errorf("expected 2 synced, got %+v", result)
	}
	if got := ob.Pending(ctx); len(got) != 0 {
		t.Errorf("expected an empty queue, got %d entries", len(got))
	}
}

func TestSyncPartialFailureKeepsFailedEntry(t *testing.T) {
	ctx := context.Background()
	syncer, ob, svc := newTestSyncer(t, fastConfig())
	svc.Initialize(ctx)

	// The first entry exhausts its three attempts; the rest succeed.
	// Entries flush sequentially, so the roll order is deterministic.
	svc.randFn = sequenceRoll(0.0, 0.0, 0.0, 0.99)

	first, _ := ob.Add(ctx, types.Post{Content: "fails"})
	ob.Add(ctx, types.Post{Content: "b"})
	ob.Add(ctx, types.Post{Content: "c"})

	result := syncer.Sync(ctx)
	if result.Synced != 2 || result.Failed != 1 {
		t.Errorf("expected 2 synced and 1 failed, got %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(result.Errors))
	}

	pending := ob.Pending(ctx)
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Errorf("expected only the failed entry to stay queued, got %v", pending)
	}
}

func TestAutoSyncLifecycle(t *testing.T) {
	syncer, _, _ := newTestSyncer(t, fastConfig())

	if err := syncer.StartAutoSync(context.Background()); err == nil {
		t.Error("expected an error with no interval configured")
	}

	syncer.Interval = 10 * time.Millisecond
	if err := syncer.StartAutoSync(context.Background()); err != nil {
		t.Fatalf("StartAutoSync failed: %v", err)
	}
	if err := syncer.StartAutoSync(context.Background()); err == nil {
		t.Error("expected an error when already running")
	}

	if err := syncer.StopAutoSync(); err != nil {
		t.Fatalf("StopAutoSync failed: %v", err)
	}
	if err := syncer.StopAutoSync(); err == nil {
		t.Error("expected an error when not running")
	}
}
