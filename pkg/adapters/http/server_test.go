package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/pkg/adapters/memory"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, opts ...Option) (http.Handler, *session.Manager, *memory.Ledger) {
	t.Helper()
	ledger := memory.NewLedger()
	mgr := session.NewManager(ledger, func(context.Context, string) (ports.HardwareGateway, error) {
		return memory.NewHardware(), nil
	})
	t.Cleanup(func() { _ = mgr.CloseAll(context.Background()) })

	base := []Option{WithLogger(logging.NewNop())}
	return NewHandler(mgr, append(base, opts...)...), mgr, ledger
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndInfo(t *testing.T) {
	h, _, _ := newTestHandler(t, WithVersion("1.2.3"))

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
}

func TestDeviceLifecycle(t *testing.T) {
	h, mgr, ledger := newTestHandler(t)

	w := do(t, h, "POST", "/devices", `{"device_id":"dev-1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var opened deviceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
	assert.Equal(t, "dev-1", opened.DeviceID)
	assert.Equal(t, domain.RunIdle, opened.State.RunState)

	w = do(t, h, "GET", "/devices", "")
	assert.JSONEq(t, `{"devices":["dev-1"]}`, w.Body.String())

	for _, body := range []string{
		`{"type":"append_digit","digit":"5"}`, `{"type":"commit_and_cycle"}`,
		`{"type":"append_digit","digit":"2"}`, `{"type":"commit_and_cycle"}`,
		`{"type":"append_digit","digit":"1"}`, `{"type":"commit_and_cycle"}`,
	} {
		w = do(t, h, "POST", "/devices/dev-1/intents", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = do(t, h, "POST", "/devices/dev-1/intents", `{"type":"toggle_start_stop","customer":{"id":4}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp intentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.State.IsRunning)
	assert.Empty(t, resp.Events)

	op, err := ledger.Operation(context.Background(), resp.State.OperationID)
	require.NoError(t, err)
	require.NotNil(t, op.Customer)
	assert.Equal(t, int64(4), op.Customer.ID)

	w = do(t, h, "GET", "/devices/dev-1/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_state":"running"`)

	w = do(t, h, "DELETE", "/devices/dev-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, mgr.List())

	op, err = ledger.Operation(context.Background(), resp.State.OperationID)
	require.NoError(t, err)
	assert.Equal(t, domain.StopShutdown, op.StopReason)
}

func TestOpenWithoutBodyAllocatesID(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := do(t, h, "POST", "/devices", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var opened deviceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
	assert.NotEmpty(t, opened.DeviceID)
}

func TestIntentErrors(t *testing.T) {
	h, _, _ := newTestHandler(t)
	do(t, h, "POST", "/devices", `{"device_id":"dev-1"}`)

	w := do(t, h, "POST", "/devices/dev-1/intents", `{"type":"launch"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/devices/dev-1/intents", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/devices/missing/intents", `{"type":"stop"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "DELETE", "/devices/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectedStartReturnsEvent(t *testing.T) {
	h, _, _ := newTestHandler(t)
	do(t, h, "POST", "/devices", `{"device_id":"dev-1"}`)

	w := do(t, h, "POST", "/devices/dev-1/intents", `{"type":"toggle_start_stop"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp intentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, domain.EventToast, resp.Events[0].Kind)
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pulse_up 1\n"))
	})
	h, _, _ := newTestHandler(t, WithMetrics(metrics))

	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, "pulse_up 1\n", w.Body.String())
}

func TestSubscribeEvents_Device(t *testing.T) {
	h, _, _ := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	res, err := http.Post(srv.URL+"/devices", "application/json", bytes.NewBufferString(`{"device_id":"dev-1"}`))
	require.NoError(t, err)
	res.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/devices/dev-1/events", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stream.Body)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				lines <- line
			}
		}
	}()

	next := func() string {
		select {
		case l, ok := <-lines:
			require.True(t, ok, "stream ended")
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for SSE frame")
			return ""
		}
	}

	assert.Equal(t, "event: ping", next())
	assert.Equal(t, "data: connected", next())
	assert.Contains(t, next(), `"run_state":"idle"`)

	res, err = http.Post(srv.URL+"/devices/dev-1/intents", "application/json",
		bytes.NewBufferString(`{"type":"append_digit","digit":"7"}`))
	require.NoError(t, err)
	res.Body.Close()

	frame := next()
	require.True(t, strings.HasPrefix(frame, "data: "), frame)
	var u session.Update
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &u))
	assert.Equal(t, "7", u.State.Frequency.Raw)
}
