package profiles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/sellersync/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(arbor.NewLogger().WithWriters([]writers.IWriter{}), WithBaseURL(server.URL), WithRateLimit(1000))
}

func TestStart_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/profiles/start/p1", r.URL.Path)
		w.Write([]byte(`{"code":0,"msg":"ok","data":{"success":true,"port":9333}}`))
	})

	handle, err := client.Start(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProfileHandle{ProfileID: "p1", DebugPort: 9333}, handle)
}

func TestStart_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"already running", http.StatusConflict, `{"code":1,"msg":"running"}`, models.ErrControlPlaneConflict},
		{"in use by another actor", http.StatusBadRequest, `{"code":1,"msg":"locked"}`, models.ErrControlPlaneDenied},
		{"server error", http.StatusInternalServerError, `oops`, models.ErrControlPlaneTransient},
		{"non-zero code", http.StatusOK, `{"code":7,"msg":"quota"}`, models.ErrControlPlaneTransient},
		{"unsuccessful", http.StatusOK, `{"code":0,"data":{"success":false}}`, models.ErrControlPlaneTransient},
		{"missing port", http.StatusOK, `{"code":0,"data":{"success":true}}`, models.ErrControlPlaneTransient},
		{"garbage", http.StatusOK, `not json`, models.ErrControlPlaneTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Start(context.Background(), "p1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestStart_TransportFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewClient(arbor.NewLogger().WithWriters([]writers.IWriter{}), WithBaseURL(baseURL))
	_, err := client.Start(context.Background(), "p1")
	assert.ErrorIs(t, err, models.ErrControlPlaneTransient)
}

func TestStop_SwallowsErrors(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/profiles/stop/p1", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	})

	client.Stop(context.Background(), "p1")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/profiles/status/p1":
			w.Write([]byte(`{"code":0,"data":{"port":9222}}`))
		default:
			w.Write([]byte(`{"code":0,"data":{}}`))
		}
	})

	port, err := client.Status(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 9222, port)

	_, err = client.Status(context.Background(), "p2")
	assert.ErrorIs(t, err, models.ErrControlPlaneTransient)
}

func TestList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profiles", r.URL.Path)
		w.Write([]byte(`{"code":0,"data":[{"id":"p1","name":"Shop One","group":"us","status":"stopped"},{"id":"p2","name":"Shop Two"}]}`))
	})

	profiles, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Shop One", profiles[0].Name)
	assert.Equal(t, "p2", profiles[1].ID)
}

func TestAcquire_ConflictFallsBackToStatus(t *testing.T) {
	var statusCalls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/profiles/start/p1":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"code":1,"msg":"already running"}`))
		case "/profiles/status/p1":
			atomic.AddInt32(&statusCalls, 1)
			w.Write([]byte(`{"code":0,"data":{"port":9222}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	handle, err := Acquire(context.Background(), client, arbor.NewLogger().WithWriters([]writers.IWriter{}), "p1")
	require.NoError(t, err)
	assert.Equal(t, 9222, handle.DebugPort)
	assert.Equal(t, "p1", handle.ProfileID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&statusCalls))
}

func TestAcquire_DeniedIsReturnedWithoutStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/start/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := Acquire(context.Background(), client, arbor.NewLogger().WithWriters([]writers.IWriter{}), "p1")
	assert.ErrorIs(t, err, models.ErrControlPlaneDenied)
	assert.True(t, models.IsTerminal(err))
}
