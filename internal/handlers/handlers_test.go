package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"github.com/ternarybob/sellersync/internal/services/credentials"
	"github.com/ternarybob/sellersync/internal/services/runs"
)

type fakeController struct {
	profiles []models.ProfileDescriptor
	err      error
}

func (c *fakeController) Start(ctx context.Context, id string) (models.ProfileHandle, error) {
	return models.ProfileHandle{}, nil
}
func (c *fakeController) Stop(ctx context.Context, id string)                 {}
func (c *fakeController) Status(ctx context.Context, id string) (int, error) { return 0, nil }
func (c *fakeController) List(ctx context.Context) ([]models.ProfileDescriptor, error) {
	return c.profiles, c.err
}

type fakeLogins struct {
	refs []string
}

func (l *fakeLogins) Login(ctx context.Context, ref string) models.LoginResult {
	l.refs = append(l.refs, ref)
	return models.LoginResult{ProfileID: ref, Success: true, Kind: models.LoginSuccess}
}

func (l *fakeLogins) LoginMany(ctx context.Context, refs []string) []models.LoginResult {
	results := make([]models.LoginResult, len(refs))
	for i, ref := range refs {
		results[i] = l.Login(ctx, ref)
	}
	return results
}

type fakeRuns struct {
	started  [][]string
	trigger  string
	startErr error
	reports  map[string]*models.BatchReport
}

func (r *fakeRuns) Start(ctx context.Context, trigger string, ids []string) (string, error) {
	if r.startErr != nil {
		return "", r.startErr
	}
	r.trigger = trigger
	r.started = append(r.started, ids)
	return "run-123", nil
}

func (r *fakeRuns) RunSync(ctx context.Context, trigger string, ids []string) (*models.BatchReport, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.trigger = trigger
	report := &models.BatchReport{RunID: "run-sync", Trigger: trigger}
	for _, id := range ids {
		report.Results = append(report.Results, models.ProfileResult{ProfileID: id, Success: true})
	}
	report.Tally()
	return report, nil
}

func (r *fakeRuns) Get(ctx context.Context, runID string) (*models.BatchReport, error) {
	if report, ok := r.reports[runID]; ok {
		return report, nil
	}
	return nil, fmt.Errorf("%w: %s", models.ErrReportNotFound, runID)
}

func (r *fakeRuns) List(ctx context.Context, limit int) ([]*models.BatchReport, error) {
	var out []*models.BatchReport
	for _, report := range r.reports {
		out = append(out, report)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRuns) Active() []string { return []string{} }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newCredentialStore(t *testing.T) *credentials.Store {
	t.Helper()
	store := credentials.NewStore(arbor.NewLogger().WithWriters([]writers.IWriter{}))
	store.ReplaceAll([]models.Credentials{
		{ProfileID: "p1", ProfileName: "Shop One", Email: "one@example.com", Password: "s3cret", TOTPSecret: "JBSWY3DPEHPK3PXP"},
	})
	return store
}

func TestHealthAndMethodCheck(t *testing.T) {
	h := NewAPIHandler(arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProfileHandler_List(t *testing.T) {
	controller := &fakeController{profiles: []models.ProfileDescriptor{{ID: "p1", Name: "Shop One"}, {ID: "p2", Name: "Shop Two"}}}
	h := NewProfileHandler(controller, newCredentialStore(t), arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Profiles []ProfileView `json:"profiles"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.True(t, body.Profiles[0].HasCredentials)
	assert.False(t, body.Profiles[1].HasCredentials)
	assert.Equal(t, "Shop Two", body.Profiles[1].Name)
}

func TestProfileHandler_ControlPlaneDown(t *testing.T) {
	h := NewProfileHandler(&fakeController{err: errors.New("connection refused")}, newCredentialStore(t), arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCredentialsHandler_ListHidesSecrets(t *testing.T) {
	h := NewCredentialsHandler(newCredentialStore(t), credentials.NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})), arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/credentials", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	raw := rec.Body.String()
	assert.Contains(t, raw, "one@example.com")
	assert.Contains(t, raw, `"has_totp":true`)
	assert.NotContains(t, raw, "s3cret")
	assert.NotContains(t, raw, "JBSWY3DPEHPK3PXP")
}

func TestCredentialsHandler_LoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,email,password\np7,seven@example.com,pw\np8,eight@example.com,pw\n"), 0600))

	store := newCredentialStore(t)
	h := NewCredentialsHandler(store, credentials.NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})), arbor.NewLogger().WithWriters([]writers.IWriter{}))

	req := httptest.NewRequest(http.MethodPost, "/api/credentials/load", strings.NewReader(`{"path":"`+filepath.ToSlash(path)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.LoadHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
	assert.Nil(t, store.GetByProfileID("p1"), "load replaces the previous set")
	assert.NotNil(t, store.GetByProfileID("p8"))
}

func TestCredentialsHandler_LoadUpload(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "accounts.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, "Profile ID,E-mail,Pass\nu1,u1@example.com,pw\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	store := newCredentialStore(t)
	h := NewCredentialsHandler(store, credentials.NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})), arbor.NewLogger().WithWriters([]writers.IWriter{}))

	req := httptest.NewRequest(http.MethodPost, "/api/credentials/load", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.LoadHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, "u1@example.com", store.GetByProfileID("u1").Email)
}

func TestCredentialsHandler_LoadErrors(t *testing.T) {
	store := newCredentialStore(t)
	h := NewCredentialsHandler(store, credentials.NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})), arbor.NewLogger().WithWriters([]writers.IWriter{}))

	for name, body := range map[string]string{
		"empty path":   `{"path":""}`,
		"unknown type": `{"path":"creds.json"}`,
		"bad json":     `{"path":`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/credentials/load", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.LoadHandler(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 1, store.Count(), "failed loads leave the store untouched")
}

func TestLoginHandler(t *testing.T) {
	logins := &fakeLogins{}
	h := NewLoginHandler(logins, arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login/Shop%20One", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Shop One"}, logins.refs)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	rec = httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.LoginManyHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"profiles":["a","b"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["results"], 2)

	rec = httptest.NewRecorder()
	h.LoginManyHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"profiles":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsHandler_Batch(t *testing.T) {
	manager := &fakeRuns{}
	h := NewRunsHandler(manager, arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.BatchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(`{"profile_ids":["p1","p2"]}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "run-123", decodeBody(t, rec)["run_id"])
	assert.Equal(t, [][]string{{"p1", "p2"}}, manager.started)
	assert.Equal(t, runs.TriggerAPI, manager.trigger)

	// Empty body runs every profile
	rec = httptest.NewRecorder()
	h.BatchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/batch", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Nil(t, manager.started[1])

	rec = httptest.NewRecorder()
	h.BatchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(`{"profile_ids":["p1"],"wait":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-sync", decodeBody(t, rec)["run_id"])
}

func TestRunsHandler_BatchStartFailure(t *testing.T) {
	h := NewRunsHandler(&fakeRuns{startErr: errors.New("list profiles: connection refused")}, arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.BatchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/batch", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRunsHandler_BatchAlreadyRunning(t *testing.T) {
	h := NewRunsHandler(&fakeRuns{startErr: models.ErrRunActive}, arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.BatchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/batch", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.BatchHandler(rec, httptest.NewRequest(http.MethodPost, "/api/batch", strings.NewReader(`{"wait":true}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRunsHandler_GetAndList(t *testing.T) {
	manager := &fakeRuns{reports: map[string]*models.BatchReport{"r1": {RunID: "r1", Total: 2}}}
	h := NewRunsHandler(manager, arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.GetHandler(rec, httptest.NewRequest(http.MethodGet, "/api/runs/r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["total"])

	rec = httptest.NewRecorder()
	h.GetHandler(rec, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["runs"], 1)
}

func TestPathParamAndLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/runs/abc/", nil)
	assert.Equal(t, "abc", PathParam(req, "/api/runs/"))

	req = httptest.NewRequest(http.MethodGet, "/api/runs/abc/extra", nil)
	assert.Equal(t, "", PathParam(req, "/api/runs/"))

	assert.Equal(t, 20, GetLimitParam(httptest.NewRequest(http.MethodGet, "/x", nil), 20, 100))
	assert.Equal(t, 100, GetLimitParam(httptest.NewRequest(http.MethodGet, "/x?limit=500", nil), 20, 100))
	assert.Equal(t, 20, GetLimitParam(httptest.NewRequest(http.MethodGet, "/x?limit=-1", nil), 20, 100))
}

type fakeScheduler struct {
	triggered []string
}

func (s *fakeScheduler) RegisterJob(name, schedule string, handler func() error) error { return nil }
func (s *fakeScheduler) Start() error                                                 { return nil }
func (s *fakeScheduler) Stop() error                                                  { return nil }
func (s *fakeScheduler) IsRunning() bool                                              { return true }
func (s *fakeScheduler) TriggerJob(name string) error {
	if name != "scheduled_batch" {
		return fmt.Errorf("job not found: %s", name)
	}
	s.triggered = append(s.triggered, name)
	return nil
}
func (s *fakeScheduler) GetAllJobStatuses() map[string]*interfaces.JobStatus {
	return map[string]*interfaces.JobStatus{
		"scheduled_batch": {Name: "scheduled_batch", Schedule: "0 6 * * *"},
	}
}

func TestSchedulerHandler(t *testing.T) {
	sched := &fakeScheduler{}
	h := NewSchedulerHandler(sched, arbor.NewLogger().WithWriters([]writers.IWriter{}))

	rec := httptest.NewRecorder()
	h.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"schedule":"0 6 * * *"`)

	rec = httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/schedule/trigger?job=scheduled_batch", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"scheduled_batch"}, sched.triggered)

	rec = httptest.NewRecorder()
	h.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/schedule/trigger?job=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
