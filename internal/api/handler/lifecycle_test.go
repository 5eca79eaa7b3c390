package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/mailprov/internal/mailcow"
	"github.com/edvin/mailprov/internal/provision"
)

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Result
}

// --- Metadata / Buttons ---

func TestLifecycleMetadata(t *testing.T) {
	h := NewLifecycle(&mockProvisioner{})
	rec := httptest.NewRecorder()

	h.Metadata(rec, newRequest(http.MethodGet, "/v1/metadata", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body provision.Metadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MailCow", body.DisplayName)
	assert.Equal(t, "1.1", body.APIVersion)
	assert.True(t, body.RequiresServer)
}

func TestLifecycleButtons(t *testing.T) {
	h := NewLifecycle(&mockProvisioner{})
	rec := httptest.NewRecorder()

	h.Buttons(rec, newRequest(http.MethodGet, "/v1/buttons", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SyncUsername", body["Change Username"])
}

// --- Run ---

func TestLifecycleRun_Dispatch(t *testing.T) {
	tests := []struct {
		action string
		method string
	}{
		{"create", "CreateAccount"},
		{"suspend", "SuspendAccount"},
		{"unsuspend", "UnsuspendAccount"},
		{"terminate", "TerminateAccount"},
		{"change-package", "ChangePackage"},
		{"change-password", "ChangePassword"},
		{"sync-username", "SyncUsername"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			svc := &mockProvisioner{}
			svc.On(tt.method, mock.Anything, mock.MatchedBy(func(p provision.Params) bool {
				return p.ServiceID == 7 && p.Domain == "example.com" && p.Server.Hostname == "mail.example.com"
			})).Return(provision.OK())

			h := NewLifecycle(svc)
			rec := httptest.NewRecorder()
			r := withChiURLParam(newRequest(http.MethodPost, "/v1/lifecycle/"+tt.action, validParams()), "action", tt.action)

			h.Run(rec, r)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "success", decodeResult(t, rec))
			svc.AssertExpectations(t)
		})
	}
}

func TestLifecycleRun_FailureIsResult(t *testing.T) {
	svc := &mockProvisioner{}
	svc.On("CreateAccount", mock.Anything, mock.Anything).Return(provision.Err("MailCow API error: domain_exists"))

	h := NewLifecycle(svc)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/v1/lifecycle/create", validParams()), "action", "create")

	h.Run(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MailCow API error: domain_exists", decodeResult(t, rec))
}

func TestLifecycleRun_UnknownAction(t *testing.T) {
	h := NewLifecycle(&mockProvisioner{})
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/v1/lifecycle/renew", validParams()), "action", "renew")

	h.Run(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "renew")
}

func TestLifecycleRun_InvalidJSON(t *testing.T) {
	h := NewLifecycle(&mockProvisioner{})
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequestRaw(http.MethodPost, "/v1/lifecycle/create", "{bad json"), "action", "create")

	h.Run(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "invalid JSON")
}

func TestLifecycleRun_MissingServer(t *testing.T) {
	h := NewLifecycle(&mockProvisioner{})
	rec := httptest.NewRecorder()
	body := validParams()
	delete(body, "server")
	r := withChiURLParam(newRequest(http.MethodPost, "/v1/lifecycle/suspend", body), "action", "suspend")

	h.Run(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "validation error")
}

// --- Custom ---

func TestLifecycleCustom(t *testing.T) {
	svc := &mockProvisioner{}
	svc.On("CustomAction", mock.Anything, "SyncUsername", mock.Anything).Return(provision.OK(), true)

	h := NewLifecycle(svc)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/v1/lifecycle/custom/SyncUsername", validParams()), "button", "SyncUsername")

	h.Custom(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeResult(t, rec))
}

func TestLifecycleCustom_Unknown(t *testing.T) {
	svc := &mockProvisioner{}
	svc.On("CustomAction", mock.Anything, "Reboot", mock.Anything).Return(provision.Result{}, false)

	h := NewLifecycle(svc)
	rec := httptest.NewRecorder()
	r := withChiURLParam(newRequest(http.MethodPost, "/v1/lifecycle/custom/Reboot", validParams()), "button", "Reboot")

	h.Custom(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- TestConnection ---

func TestLifecycleTestConnection(t *testing.T) {
	svc := &mockProvisioner{}
	svc.On("TestConnection", mock.Anything, provision.Params{
		Server: mailcow.Server{Hostname: "mail.example.com", APIKey: "mailcow-key", Secure: true},
	}).Return(provision.ConnectionResult{Success: false, Error: "connection error: refused"})

	h := NewLifecycle(svc)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/v1/test-connection", map[string]any{"server": validParams()["server"]})

	h.TestConnection(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body provision.ConnectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, provision.ConnectionResult{Success: false, Error: "connection error: refused"}, body)
}

func TestLifecycleTestConnection_MissingHostname(t *testing.T) {
	h := NewLifecycle(&mockProvisioner{})
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/v1/test-connection", map[string]any{"server": map[string]any{"api_key": "k"}})

	h.TestConnection(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body provision.ConnectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "validation error")
	assert.Contains(t, body.Error, "Hostname")
}

func TestLifecycleTestConnection_MalformedBody(t *testing.T) {
	h := NewLifecycle(&mockProvisioner{})
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/v1/test-connection", "{not json")

	h.TestConnection(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
