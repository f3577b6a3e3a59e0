package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/personamesh/core"
	"github.com/hupe1980/personamesh/engine"
	"github.com/hupe1980/personamesh/persona"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := persona.NewInMemoryDirectory(
		core.Persona{ID: "p1", Name: "Maya", Occupation: "nurse"},
		core.Persona{ID: "p2", Name: "Jonas", Occupation: "teacher"},
	)
	e := engine.New(func(o *engine.Options) {
		o.Personas = dir
	})
	t.Cleanup(e.Shutdown)
	return NewRouter(e)
}

func createSession(t *testing.T, router http.Handler, body string) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(body))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestCreateSession(t *testing.T) {
	router := testRouter(t)
	created := createSession(t, router, `{"name":"focus group","personaIds":["p1","p2"],"topic":"city parks"}`)

	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "focus group", created["name"])
	agents, ok := created["agents"].([]any)
	require.True(t, ok)
	assert.Len(t, agents, 2)
	require.NotNil(t, created["systemAgent"])
}

func TestCreateSession_Validation(t *testing.T) {
	router := testRouter(t)
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing name", `{"personaIds":["p1"]}`},
		{"missing personas", `{"name":"x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(tc.body))
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateSession_UnresolvedPersonas(t *testing.T) {
	router := testRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions",
		bytes.NewBufferString(`{"name":"x","personaIds":["ghost"],"topic":"y"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSessions(t *testing.T) {
	router := testRouter(t)
	createSession(t, router, `{"name":"a","personaIds":["p1"],"topic":"t1"}`)
	createSession(t, router, `{"name":"b","personaIds":["p2"],"topic":"t2"}`)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sessions []struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			AgentCount int    `json:"agentCount"`
			Status     string `json:"status"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Sessions, 2)
	for _, s := range resp.Sessions {
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, 1, s.AgentCount)
	}
}

func TestGetSession(t *testing.T) {
	router := testRouter(t)
	created := createSession(t, router, `{"name":"a","personaIds":["p1","p2"],"topic":"transit"}`)
	id := created["id"].(string)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got["id"])
}

func TestGetSession_NotFound(t *testing.T) {
	router := testRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage(t *testing.T) {
	router := testRouter(t)
	created := createSession(t, router, `{"name":"a","personaIds":["p1","p2"],"topic":"transit"}`)
	id := created["id"].(string)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/sessions/%s/message", id),
		bytes.NewBufferString(`{"message":"what about winter service?"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		MessageID       string `json:"messageId"`
		TriggeredAgents []struct {
			AgentID string `json:"agentId"`
			Status  string `json:"status"`
		} `json:"triggeredAgents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.MessageID)
	assert.Len(t, res.TriggeredAgents, 2)
}

func TestSendMessage_Validation(t *testing.T) {
	router := testRouter(t)
	created := createSession(t, router, `{"name":"a","personaIds":["p1"],"topic":"t"}`)
	id := created["id"].(string)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/sessions/%s/message", id),
		bytes.NewBufferString(`{"message":""}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEndSession(t *testing.T) {
	router := testRouter(t)
	created := createSession(t, router, `{"name":"a","personaIds":["p1"],"topic":"t"}`)
	id := created["id"].(string)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The completed session now rejects further messages.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/sessions/%s/message", id),
		bytes.NewBufferString(`{"message":"still there?"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEndSession_NotFound(t *testing.T) {
	router := testRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/missing", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	router := testRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
