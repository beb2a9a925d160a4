package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careline-chatbot/internal/agent"
	"careline-chatbot/pkg"
)

type fakeRunner struct {
	state    *agent.State
	err      error
	gotUser  string
	gotMsg   string
	gotPrior []pkg.ChatMessage
}

func (f *fakeRunner) Run(_ context.Context, userID, threadID, message string, prior []pkg.ChatMessage) (*agent.State, error) {
	f.gotUser = userID
	f.gotMsg = message
	f.gotPrior = prior
	if f.err != nil {
		return nil, f.err
	}
	st := f.state
	st.UserID = userID
	st.ThreadID = threadID
	return st, nil
}

type fakeStore struct {
	prior     []pkg.ChatMessage
	stored    []pkg.StoredMessage
	priorErr  error
	saveErr   error
	saveCalls int
}

func (f *fakeStore) PriorHistory(_ context.Context, _ string, _ int) ([]pkg.ChatMessage, error) {
	return f.prior, f.priorErr
}

func (f *fakeStore) History(_ context.Context, _ string, limit int) ([]pkg.StoredMessage, error) {
	if limit > 0 && limit < len(f.stored) {
		return f.stored[:limit], nil
	}
	return f.stored, nil
}

func (f *fakeStore) SaveRun(_ context.Context, _, _, _, _ string) error {
	f.saveCalls++
	return f.saveErr
}

type fakeProfileProvider struct {
	profile pkg.Profile
	err     error
}

func (f *fakeProfileProvider) Resolve(_ context.Context, _ string) (pkg.Profile, error) {
	return f.profile, f.err
}

func newTestServer(t *testing.T, runner ChatRunner, store HistoryStore, provider agent.ContextProvider) *Server {
	t.Helper()
	srv, err := NewServer(runner, store, provider, []string{"http://localhost:3000"}, nil)
	require.NoError(t, err)
	return srv
}

func happyState() *agent.State {
	return &agent.State{
		Profile:   pkg.Profile{"name": "Jane Doe"},
		LastReply: "Plenty of vegetables is a good start.",
		Escalated: false,
		Stage:     agent.StageDone,
	}
}

func TestChatHappyPath(t *testing.T) {
	runner := &fakeRunner{state: happyState()}
	store := &fakeStore{}
	srv := newTestServer(t, runner, store, &fakeProfileProvider{})

	body := `{"user_id":"patient-123","message":"Can you give me a diet suggestion?"}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Plenty of vegetables is a good start.", resp.Reply)
	assert.False(t, resp.Escalated)
	assert.Equal(t, "patient-123", resp.UserID)
	assert.True(t, strings.HasPrefix(resp.ThreadID, "thread-patient-123-"), "thread ID minted when absent: %s", resp.ThreadID)
	assert.Equal(t, "Jane Doe", resp.Profile["name"])
	assert.Equal(t, 1, store.saveCalls)
}

func TestChatKeepsSuppliedThreadID(t *testing.T) {
	runner := &fakeRunner{state: happyState()}
	srv := newTestServer(t, runner, &fakeStore{}, &fakeProfileProvider{})

	body := `{"user_id":"patient-123","message":"hello","thread_id":"thread-abc"}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "thread-abc", resp.ThreadID)
}

func TestChatRequestValidation(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, &fakeProfileProvider{})
	cases := []struct {
		name string
		body string
	}{
		{"not json", "not json at all"},
		{"missing user_id", `{"message":"hi"}`},
		{"empty user_id", `{"user_id":"","message":"hi"}`},
		{"missing message", `{"user_id":"patient-123"}`},
		{"empty message", `{"user_id":"patient-123","message":""}`},
		{"unknown field", `{"user_id":"patient-123","message":"hi","extra":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestChatInvalidInputFromPipeline(t *testing.T) {
	runner := &fakeRunner{err: &agent.InvalidInputError{Field: "history", Reason: "bad role"}}
	srv := newTestServer(t, runner, &fakeStore{}, &fakeProfileProvider{})

	rec := httptest.NewRecorder()
	body := `{"user_id":"patient-123","message":"hi"}`
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatPersistenceFailureStillReplies(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	srv := newTestServer(t, &fakeRunner{state: happyState()}, store, &fakeProfileProvider{})

	rec := httptest.NewRecorder()
	body := `{"user_id":"patient-123","message":"hi"}`
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatPriorHistoryFlowsToRunner(t *testing.T) {
	prior := []pkg.ChatMessage{{Role: pkg.RoleUser, Text: "earlier"}}
	runner := &fakeRunner{state: happyState()}
	srv := newTestServer(t, runner, &fakeStore{prior: prior}, &fakeProfileProvider{})

	rec := httptest.NewRecorder()
	body := `{"user_id":"patient-123","message":"hi"}`
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prior, runner.gotPrior)
	assert.Equal(t, "hi", runner.gotMsg)
}

func TestPatientEndpoint(t *testing.T) {
	provider := &fakeProfileProvider{profile: pkg.Profile{"name": "Jane Doe"}}
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, provider)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patient/patient-123", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UserID  string      `json:"user_id"`
		Profile pkg.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "patient-123", resp.UserID)
	assert.Equal(t, "Jane Doe", resp.Profile["name"])
}

func TestPatientEndpointDegradesOnLookupFailure(t *testing.T) {
	provider := &fakeProfileProvider{err: errors.New("db down")}
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, provider)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patient/patient-123", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Profile pkg.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Profile.Degraded())
	assert.Equal(t, "Patient", resp.Profile["name"])
}

func TestHistoryEndpoint(t *testing.T) {
	store := &fakeStore{stored: []pkg.StoredMessage{
		{ID: 1, UserID: "patient-123", Role: pkg.RoleUser, Text: "hi", CreatedAt: time.Now()},
		{ID: 2, UserID: "patient-123", Role: pkg.RoleAssistant, Text: "hello", CreatedAt: time.Now()},
	}}
	srv := newTestServer(t, &fakeRunner{state: happyState()}, store, &fakeProfileProvider{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/history/patient-123?limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UserID   string              `json:"user_id"`
		Messages []pkg.StoredMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "patient-123", resp.UserID)
	assert.Len(t, resp.Messages, 1)
}

func TestHistoryEndpointBadLimit(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, &fakeProfileProvider{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/history/patient-123?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, &fakeProfileProvider{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp pkg.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, &fakeProfileProvider{})
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, &fakeProfileProvider{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatPageRenders(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, &fakeProfileProvider{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/patient-123", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "patient-123")
	assert.Contains(t, rec.Body.String(), "chat-form")
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{state: happyState()}, &fakeStore{}, &fakeProfileProvider{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
