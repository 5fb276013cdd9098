package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/sift/internal/config"
	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/idempotency"
	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/priority"
	"github.com/harunnryd/sift/internal/transcript"
	"github.com/harunnryd/sift/internal/video"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVideo struct {
	sessionKey string
	err        error
}

func (f *fakeVideo) Chat(ctx context.Context, sessionKey string, req video.ChatRequest) (*video.ChatResponse, error) {
	f.sessionKey = sessionKey
	if f.err != nil {
		return nil, f.err
	}
	return &video.ChatResponse{Response: "echo: " + req.Message, RelevantTimestamps: []float64{65}}, nil
}

func (f *fakeVideo) Summary(ctx context.Context, sessionKey string, req video.SummaryRequest) (*video.SummaryResponse, error) {
	f.sessionKey = sessionKey
	if f.err != nil {
		return nil, f.err
	}
	return &video.SummaryResponse{Summary: "short", KeyPoints: []string{"one"}}, nil
}

func (f *fakeVideo) Quiz(ctx context.Context, sessionKey string, req video.QuizRequest) (*video.QuizResponse, error) {
	f.sessionKey = sessionKey
	if f.err != nil {
		return nil, f.err
	}
	return &video.QuizResponse{Questions: []video.QuizQuestion{{Question: "q?", Options: []string{"a", "b"}, CorrectAnswer: 0}}}, nil
}

type emptyMailbox struct{}

func (emptyMailbox) Connect(ctx context.Context) error { return nil }
func (emptyMailbox) FetchRecent(ctx context.Context, limit int, since time.Time) ([]mail.RawMessage, error) {
	return nil, nil
}
func (emptyMailbox) Move(ctx context.Context, uid uint32, folder string) error { return nil }
func (emptyMailbox) Close() error                                              { return nil }

type routineClassifier struct{}

func (routineClassifier) Classify(ctx context.Context, raw []byte) (priority.Prediction, error) {
	return priority.Prediction{Label: priority.Routine, Confidence: 0.5}, nil
}

func newMailAgent(t *testing.T) *mail.Agent {
	t.Helper()
	dir := t.TempDir()

	prefs, err := mail.LoadPreferences(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err)
	processed, err := idempotency.NewStore(filepath.Join(dir, "processed.json"), 0)
	require.NoError(t, err)

	return mail.NewAgent(config.MailConfig{}, emptyMailbox{}, routineClassifier{}, prefs, processed, mail.NewFeedbackLog(filepath.Join(dir, "feedback.json")))
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestRootAndHealth(t *testing.T) {
	cache := transcript.NewCache(transcript.CacheConfig{}, nil)
	cache.Store("s", "v", []transcript.Segment{{Text: "hi"}})

	h := NewRouter(Dependencies{
		Video: &fakeVideo{},
		Cache: cache,
		Components: func(ctx context.Context) map[string]ComponentStatus {
			return map[string]ComponentStatus{"models": {Healthy: true}}
		},
	})

	rec := do(t, h, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "running")

	rec = do(t, h, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status          string                     `json:"status"`
		Components      map[string]ComponentStatus `json:"components"`
		TranscriptCache transcript.Stats           `json:"transcript_cache"`
		MailEnabled     bool                       `json:"mail_enabled"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Components["models"].Healthy)
	assert.Equal(t, 1, body.TranscriptCache.Sessions)
	assert.False(t, body.MailEnabled)
}

func TestHealthDegraded(t *testing.T) {
	h := NewRouter(Dependencies{
		Video: &fakeVideo{},
		Components: func(ctx context.Context) map[string]ComponentStatus {
			return map[string]ComponentStatus{"mail": {Healthy: false, Error: "login failed"}}
		},
	})

	rec := do(t, h, http.MethodGet, "/health", nil, nil)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "degraded", body["status"])
}

func TestVideoChatSessionHeader(t *testing.T) {
	fv := &fakeVideo{}
	h := NewRouter(Dependencies{Video: fv})

	t.Run("echoes provided session", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/video/chat",
			map[string]string{"video_id": "abc", "message": "hello"},
			map[string]string{SessionHeader: "sess_given"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sess_given", rec.Header().Get(SessionHeader))
		assert.Equal(t, "sess_given", fv.sessionKey)

		var resp video.ChatResponse
		decode(t, rec, &resp)
		assert.Equal(t, "echo: hello", resp.Response)
		assert.Equal(t, []float64{65}, resp.RelevantTimestamps)
	})

	t.Run("generates missing session", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/video/chat",
			map[string]string{"video_id": "abc", "message": "hello"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		id := rec.Header().Get(SessionHeader)
		assert.True(t, strings.HasPrefix(id, "sess_"))
		assert.Equal(t, id, fv.sessionKey)
	})
}

func TestVideoErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"missing transcript", transcript.ErrUnavailable, http.StatusNotFound, "Transcript not available for this video"},
		{"invalid input", siftErrors.InvalidInput("message is required"), http.StatusBadRequest, "message is required"},
		{"internal", siftErrors.Internal("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouter(Dependencies{Video: &fakeVideo{err: tt.err}})
			rec := do(t, h, http.MethodPost, "/api/v1/video/summary", map[string]string{"video_id": "abc"}, nil)
			assert.Equal(t, tt.status, rec.Code)

			var body errorResponse
			decode(t, rec, &body)
			assert.Contains(t, body.Detail, tt.detail)
		})
	}
}

func TestVideoQuizMalformedBody(t *testing.T) {
	h := NewRouter(Dependencies{Video: &fakeVideo{}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/video/quiz", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/video/quiz", map[string]any{"video_id": "abc", "num_questions": 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp video.QuizResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Questions, 1)
}

func TestCORSPreflight(t *testing.T) {
	h := NewRouter(Dependencies{Video: &fakeVideo{}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/video/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMailDisabled(t *testing.T) {
	h := NewRouter(Dependencies{Video: &fakeVideo{}})

	rec := do(t, h, http.MethodGet, "/api/v1/mail/summary", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMailEndpoints(t *testing.T) {
	agent := newMailAgent(t)
	var changed []mail.Preferences
	h := NewRouter(Dependencies{
		Video:               &fakeVideo{},
		Mail:                agent,
		OnPreferencesChange: func(p mail.Preferences) { changed = append(changed, p) },
	})

	rec := do(t, h, http.MethodPost, "/api/v1/mail/check", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result mail.CheckResult
	decode(t, rec, &result)
	assert.Equal(t, 0, result.Processed)

	rec = do(t, h, http.MethodGet, "/api/v1/mail/summary", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/mail/summary/reset", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/mail/vip", map[string]string{"email": "boss@corp.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, agent.Preferences().Get().VIPSenders, "boss@corp.com")

	rec = do(t, h, http.MethodDelete, "/api/v1/mail/vip?email=boss@corp.com", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, agent.Preferences().Get().VIPSenders, "boss@corp.com")

	rec = do(t, h, http.MethodPut, "/api/v1/mail/preferences", map[string]any{"check_interval_minutes": 5}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prefs := agent.Preferences().Get()
	assert.Equal(t, 5, prefs.CheckIntervalMinutes)
	assert.True(t, prefs.AutoCategorize)

	rec = do(t, h, http.MethodPut, "/api/v1/mail/preferences", map[string]any{"check_interval_minutes": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 5, agent.Preferences().Get().CheckIntervalMinutes)

	assert.Len(t, changed, 3)

	rec = do(t, h, http.MethodGet, "/api/v1/mail/preferences", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"check_interval_minutes":5`)
}

func TestMailFeedback(t *testing.T) {
	h := NewRouter(Dependencies{Video: &fakeVideo{}, Mail: newMailAgent(t)})

	rec := do(t, h, http.MethodPost, "/api/v1/mail/feedback", map[string]string{"message_id": "<m1@x>", "priority": "urgent"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	rec = do(t, h, http.MethodPost, "/api/v1/mail/feedback", map[string]string{"message_id": "<m1@x>", "priority": "critical"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriorityAdjust(t *testing.T) {
	t.Run("explicit preferences", func(t *testing.T) {
		h := NewRouter(Dependencies{Video: &fakeVideo{}})

		rec := do(t, h, http.MethodPost, "/api/v1/priority/adjust", map[string]any{
			"prediction": map[string]any{
				"label":    "routine",
				"metadata": map[string]any{"from_address": "ceo@corp.com", "subject": "hello"},
			},
			"preferences": map[string]any{"vip_senders": []string{"ceo@"}},
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp adjustResponse
		decode(t, rec, &resp)
		assert.Equal(t, priority.Important, resp.Label)
		assert.Equal(t, priority.Routine, resp.Original)
		assert.True(t, resp.Changed)
	})

	t.Run("agent preferences", func(t *testing.T) {
		h := NewRouter(Dependencies{Video: &fakeVideo{}, Mail: newMailAgent(t)})

		rec := do(t, h, http.MethodPost, "/api/v1/priority/adjust", map[string]any{
			"prediction": map[string]any{
				"label":    "routine",
				"metadata": map[string]any{"subject": "ASAP: server down"},
			},
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp adjustResponse
		decode(t, rec, &resp)
		assert.Equal(t, priority.Urgent, resp.Label)
	})

	t.Run("no rules", func(t *testing.T) {
		h := NewRouter(Dependencies{Video: &fakeVideo{}})

		rec := do(t, h, http.MethodPost, "/api/v1/priority/adjust", map[string]any{
			"prediction": map[string]any{"label": "low", "metadata": map[string]any{"subject": "urgent"}},
		}, nil)
		var resp adjustResponse
		decode(t, rec, &resp)
		assert.Equal(t, priority.Low, resp.Label)
		assert.False(t, resp.Changed)
	})
}
