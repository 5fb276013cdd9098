package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/logger"
	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/priority"
	"github.com/harunnryd/sift/internal/video"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "sift API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}

	if s.deps.Components != nil {
		components := s.deps.Components(r.Context())
		for _, c := range components {
			if !c.Healthy {
				resp["status"] = "degraded"
				break
			}
		}
		resp["components"] = components
	}
	if s.deps.Cache != nil {
		resp["transcript_cache"] = s.deps.Cache.Stats()
	}
	resp["mail_enabled"] = s.deps.Mail != nil

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req video.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.deps.Video.Chat(r.Context(), logger.GetSessionID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req video.SummaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.deps.Video.Summary(r.Context(), logger.GetSessionID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req video.QuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.deps.Video.Quiz(r.Context(), logger.GetSessionID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type adjustRequest struct {
	Prediction  priority.Prediction   `json:"prediction"`
	Preferences *priority.Preferences `json:"preferences,omitempty"`
}

type adjustResponse struct {
	Label    priority.Label `json:"label"`
	Original priority.Label `json:"original"`
	Changed  bool           `json:"changed"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var rules priority.Preferences
	switch {
	case req.Preferences != nil:
		rules = *req.Preferences
	case s.deps.Mail != nil:
		rules = s.deps.Mail.Preferences().Get().Rules()
	}

	label := priority.Adjust(req.Prediction, rules)
	writeJSON(w, http.StatusOK, adjustResponse{
		Label:    label,
		Original: req.Prediction.Label,
		Changed:  label != req.Prediction.Label,
	})
}

func (s *Server) handleMailCheck(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Mail.Check(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMailSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Mail.Summary())
}

func (s *Server) handleMailSummaryReset(w http.ResponseWriter, r *http.Request) {
	s.deps.Mail.ResetSummary()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Mail.Preferences().Get())
}

// handlePutPreferences merges the body over the current preferences, so
// keys the client omits keep their values.
func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, siftErrors.InvalidInput("unreadable request body"))
		return
	}

	prefs, err := s.deps.Mail.Preferences().Update(func(p *mail.Preferences) error {
		if err := json.Unmarshal(body, p); err != nil {
			return siftErrors.InvalidInput("malformed preferences: " + err.Error())
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.preferencesChanged(prefs)
	writeJSON(w, http.StatusOK, prefs)
}

type vipRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleAddVIP(w http.ResponseWriter, r *http.Request) {
	var req vipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	prefs, err := s.deps.Mail.Preferences().AddVIP(req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.preferencesChanged(prefs)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "vip_senders": prefs.VIPSenders})
}

func (s *Server) handleRemoveVIP(w http.ResponseWriter, r *http.Request) {
	var req vipRequest
	if email := strings.TrimSpace(r.URL.Query().Get("email")); email != "" {
		req.Email = email
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	prefs, err := s.deps.Mail.Preferences().RemoveVIP(req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.preferencesChanged(prefs)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "vip_senders": prefs.VIPSenders})
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Priority  string `json:"priority"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.deps.Mail.Feedback(req.MessageID, req.Priority)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "record": rec})
}

func (s *Server) preferencesChanged(p mail.Preferences) {
	if s.deps.OnPreferencesChange != nil {
		s.deps.OnPreferencesChange(p)
	}
}
