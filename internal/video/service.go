// Package video answers chat, summary and quiz requests about a video by
// prompting a generative model with the video's cached transcript.
package video

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/harunnryd/sift/internal/config"
	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/logger"
	"github.com/harunnryd/sift/internal/model"
	"github.com/harunnryd/sift/internal/model/contract"
	"github.com/harunnryd/sift/internal/transcript"
)

const summaryFallbackKeyPoint = "Unable to extract structured key points"

var difficulties = map[string]struct{}{
	"easy":   {},
	"medium": {},
	"hard":   {},
}

type Service struct {
	transcripts *transcript.Service
	router      model.ModelRouter
	cfg         config.VideoConfig
}

func NewService(transcripts *transcript.Service, router model.ModelRouter, cfg config.VideoConfig) *Service {
	if cfg.DefaultQuestions <= 0 {
		cfg.DefaultQuestions = config.DefaultVideoQuestions
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = config.DefaultVideoMaxQuestions
	}
	if cfg.DefaultDifficulty == "" {
		cfg.DefaultDifficulty = config.DefaultVideoDifficulty
	}
	return &Service{transcripts: transcripts, router: router, cfg: cfg}
}

func (s *Service) Chat(ctx context.Context, sessionKey string, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, siftErrors.InvalidInput("message is required")
	}

	formatted, err := s.formattedTranscript(ctx, sessionKey, req.VideoID, req.Transcript)
	if err != nil {
		return nil, err
	}

	messages := make([]contract.Message, 0, len(req.ChatHistory)+1)
	for _, turn := range req.ChatHistory {
		role := contract.RoleUser
		if turn.Role != contract.RoleUser {
			role = contract.RoleAssistant
		}
		messages = append(messages, contract.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, contract.Message{Role: contract.RoleUser, Content: message})

	resp, err := s.router.Route(ctx, s.cfg.Model, contract.CompletionRequest{
		System:   buildChatSystem(formatted),
		Messages: messages,
	})
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Response:           resp.Content,
		RelevantTimestamps: ExtractTimestamps(resp.Content),
	}, nil
}

func (s *Service) Summary(ctx context.Context, sessionKey string, req SummaryRequest) (*SummaryResponse, error) {
	formatted, err := s.formattedTranscript(ctx, sessionKey, req.VideoID, req.Transcript)
	if err != nil {
		return nil, err
	}

	resp, err := s.router.Route(ctx, s.cfg.Model, contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: buildSummaryPrompt(formatted)}},
		JSON:     true,
	})
	if err != nil {
		return nil, err
	}

	return parseSummary(ctx, resp.Content), nil
}

func (s *Service) Quiz(ctx context.Context, sessionKey string, req QuizRequest) (*QuizResponse, error) {
	n := req.NumQuestions
	switch {
	case n < 0:
		return nil, siftErrors.InvalidInput("num_questions must be positive")
	case n == 0:
		n = s.cfg.DefaultQuestions
	case n > s.cfg.MaxQuestions:
		n = s.cfg.MaxQuestions
	}

	difficulty := strings.ToLower(strings.TrimSpace(req.Difficulty))
	if difficulty == "" {
		difficulty = s.cfg.DefaultDifficulty
	}
	if _, ok := difficulties[difficulty]; !ok {
		return nil, siftErrors.InvalidInput("difficulty must be one of easy, medium, hard")
	}

	formatted, err := s.formattedTranscript(ctx, sessionKey, req.VideoID, req.Transcript)
	if err != nil {
		return nil, err
	}

	resp, err := s.router.Route(ctx, s.cfg.Model, contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: buildQuizPrompt(formatted, n, difficulty)}},
		JSON:     true,
	})
	if err != nil {
		return nil, err
	}

	return parseQuiz(ctx, resp.Content), nil
}

func (s *Service) formattedTranscript(ctx context.Context, sessionKey, videoID string, provided []transcript.Segment) (string, error) {
	segments, err := s.transcripts.Resolve(ctx, sessionKey, videoID, provided)
	if err != nil {
		return "", err
	}
	return transcript.Format(segments), nil
}

func parseSummary(ctx context.Context, raw string) *SummaryResponse {
	var out SummaryResponse
	if err := json.Unmarshal([]byte(model.StripCodeFence(raw)), &out); err != nil || out.Summary == "" {
		logger.From(ctx).Warn("Summary reply was not structured", "error", err)
		return &SummaryResponse{Summary: raw, KeyPoints: []string{summaryFallbackKeyPoint}}
	}
	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	return &out
}

func parseQuiz(ctx context.Context, raw string) *QuizResponse {
	var out QuizResponse
	if err := json.Unmarshal([]byte(model.StripCodeFence(raw)), &out); err != nil || len(out.Questions) == 0 {
		logger.From(ctx).Warn("Quiz reply was not structured", "error", err)
		return fallbackQuiz()
	}
	return &out
}

func fallbackQuiz() *QuizResponse {
	return &QuizResponse{Questions: []QuizQuestion{{
		Question:      "Error generating quiz questions",
		Options:       []string{"Try again", "Refresh", "Use different video", "Contact support"},
		CorrectAnswer: 0,
		Explanation:   "There was an error generating quiz questions from this video.",
	}}}
}
