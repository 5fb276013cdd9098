package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/model"
	"github.com/harunnryd/sift/internal/model/contract"
	"github.com/harunnryd/sift/internal/priority"
)

// Classifier predicts a priority label for a raw message.
type Classifier interface {
	Classify(ctx context.Context, raw []byte) (priority.Prediction, error)
}

const maxPromptBody = 4000

const classifierSystemPrompt = `You triage email by priority.
Answer with a JSON object: {"priority": "urgent" | "important" | "routine" | "low", "confidence": number between 0 and 1}.
urgent: needs action today. important: needs attention soon. routine: normal correspondence or status updates. low: newsletters, promotions and social notices.`

var urgentMarkers = []string{"urgent", "asap", "emergency"}

// LLMClassifier asks a generative model for the label.
type LLMClassifier struct {
	router model.ModelRouter
	model  string
}

func NewLLMClassifier(router model.ModelRouter, modelName string) *LLMClassifier {
	return &LLMClassifier{router: router, model: modelName}
}

type classifierReply struct {
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

func (c *LLMClassifier) Classify(ctx context.Context, raw []byte) (priority.Prediction, error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return priority.Prediction{}, siftErrors.InvalidInput(err.Error())
	}

	pred := priority.Prediction{Metadata: env.Metadata()}

	text := strings.TrimSpace(env.Subject + " " + env.Body)
	if text == "" {
		pred.Label = priority.Low
		pred.Confidence = 1.0
		return pred, nil
	}

	body := truncateUTF8(env.Body, maxPromptBody)

	resp, err := c.router.Route(ctx, c.model, contract.CompletionRequest{
		System: classifierSystemPrompt,
		Messages: []contract.Message{{
			Role:    contract.RoleUser,
			Content: fmt.Sprintf("From: %s\nSubject: %s\n\n%s", env.From, env.Subject, body),
		}},
		JSON: true,
	})
	if err != nil {
		return priority.Prediction{}, err
	}

	var reply classifierReply
	if err := json.Unmarshal([]byte(model.StripCodeFence(resp.Content)), &reply); err != nil {
		return priority.Prediction{}, siftErrors.InvalidModelOutput(fmt.Sprintf("classifier reply is not JSON: %v", err))
	}

	label, ok := priority.ParseLabel(reply.Priority)
	if !ok {
		return priority.Prediction{}, siftErrors.InvalidModelOutput(fmt.Sprintf("classifier returned unknown label %q", reply.Priority))
	}
	pred.Label = label
	pred.Confidence = reply.Confidence

	lower := strings.ToLower(text)
	for _, marker := range urgentMarkers {
		if strings.Contains(lower, marker) {
			pred.Label = priority.Urgent
			pred.Confidence = max(pred.Confidence, 0.8)
			break
		}
	}

	return pred, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
