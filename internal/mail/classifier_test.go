package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/model/contract"
	"github.com/harunnryd/sift/internal/priority"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter struct {
	reply string
	err   error
	calls int
	last  contract.CompletionRequest
}

func (f *fakeRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &contract.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeRouter) ListModels() []string             { return nil }
func (f *fakeRouter) Health(ctx context.Context) error { return nil }

func TestLLMClassifier_ParsesReply(t *testing.T) {
	router := &fakeRouter{reply: "```json\n{\"priority\": \"Important\", \"confidence\": 0.72}\n```"}
	c := NewLLMClassifier(router, "m")

	pred, err := c.Classify(context.Background(), rawMessage("<1@x>", "a@x", "Re: budget"))
	require.NoError(t, err)
	assert.Equal(t, priority.Important, pred.Label)
	assert.InDelta(t, 0.72, pred.Confidence, 1e-9)
	assert.True(t, pred.Metadata.IsReply)
	assert.True(t, router.last.JSON)
	assert.Contains(t, router.last.Messages[0].Content, "Subject: Re: budget")
}

func TestLLMClassifier_UrgentMarkerOverrides(t *testing.T) {
	router := &fakeRouter{reply: `{"priority":"routine","confidence":0.4}`}
	c := NewLLMClassifier(router, "m")

	pred, err := c.Classify(context.Background(), rawMessage("<1@x>", "a@x", "Emergency on site"))
	require.NoError(t, err)
	assert.Equal(t, priority.Urgent, pred.Label)
	assert.InDelta(t, 0.8, pred.Confidence, 1e-9)
}

func TestLLMClassifier_EmptyMessageIsLow(t *testing.T) {
	router := &fakeRouter{}
	c := NewLLMClassifier(router, "m")

	pred, err := c.Classify(context.Background(), []byte("Message-ID: <1@x>\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, priority.Low, pred.Label)
	assert.Equal(t, 1.0, pred.Confidence)
	assert.Zero(t, router.calls)
}

func TestLLMClassifier_BadReplies(t *testing.T) {
	for _, reply := range []string{"not json", `{"priority":"soon"}`} {
		c := NewLLMClassifier(&fakeRouter{reply: reply}, "m")
		_, err := c.Classify(context.Background(), rawMessage("<1@x>", "a@x", "hi"))
		assert.True(t, errors.Is(err, siftErrors.ErrInvalidModelOutput), reply)
	}
}

func TestLLMClassifier_TruncatesBodyOnRuneBoundary(t *testing.T) {
	router := &fakeRouter{reply: `{"priority": "routine", "confidence": 0.5}`}
	c := NewLLMClassifier(router, "m")

	body := "a" + strings.Repeat("é", maxPromptBody)
	raw := "Message-ID: <2@x>\r\nFrom: a@x\r\nSubject: long\r\n\r\n" + body + "\r\n"

	_, err := c.Classify(context.Background(), []byte(raw))
	require.NoError(t, err)

	prompt := router.last.Messages[0].Content
	assert.True(t, utf8.ValidString(prompt), "prompt must stay valid UTF-8")
	assert.Less(t, len(prompt), len(body))
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "short", truncateUTF8("short", 10))
	assert.Equal(t, "ab", truncateUTF8("abcd", 2))
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "aé", truncateUTF8("aéé", 4))
	assert.Equal(t, "", truncateUTF8("é", 1))
}
