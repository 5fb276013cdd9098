package notify

import (
	"context"
	"log/slog"

	siftErrors "github.com/harunnryd/sift/internal/errors"

	"github.com/slack-go/slack"
)

// SlackChannel posts notifications to one Slack channel through a bot token.
type SlackChannel struct {
	channel string
	client  *slack.Client
}

// NewSlackChannel builds the channel. apiURL overrides the Slack Web API base
// URL and is empty in production.
func NewSlackChannel(botToken, channel, apiURL string) *SlackChannel {
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &SlackChannel{
		channel: channel,
		client:  slack.New(botToken, opts...),
	}
}

func (s *SlackChannel) Name() string {
	return "slack"
}

func (s *SlackChannel) Send(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return siftErrors.Wrap(err, "failed to send Slack message")
	}
	slog.Debug("Slack message sent", "channel", s.channel)
	return nil
}

func (s *SlackChannel) Health(ctx context.Context) error {
	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return siftErrors.Transient("Slack connection failed: " + err.Error())
	}
	return nil
}
