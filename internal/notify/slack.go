package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

// SlackPoster is the subset of the Slack API used for notifications.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts team notifications to a Slack channel.
type SlackNotifier struct {
	api SlackPoster
}

var _ capability.Notifier = (*SlackNotifier)(nil)

// NewSlackNotifier creates a notifier from a bot token. Extra options are
// passed to the Slack client (e.g. slack.OptionAPIURL in tests).
func NewSlackNotifier(token string, opts ...slack.Option) *SlackNotifier {
	return &SlackNotifier{api: slack.New(token, opts...)}
}

// NewSlackNotifierWithPoster wraps an existing poster.
func NewSlackNotifierWithPoster(api SlackPoster) *SlackNotifier {
	return &SlackNotifier{api: api}
}

// Notify posts n to the channel named by its recipient.
func (s *SlackNotifier) Notify(ctx context.Context, n capability.Notification) (model.DeliveryStatus, error) {
	channel := strings.TrimSpace(n.Recipient)
	if channel == "" {
		return model.DeliveryFailed, resilience.NewFatalError(eris.New("notify: empty slack channel"), "invalid notification")
	}

	text := fmt.Sprintf("*%s*\n%s", n.Subject, n.Summary)
	if n.TicketLink != "" {
		text += fmt.Sprintf("\n<%s|Abrir ticket>", n.TicketLink)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, truncate(n.Subject, 150), false, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
	}

	_, ts, err := s.api.PostMessageContext(ctx, strings.TrimPrefix(channel, "#"),
		slack.MsgOptionText(n.Subject, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return model.DeliveryFailed, classifySlackError(err)
	}

	zap.L().Info("notify: slack delivered", zap.String("channel", channel), zap.String("ts", ts))
	return model.DeliverySent, nil
}

// classifySlackError maps Slack client errors onto the failure taxonomy.
func classifySlackError(err error) error {
	wrapped := eris.Wrap(err, "notify: slack post")

	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return resilience.NewTransientError(wrapped, 429)
	}
	var sc slack.StatusCodeError
	if errors.As(err, &sc) {
		return resilience.FromHTTPStatus(wrapped, sc.Code)
	}
	var se slack.SlackErrorResponse
	if errors.As(err, &se) {
		return resilience.NewFatalError(wrapped, "slack rejected message")
	}
	return wrapped
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
