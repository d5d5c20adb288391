package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kula-app/upcoming-contests/internal/clist"
	"github.com/kula-app/upcoming-contests/internal/report"
)

// Telegram sends contest listings to a single Telegram chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// TelegramOption customizes a Telegram notifier
type TelegramOption func(*telegramOptions)

type telegramOptions struct {
	endpoint   string
	httpClient tgbotapi.HTTPClient
}

// WithAPIEndpoint overrides the Bot API endpoint format (see tgbotapi.APIEndpoint)
func WithAPIEndpoint(endpoint string) TelegramOption {
	return func(o *telegramOptions) {
		o.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client used to talk to the Bot API
func WithHTTPClient(client tgbotapi.HTTPClient) TelegramOption {
	return func(o *telegramOptions) {
		o.httpClient = client
	}
}

// NewTelegram creates a notifier for the given bot token and chat.
// The token is verified against the Bot API before returning.
func NewTelegram(token string, chatID int64, logger *slog.Logger, opts ...TelegramOption) (*Telegram, error) {
	options := telegramOptions{
		endpoint:   tgbotapi.APIEndpoint,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(&options)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, options.endpoint, options.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Debug("telegram bot authorized", "username", bot.Self.UserName, "chat_id", chatID)

	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Notify sends the listing as one HTML message. Empty listings are not sent.
func (t *Telegram) Notify(ctx context.Context, contests []clist.Contest) error {
	if len(contests) == 0 {
		t.logger.Debug("no contests to send to telegram")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.send(FormatMessage(contests)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	t.logger.Info("listing sent to telegram", "chat_id", t.chatID, "contests", len(contests))
	return nil
}

// Remind sends a reminder for a single contest that starts soon
func (t *Telegram) Remind(ctx context.Context, contest clist.Contest, startsIn time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := t.send(FormatReminder(contest, startsIn)); err != nil {
		return fmt.Errorf("failed to send telegram reminder: %w", err)
	}

	t.logger.Info("reminder sent to telegram", "chat_id", t.chatID, "contest", contest.Event, "starts_in", startsIn)
	return nil
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	_, err := t.bot.Send(msg)
	return err
}

// FormatReminder renders the reminder for a contest starting in the given time
func FormatReminder(contest clist.Contest, startsIn time.Duration) string {
	event := contest.Event
	if event == "" {
		event = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reminder: <b>%s</b> on %s starts in %s!\n",
		html.EscapeString(event),
		html.EscapeString(clist.NormalizePlatform(contest.Platform())),
		formatStartsIn(startsIn))
	if contest.Href != "" {
		fmt.Fprintf(&b, "<a href=\"%s\">Link</a>\n", html.EscapeString(contest.Href))
	}
	return b.String()
}

func formatStartsIn(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	switch {
	case minutes <= 1:
		return "1 minute"
	case minutes < 120:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
}

// FormatMessage renders contests as a Telegram HTML message
func FormatMessage(contests []clist.Contest) string {
	var b strings.Builder
	b.WriteString("<b>Upcoming contests</b>\n")

	for _, contest := range contests {
		event := contest.Event
		if event == "" {
			event = "N/A"
		}
		platform := clist.NormalizePlatform(contest.Platform())

		fmt.Fprintf(&b, "\n<b>%s</b> (%s)\n%s UTC · %s\n",
			html.EscapeString(event),
			html.EscapeString(platform),
			html.EscapeString(contest.Start),
			html.EscapeString(report.FormatDuration(contest.Duration)))

		if contest.Href != "" {
			fmt.Fprintf(&b, "<a href=\"%s\">Link</a>\n", html.EscapeString(contest.Href))
		}
	}
	return b.String()
}
