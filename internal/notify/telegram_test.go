package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kula-app/upcoming-contests/internal/clist"
)

// fakeBotAPI records sendMessage calls made against a minimal Bot API
type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []url.Values
	failSend bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Contests","username":"contests_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.failSend {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_ = r.ParseForm()
		f.mu.Lock()
		f.sent = append(f.sent, r.PostForm)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func newTestTelegram(t *testing.T, api *fakeBotAPI) *Telegram {
	t.Helper()

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	tg, err := NewTelegram("123:abc", 42, slog.New(slog.DiscardHandler),
		WithAPIEndpoint(server.URL+"/bot%s/%s"),
		WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return tg
}

func sampleContests(t *testing.T) []clist.Contest {
	t.Helper()
	var contests []clist.Contest
	require.NoError(t, json.Unmarshal([]byte(`[
		{"event":"Codeforces Round <Div. 2>","start":"2026-10-19T14:35:00","duration":7200,"resource":{"name":"codeforces.com"},"href":"https://codeforces.com/contests/2050"},
		{"event":"Weekly Contest 470","start":"2026-10-20T02:30:00","duration":"N/A","resource":"leetcode.com"}
	]`), &contests))
	return contests
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(sampleContests(t))

	assert.True(t, strings.HasPrefix(msg, "<b>Upcoming contests</b>\n"))
	assert.Contains(t, msg, "<b>Codeforces Round &lt;Div. 2&gt;</b> (Codeforces)\n2026-10-19T14:35:00 UTC · 2h 0m\n")
	assert.Contains(t, msg, `<a href="https://codeforces.com/contests/2050">Link</a>`)
	assert.Contains(t, msg, "<b>Weekly Contest 470</b> (LeetCode)\n2026-10-20T02:30:00 UTC · N/A\n")
	assert.Equal(t, 1, strings.Count(msg, "<a href="), "contests without a link get no anchor")
}

func TestFormatMessage_HostFallback(t *testing.T) {
	var contests []clist.Contest
	require.NoError(t, json.Unmarshal([]byte(`[
		{"event":"Starters 161","start":"2026-10-22T14:30:00","duration":7200,"host":"codechef.com"}
	]`), &contests))

	assert.Contains(t, FormatMessage(contests), "<b>Starters 161</b> (CodeChef)\n")
}

func TestFormatReminder(t *testing.T) {
	contests := sampleContests(t)

	tests := []struct {
		name     string
		contest  clist.Contest
		startsIn time.Duration
		want     string
	}{
		{
			name:     "with link",
			contest:  contests[0],
			startsIn: 30 * time.Minute,
			want:     "Reminder: <b>Codeforces Round &lt;Div. 2&gt;</b> on Codeforces starts in 30 minutes!\n<a href=\"https://codeforces.com/contests/2050\">Link</a>\n",
		},
		{
			name:     "without link, rounded",
			contest:  contests[1],
			startsIn: 27*time.Minute + 40*time.Second,
			want:     "Reminder: <b>Weekly Contest 470</b> on LeetCode starts in 28 minutes!\n",
		},
		{
			name:     "hours",
			contest:  contests[1],
			startsIn: 3*time.Hour + 15*time.Minute,
			want:     "Reminder: <b>Weekly Contest 470</b> on LeetCode starts in 3h 15m!\n",
		},
		{
			name:     "imminent",
			contest:  contests[1],
			startsIn: 20 * time.Second,
			want:     "Reminder: <b>Weekly Contest 470</b> on LeetCode starts in 1 minute!\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatReminder(tt.contest, tt.startsIn))
		})
	}
}

func TestTelegram_Remind(t *testing.T) {
	api := &fakeBotAPI{}
	tg := newTestTelegram(t, api)

	require.NoError(t, tg.Remind(context.Background(), sampleContests(t)[0], 30*time.Minute))

	require.Len(t, api.sent, 1)
	form := api.sent[0]
	assert.Equal(t, "42", form.Get("chat_id"))
	assert.Equal(t, "HTML", form.Get("parse_mode"))
	assert.Contains(t, form.Get("text"), "starts in 30 minutes")
}

func TestTelegram_RemindError(t *testing.T) {
	api := &fakeBotAPI{failSend: true}
	tg := newTestTelegram(t, api)

	err := tg.Remind(context.Background(), sampleContests(t)[0], 30*time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send telegram reminder")
}

func TestTelegram_Notify(t *testing.T) {
	api := &fakeBotAPI{}
	tg := newTestTelegram(t, api)

	require.NoError(t, tg.Notify(context.Background(), sampleContests(t)))

	require.Len(t, api.sent, 1)
	form := api.sent[0]
	assert.Equal(t, "42", form.Get("chat_id"))
	assert.Equal(t, "HTML", form.Get("parse_mode"))
	assert.Equal(t, "true", form.Get("disable_web_page_preview"))
	assert.Contains(t, form.Get("text"), "Weekly Contest 470")
}

func TestTelegram_NotifySkipsEmptyListing(t *testing.T) {
	api := &fakeBotAPI{}
	tg := newTestTelegram(t, api)

	require.NoError(t, tg.Notify(context.Background(), nil))
	assert.Empty(t, api.sent)
}

func TestTelegram_NotifyError(t *testing.T) {
	api := &fakeBotAPI{failSend: true}
	tg := newTestTelegram(t, api)

	err := tg.Notify(context.Background(), sampleContests(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_NotifyCanceled(t *testing.T) {
	api := &fakeBotAPI{}
	tg := newTestTelegram(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tg.Notify(ctx, sampleContests(t)), context.Canceled)
	assert.Empty(t, api.sent)
}

func TestNewTelegram_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	_, err := NewTelegram("bad", 42, slog.New(slog.DiscardHandler),
		WithAPIEndpoint(server.URL+"/bot%s/%s"),
		WithHTTPClient(server.Client()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}
