package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []string
	updates  []string
	served   bool
	sendCode int
	onSend   func()
}

func (f *fakeBot) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "42", payload["chat_id"])
			assert.Equal(t, "HTML", payload["parse_mode"])
			f.mu.Lock()
			f.sent = append(f.sent, payload["text"])
			code, onSend := f.sendCode, f.onSend
			f.mu.Unlock()
			if code != 0 {
				w.WriteHeader(code)
				return
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
			if onSend != nil {
				onSend()
			}
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			f.mu.Lock()
			served := f.served
			f.served = true
			f.mu.Unlock()
			if served {
				time.Sleep(20 * time.Millisecond)
				_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			var items []string
			for i, text := range f.updates {
				b, _ := json.Marshal(text)
				items = append(items, `{"update_id":`+strconv.Itoa(i+1)+`,"message":{"text":`+string(b)+`}}`)
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":[` + strings.Join(items, ",") + `]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeBot) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestNotifier(t *testing.T, bot *fakeBot) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	return n
}

func TestSend(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(t, bot)
	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, bot.messages())
}

func TestSend_Truncates(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(t, bot)
	require.NoError(t, n.Send(context.Background(), strings.Repeat("x", maxMessageLen+100)))
	msgs := bot.messages()
	require.Len(t, msgs, 1)
	assert.Len(t, []rune(msgs[0]), maxMessageLen)
}

func TestSend_TruncatesInsidePre(t *testing.T) {
	bot := &fakeBot{}
	n := newTestNotifier(t, bot)
	var b strings.Builder
	b.WriteString("<b>Trades</b>\n<pre>")
	for i := 0; i < 400; i++ {
		b.WriteString("| " + strconv.Itoa(i) + " | A &amp; B | 10.00 |\n")
	}
	b.WriteString("</pre>")
	require.NoError(t, n.Send(context.Background(), b.String()))

	msgs := bot.messages()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), maxMessageLen)
	assert.True(t, strings.HasSuffix(msg, "\n…</pre>"))
	assert.Equal(t, strings.Count(msg, "<pre>"), strings.Count(msg, "</pre>"))
	assert.Equal(t, strings.Count(msg, "&"), strings.Count(msg, "&amp;"))
}

func TestTruncateHTML(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "<pre>x</pre>", truncateHTML("<pre>x</pre>", 20))
	})

	t.Run("entity at the cut is dropped", func(t *testing.T) {
		text := strings.Repeat("a", 13) + "&amp;bbbb"
		out := truncateHTML(text, 16)
		assert.Equal(t, strings.Repeat("a", 13)+"…", out)
	})

	t.Run("tag at the cut is dropped", func(t *testing.T) {
		out := truncateHTML("abcdef<b>bold</b>", 9)
		assert.Equal(t, "abcdef…", out)
	})

	t.Run("closing tag fits", func(t *testing.T) {
		out := truncateHTML("<pre>one\ntwo\nthree\nfour</pre>", 20)
		assert.Equal(t, "<pre>one\ntwo\n…</pre>", out)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), 20)
	})
}

func TestSendWithRetry_GivesUp(t *testing.T) {
	bot := &fakeBot{sendCode: http.StatusBadGateway}
	n := newTestNotifier(t, bot)
	err := n.SendWithRetry(context.Background(), "hello", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Len(t, bot.messages(), 1)
}

func TestSendWithRetry_StopsOnCancel(t *testing.T) {
	bot := &fakeBot{sendCode: http.StatusBadGateway}
	n := newTestNotifier(t, bot)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := n.SendWithRetry(ctx, "hello", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot := &fakeBot{updates: []string{"  /summary ", ""}, onSend: cancel}
	n := newTestNotifier(t, bot)

	var got []string
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			got = append(got, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, []string{"/summary"}, got)
	assert.Equal(t, []string{"reply to /summary"}, bot.messages())
}
