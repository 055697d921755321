package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"medbook/internal/config"
	"medbook/internal/domain"
	"medbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTelegramService struct {
	domain.TelegramSender
	mu           sync.Mutex
	updatesChan  chan tgbotapi.Update
	sentMessages []tgbotapi.MessageConfig
	stopped      bool
}

func (m *mockTelegramService) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramService) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sentMessages = append(m.sentMessages, msg)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "medbook_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {
	m.stopped = true
}

func (m *mockTelegramService) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sentMessages))
	for _, msg := range m.sentMessages {
		out = append(out, msg.Text)
	}
	return out
}

type mockChat struct {
	domain.ChatService
	mu       sync.Mutex
	sessions []string
	cleared  []string
	docs     map[string]string
	err      error
	panicOn  string
}

func (m *mockChat) Reply(_ context.Context, sessionID, text string) (*models.ChatReply, error) {
	if text == m.panicOn {
		panic("boom")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessionID)
	if m.err != nil {
		return nil, m.err
	}
	return &models.ChatReply{SessionID: sessionID, Text: "echo: " + text, Outcome: models.OutcomeAnswered}, nil
}

func (m *mockChat) ClearSession(_ context.Context, sessionID string) error {
	m.cleared = append(m.cleared, sessionID)
	return nil
}

func (m *mockChat) AddDocument(_ context.Context, sessionID, name, text string) (int, error) {
	if m.docs == nil {
		m.docs = make(map[string]string)
	}
	m.docs[sessionID] = text
	return 1, nil
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func newTestBot(chat *mockChat) (*Bot, *mockTelegramService, *Metrics) {
	tg := &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 10)}
	m := NewMetrics(prometheus.NewRegistry())
	return NewBot(tg, chat, config.TelegramConfig{UpdateTimeout: time.Second}, m, nil), tg, m
}

func TestBot_TextGoesToChatService(t *testing.T) {
	chat := &mockChat{}
	b, tg, m := newTestBot(chat)

	b.processUpdate(context.Background(), textUpdate(42, "I want to book an appointment"))

	assert.Equal(t, []string{"tg:42"}, chat.sessions)
	assert.Equal(t, []string{"echo: I want to book an appointment"}, tg.texts())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesProcessed))
}

func TestBot_Commands(t *testing.T) {
	chat := &mockChat{}
	b, tg, m := newTestBot(chat)
	ctx := context.Background()

	b.processUpdate(ctx, textUpdate(5, "/start"))
	b.processUpdate(ctx, textUpdate(5, "/clear"))
	b.processUpdate(ctx, textUpdate(5, "/doc Clinic opens at 9."))
	b.processUpdate(ctx, textUpdate(5, "/doc"))

	texts := tg.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, msgWelcome, texts[0])
	assert.Equal(t, msgCleared, texts[1])
	assert.Equal(t, "Document added (1 chunks). Ask me anything about it.", texts[2])
	assert.Equal(t, msgDocUsage, texts[3])

	assert.Equal(t, []string{"tg:5"}, chat.cleared)
	assert.Equal(t, "Clinic opens at 9.", chat.docs["tg:5"])
	assert.Empty(t, chat.sessions)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsProcessed.WithLabelValues("doc")))
}

func TestBot_ErrorAndPanic(t *testing.T) {
	chat := &mockChat{err: errors.New("redis down"), panicOn: "explode"}
	b, tg, m := newTestBot(chat)
	ctx := context.Background()

	b.processUpdate(ctx, textUpdate(1, "hello"))
	assert.Equal(t, []string{msgGenericError}, tg.texts())

	assert.NotPanics(t, func() { b.processUpdate(ctx, textUpdate(1, "explode")) })
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal))
}

func TestBot_IgnoresNonMessageUpdates(t *testing.T) {
	chat := &mockChat{}
	b, tg, _ := newTestBot(chat)

	b.processUpdate(context.Background(), tgbotapi.Update{})
	b.processUpdate(context.Background(), textUpdate(3, "  "))

	assert.Equal(t, []string{msgNeedsText}, tg.texts())
	assert.Empty(t, chat.sessions)
}

func TestBot_StartStopsOnContext(t *testing.T) {
	chat := &mockChat{}
	b, tg, _ := newTestBot(chat)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()

	tg.updatesChan <- textUpdate(9, "hi")
	require.Eventually(t, func() bool { return len(tg.texts()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}

	b.Stop()
	assert.True(t, tg.stopped)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("line one\nline two\nline three", 12)
	assert.Equal(t, []string{"line one\n", "line two\n", "line three"}, parts)

	long := strings.Repeat("я", 25)
	parts = splitMessage(long, 10)
	require.Len(t, parts, 3)
	assert.Equal(t, long, strings.Join(parts, ""))
}
