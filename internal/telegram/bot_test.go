package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"

	"ai-grocery-checklist/internal/app"
	"ai-grocery-checklist/internal/checklist"
	"ai-grocery-checklist/internal/config"
	"ai-grocery-checklist/internal/llm"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	allowedUser = int64(1001)
	adminUser   = int64(7)
	chatID      = int64(555)
)

type stubProvider struct{ content string }

func (p *stubProvider) GenerateContent(ctx context.Context, req llm.Request) (llm.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ContentResponse{}, err
	}
	return llm.ContentResponse{Content: p.content}, nil
}
func (p *stubProvider) Close() error  { return nil }
func (p *stubProvider) Model() string { return "stub" }

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastText returns the text and keyboard of the most recent message or edit.
func (f *fakeSender) lastText(t *testing.T) (string, *tgbotapi.InlineKeyboardMarkup) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	switch c := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		kb, _ := c.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
		return c.Text, kb
	case tgbotapi.EditMessageTextConfig:
		return c.Text, c.ReplyMarkup
	default:
		t.Fatalf("unexpected chattable %T", c)
		return "", nil
	}
}

func newTestBot(t *testing.T, content string) (*Bot, *fakeSender) {
	t.Helper()
	cfg := &config.Config{
		StorageBackend:         config.BackendMemory,
		TelegramAllowedUserIDs: []int64{allowedUser, adminUser},
		AdminTelegramID:        adminUser,
	}
	backend, err := app.OpenBackend(cfg)
	require.NoError(t, err)
	a := app.NewWithDeps(cfg, nil, &stubProvider{content: content}, backend)

	fs := &fakeSender{}
	return newBotWithSender(a, fs), fs
}

func textUpdate(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: "someone"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(from int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

const tacoList = `[{"category":"Meat & Seafood","items":["Ground beef"]},{"category":"Produce","items":["Lettuce","Tomato"]}]`

func TestBot_GenerateAndEditWithButtons(t *testing.T) {
	ctx := context.Background()
	bot, fs := newTestBot(t, tacoList)

	bot.handleUpdate(ctx, textUpdate(allowedUser, "Tacos on Tuesday"))

	text, kb := fs.lastText(t)
	assert.Contains(t, text, "*Meat & Seafood*")
	assert.Contains(t, text, "▫️ Lettuce")
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 3)

	lettuce := kb.InlineKeyboard[1]
	assert.Equal(t, "⬜ Lettuce", lettuce[0].Text)

	bot.handleUpdate(ctx, callbackUpdate(allowedUser, 2, *lettuce[0].CallbackData))
	text, kb = fs.lastText(t)
	assert.Contains(t, text, "✅ Lettuce")
	assert.Equal(t, "✅ Lettuce", kb.InlineKeyboard[1][0].Text)

	beefDelete := kb.InlineKeyboard[0][1]
	bot.handleUpdate(ctx, callbackUpdate(allowedUser, 2, *beefDelete.CallbackData))
	text, kb = fs.lastText(t)
	assert.NotContains(t, text, "Meat & Seafood")
	assert.Len(t, kb.InlineKeyboard, 2)

	assert.Len(t, fs.requests, 2, "every callback must be answered")
}

func TestBot_GenerationOutlivesUpdateContext(t *testing.T) {
	bot, fs := newTestBot(t, tacoList)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bot.handleUpdate(ctx, textUpdate(allowedUser, "Tacos on Tuesday"))

	text, kb := fs.lastText(t)
	assert.Contains(t, text, "*Meat & Seafood*")
	require.NotNil(t, kb)
}

func TestBot_SaveLoadCommands(t *testing.T) {
	ctx := context.Background()
	bot, fs := newTestBot(t, tacoList)

	bot.handleUpdate(ctx, textUpdate(allowedUser, "/save"))
	text, _ := fs.lastText(t)
	assert.Contains(t, text, "Nothing to save yet")

	bot.handleUpdate(ctx, textUpdate(allowedUser, "Tacos"))
	bot.handleUpdate(ctx, textUpdate(allowedUser, "/save"))
	text, _ = fs.lastText(t)
	assert.Contains(t, text, "List saved")

	bot.handleUpdate(ctx, textUpdate(allowedUser, "/clear"))
	bot.handleUpdate(ctx, textUpdate(allowedUser, "/list"))
	text, kb := fs.lastText(t)
	assert.Contains(t, text, "Your list is empty")
	assert.Nil(t, kb)

	bot.handleUpdate(ctx, textUpdate(allowedUser, "/load"))
	text, _ = fs.lastText(t)
	assert.Contains(t, text, "Ground beef")

	bot.handleUpdate(ctx, textUpdate(allowedUser, "/clearsaved"))
	bot.handleUpdate(ctx, textUpdate(allowedUser, "/load"))
	text, _ = fs.lastText(t)
	assert.Equal(t, "❌ There is no saved list yet.", text)
}

func TestBot_BlankAndUnauthorized(t *testing.T) {
	ctx := context.Background()
	bot, fs := newTestBot(t, tacoList)

	bot.handleUpdate(ctx, textUpdate(allowedUser, "   "))
	text, _ := fs.lastText(t)
	assert.Equal(t, "❌ Please enter some text to generate a list.", text)

	before := len(fs.sent)
	bot.handleUpdate(ctx, textUpdate(99, "Tacos"))
	bot.handleUpdate(ctx, callbackUpdate(99, 1, "t|whatever"))
	assert.Len(t, fs.sent, before)
	assert.Empty(t, fs.requests)
}

func TestBot_Metrics(t *testing.T) {
	ctx := context.Background()
	bot, fs := newTestBot(t, tacoList)

	bot.handleUpdate(ctx, textUpdate(allowedUser, "/metrics"))
	text, _ := fs.lastText(t)
	assert.Contains(t, text, "Access Denied")

	bot.handleUpdate(ctx, textUpdate(adminUser, "/metrics"))
	text, _ = fs.lastText(t)
	assert.Contains(t, text, "Usage & Health Report")
	assert.Contains(t, text, "_No data yet_")
}

func TestFormatListMarkdown(t *testing.T) {
	v := app.View{
		Categories: []checklist.Category{
			{ID: "c1", Label: "Pantry_Staples", Items: []checklist.Item{{ID: "i1", Text: "Rice"}, {ID: "i2", Text: "*Salt*"}}},
		},
		Checked: map[string]bool{"i1": true},
	}
	out := formatListMarkdown(v)

	if !strings.Contains(out, "🛒 *Shopping List*") {
		t.Error("Missing shopping list header")
	}
	if !strings.Contains(out, `*Pantry\_Staples*`) {
		t.Errorf("Category label not escaped:\n%s", out)
	}
	if !strings.Contains(out, "✅ Rice") {
		t.Error("Checked item not marked")
	}
	if !strings.Contains(out, `▫️ \*Salt\*`) {
		t.Errorf("Item text not escaped:\n%s", out)
	}

	if got := formatListMarkdown(app.View{}); !strings.Contains(got, "empty") {
		t.Errorf("Expected empty list message, got %q", got)
	}
}
