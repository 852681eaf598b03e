package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-grocery-checklist/internal/app"
	"ai-grocery-checklist/internal/checklist"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	actionToggle = "t"
	actionDelete = "d"
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot answers chats with grocery checklists. Every chat has its own session
// and save slot.
type Bot struct {
	api    sender
	botAPI *tgbotapi.BotAPI
	app    *app.App
	logger *zap.Logger
}

// NewBot initializes the Telegram API and, when a webhook URL is configured,
// registers the webhook.
func NewBot(a *app.App) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(a.Config.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger := a.Logger.Named("telegram")
	logger.Info("authorized", zap.String("account", botAPI.Self.UserName))

	if webhookURL := a.Config.TelegramWebhookURL; webhookURL != "" {
		wh, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
		}
		resp, err := botAPI.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
		}
		logger.Info("webhook set", zap.String("response", resp.Description))
	}

	return &Bot{api: botAPI, botAPI: botAPI, app: a, logger: logger}, nil
}

func newBotWithSender(a *app.App, s sender) *Bot {
	return &Bot{api: s, app: a, logger: a.Logger.Named("telegram")}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Run serves the webhook on addr when a webhook URL is configured, and polls
// for updates otherwise. It returns when ctx is cancelled.
func (b *Bot) Run(ctx context.Context, addr string) error {
	if b.app.Config.TelegramWebhookURL == "" {
		b.logger.Info("no webhook configured, polling for updates")
		b.Poll(ctx)
		return nil
	}

	mux := http.NewServeMux()
	b.RegisterHandlers(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("telegram bot server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	b.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.botAPI.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		return
	}
	go b.handleUpdate(context.Background(), *update)
}

// Poll reads updates with long polling until ctx is cancelled. It is used
// when no webhook URL is configured.
func (b *Bot) Poll(ctx context.Context) {
	b.botAPI.Request(tgbotapi.DeleteWebhookConfig{})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.botAPI.GetUpdatesChan(u)
	defer b.botAPI.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if !b.allowed(update.CallbackQuery.From) {
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil || !b.allowed(msg.From) {
		return
	}
	b.processMessage(ctx, msg)
}

func (b *Bot) allowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if !b.app.Config.IsAllowedTelegramUser(from.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
		return false
	}
	return true
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sess := b.app.Sessions.Get(sessionKey(chatID))

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.sendMarkdown(chatID, helpText)
		case "list":
			b.sendList(chatID, sess.Snapshot())
		case "save":
			saved, err := sess.Save(ctx)
			switch {
			case err != nil:
				b.sendError(chatID, app.Message(err))
			case !saved:
				b.sendMarkdown(chatID, "Nothing to save yet. Send me your meal plan first.")
			default:
				b.sendMarkdown(chatID, "💾 *List saved.*")
			}
		case "load":
			if err := sess.Load(ctx); err != nil {
				b.sendError(chatID, app.Message(err))
				return
			}
			b.sendList(chatID, sess.Snapshot())
		case "clear":
			sess.Clear()
			b.sendMarkdown(chatID, "🧹 Current list cleared.")
		case "clearsaved":
			if err := sess.ClearSaved(ctx); err != nil {
				b.sendError(chatID, app.Message(err))
				return
			}
			b.sendMarkdown(chatID, "🗑 Saved list deleted.")
		case "metrics":
			b.handleMetricsRequest(ctx, msg)
		default:
			b.sendMarkdown(chatID, "Unknown command.\n\n"+helpText)
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleClipperRequest(ctx, chatID, sess, text)
		return
	}
	b.handleGenerateRequest(ctx, chatID, sess, msg.Text)
}

const helpText = `🛒 *Intelligent Grocery List*

Send me a meal plan or a few shopping notes and I will turn them into a categorized checklist. You can also send a link to a recipe or meal-plan page.

/list - show the current list
/save - save the current list
/load - load the saved list
/clear - clear the current list
/clearsaved - delete the saved list`

func (b *Bot) handleClipperRequest(ctx context.Context, chatID int64, sess *app.Session, url string) {
	sent, err := b.sendMarkdown(chatID, "✂️ *Reading the page...*")
	if err != nil {
		return
	}

	notes, err := b.app.ClipInput(ctx, sess, url)
	if err != nil {
		b.editError(chatID, sent.MessageID, "Could not read that page: "+err.Error())
		return
	}
	b.generateInto(ctx, chatID, sent.MessageID, sess, notes.Text)
}

func (b *Bot) handleGenerateRequest(ctx context.Context, chatID int64, sess *app.Session, text string) {
	sent, err := b.sendMarkdown(chatID, "🧑‍🍳 *Building your list...*")
	if err != nil {
		return
	}
	b.generateInto(ctx, chatID, sent.MessageID, sess, text)
}

func (b *Bot) generateInto(ctx context.Context, chatID int64, messageID int, sess *app.Session, text string) {
	if err := sess.Generate(context.WithoutCancel(ctx), text); err != nil {
		b.editError(chatID, messageID, app.Message(err))
		return
	}
	b.editList(chatID, messageID, sess.Snapshot())
}

// handleCallbackQuery applies an inline button press. Data is
// "<action>|<item id>".
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	defer b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	if query.Message == nil {
		return
	}
	action, itemID, ok := strings.Cut(query.Data, "|")
	if !ok {
		return
	}

	chatID := query.Message.Chat.ID
	sess := b.app.Sessions.Get(sessionKey(chatID))
	switch action {
	case actionToggle:
		if _, found := sess.ToggleItem(itemID); !found {
			return
		}
	case actionDelete:
		if !sess.DeleteItem(itemID) {
			return
		}
	default:
		return
	}
	b.editList(chatID, query.Message.MessageID, sess.Snapshot())
}

func formatListMarkdown(v app.View) string {
	if v.IsEmpty() {
		return "🛒 Your list is empty. Send me a meal plan to get started."
	}

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	for _, cat := range v.Categories {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, cat.Label)))
		for _, item := range cat.Items {
			mark := "▫️"
			if v.Checked[item.ID] {
				mark = "✅"
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", mark, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, item.Text)))
		}
	}
	return sb.String()
}

// listKeyboard has one row per item: a check toggle and a delete button.
func listKeyboard(v app.View) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, cat := range v.Categories {
		for _, item := range cat.Items {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(toggleLabel(item, v.Checked), actionToggle+"|"+item.ID),
				tgbotapi.NewInlineKeyboardButtonData("🗑", actionDelete+"|"+item.ID),
			))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func toggleLabel(item checklist.Item, checked map[string]bool) string {
	if checked[item.ID] {
		return "✅ " + item.Text
	}
	return "⬜ " + item.Text
}

func (b *Bot) sendList(chatID int64, v app.View) {
	msg := tgbotapi.NewMessage(chatID, formatListMarkdown(v))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb := listKeyboard(v); kb != nil {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send list", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) editList(chatID int64, messageID int, v app.View) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, formatListMarkdown(v))
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = listKeyboard(v)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("failed to edit list", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return sent, err
}

func (b *Bot) sendError(chatID int64, text string) {
	b.api.Send(tgbotapi.NewMessage(chatID, "❌ "+text))
}

func (b *Bot) editError(chatID int64, messageID int, text string) {
	b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ "+text))
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.app.Config.AdminTelegramID {
		b.sendMarkdown(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, health, err := b.app.UsageReport(ctx, 7)
	if err != nil {
		b.sendError(msg.Chat.ID, "Error fetching metrics.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d failed)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failures))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	sb.WriteString(fmt.Sprintf("• Active chats: %d\n", b.app.Sessions.Len()))

	b.sendMarkdown(msg.Chat.ID, sb.String())
}
