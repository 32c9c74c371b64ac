package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"smartplanner/internal/clipper"
	"smartplanner/internal/config"
	"smartplanner/internal/llm"
	"smartplanner/internal/metrics"
	"smartplanner/internal/planner"
	"smartplanner/internal/recipe"
	"smartplanner/internal/shared"
	"smartplanner/internal/shopping"
	"smartplanner/internal/supabase"
	"smartplanner/internal/sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatState is the per-chat planning context: a sync controller holding
// that chat's session, catalog and week plan, plus the ephemeral
// shopping checklist.
type chatState struct {
	controller *sync.Controller
	checklist  *shopping.Checklist
}

// Bot wraps the Telegram API, the per-chat sync controllers, and the AI
// collaborators.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	store        *supabase.Client
	auth         *supabase.Auth
	clipper      *clipper.Clipper
	textGen      llm.TextGenerator
	metricsStore *metrics.Store
	sessions     *SessionRepository

	mu    gosync.Mutex
	chats map[int64]*chatState
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	store *supabase.Client,
	auth *supabase.Auth,
	clipper *clipper.Clipper,
	textGen llm.TextGenerator,
	metricsStore *metrics.Store,
	sessions *SessionRepository,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		cfg:          cfg,
		store:        store,
		auth:         auth,
		clipper:      clipper,
		textGen:      textGen,
		metricsStore: metricsStore,
		sessions:     sessions,
		chats:        make(map[int64]*chatState),
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		go b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}

	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

// state returns the chat's planning context, restoring a persisted
// session on first contact after a restart.
func (b *Bot) state(ctx context.Context, chatID int64) *chatState {
	b.mu.Lock()
	st, ok := b.chats[chatID]
	if !ok {
		st = &chatState{
			controller: sync.NewController(b.store),
			checklist:  shopping.NewChecklist(),
		}
		b.chats[chatID] = st
	}
	b.mu.Unlock()

	if st.controller.Session() == nil {
		b.restoreSession(ctx, chatID, st)
	}
	return st
}

func (b *Bot) restoreSession(ctx context.Context, chatID int64, st *chatState) {
	stored, err := b.sessions.Get(ctx, chatID)
	if err != nil || stored == nil {
		return
	}

	session, err := supabase.NewSessionFromTokens(stored.AccessToken, stored.RefreshToken)
	if err != nil {
		log.Printf("Dropping unreadable stored session for chat %d: %v", chatID, err)
		_ = b.sessions.Delete(ctx, chatID)
		return
	}

	if session.Expired() {
		session, err = b.auth.Refresh(ctx, stored.RefreshToken)
		if err != nil {
			log.Printf("Failed to refresh session for chat %d: %v", chatID, err)
			_ = b.sessions.Delete(ctx, chatID)
			return
		}
		_ = b.sessions.Save(ctx, StoredSession{
			ChatID:       chatID,
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			Email:        stored.Email,
		})
	}

	if err := st.controller.Start(ctx, session); err != nil {
		log.Printf("Failed to restore state for chat %d: %v", chatID, err)
	}
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	text := strings.TrimSpace(msg.Text)
	cmd, args, _ := strings.Cut(text, " ")

	switch cmd {
	case "/start", "/help":
		b.reply(msg.Chat.ID, helpText)
		return
	case "/signin":
		b.handleSignIn(ctx, msg, args)
		return
	case "/signout":
		b.handleSignOut(ctx, msg.Chat.ID)
		return
	case "/metrics":
		b.handleMetricsRequest(msg)
		return
	}

	st := b.state(ctx, msg.Chat.ID)
	if st.controller.Session() == nil {
		b.reply(msg.Chat.ID, "🔐 Please sign in first: /signin email password")
		return
	}

	switch cmd {
	case "/week":
		b.reply(msg.Chat.ID, formatWeek(st.controller.WeekPlan(), st.controller.Recipes()))
	case "/recipes":
		b.reply(msg.Chat.ID, formatRecipes(st.controller.Recipes()))
	case "/assign":
		b.handleAssign(ctx, msg.Chat.ID, st, args)
	case "/delete":
		b.handleDelete(ctx, msg.Chat.ID, st, args)
	case "/shopping":
		b.sendShoppingList(msg.Chat.ID, st)
	default:
		if strings.HasPrefix(text, "/") {
			b.reply(msg.Chat.ID, "Unknown command. Try /help.")
			return
		}
		// Free text: a URL clips a recipe from the web, anything else
		// asks the model to draft one.
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
			b.handleClipperRequest(ctx, msg.Chat.ID, st, text)
		} else {
			b.handleGenerateRequest(ctx, msg.Chat.ID, st, text)
		}
	}
}

const helpText = `👋 *SmartPlanner*

/signin email password — connect your account
/signout — disconnect
/week — show this week's plan
/recipes — list your recipes
/assign <date> <meal> [n] — put recipe n on a slot (0 clears, omit for buttons)
/delete <n> — remove a recipe
/shopping — aggregated shopping list
Send a recipe URL to clip it, or describe a dish to generate one.`

func (b *Bot) handleSignIn(ctx context.Context, msg *tgbotapi.Message, args string) {
	email, password, ok := strings.Cut(strings.TrimSpace(args), " ")
	if !ok {
		b.reply(msg.Chat.ID, "Usage: /signin email password")
		return
	}

	// Don't leave credentials sitting in the chat history.
	b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID))

	session, err := b.auth.SignIn(ctx, email, password)
	if err != nil {
		log.Printf("Sign-in failed for chat %d: %v", msg.Chat.ID, err)
		b.reply(msg.Chat.ID, "❌ Sign-in failed. Check your email and password.")
		return
	}

	st := b.state(ctx, msg.Chat.ID)
	if err := st.controller.Start(ctx, session); err != nil {
		log.Printf("Failed to load state for chat %d: %v", msg.Chat.ID, err)
		b.reply(msg.Chat.ID, "❌ Signed in, but loading your data failed. Try again.")
		return
	}

	if err := b.sessions.Save(ctx, StoredSession{
		ChatID:       msg.Chat.ID,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Email:        email,
	}); err != nil {
		log.Printf("Failed to persist session for chat %d: %v", msg.Chat.ID, err)
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Signed in as *%s*. %d recipes loaded.", email, len(st.controller.Recipes())))
}

func (b *Bot) handleSignOut(ctx context.Context, chatID int64) {
	st := b.state(ctx, chatID)

	if session := st.controller.Session(); session != nil {
		if err := b.auth.SignOut(ctx, session); err != nil {
			log.Printf("Remote sign-out failed for chat %d: %v", chatID, err)
		}
	}

	st.controller.SignOut()
	st.checklist.Reset()
	_ = b.sessions.Delete(ctx, chatID)

	b.reply(chatID, "👋 Signed out. Your plan and recipes are cleared from this chat.")
}

func (b *Bot) handleAssign(ctx context.Context, chatID int64, st *chatState, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 && len(fields) != 3 {
		b.reply(chatID, "Usage: /assign <date|today|tomorrow> <breakfast|lunch|dinner|snack> [recipe number, 0 to clear]")
		return
	}

	date := resolveDate(fields[0])
	mealType := planner.MealType(strings.ToLower(fields[1]))
	if !mealType.Valid() {
		b.reply(chatID, fmt.Sprintf("Unknown meal type %q. Use breakfast, lunch, dinner or snack.", fields[1]))
		return
	}

	// Without a number, offer the catalog as buttons instead.
	if len(fields) == 2 {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Pick a recipe for *%s* %s:", date, mealType))
		msg.ParseMode = "Markdown"
		msg.ReplyMarkup = assignKeyboard(date, mealType, st.controller.Recipes())
		b.api.Send(msg)
		return
	}

	index, err := strconv.Atoi(fields[2])
	recipes := st.controller.Recipes()
	if err != nil || index < 0 || index > len(recipes) {
		b.reply(chatID, fmt.Sprintf("Pick a recipe number between 1 and %d, or 0 to clear.", len(recipes)))
		return
	}

	recipeID := ""
	title := "nothing"
	if index > 0 {
		recipeID = recipes[index-1].ID
		title = recipes[index-1].Title
	}

	if err := st.controller.UpdateMeal(ctx, date, mealType, recipeID); err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Could not update the plan: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf("✅ *%s* %s → %s", date, mealType, title))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, st *chatState, args string) {
	index, err := strconv.Atoi(strings.TrimSpace(args))
	recipes := st.controller.Recipes()
	if err != nil || index < 1 || index > len(recipes) {
		b.reply(chatID, "Usage: /delete <recipe number> (see /recipes)")
		return
	}

	rec := recipes[index-1]
	if err := st.controller.DeleteRecipe(ctx, rec.ID); err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Could not delete *%s*: %v", rec.Title, err))
		return
	}
	b.reply(chatID, fmt.Sprintf("🗑 Deleted *%s*.", rec.Title))
}

func (b *Bot) sendShoppingList(chatID int64, st *chatState) {
	entries := st.controller.ShoppingList()
	msg := tgbotapi.NewMessage(chatID, formatShoppingList(entries, st.checklist))
	msg.ParseMode = "Markdown"
	if len(entries) > 0 {
		msg.ReplyMarkup = shoppingKeyboard(entries, st.checklist)
	}
	b.api.Send(msg)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	action, payload, ok := strings.Cut(query.Data, "|")
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))
	if !ok {
		return
	}

	st := b.state(ctx, query.Message.Chat.ID)

	switch action {
	case "check":
		st.checklist.Toggle(payload)

		entries := st.controller.ShoppingList()
		edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, formatShoppingList(entries, st.checklist))
		edit.ParseMode = "Markdown"
		if len(entries) > 0 {
			keyboard := shoppingKeyboard(entries, st.checklist)
			edit.ReplyMarkup = &keyboard
		}
		b.api.Send(edit)
	case "meal":
		parts := strings.SplitN(payload, "|", 3)
		if len(parts) != 3 {
			return
		}
		date, mealType, recipeID := parts[0], planner.MealType(parts[1]), parts[2]

		var result string
		if err := st.controller.UpdateMeal(ctx, date, mealType, recipeID); err != nil {
			result = fmt.Sprintf("❌ Could not update the plan: %v", err)
		} else if recipeID == "" {
			result = fmt.Sprintf("✅ *%s* %s cleared.", date, mealType)
		} else {
			title := recipeID
			if rec, found := recipe.FindByID(st.controller.Recipes(), recipeID); found {
				title = rec.Title
			}
			result = fmt.Sprintf("✅ *%s* %s → %s", date, mealType, title)
		}

		edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, result)
		edit.ParseMode = "Markdown"
		b.api.Send(edit)
	}
}

func (b *Bot) handleClipperRequest(ctx context.Context, chatID int64, st *chatState, url string) {
	sentMsg, err := b.sendStatus(chatID, "✂️ *Clipping recipe...*")
	if err != nil {
		return
	}

	draft, meta, err := b.clipper.ClipURL(ctx, url)
	b.recordMeta(ctx, meta)
	if err != nil {
		log.Printf("Error clipping recipe: %v", err)
		b.editError(chatID, sentMsg.MessageID, "Error clipping recipe", err)
		return
	}

	b.saveDraft(ctx, chatID, sentMsg.MessageID, st, draft)
}

func (b *Bot) handleGenerateRequest(ctx context.Context, chatID int64, st *chatState, request string) {
	sentMsg, err := b.sendStatus(chatID, "🧑‍🍳 *Thinking...*")
	if err != nil {
		return
	}

	log.Printf("Generating recipe for request: %s", request)
	draft, meta, err := recipe.GenerateDraft(ctx, b.textGen, request)
	b.recordMeta(ctx, meta)
	if err != nil {
		log.Printf("Error generating recipe: %v", err)
		b.editError(chatID, sentMsg.MessageID, "Error generating recipe", err)
		return
	}

	b.saveDraft(ctx, chatID, sentMsg.MessageID, st, draft)
}

func (b *Bot) saveDraft(ctx context.Context, chatID int64, messageID int, st *chatState, draft *recipe.Draft) {
	rec := draft.Apply(recipe.Recipe{})
	if err := st.controller.AddRecipe(ctx, rec); err != nil {
		log.Printf("Error saving recipe: %v", err)
		b.editError(chatID, messageID, "Error saving recipe", err)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, formatRecipeSaved(rec))
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func (b *Bot) recordMeta(ctx context.Context, meta shared.AgentMeta) {
	if err := b.metricsStore.RecordMeta(ctx, meta); err != nil {
		log.Printf("Failed to record metrics: %v", err)
	}
	if meta.Usage.PromptTokens > 4000 {
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Context Bloat Alert*\nAgent: %s\nModel: %s\nPrompt Tokens: %d",
			meta.AgentName, meta.Usage.Model, meta.Usage.PromptTokens))
	}
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		b.api.Send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}

	health := metrics.GetSysHealth(b.cfg.DatabasePath)

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• DB Size: %s\n", health.DBFileSize))

	b.reply(chatID, sb.String())
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(b.cfg.AdminTelegramID, text)
	msg.ParseMode = "Markdown"
	b.api.Send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) sendStatus(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
	}
	return sent, err
}

func (b *Bot) editError(chatID int64, messageID int, label string, err error) {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	edit := tgbotapi.NewEditMessageText(chatID, messageID, fmt.Sprintf("❌ *%s:*\n```\n%v\n```", label, safeErr))
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func resolveDate(arg string) string {
	switch strings.ToLower(arg) {
	case "today":
		return time.Now().Format(planner.DateFormat)
	case "tomorrow":
		return time.Now().AddDate(0, 0, 1).Format(planner.DateFormat)
	default:
		return arg
	}
}
