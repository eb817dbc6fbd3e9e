package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/conversation"
	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/notify"
	"zonarated-bot/internal/settings"
)

const (
	adminPrefix = "adm_"

	queueLimit        = 20
	broadcastInterval = 50 * time.Millisecond
)

// flowCallbacks maps panel buttons to the conversation they open.
var flowCallbacks = map[string]conversation.State{
	"adm_set_referrals": conversation.AwaitingReferralCount,
	"adm_set_affiliate": conversation.AwaitingAffiliateLink,
	"adm_set_welcome":   conversation.AwaitingWelcome,
	"adm_set_expiry":    conversation.AwaitingInviteExpiry,
	"adm_set_redirect":  conversation.AwaitingRedirectBase,
	"adm_approve":       conversation.AwaitingApproveID,
	"adm_lookup":        conversation.AwaitingLookupID,
	"adm_broadcast":     conversation.AwaitingBroadcast,
	"adm_maint_on":      conversation.AwaitingMaintenanceEnd,
	"adm_schedule":      conversation.AwaitingSchedule,
	"adm_topic_add":     conversation.AwaitingTopic,
}

func button(text, data string) telego.InlineKeyboardButton {
	return tu.InlineKeyboardButton(text).WithCallbackData(data)
}

func mainMenu() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(button("📊 Statistik", "adm_stats"), button("⚙️ Pengaturan", "adm_settings")),
		tu.InlineKeyboardRow(button("👥 User", "adm_users"), button("📢 Broadcast", "adm_broadcast")),
		tu.InlineKeyboardRow(button("🗓 Jadwalkan", "adm_schedule"), button("📋 Antrian", "adm_queue")),
		tu.InlineKeyboardRow(button("🔧 Maintenance", "adm_maint"), button("🏷 Genre", "adm_topics")),
		tu.InlineKeyboardRow(button("❌ Tutup", "adm_close")),
	)
}

func backMenu() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(tu.InlineKeyboardRow(button("« Kembali", "adm_main")))
}

func cancelMenu() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(tu.InlineKeyboardRow(button("Batal", "adm_cancel")))
}

func (b *Bot) onAdmin(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil || msg.Chat.Type != telego.ChatTypePrivate {
		return
	}
	if !b.Settings.IsAdmin(c, msg.From.ID) {
		b.fallback(c, msg.From.ID)
		return
	}
	if err := b.Conversations.Set(c, msg.From.ID, conversation.Idle); err != nil {
		b.Logger.Warn("failed to reset conversation", zap.Int64("admin_id", msg.From.ID), zap.Error(err))
	}
	b.send(c, msg.From.ID, "<b>Panel Admin ZONA RATED</b>\n\nPilih menu:", mainMenu())
}

func (b *Bot) onCancel(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	if !b.Settings.IsAdmin(c, msg.From.ID) {
		b.fallback(c, msg.From.ID)
		return
	}
	if _, err := b.Conversations.Apply(c, msg.From.ID, conversation.Event{Kind: conversation.Cancel}); err != nil {
		b.Logger.Warn("failed to cancel conversation", zap.Int64("admin_id", msg.From.ID), zap.Error(err))
	}
	b.send(c, msg.From.ID, "Dibatalkan.", mainMenu())
}

func (b *Bot) onAdminCallback(c context.Context, update telego.Update) {
	query := update.CallbackQuery
	adminID := query.From.ID
	if !b.Settings.IsAdmin(c, adminID) {
		b.answer(c, query.ID, "Akses ditolak.", true)
		return
	}

	if flow, ok := flowCallbacks[query.Data]; ok {
		if _, err := b.Conversations.Apply(c, adminID, conversation.Event{Kind: conversation.Begin, Flow: flow}); err != nil {
			b.Logger.Error("failed to start conversation", zap.String("flow", string(flow)), zap.Error(err))
			b.answer(c, query.ID, "Gagal memulai. Coba lagi.", true)
			return
		}
		b.send(c, adminID, flow.Prompt(), cancelMenu())
		b.answer(c, query.ID, "", false)
		return
	}

	switch query.Data {
	case "adm_main":
		b.send(c, adminID, "<b>Panel Admin ZONA RATED</b>\n\nPilih menu:", mainMenu())
	case "adm_close":
		b.send(c, adminID, "Panel ditutup.", nil)
	case "adm_cancel":
		if _, err := b.Conversations.Apply(c, adminID, conversation.Event{Kind: conversation.Cancel}); err != nil {
			b.Logger.Warn("failed to cancel conversation", zap.Int64("admin_id", adminID), zap.Error(err))
		}
		b.send(c, adminID, "Dibatalkan.", mainMenu())
	case "adm_stats":
		b.send(c, adminID, b.statsText(c), backMenu())
	case "adm_settings":
		b.send(c, adminID, b.settingsText(c), tu.InlineKeyboard(
			tu.InlineKeyboardRow(button("Referral", "adm_set_referrals"), button("Affiliate", "adm_set_affiliate")),
			tu.InlineKeyboardRow(button("Welcome", "adm_set_welcome"), button("Invite Expiry", "adm_set_expiry")),
			tu.InlineKeyboardRow(button("Redirect URL", "adm_set_redirect")),
			tu.InlineKeyboardRow(button("« Kembali", "adm_main")),
		))
	case "adm_users":
		b.send(c, adminID, "<b>Manajemen User</b>", tu.InlineKeyboard(
			tu.InlineKeyboardRow(button("✅ Approve", "adm_approve"), button("🔍 Cari", "adm_lookup")),
			tu.InlineKeyboardRow(button("« Kembali", "adm_main")),
		))
	case "adm_queue":
		b.send(c, adminID, b.queueText(c), backMenu())
	case "adm_topics":
		b.send(c, adminID, b.topicsText(c), tu.InlineKeyboard(
			tu.InlineKeyboardRow(button("➕ Tambah", "adm_topic_add")),
			tu.InlineKeyboardRow(button("« Kembali", "adm_main")),
		))
	case "adm_maint":
		b.send(c, adminID, b.maintenanceText(c), tu.InlineKeyboard(
			tu.InlineKeyboardRow(button("Aktifkan", "adm_maint_on"), button("Matikan", "adm_maint_off")),
			tu.InlineKeyboardRow(button("« Kembali", "adm_main")),
		))
	case "adm_maint_off":
		if err := b.Maintenance.Disable(c); err != nil {
			b.Logger.Error("failed to disable maintenance", zap.Error(err))
			b.answer(c, query.ID, "Gagal mematikan maintenance.", true)
			return
		}
		b.send(c, adminID, "✅ Maintenance dimatikan.", backMenu())
	default:
		b.answer(c, query.ID, "Menu tidak dikenal.", false)
		return
	}
	b.answer(c, query.ID, "", false)
}

// handleAdminInput feeds text into the operator's open conversation. It
// reports false when no conversation is open.
func (b *Bot) handleAdminInput(ctx context.Context, adminID int64, text string) bool {
	state, err := b.Conversations.Get(ctx, adminID)
	if err != nil {
		b.Logger.Warn("failed to load conversation", zap.Int64("admin_id", adminID), zap.Error(err))
		return false
	}
	if state == conversation.Idle {
		return false
	}

	text = strings.TrimSpace(text)
	var reply string
	if key, ok := state.SettingKey(); ok {
		reply, err = b.applySetting(ctx, key, text)
	} else {
		switch state {
		case conversation.AwaitingApproveID:
			reply, err = b.approveUser(ctx, text)
		case conversation.AwaitingLookupID:
			reply, err = b.lookupUser(ctx, text)
		case conversation.AwaitingBroadcast:
			reply, err = b.broadcast(ctx, adminID, text)
		case conversation.AwaitingMaintenanceEnd:
			reply, err = b.enableMaintenance(ctx, text)
		case conversation.AwaitingSchedule:
			reply, err = b.scheduleJob(ctx, adminID, text)
		case conversation.AwaitingTopic:
			reply, err = b.addTopic(ctx, text)
		}
	}

	event := conversation.Event{Kind: conversation.Accepted}
	kb := backMenu()
	if err != nil {
		event.Kind = conversation.Rejected
		reply = "❌ " + html.EscapeString(operatorMessage(err)) + "\n\n" + state.Prompt()
		kb = cancelMenu()
		if !errors.Is(err, apperror.ErrValidation) && !errors.Is(err, apperror.ErrNotFound) {
			b.Logger.Error("operator input failed", zap.String("state", string(state)), zap.Error(err))
		}
	}
	if _, err := b.Conversations.Apply(ctx, adminID, event); err != nil {
		b.Logger.Warn("failed to advance conversation", zap.Int64("admin_id", adminID), zap.Error(err))
	}
	b.send(ctx, adminID, reply, kb)
	return true
}

// operatorMessage returns the safe part of err for an operator reply.
func operatorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Terjadi kesalahan internal. Coba lagi."
}

func (b *Bot) applySetting(ctx context.Context, key, value string) (string, error) {
	if value == "-" && (key == settings.AffiliateLink || key == settings.RedirectBaseURL) {
		value = ""
	}
	if err := b.Settings.Set(ctx, key, value); err != nil {
		return "", err
	}
	b.Logger.Info("setting updated", zap.String("key", key))

	switch key {
	case settings.RequiredReferrals:
		if value == "0" {
			return "✅ <b>Required Referrals</b> diperbarui ke <b>0</b>\nAuto-approve (tanpa referral)", nil
		}
		return fmt.Sprintf("✅ <b>Required Referrals</b> diperbarui ke <b>%s</b>\nUser perlu %s referral", value, value), nil
	case settings.InviteExpirySeconds:
		n, _ := strconv.Atoi(value)
		return fmt.Sprintf("✅ <b>Invite Expiry</b> diperbarui ke <b>%d detik</b> (%d menit %d detik)", n, n/60, n%60), nil
	case settings.WelcomeMessage:
		return "✅ <b>Welcome Message</b> diperbarui!\n\nPreview:\n" + value, nil
	}
	if value == "" {
		return fmt.Sprintf("✅ <b>%s</b> dihapus.", key), nil
	}
	return fmt.Sprintf("✅ <b>%s</b> diperbarui!\n%s", key, html.EscapeString(value)), nil
}

func (b *Bot) approveUser(ctx context.Context, text string) (string, error) {
	id, err := ParseUserID(text)
	if err != nil {
		return "", err
	}
	u, err := b.Admission.ManualApprove(ctx, id)
	if err != nil {
		return "", err
	}
	b.Notifier.AdminApproved(ctx, *u)
	return fmt.Sprintf("✅ User <b>%s</b> (ID: <code>%d</code>) berhasil di-approve!", html.EscapeString(u.DisplayName()), u.ID), nil
}

func (b *Bot) lookupUser(ctx context.Context, text string) (string, error) {
	id, err := ParseUserID(text)
	if err != nil {
		return "", err
	}
	u, err := b.Store.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	required, err := b.Settings.RequiredReferrals(ctx)
	if err != nil {
		return "", err
	}
	return formatUser(*u, required), nil
}

func formatUser(u models.User, required int) string {
	username := "-"
	if u.Username != "" {
		username = "@" + u.Username
	}
	referredBy := "-"
	if u.ReferredBy != nil {
		referredBy = strconv.FormatInt(*u.ReferredBy, 10)
	}
	lang := u.Language
	if lang == "" {
		lang = "-"
	}
	yn := func(v bool) string { return i18n.YesNo(i18n.Indonesian, v) }

	var sb strings.Builder
	sb.WriteString("<b>User Detail</b>\n\n")
	fmt.Fprintf(&sb, "ID: <code>%d</code>\n", u.ID)
	fmt.Fprintf(&sb, "Name: %s\n", html.EscapeString(u.FirstName))
	fmt.Fprintf(&sb, "Username: %s\n", html.EscapeString(username))
	fmt.Fprintf(&sb, "Language: %s\n", lang)
	fmt.Fprintf(&sb, "Referred by: <code>%s</code>\n", referredBy)
	fmt.Fprintf(&sb, "Referrals: <b>%d/%d</b>\n\n", u.ReferralCount, required)
	fmt.Fprintf(&sb, "Verified: %s\n", yn(u.VerificationComplete))
	fmt.Fprintf(&sb, "Ready to join: %s\n", yn(u.ReadyToJoin))
	fmt.Fprintf(&sb, "Joined SG: %s\n", yn(u.JoinedGroup))
	fmt.Fprintf(&sb, "Approved: %s\n\n", yn(u.Approved))
	fmt.Fprintf(&sb, "Registered: %s\n", u.CreatedAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Last update: %s", u.UpdatedAt.UTC().Format("2006-01-02 15:04"))
	return sb.String()
}

// broadcast sends text to every known user, paced to stay under Telegram's
// global rate limit.
func (b *Bot) broadcast(ctx context.Context, adminID int64, text string) (string, error) {
	if text == "" {
		return "", apperror.ValidationFailed("broadcast message is empty")
	}
	ids, err := b.Store.UserIDs(ctx)
	if err != nil {
		return "", err
	}
	b.send(ctx, adminID, fmt.Sprintf("Mengirim broadcast ke %d user...", len(ids)), nil)

	ticker := b.Clock.NewTicker(broadcastInterval, "broadcast")
	defer ticker.Stop()

	var sent, failed int
	for i, id := range ids {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-ticker.C:
			}
		}
		if b.Notifier.Send(ctx, id, notify.Message{Text: text}).Sent() {
			sent++
		} else {
			failed++
		}
	}

	b.Logger.Info("broadcast finished", zap.Int64("admin_id", adminID), zap.Int("sent", sent), zap.Int("failed", failed))
	return fmt.Sprintf("<b>Broadcast selesai!</b>\n\nTerkirim: %d\nGagal: %d\nTotal: %d", sent, failed, len(ids)), nil
}

func (b *Bot) enableMaintenance(ctx context.Context, text string) (string, error) {
	end, err := ParseMaintenanceEnd(text, b.Clock.Now())
	if err != nil {
		return "", err
	}
	if err := b.Maintenance.Enable(ctx, end); err != nil {
		return "", err
	}
	return "🔧 Maintenance aktif.\nPerkiraan selesai: " + maintenanceUntil(i18n.Indonesian, end), nil
}

func (b *Bot) scheduleJob(ctx context.Context, adminID int64, text string) (string, error) {
	job, err := ParseSchedule(text, b.Clock.Now())
	if err != nil {
		return "", err
	}
	job.CreatedBy = adminID
	if err := b.Store.CreateJob(ctx, &job); err != nil {
		return "", err
	}
	b.Logger.Info("job scheduled", zap.Uint("job_id", job.ID), zap.Time("due_at", job.DueAt))
	return fmt.Sprintf("✅ Job <b>#%d</b> dijadwalkan untuk %s\n%s",
		job.ID, job.DueAt.Format("2006-01-02 15:04 UTC"), html.EscapeString(job.Title)), nil
}

// addTopic opens the forum topic first so a stored topic always has a thread.
func (b *Bot) addTopic(ctx context.Context, text string) (string, error) {
	name, isAll, err := ParseTopic(text)
	if err != nil {
		return "", err
	}
	if _, err := b.Store.TopicByName(ctx, name); err == nil {
		return "", apperror.ValidationFailed(fmt.Sprintf("topic %q already exists", name))
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return "", err
	}

	thread, err := b.Forum.CreateTopic(ctx, name)
	if err != nil {
		return "", err
	}
	topic, err := b.Store.CreateTopic(ctx, name, thread, isAll)
	if err != nil {
		return "", err
	}
	b.Logger.Info("topic created", zap.String("name", topic.Name), zap.String("prefix", topic.Prefix), zap.Int("thread_id", thread))
	return fmt.Sprintf("✅ Genre <b>%s</b> dibuat (prefix <code>%s</code>).", html.EscapeString(topic.Name), topic.Prefix), nil
}

func (b *Bot) topicsText(ctx context.Context) string {
	topics, err := b.Store.ListTopics(ctx)
	if err != nil {
		b.Logger.Error("failed to load topics", zap.Error(err))
		return "Gagal memuat genre."
	}
	return formatTopics(topics)
}

func formatTopics(topics []models.Topic) string {
	if len(topics) == 0 {
		return "<b>Genre</b>\n\nBelum ada genre."
	}
	var sb strings.Builder
	sb.WriteString("<b>Genre</b>\n")
	for _, t := range topics {
		fmt.Fprintf(&sb, "\n#%d %s <code>%s</code>", t.ID, html.EscapeString(t.Name), t.Prefix)
		if t.IsAll {
			sb.WriteString(" (semua)")
		}
	}
	sb.WriteString("\n\nHapus dengan /deltopic &lt;id&gt;")
	return sb.String()
}

func (b *Bot) statsText(ctx context.Context) string {
	stats, err := b.Store.UserStats(ctx)
	if err != nil {
		b.Logger.Error("failed to load user stats", zap.Error(err))
		return "Gagal memuat statistik."
	}
	downloads, err := b.Store.CountDownloads(ctx)
	if err != nil {
		b.Logger.Warn("failed to count downloads", zap.Error(err))
	}

	rate := "0"
	if stats.Total > 0 {
		rate = fmt.Sprintf("%.1f", float64(stats.Verified)/float64(stats.Total)*100)
	}
	required, err := b.Settings.RequiredReferrals(ctx)
	if err != nil {
		b.Logger.Error("failed to read referral threshold", zap.Error(err))
		return "Gagal memuat statistik."
	}
	auto := ""
	if required == 0 {
		auto = "  (auto-approve)"
	}

	return fmt.Sprintf("<b>Statistik</b>\n\n"+
		"Total users: <b>%d</b>\n"+
		"Verified: <b>%d</b> (%s%%)\n"+
		"Joined ZONA RATED: <b>%d</b>\n"+
		"Downloads: <b>%d</b>\n\n"+
		"Required referrals: <b>%d</b>%s\n"+
		"Invite expiry: <b>%ds</b>",
		stats.Total, stats.Verified, rate, stats.Joined, downloads,
		required, auto, int(b.Settings.InviteExpiry(ctx).Seconds()))
}

func (b *Bot) settingsText(ctx context.Context) string {
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return html.EscapeString(s)
	}
	welcome := b.Settings.String(ctx, settings.WelcomeMessage, "")
	if r := []rune(welcome); len(r) > 50 {
		welcome = string(r[:50]) + "..."
	}

	required := "?"
	if n, err := b.Settings.RequiredReferrals(ctx); err != nil {
		b.Logger.Warn("failed to read referral threshold", zap.Error(err))
	} else {
		required = strconv.Itoa(n)
	}

	return fmt.Sprintf("<b>Pengaturan</b>\n\n"+
		"Required Referrals: <b>%s</b>\n"+
		"Affiliate Link: %s\n"+
		"Welcome: <i>%s</i>\n"+
		"Invite Expiry: <b>%ds</b>\n"+
		"Redirect URL: %s\n"+
		"Download session: <b>%s</b>",
		required,
		orDash(b.Settings.AffiliateLink(ctx)),
		orDash(welcome),
		int(b.Settings.InviteExpiry(ctx).Seconds()),
		orDash(b.Settings.RedirectBaseURL(ctx)),
		b.Settings.SessionTTL(ctx))
}

func (b *Bot) maintenanceText(ctx context.Context) string {
	active, state := b.Maintenance.Active(ctx)
	status := "Tidak aktif"
	if active {
		status = "Aktif sampai " + maintenanceUntil(i18n.Indonesian, state.End)
	}
	return "<b>Maintenance</b>\n\nStatus: " + status
}

func (b *Bot) queueText(ctx context.Context) string {
	jobs, err := b.Store.UpcomingJobs(ctx, queueLimit)
	if err != nil {
		b.Logger.Error("failed to load job queue", zap.Error(err))
		return "Gagal memuat antrian."
	}
	return formatQueue(jobs)
}

func formatQueue(jobs []models.ScheduledJob) string {
	if len(jobs) == 0 {
		return "<b>Antrian</b>\n\nTidak ada job terjadwal."
	}
	var sb strings.Builder
	sb.WriteString("<b>Antrian</b>\n")
	for _, j := range jobs {
		fmt.Fprintf(&sb, "\n#%d [%s] %s\n%s", j.ID, j.Status, j.DueAt.UTC().Format("2006-01-02 15:04"), html.EscapeString(j.Title))
		if j.ErrorMessage != "" {
			fmt.Fprintf(&sb, "\n  ⚠️ %s", html.EscapeString(j.ErrorMessage))
		}
	}
	return sb.String()
}

func (b *Bot) onQueue(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	if !b.Settings.IsAdmin(c, msg.From.ID) {
		b.fallback(c, msg.From.ID)
		return
	}
	b.send(c, msg.Chat.ID, b.queueText(c), nil)
}

func (b *Bot) onUnschedule(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	if !b.Settings.IsAdmin(c, msg.From.ID) {
		b.fallback(c, msg.From.ID)
		return
	}

	_, _, args := tu.ParseCommand(msg.Text)
	if len(args) != 1 {
		b.send(c, msg.Chat.ID, "Pemakaian: /unschedule &lt;id&gt;", nil)
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		b.send(c, msg.Chat.ID, "ID job tidak valid.", nil)
		return
	}

	cancelled, err := b.Store.CancelJob(c, uint(id))
	switch {
	case err != nil:
		b.Logger.Error("failed to cancel job", zap.Uint64("job_id", id), zap.Error(err))
		b.send(c, msg.Chat.ID, "Gagal membatalkan job.", nil)
	case cancelled:
		b.Logger.Info("job cancelled", zap.Uint64("job_id", id), zap.Int64("admin_id", msg.From.ID))
		b.send(c, msg.Chat.ID, fmt.Sprintf("✅ Job #%d dibatalkan.", id), nil)
	default:
		b.send(c, msg.Chat.ID, fmt.Sprintf("Job #%d tidak ditemukan atau sudah tidak pending.", id), nil)
	}
}

func (b *Bot) onDeleteTopic(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	if !b.Settings.IsAdmin(c, msg.From.ID) {
		b.fallback(c, msg.From.ID)
		return
	}

	_, _, args := tu.ParseCommand(msg.Text)
	if len(args) != 1 {
		b.send(c, msg.Chat.ID, "Pemakaian: /deltopic &lt;id&gt;", nil)
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.send(c, msg.Chat.ID, "ID genre tidak valid.", nil)
		return
	}

	deleted, err := b.Store.DeleteTopic(c, id)
	switch {
	case err != nil:
		b.Logger.Error("failed to delete topic", zap.Int64("topic_id", id), zap.Error(err))
		b.send(c, msg.Chat.ID, "Gagal menghapus genre.", nil)
	case deleted:
		b.Logger.Info("topic deleted", zap.Int64("topic_id", id), zap.Int64("admin_id", msg.From.ID))
		b.send(c, msg.Chat.ID, fmt.Sprintf("✅ Genre #%d dihapus.", id), nil)
	default:
		b.send(c, msg.Chat.ID, fmt.Sprintf("Genre #%d tidak ditemukan.", id), nil)
	}
}
