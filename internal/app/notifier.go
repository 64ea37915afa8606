package app

import (
	"fmt"
	"log"
	"time"

	tele "gopkg.in/telebot.v3"
)

// Notifier pushes moderation events to an admin Telegram chat. It is
// optional: without a bot token every method is a silent no-op.
type Notifier struct {
	bot    *tele.Bot
	chatID int64
}

func NewNotifier(token string, chatID int64) *Notifier {
	if token == "" || chatID == 0 {
		return nil
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Printf("⚠️ Moderation notifier disabled: %v", err)
		return nil
	}
	log.Printf("✅ Moderation notifier connected: @%s", bot.Me.Username)
	return &Notifier{bot: bot, chatID: chatID}
}

func (n *Notifier) send(text string) {
	if n == nil || n.bot == nil {
		return
	}
	safeGo("notifier-send", func() {
		err := sendWithRetry(3, 500*time.Millisecond, func() error {
			_, err := n.bot.Send(tele.ChatID(n.chatID), text, tele.ModeHTML)
			return err
		})
		if err != nil {
			log.Printf("⚠️ Failed to deliver admin notification: %v", err)
		}
	})
}

func (n *Notifier) NotifyReport(r *Report) {
	if n == nil || r == nil {
		return
	}
	n.send(fmt.Sprintf(
		"🚨 <b>New report #%d</b>\nTarget: %s %d\nReason: %s\nPriority: %s",
		r.ID, r.TargetType, r.TargetID, r.Reason, r.Priority,
	))
}

func (n *Notifier) NotifyFlaggedComment(c *Comment, reason string) {
	if n == nil || c == nil {
		return
	}
	n.send(fmt.Sprintf(
		"⚠️ <b>Comment flagged</b>\nComment %d on post %d\nReason: %s\n<i>%s</i>",
		c.ID, c.PostID, reason, shorten(c.Content, 200),
	))
}

// SendWeeklyDigest summarises the moderation queue; housekeeping fires it
// once a week.
func (n *Notifier) SendWeeklyDigest(store *Store) {
	if n == nil || store == nil {
		return
	}
	_, pending, err := store.ListReports(ReportStatusPending, 1, 1)
	if err != nil {
		log.Printf("⚠️ Weekly digest: count pending reports: %v", err)
		return
	}
	_, flagged, err := store.ListFlaggedComments(1, 1)
	if err != nil {
		log.Printf("⚠️ Weekly digest: count flagged comments: %v", err)
		return
	}
	stats, err := store.PlatformStats()
	if err != nil {
		log.Printf("⚠️ Weekly digest: platform stats: %v", err)
		return
	}
	n.send(fmt.Sprintf(
		"📊 <b>Weekly digest</b>\nUsers: %d\nPublished posts: %d\nComments: %d\nPending reports: %d\nFlagged comments: %d",
		stats.TotalUsers, stats.PublishedPosts, stats.TotalComments, pending, flagged,
	))
}
