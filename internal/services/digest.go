package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/metrics"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
	"gorm.io/gorm"
)

const digestDateLayout = "2006-01-02"

// DigestScheduler sends the once-daily unread summary. An hourly check
// fires the run when the local hour matches the configured digest hour
// and no digest has gone out today. The last-sent date is persisted, so a
// restart after a send does not produce a second digest.
type DigestScheduler struct {
	db        *gorm.DB
	directory AccountDirectory
	notifier  Notifier

	digestHour int
	interval   time.Duration
	now        func() time.Time
}

func NewDigestScheduler(db *gorm.DB, directory AccountDirectory, notifier Notifier, digestHour int) *DigestScheduler {
	return &DigestScheduler{
		db:         db,
		directory:  directory,
		notifier:   notifier,
		digestHour: digestHour,
		interval:   time.Hour,
		now:        time.Now,
	}
}

// Start runs the hourly check until the context is cancelled.
func (d *DigestScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := d.RunOnce(d.now()); err != nil {
					logger.Error().Err(err).Msg("digest run failed")
				}
			}
		}
	}()
}

// digestRow is one (recipient, sender) unread aggregate.
type digestRow struct {
	ReceiverID string
	SenderID   string
	Count      int64
}

// RunOnce performs at most one digest for the day containing now. Returns
// how many recipients were emailed.
func (d *DigestScheduler) RunOnce(now time.Time) (int, error) {
	if now.Hour() != d.digestHour {
		return 0, nil
	}

	today := now.Format(digestDateLayout)
	var state models.DigestState
	if err := d.db.Where(models.DigestState{ID: 1}).FirstOrCreate(&state).Error; err != nil {
		return 0, err
	}
	if state.LastSentDate == today {
		return 0, nil
	}

	// Unread activity in the rolling last 24 hours, not "since midnight".
	cutoff := now.Add(-24 * time.Hour)
	var rows []digestRow
	err := d.db.Model(&models.Message{}).
		Select("receiver_id, sender_id, COUNT(*) as count").
		Where("is_read = ? AND created_at > ?", false, cutoff).
		Group("receiver_id, sender_id").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	type aggregate struct {
		total   int64
		senders []string
	}
	perRecipient := map[string]*aggregate{}
	for _, row := range rows {
		agg, ok := perRecipient[row.ReceiverID]
		if !ok {
			agg = &aggregate{}
			perRecipient[row.ReceiverID] = agg
		}
		agg.total += row.Count
		agg.senders = append(agg.senders, row.SenderID)
	}

	sent := 0
	for recipientID, agg := range perRecipient {
		enabled, err := d.directory.NotificationPreference(recipientID, models.PrefCategoryDigest)
		if err != nil || !enabled {
			continue
		}
		email, err := d.directory.ResolveEmail(recipientID)
		if err != nil {
			continue
		}

		names := make([]string, 0, len(agg.senders))
		for _, senderID := range agg.senders {
			if name, err := d.directory.ResolveDisplayName(senderID); err == nil {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		subject := fmt.Sprintf("You have %d unread message(s) on VoiceCastingPro", agg.total)
		html := fmt.Sprintf(
			`<p>You have <strong>%d</strong> unread message(s) from %s in the last day.</p>
<p>Log in to read and reply.</p>`,
			agg.total, strings.Join(names, ", "))

		if err := d.notifier.Send(email, subject, html); err != nil {
			logger.Error().Err(err).Str("user_id", recipientID).Msg("digest email send failed")
			continue
		}
		sent++
	}

	state.LastSentDate = today
	if err := d.db.Save(&state).Error; err != nil {
		return sent, err
	}

	metrics.DigestRuns.Inc()
	logger.Info().Int("recipients", sent).Str("date", today).Msg("daily digest sent")
	return sent, nil
}
