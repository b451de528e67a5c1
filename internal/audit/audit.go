// Package audit sends enforcement summaries to a community's log channel.
package audit

import (
	"context"
	"time"
	"unicode/utf8"

	"bantrap/internal/logger"
	"bantrap/internal/models"
	"bantrap/internal/platform"
)

// DefaultPreviewLimit is the number of characters of message content kept
// in a record.
const DefaultPreviewLimit = 1000

// TruncationMarker is appended to previews that were cut.
const TruncationMarker = "…"

// Logger delivers audit records through a platform gateway.
// Record never fails: every error is logged at debug level and dropped.
type Logger struct {
	gateway      platform.Gateway
	previewLimit int
	now          func() time.Time
}

func NewLogger(gateway platform.Gateway, previewLimit int) *Logger {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	return &Logger{
		gateway:      gateway,
		previewLimit: previewLimit,
		now:          time.Now,
	}
}

// Record sends a summary of the action taken on evt to cfg's log channel.
// It is a no-op when no log channel is configured, the channel is gone, or
// it can no longer receive text.
func (l *Logger) Record(ctx context.Context, cfg models.CommunityConfig, evt platform.MessageEvent, reason string, banErr error) {
	if !cfg.HasLog() {
		return
	}

	ch, err := l.gateway.FetchChannel(ctx, cfg.CommunityID, cfg.LogChannelID)
	if err != nil {
		logger.Debugf("Log channel %s of community %s unavailable: %v", cfg.LogChannelID, cfg.CommunityID, err)
		return
	}
	if !ch.TextCapable {
		logger.Debugf("Log channel %s of community %s is not text-capable, skipping", ch.ID, cfg.CommunityID)
		return
	}

	record := l.Build(evt, reason, banErr)
	if err := l.gateway.SendMessage(ctx, ch, record); err != nil {
		logger.Debugf("Failed to send audit record to %s: %v", ch.ID, err)
	}
}

// Build assembles the record for evt without sending it.
func (l *Logger) Build(evt platform.MessageEvent, reason string, banErr error) platform.AuditRecord {
	if reason == "" {
		reason = "Posted in trap channel"
	}
	record := platform.AuditRecord{
		AuthorTag:   evt.Author.Tag,
		AuthorID:    evt.Author.ID,
		ChannelID:   evt.ChannelID,
		ChannelName: evt.ChannelName,
		Reason:      reason,
		MessageURL:  evt.URL,
		Preview:     Truncate(evt.Content, l.previewLimit),
		Timestamp:   l.now(),
	}
	if banErr != nil {
		record.BanFailure = banErr.Error()
	}
	return record
}

// Truncate keeps the first limit characters of s and appends
// TruncationMarker when anything was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + TruncationMarker
}
