// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package journal

import (
	"context"
	"log/slog"
)

// Notifier delivers a message about a journal to a person.
type Notifier interface {
	Notify(context context.Context, recipientEmail, recipientName, subject, contextID string) error
}

// LogNotifier writes notifications to the structured log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a [LogNotifier].
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements [Notifier].
func (notifier *LogNotifier) Notify(context context.Context, recipientEmail, recipientName, subject, contextID string) error {
	notifier.logger.InfoContext(context, "notification_queued",
		slog.String("recipient_email", recipientEmail),
		slog.String("recipient_name", recipientName),
		slog.String("subject", subject),
		slog.String("context_id", contextID),
	)
	return nil
}

// reviewSubject is the notification subject for a review outcome.
func reviewSubject(journal *Journal) string {
	switch journal.ReviewStatus {
	case StatusPublished:
		return "Your journal has been published: " + journal.Title
	case StatusRejected:
		return "Your journal was not accepted: " + journal.Title
	case StatusRevisionsNeeded:
		return "Revisions requested for: " + journal.Title
	default:
		return "Review update for: " + journal.Title
	}
}
