package notify

import (
	"context"

	"github.com/okian/statwatch/pkg/logger"
)

// LogSink writes records to the log instead of an external channel. Used
// when no webhook is configured, and handy in local development.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{logger: logger.Get().Named("notify")}
}

// Notify logs the record and always succeeds.
func (s *LogSink) Notify(ctx context.Context, subscriberID string, rec Record) error {
	s.logger.Info(ctx, "notification",
		logger.String("subscriber", subscriberID),
		logger.String("subject", rec.SubjectID),
		logger.String("kind", string(rec.Kind)),
		logger.Int("level", rec.Summary.Level),
		logger.Any("delta", rec.Delta),
	)
	return nil
}

var _ Sink = (*LogSink)(nil)
