package services

import (
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
)

// Notifier is the outbound email capability. Rendering and delivery live
// in the platform's mailer service; this subsystem only hands it a
// recipient, a subject and a body. Failures are best-effort territory:
// callers log them and move on, they never fail a message send.
type Notifier interface {
	Send(toAddress, subject, html string) error
}

// LogNotifier writes would-be emails to the log. Default wiring for
// development and tests.
type LogNotifier struct {
	From string // sender address, from EMAIL_FROM
}

func (n LogNotifier) Send(toAddress, subject, html string) error {
	logger.Info().
		Str("from", n.From).
		Str("to", toAddress).
		Str("subject", subject).
		Int("body_bytes", len(html)).
		Msg("notifier: email send (log only)")
	return nil
}
