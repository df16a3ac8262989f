package worker

// email_worker.go
// Processes email jobs from QueueEmail: sends the close-out report over SMTP.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cashpos/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

// ReportMailer is implemented by *infra.Mailer.
type ReportMailer interface {
	SendReport(to, subject, body, attachment string) error
}

type EmailWorker struct {
	mailer ReportMailer
}

func NewEmailWorker(mailer ReportMailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("email_worker: invalid payload: %w", err))
	}
	if payload.ToEmail == "" {
		return Permanent(errors.New("email_worker: empty to_email"))
	}

	err := w.mailer.SendReport(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	if errors.Is(err, infra.ErrMailerDisabled) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: report sent")
	return nil
}
