package worker

// close_report_worker.go
// Processes close_report jobs: renders the close-out PDF of a closed session
// and, when a recipient is configured, queues an email with it attached.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cashpos/internal/infra"
	"cashpos/internal/model"
	"cashpos/internal/reconcile"
	"cashpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailEnqueuer is implemented by *Dispatcher.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type CloseReportConfig struct {
	StoragePath string
	StoreName   string
	Recipient   string // empty: render only
	Thresholds  reconcile.Thresholds
}

type CloseReportWorker struct {
	repo   repository.CajaRepository
	emails EmailEnqueuer
	cfg    CloseReportConfig
}

func NewCloseReportWorker(repo repository.CajaRepository, emails EmailEnqueuer, cfg CloseReportConfig) *CloseReportWorker {
	return &CloseReportWorker{repo: repo, emails: emails, cfg: cfg}
}

// Process handles a single close_report job:
//  1. Load the session and its ledger events
//  2. Render the PDF to StoragePath
//  3. Queue the email job if a recipient is configured
func (w *CloseReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CloseReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("close_report: invalid payload: %w", err))
	}
	id, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return Permanent(fmt.Errorf("close_report: invalid session_id %q", payload.SessionID))
	}

	sess, err := w.repo.FindSessionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Permanent(fmt.Errorf("close_report: session %s not found", id))
	}
	if err != nil {
		return err
	}
	if sess.State != model.SessionClosed || sess.ExpectedCash == nil || sess.Discrepancy == nil ||
		sess.EndingCash == nil || sess.ClosedAt == nil {
		return Permanent(fmt.Errorf("close_report: session %s is not closed", id))
	}
	events, err := w.repo.ListSessionEvents(ctx, id)
	if err != nil {
		return err
	}

	report := infra.CloseReport{
		StoreName: w.cfg.StoreName,
		Session:   *sess,
		Events:    events,
		Class:     reconcile.Classify(*sess.Discrepancy, *sess.ExpectedCash, w.cfg.Thresholds),
	}
	if sess.Register != nil {
		report.Register = *sess.Register
	}
	path, err := infra.GenerateCloseReportPDF(report, w.cfg.StoragePath)
	if err != nil {
		return err
	}
	log.Info().Str("session_id", id.String()).Str("path", path).Msg("close_report_worker: PDF generated")

	if w.cfg.Recipient == "" || w.emails == nil {
		return nil
	}
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.cfg.Recipient,
		Subject: fmt.Sprintf("Close-out %s: register %s", sess.ClosedAt.Format("2006-01-02 15:04"), report.Register.Name),
		Body: fmt.Sprintf("Expected %s, counted %s, discrepancy %s (%s).",
			infra.FormatAmount(*sess.ExpectedCash), infra.FormatAmount(*sess.EndingCash),
			infra.FormatAmount(*sess.Discrepancy), report.Class),
		PDFPath: path,
	})
}
