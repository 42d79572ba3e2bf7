package worker

// summary_worker.go
// Processes shift_summary jobs from QueueShiftSummary: renders the close
// summary PDF, keeps a copy under PDF_STORAGE_PATH and e-mails it to the
// supervisor address.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restopos/internal/infra"
	"restopos/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ShiftSummaryPayload is the job payload sent to QueueShiftSummary.
type ShiftSummaryPayload struct {
	ShiftID string `json:"shift_id"`
}

// ShiftReporter loads the read model of a shift.
type ShiftReporter interface {
	GetShiftReport(ctx context.Context, shiftID uuid.UUID) (*service.ShiftReport, error)
}

// Sender delivers one PDF attachment.
type Sender interface {
	SendAttachment(to, subject, body, filename string, pdf []byte) error
}

type SummaryWorker struct {
	reports     ShiftReporter
	mailer      Sender
	to          string
	storagePath string
	loc         *time.Location
}

func NewSummaryWorker(reports ShiftReporter, mailer Sender, to, storagePath string, loc *time.Location) *SummaryWorker {
	return &SummaryWorker{reports: reports, mailer: mailer, to: to, storagePath: storagePath, loc: loc}
}

// Process renders and delivers the summary of a closed shift.
func (w *SummaryWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ShiftSummaryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("summary_worker: invalid payload: %w", err))
	}
	shiftID, err := uuid.Parse(payload.ShiftID)
	if err != nil {
		return Permanent(fmt.Errorf("summary_worker: invalid shift id %q", payload.ShiftID))
	}

	report, err := w.reports.GetShiftReport(ctx, shiftID)
	if errors.Is(err, service.ErrShiftNotFound) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}
	if report.Close == nil {
		return Permanent(fmt.Errorf("summary_worker: shift %s is still open", shiftID))
	}

	pdf, err := infra.ShiftSummaryPDF(report, w.loc)
	if err != nil {
		return Permanent(err)
	}
	if w.storagePath != "" {
		if _, err := infra.SaveShiftSummary(pdf, shiftID.String(), w.storagePath); err != nil {
			log.Warn().Err(err).Str("shift_id", shiftID.String()).Msg("summary_worker: could not store PDF")
		}
	}

	if w.to == "" || w.mailer == nil {
		log.Debug().Str("shift_id", shiftID.String()).Msg("summary_worker: no supervisor address, skipping e-mail")
		return nil
	}

	registerName := report.Shift.RegisterID.String()
	if report.Shift.Register != nil {
		registerName = report.Shift.Register.Name
	}
	subject := fmt.Sprintf("Cierre de %s (%s)", registerName, report.OperationalDay)
	body := fmt.Sprintf("Diferencia: $%s (%s%%, %s)\nSe adjunta el resumen del turno.",
		report.Close.Discrepancy.StringFixed(2), report.Close.Percentage.StringFixed(2), report.Close.Classification)

	err = w.mailer.SendAttachment(w.to, subject, body, fmt.Sprintf("cierre_%s.pdf", shiftID), pdf)
	if errors.Is(err, infra.ErrMailerDisabled) {
		log.Warn().Str("shift_id", shiftID.String()).Msg("summary_worker: SMTP not configured, skipping e-mail")
		return nil
	}
	if err != nil {
		return fmt.Errorf("summary_worker: send: %w", err)
	}
	log.Info().Str("shift_id", shiftID.String()).Str("to", w.to).Msg("summary_worker: summary sent")
	return nil
}
