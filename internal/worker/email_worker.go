package worker

// email_worker.go
// Sends receipt PDFs to members via SMTP.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail      string `json:"to_email"`
	PedidoNumero int64  `json:"pedido_numero"`
	PDFPath      string `json:"pdf_path"`
}

// Sender is satisfied by *infra.Mailer.
type Sender interface {
	EnviarComprovante(to string, numero int64, pdfPath string) error
}

type EmailWorker struct {
	mailer Sender
}

func NewEmailWorker(mailer Sender) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: email payload: %v", errPermanent, err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	if err := w.mailer.EnviarComprovante(payload.ToEmail, payload.PedidoNumero, payload.PDFPath); err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Int64("pedido", payload.PedidoNumero).Msg("email_worker: comprovante sent")
	return nil
}
