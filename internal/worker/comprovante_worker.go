package worker

// comprovante_worker.go
// Renders the receipt PDF of a paid pedido and, when the member left an
// e-mail at checkout, hands it to QueueEmail.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"clubebar/internal/infra"
	"clubebar/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ComprovanteJobPayload is the job envelope sent to QueueComprovante.
type ComprovanteJobPayload struct {
	PedidoID string  `json:"pedido_id"`
	Email    *string `json:"email,omitempty"`
}

// PedidoLoader is the slice of the pedido repository the worker needs.
type PedidoLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
}

// EmailEnqueuer is satisfied by *Dispatcher.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ComprovanteWorker struct {
	pedidos     PedidoLoader
	emails      EmailEnqueuer
	clubeNome   string
	storagePath string
}

func NewComprovanteWorker(pedidos PedidoLoader, emails EmailEnqueuer, clubeNome, storagePath string) *ComprovanteWorker {
	return &ComprovanteWorker{pedidos: pedidos, emails: emails, clubeNome: clubeNome, storagePath: storagePath}
}

func (w *ComprovanteWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ComprovanteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: comprovante payload: %v", errPermanent, err)
	}
	pedidoID, err := uuid.Parse(payload.PedidoID)
	if err != nil {
		return fmt.Errorf("%w: pedido_id %q", errPermanent, payload.PedidoID)
	}

	pedido, err := w.pedidos.FindByID(ctx, pedidoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: pedido %s não encontrado", errPermanent, pedidoID)
		}
		return err
	}

	pdfPath, err := infra.GerarComprovantePDF(pedido, w.clubeNome, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("pdf", pdfPath).Int64("pedido", pedido.Numero).Msg("comprovante_worker: PDF generated")

	if payload.Email == nil || *payload.Email == "" || w.emails == nil {
		return nil
	}
	job := EmailJobPayload{ToEmail: *payload.Email, PedidoNumero: pedido.Numero, PDFPath: pdfPath}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		// PDF is on disk; failing here would regenerate it on retry.
		log.Warn().Err(err).Str("email", *payload.Email).Msg("comprovante_worker: failed to enqueue email")
	}
	return nil
}
