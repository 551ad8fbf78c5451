package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix + queue names the dead-letter list of a job queue.
const DLQPrefix = "dlq:"

// DLQEntry is a receipt job that exhausted its attempts. The pedido fields
// are lifted out of the payload so an operator can find the sale without
// decoding it.
type DLQEntry struct {
	Fila         string          `json:"fila"`
	Tipo         string          `json:"tipo"`
	PedidoID     string          `json:"pedido_id,omitempty"`
	PedidoNumero int64           `json:"pedido_numero,omitempty"`
	Email        string          `json:"email,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	Motivo       string          `json:"motivo"`
	Tentativas   int             `json:"tentativas"`
	FalhouEm     time.Time       `json:"falhou_em"`
}

// DLQStatus is what /health reports per queue.
type DLQStatus struct {
	Pendentes    int64      `json:"pendentes"`
	UltimaFalha  *time.Time `json:"ultima_falha,omitempty"`
	UltimoPedido string     `json:"ultimo_pedido,omitempty"`
	UltimoMotivo string     `json:"ultimo_motivo,omitempty"`
}

// novaEntradaDLQ accepts both comprovante and e-mail payloads; unknown
// shapes keep only the raw payload.
func novaEntradaDLQ(queue string, job Job, motivo string, tentativas int, agora time.Time) DLQEntry {
	e := DLQEntry{
		Fila:       queue,
		Tipo:       job.Type,
		Payload:    job.Payload,
		Motivo:     motivo,
		Tentativas: tentativas,
		FalhouEm:   agora.UTC(),
	}
	var campos struct {
		PedidoID     string  `json:"pedido_id"`
		PedidoNumero int64   `json:"pedido_numero"`
		Email        *string `json:"email"`
		ToEmail      string  `json:"to_email"`
	}
	if json.Unmarshal(job.Payload, &campos) == nil {
		e.PedidoID = campos.PedidoID
		e.PedidoNumero = campos.PedidoNumero
		e.Email = campos.ToEmail
		if campos.Email != nil {
			e.Email = *campos.Email
		}
	}
	return e
}

// SendToDLQ parks a failed job. Push errors are logged; the job is lost only
// if Redis itself is gone, and then so is the queue it came from.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, motivo string, tentativas int) {
	entry := novaEntradaDLQ(queue, job, motivo, tentativas, time.Now())
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("fila", queue).Msg("dlq: serializar entrada")
		return
	}

	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq", key).Str("pedido_id", entry.PedidoID).Msg("dlq: falha ao gravar")
		return
	}

	log.Warn().
		Str("fila", queue).
		Str("tipo", job.Type).
		Str("pedido_id", entry.PedidoID).
		Int64("pedido_numero", entry.PedidoNumero).
		Str("motivo", motivo).
		Int("tentativas", tentativas).
		Msg("dlq: job movido para a fila morta")
}

// ResumoDLQ reads the length and newest entry of each queue's dead letters.
// Queues whose read fails are left out.
func ResumoDLQ(ctx context.Context, rdb *redis.Client, queues ...string) map[string]DLQStatus {
	out := make(map[string]DLQStatus, len(queues))
	for _, q := range queues {
		key := DLQPrefix + q
		n, err := rdb.LLen(ctx, key).Result()
		if err != nil {
			continue
		}
		st := DLQStatus{Pendentes: n}
		if n > 0 {
			if raw, err := rdb.LIndex(ctx, key, 0).Bytes(); err == nil {
				st = resumirEntrada(st, raw)
			}
		}
		out[q] = st
	}
	return out
}

func resumirEntrada(st DLQStatus, raw []byte) DLQStatus {
	var e DLQEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return st
	}
	falhou := e.FalhouEm
	st.UltimaFalha = &falhou
	st.UltimoPedido = e.PedidoID
	st.UltimoMotivo = e.Motivo
	return st
}
