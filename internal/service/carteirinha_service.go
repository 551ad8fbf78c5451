package service

import (
	"context"
	"errors"
	"fmt"

	"clubebar/internal/apierror"
	"clubebar/internal/dto"
	"clubebar/internal/infra"
	"clubebar/internal/model"
	"clubebar/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const extratoLimitePadrao = 50

// CreditoInput is a recharge (or a refund when PedidoID is set).
type CreditoInput struct {
	AssociadoID uuid.UUID
	Valor       decimal.Decimal
	Forma       model.FormaPagamento
	OperadorID  *uuid.UUID
	PedidoID    *uuid.UUID
	Descricao   *string
}

// DebitoInput is a bar consumption paid with the carteirinha.
type DebitoInput struct {
	AssociadoID  uuid.UUID
	Valor        decimal.Decimal
	PedidoID     *uuid.UUID
	PedidoNumero int64
	OperadorID   *uuid.UUID
}

type CarteirinhaService interface {
	Creditar(ctx context.Context, in CreditoInput) (decimal.Decimal, error)
	// CreditarTx is the in-transaction variant used by order cancel refunds.
	CreditarTx(tx *gorm.DB, in CreditoInput) (decimal.Decimal, error)
	Debitar(ctx context.Context, in DebitoInput) (decimal.Decimal, error)
	// DebitarTx must run inside the caller's transaction so a failed debit
	// rolls back everything written before it.
	DebitarTx(tx *gorm.DB, in DebitoInput) (decimal.Decimal, error)
	Saldo(ctx context.Context, associadoID uuid.UUID) (decimal.Decimal, error)
	// SaldoTx reads the balance through tx; used by the commit path.
	SaldoTx(tx *gorm.DB, associadoID uuid.UUID) (decimal.Decimal, error)
	Extrato(ctx context.Context, associadoID uuid.UUID, limite int) (*dto.ExtratoResponse, error)
	Conferir(ctx context.Context, associadoID uuid.UUID) (*dto.ConferenciaResponse, error)
}

type carteirinhaService struct {
	repo    repository.CarteirinhaRepository
	metrics *infra.BarMetrics
}

func NewCarteirinhaService(repo repository.CarteirinhaRepository, metrics *infra.BarMetrics) CarteirinhaService {
	return &carteirinhaService{repo: repo, metrics: metrics}
}

// ── Creditar ──────────────────────────────────────────────────────────────────

func (s *carteirinhaService) Creditar(ctx context.Context, in CreditoInput) (decimal.Decimal, error) {
	var novo decimal.Decimal
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		novo, err = s.CreditarTx(tx, in)
		return err
	})
	return novo, err
}

func (s *carteirinhaService) CreditarTx(tx *gorm.DB, in CreditoInput) (decimal.Decimal, error) {
	if !in.Valor.IsPositive() {
		return decimal.Zero, apierror.NegativeAmount("valor")
	}
	if err := centavos(in.Valor); err != nil {
		return decimal.Zero, err
	}
	// Refunds carry the tender they give back (carteirinha); recharges must
	// be paid with real money.
	if in.PedidoID == nil && !in.Forma.AceitaRecarga() {
		return decimal.Zero, apierror.Invalid("forma de recarga inválida: %s", in.Forma)
	}

	if err := s.repo.EnsureSaldoTx(tx, in.AssociadoID); err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: criar saldo: %w", err)
	}
	if err := s.repo.IncrementTx(tx, in.AssociadoID, in.Valor); err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: creditar: %w", err)
	}
	saldo, err := s.repo.FindSaldoTx(tx, in.AssociadoID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: reler saldo: %w", err)
	}
	depois := saldo.Saldo.Round(2)

	descricao := in.Descricao
	if descricao == nil {
		d := "Recarga via " + in.Forma.Label()
		if in.PedidoID != nil {
			d = "Estorno de consumo no bar"
		}
		descricao = &d
	}
	forma := in.Forma
	mov := &model.CarteirinhaMovimento{
		AssociadoID:    in.AssociadoID,
		Tipo:           model.CarteirinhaCredito,
		Valor:          in.Valor,
		SaldoAnterior:  depois.Sub(in.Valor),
		SaldoPosterior: depois,
		Descricao:      descricao,
		PedidoID:       in.PedidoID,
		OperadorID:     in.OperadorID,
		FormaRecarga:   &forma,
	}
	if err := s.repo.CreateMovimentoTx(tx, mov); err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: registrar movimento: %w", err)
	}

	s.metrics.MovimentoCarteirinha(string(model.CarteirinhaCredito))
	log.Info().
		Str("associado_id", in.AssociadoID.String()).
		Str("valor", in.Valor.StringFixed(2)).
		Str("saldo", depois.StringFixed(2)).
		Str("forma", string(in.Forma)).
		Msg("carteirinha: crédito registrado")
	return depois, nil
}

// centavos rejects amounts finer than one centavo; the stored columns keep
// two places and each entry must chain exactly onto the previous balance.
func centavos(v decimal.Decimal) error {
	if !v.Equal(v.Round(2)) {
		return apierror.Invalid("valor com mais de duas casas decimais: %s", v.String())
	}
	return nil
}

// ── Debitar ───────────────────────────────────────────────────────────────────
// The balance check and the write are one conditional UPDATE; two registers
// spending the same balance at once cannot both succeed.

func (s *carteirinhaService) Debitar(ctx context.Context, in DebitoInput) (decimal.Decimal, error) {
	var novo decimal.Decimal
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		novo, err = s.DebitarTx(tx, in)
		return err
	})
	return novo, err
}

func (s *carteirinhaService) DebitarTx(tx *gorm.DB, in DebitoInput) (decimal.Decimal, error) {
	if !in.Valor.IsPositive() {
		return decimal.Zero, apierror.NegativeAmount("valor")
	}
	if err := centavos(in.Valor); err != nil {
		return decimal.Zero, err
	}

	ok, err := s.repo.DecrementIfCoveredTx(tx, in.AssociadoID, in.Valor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: debitar: %w", err)
	}
	if !ok {
		disponivel, err := s.SaldoTx(tx, in.AssociadoID)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, &apierror.InsufficientBalanceError{
			AssociadoID: in.AssociadoID,
			Disponivel:  disponivel,
			Solicitado:  in.Valor,
		}
	}

	saldo, err := s.repo.FindSaldoTx(tx, in.AssociadoID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: reler saldo: %w", err)
	}
	depois := saldo.Saldo.Round(2)

	descricao := "Consumo no bar"
	if in.PedidoNumero > 0 {
		descricao = fmt.Sprintf("Consumo no bar - pedido #%d", in.PedidoNumero)
	}
	mov := &model.CarteirinhaMovimento{
		AssociadoID:    in.AssociadoID,
		Tipo:           model.CarteirinhaDebito,
		Valor:          in.Valor,
		SaldoAnterior:  depois.Add(in.Valor),
		SaldoPosterior: depois,
		Descricao:      &descricao,
		PedidoID:       in.PedidoID,
		OperadorID:     in.OperadorID,
	}
	if err := s.repo.CreateMovimentoTx(tx, mov); err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: registrar movimento: %w", err)
	}

	s.metrics.MovimentoCarteirinha(string(model.CarteirinhaDebito))
	log.Info().
		Str("associado_id", in.AssociadoID.String()).
		Str("valor", in.Valor.StringFixed(2)).
		Str("saldo", depois.StringFixed(2)).
		Msg("carteirinha: débito registrado")
	return depois, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *carteirinhaService) Saldo(ctx context.Context, associadoID uuid.UUID) (decimal.Decimal, error) {
	saldo, err := s.repo.FindSaldo(ctx, associadoID)
	return saldoOuZero(saldo, err)
}

func (s *carteirinhaService) SaldoTx(tx *gorm.DB, associadoID uuid.UUID) (decimal.Decimal, error) {
	saldo, err := s.repo.FindSaldoTx(tx, associadoID)
	return saldoOuZero(saldo, err)
}

func saldoOuZero(saldo *model.CarteirinhaSaldo, err error) (decimal.Decimal, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("carteirinha: consultar saldo: %w", err)
	}
	return saldo.Saldo.Round(2), nil
}

func (s *carteirinhaService) Extrato(ctx context.Context, associadoID uuid.UUID, limite int) (*dto.ExtratoResponse, error) {
	if limite <= 0 || limite > 500 {
		limite = extratoLimitePadrao
	}
	saldo, err := s.Saldo(ctx, associadoID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimentos(ctx, associadoID, limite)
	if err != nil {
		return nil, err
	}
	resp := &dto.ExtratoResponse{
		AssociadoID: associadoID.String(),
		Saldo:       saldo,
		Movimentos:  make([]dto.CarteirinhaMovimentoResponse, 0, len(movs)),
	}
	for _, m := range movs {
		resp.Movimentos = append(resp.Movimentos, movimentoToResponse(m))
	}
	return resp, nil
}

// Conferir replays the ledger oldest first and checks both the per-entry
// before/after chain and the final balance against the cached row.
func (s *carteirinhaService) Conferir(ctx context.Context, associadoID uuid.UUID) (*dto.ConferenciaResponse, error) {
	saldo, err := s.Saldo(ctx, associadoID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimentosCronologico(ctx, associadoID)
	if err != nil {
		return nil, err
	}

	replay := decimal.Zero
	var divergencias []string
	for _, m := range movs {
		esperado := replay.Add(m.Valor)
		if m.Tipo == model.CarteirinhaDebito {
			esperado = replay.Sub(m.Valor)
		}
		if !m.SaldoAnterior.Equal(replay) || !m.SaldoPosterior.Equal(esperado) {
			divergencias = append(divergencias, m.ID.String())
		}
		replay = esperado
	}

	consistente := replay.Equal(saldo) && len(divergencias) == 0
	if !consistente {
		log.Warn().
			Str("associado_id", associadoID.String()).
			Str("saldo", saldo.StringFixed(2)).
			Str("replay", replay.StringFixed(2)).
			Int("divergencias", len(divergencias)).
			Msg("carteirinha: saldo não confere com o extrato")
	}
	return &dto.ConferenciaResponse{
		AssociadoID:  associadoID.String(),
		Saldo:        saldo,
		SaldoReplay:  replay,
		Movimentos:   len(movs),
		Consistente:  consistente,
		Divergencias: divergencias,
	}, nil
}

func movimentoToResponse(m model.CarteirinhaMovimento) dto.CarteirinhaMovimentoResponse {
	var forma *string
	if m.FormaRecarga != nil {
		f := string(*m.FormaRecarga)
		forma = &f
	}
	return dto.CarteirinhaMovimentoResponse{
		ID:             m.ID.String(),
		Tipo:           string(m.Tipo),
		Valor:          m.Valor,
		SaldoAnterior:  m.SaldoAnterior,
		SaldoPosterior: m.SaldoPosterior,
		Descricao:      m.Descricao,
		PedidoID:       uuidPtrString(m.PedidoID),
		OperadorID:     uuidPtrString(m.OperadorID),
		FormaRecarga:   forma,
		CreatedAt:      fmtTime(m.CreatedAt),
	}
}
