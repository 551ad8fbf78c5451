package service

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type CaixaService interface {
	Abrir(ctx context.Context, op Operador, req dto.AbrirCaixaRequest) (*dto.CaixaResponse, error)
	RegistrarMovimento(ctx context.Context, op Operador, req dto.MovimentoCaixaRequest) (*dto.CaixaMovimentoResponse, error)
	Fechar(ctx context.Context, op Operador, req dto.FecharCaixaRequest) (*dto.CaixaResponse, error)
	// Resumo is the report of a session: live preview while aberto, frozen
	// values once fechado.
	Resumo(ctx context.Context, id uuid.UUID) (*dto.CaixaResponse, error)
	ObterAberto(ctx context.Context, operadorID uuid.UUID) (*dto.CaixaResponse, error)
	Historico(ctx context.Context, page, limit int) (*dto.CaixaListResponse, error)
	ListarMovimentos(ctx context.Context, id uuid.UUID) ([]dto.CaixaMovimentoResponse, error)
}

type caixaService struct {
	repo       repository.CaixaRepository
	pedidoRepo repository.PedidoRepository
	metrics    *infra.BarMetrics
}

func NewCaixaService(repo repository.CaixaRepository, pedidoRepo repository.PedidoRepository, metrics *infra.BarMetrics) CaixaService {
	return &caixaService{repo: repo, pedidoRepo: pedidoRepo, metrics: metrics}
}

// fechamento is the reconciliation of one session. It is a pure function of
// the paid orders tagged with the session and its manual movements.
type fechamento struct {
	porForma      map[model.FormaPagamento]decimal.Decimal
	totalVendas   decimal.Decimal
	quantidade    int64
	totalTroco    decimal.Decimal
	sangrias      decimal.Decimal
	suprimentos   decimal.Decimal
	saldoEsperado decimal.Decimal
}

func calcularFechamento(inicial decimal.Decimal, vendas *repository.ResumoVendas, movs map[model.TipoMovimentoCaixa]decimal.Decimal) fechamento {
	f := fechamento{
		porForma:    make(map[model.FormaPagamento]decimal.Decimal, len(model.FormasPagamento)),
		totalVendas: vendas.TotalVendas,
		quantidade:  vendas.Quantidade,
		totalTroco:  vendas.TotalTroco,
		sangrias:    movs[model.MovimentoSangria],
		suprimentos: movs[model.MovimentoSuprimento],
	}
	gaveta := decimal.Zero
	for _, forma := range model.FormasPagamento {
		f.porForma[forma] = vendas.PorForma[forma] // zero value when absent
		if forma.EntraNaGaveta() {
			gaveta = gaveta.Add(f.porForma[forma])
		}
	}
	f.saldoEsperado = inicial.
		Add(gaveta).
		Sub(f.totalTroco).
		Add(f.suprimentos).
		Sub(f.sangrias)
	return f
}

func (s *caixaService) calcular(tx *gorm.DB, c *model.Caixa) (fechamento, error) {
	vendas, err := s.pedidoRepo.ResumoPorCaixaTx(tx, c.ID)
	if err != nil {
		return fechamento{}, fmt.Errorf("caixa: resumo de vendas: %w", err)
	}
	movs, err := s.repo.SumMovimentosTx(tx, c.ID)
	if err != nil {
		return fechamento{}, fmt.Errorf("caixa: resumo de movimentos: %w", err)
	}
	return calcularFechamento(c.SaldoInicial, vendas, movs), nil
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// One aberto session per operator. The pre-check gives the friendly error;
// the partial unique index settles concurrent opens.

func (s *caixaService) Abrir(ctx context.Context, op Operador, req dto.AbrirCaixaRequest) (*dto.CaixaResponse, error) {
	if req.SaldoInicial.IsNegative() {
		return nil, apierror.Invalid("saldo inicial não pode ser negativo")
	}

	if existente, err := s.repo.FindAbertoPorOperador(ctx, op.ID); err == nil {
		return nil, &apierror.AlreadyOpenError{CaixaID: existente.ID, OperadorNome: existente.OperadorNome}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	agora := time.Now()
	caixa := &model.Caixa{
		OperadorID:         op.ID,
		OperadorNome:       op.Nome,
		Status:             model.CaixaAberto,
		SaldoInicial:       req.SaldoInicial.Round(2),
		ObservacaoAbertura: req.Observacao,
		AbertoEm:           agora,
	}
	if err := s.repo.Create(ctx, caixa); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existente, ferr := s.repo.FindAbertoPorOperador(ctx, op.ID); ferr == nil {
				return nil, &apierror.AlreadyOpenError{CaixaID: existente.ID, OperadorNome: existente.OperadorNome}
			}
			return nil, &apierror.AlreadyOpenError{OperadorNome: op.Nome}
		}
		return nil, err
	}

	s.metrics.EventoCaixa("aberto")
	log.Info().
		Str("caixa_id", caixa.ID.String()).
		Str("operador_id", op.ID.String()).
		Str("saldo_inicial", caixa.SaldoInicial.StringFixed(2)).
		Msg("caixa: aberto")

	return caixaToResponse(caixa, calcularFechamento(caixa.SaldoInicial, &repository.ResumoVendas{}, nil)), nil
}

// ── RegistrarMovimento ────────────────────────────────────────────────────────
// Sangria / suprimento. Takes the session row lock so a concurrent close
// either sees the movement or rejects it.

func (s *caixaService) RegistrarMovimento(ctx context.Context, op Operador, req dto.MovimentoCaixaRequest) (*dto.CaixaMovimentoResponse, error) {
	caixaID, err := parseID("caixa_id", req.CaixaID)
	if err != nil {
		return nil, err
	}
	tipo := model.TipoMovimentoCaixa(req.Tipo)
	if !tipo.Valid() {
		return nil, apierror.Invalid("tipo de movimento inválido: %s", req.Tipo)
	}
	if !req.Valor.IsPositive() {
		return nil, apierror.NegativeAmount("valor")
	}

	mov := &model.CaixaMovimento{
		CaixaID:    caixaID,
		Tipo:       tipo,
		Valor:      req.Valor.Round(2),
		Motivo:     req.Motivo,
		OperadorID: op.ID,
	}
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		caixa, err := s.repo.FindByIDForUpdateTx(tx, caixaID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NoOpenSession("caixa %s não encontrado", caixaID)
		}
		if err != nil {
			return err
		}
		if caixa.Status != model.CaixaAberto {
			return &apierror.SessionClosedError{CaixaID: caixa.ID}
		}
		return s.repo.CreateMovimentoTx(tx, mov)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("caixa_id", caixaID.String()).
		Str("tipo", string(tipo)).
		Str("valor", mov.Valor.StringFixed(2)).
		Msg("caixa: movimento registrado")
	resp := movimentoCaixaToResponse(*mov)
	return &resp, nil
}

// ── Fechar ────────────────────────────────────────────────────────────────────
// Single reconciliation: aggregates and freezes inside one transaction that
// holds the session's update lock.

func (s *caixaService) Fechar(ctx context.Context, op Operador, req dto.FecharCaixaRequest) (*dto.CaixaResponse, error) {
	caixaID, err := parseID("caixa_id", req.CaixaID)
	if err != nil {
		return nil, err
	}
	if req.SaldoConferido.IsNegative() {
		return nil, apierror.Invalid("saldo conferido não pode ser negativo")
	}

	var (
		caixa *model.Caixa
		f     fechamento
	)
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		caixa, err = s.repo.FindByIDForUpdateTx(tx, caixaID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NoOpenSession("caixa %s não encontrado", caixaID)
		}
		if err != nil {
			return err
		}
		if caixa.Status != model.CaixaAberto {
			return &apierror.SessionClosedError{CaixaID: caixa.ID}
		}

		f, err = s.calcular(tx, caixa)
		if err != nil {
			return err
		}

		agora := time.Now()
		conferido := req.SaldoConferido.Round(2)
		caixa.Status = model.CaixaFechado
		caixa.TotalVendas = f.totalVendas
		caixa.TotalDinheiro = f.porForma[model.FormaDinheiro]
		caixa.TotalCartaoCredito = f.porForma[model.FormaCartaoCredito]
		caixa.TotalCartaoDebito = f.porForma[model.FormaCartaoDebito]
		caixa.TotalPix = f.porForma[model.FormaPix]
		caixa.TotalCarteirinha = f.porForma[model.FormaCarteirinha]
		caixa.TotalCortesia = f.porForma[model.FormaCortesia]
		caixa.TotalTroco = f.totalTroco
		caixa.TotalSangrias = f.sangrias
		caixa.TotalSuprimentos = f.suprimentos
		caixa.SaldoFinal = f.saldoEsperado
		caixa.SaldoConferido = &conferido
		caixa.Diferenca = conferido.Sub(f.saldoEsperado)
		caixa.ObservacaoFechamento = req.Observacao
		caixa.FechadoEm = &agora
		caixa.UpdatedAt = agora

		ok, err := s.repo.CloseTx(tx, caixa)
		if err != nil {
			return err
		}
		if !ok {
			return &apierror.SessionClosedError{CaixaID: caixa.ID}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EventoCaixa("fechado")
	log.Info().
		Str("caixa_id", caixa.ID.String()).
		Str("operador_id", op.ID.String()).
		Str("esperado", caixa.SaldoFinal.StringFixed(2)).
		Str("conferido", caixa.SaldoConferido.StringFixed(2)).
		Str("diferenca", caixa.Diferenca.StringFixed(2)).
		Msg("caixa: fechado")

	return caixaToResponse(caixa, f), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *caixaService) Resumo(ctx context.Context, id uuid.UUID) (*dto.CaixaResponse, error) {
	caixa, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("caixa %s não encontrado", id)
	}
	if err != nil {
		return nil, err
	}
	return s.relatorio(ctx, caixa)
}

func (s *caixaService) ObterAberto(ctx context.Context, operadorID uuid.UUID) (*dto.CaixaResponse, error) {
	caixa, err := s.repo.FindAbertoPorOperador(ctx, operadorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NoOpenSession("nenhum caixa aberto para este operador")
	}
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimentos(ctx, caixa.ID)
	if err != nil {
		return nil, err
	}
	caixa.Movimentos = movs
	return s.relatorio(ctx, caixa)
}

func (s *caixaService) relatorio(ctx context.Context, caixa *model.Caixa) (*dto.CaixaResponse, error) {
	f, err := s.calcular(s.repo.DB().WithContext(ctx), caixa)
	if err != nil {
		return nil, err
	}
	if caixa.Status == model.CaixaFechado {
		f = fechamentoCongelado(caixa, f.quantidade)
	}
	return caixaToResponse(caixa, f), nil
}

// fechamentoCongelado rebuilds the report from the values frozen at close.
func fechamentoCongelado(c *model.Caixa, quantidade int64) fechamento {
	return fechamento{
		porForma: map[model.FormaPagamento]decimal.Decimal{
			model.FormaDinheiro:      c.TotalDinheiro,
			model.FormaCartaoCredito: c.TotalCartaoCredito,
			model.FormaCartaoDebito:  c.TotalCartaoDebito,
			model.FormaPix:           c.TotalPix,
			model.FormaCarteirinha:   c.TotalCarteirinha,
			model.FormaCortesia:      c.TotalCortesia,
		},
		totalVendas:   c.TotalVendas,
		quantidade:    quantidade,
		totalTroco:    c.TotalTroco,
		sangrias:      c.TotalSangrias,
		suprimentos:   c.TotalSuprimentos,
		saldoEsperado: c.SaldoFinal,
	}
}

func (s *caixaService) Historico(ctx context.Context, page, limit int) (*dto.CaixaListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	caixas, total, err := s.repo.ListFechados(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	resp := &dto.CaixaListResponse{
		Data:  make([]dto.CaixaResponse, 0, len(caixas)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range caixas {
		resp.Data = append(resp.Data, *caixaToResponse(&caixas[i], fechamentoCongelado(&caixas[i], 0)))
	}
	return resp, nil
}

func (s *caixaService) ListarMovimentos(ctx context.Context, id uuid.UUID) ([]dto.CaixaMovimentoResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("caixa %s não encontrado", id)
		}
		return nil, err
	}
	movs, err := s.repo.ListMovimentos(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CaixaMovimentoResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, movimentoCaixaToResponse(m))
	}
	return out, nil
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func caixaToResponse(c *model.Caixa, f fechamento) *dto.CaixaResponse {
	porForma := make(map[string]decimal.Decimal, len(model.FormasPagamento))
	for _, forma := range model.FormasPagamento {
		porForma[string(forma)] = f.porForma[forma]
	}
	r := &dto.CaixaResponse{
		ID:                   c.ID.String(),
		OperadorID:           c.OperadorID.String(),
		OperadorNome:         c.OperadorNome,
		Status:               string(c.Status),
		SaldoInicial:         c.SaldoInicial,
		TotalVendas:          f.totalVendas,
		QuantidadePedidos:    f.quantidade,
		TotaisPorForma:       porForma,
		TotalTroco:           f.totalTroco,
		TotalSangrias:        f.sangrias,
		TotalSuprimentos:     f.suprimentos,
		SaldoFinal:           f.saldoEsperado,
		SaldoConferido:       c.SaldoConferido,
		ObservacaoAbertura:   c.ObservacaoAbertura,
		ObservacaoFechamento: c.ObservacaoFechamento,
		AbertoEm:             fmtTime(c.AbertoEm),
		FechadoEm:            fmtTimePtr(c.FechadoEm),
	}
	if c.Status == model.CaixaFechado {
		d := c.Diferenca
		r.Diferenca = &d
	}
	for _, m := range c.Movimentos {
		r.Movimentos = append(r.Movimentos, movimentoCaixaToResponse(m))
	}
	return r
}

func movimentoCaixaToResponse(m model.CaixaMovimento) dto.CaixaMovimentoResponse {
	return dto.CaixaMovimentoResponse{
		ID:         m.ID.String(),
		Tipo:       string(m.Tipo),
		Valor:      m.Valor,
		Motivo:     m.Motivo,
		OperadorID: m.OperadorID.String(),
		CreatedAt:  fmtTime(m.CreatedAt),
	}
}
