package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"clubebar/internal/apierror"
	"clubebar/internal/dto"
	"clubebar/internal/infra"
	"clubebar/internal/model"
	"clubebar/internal/pdv"
	"clubebar/internal/repository"
	"clubebar/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const motivoCancelamentoMin = 5

// ComprovanteEnqueuer schedules the receipt job after a sale commits.
type ComprovanteEnqueuer interface {
	EnqueueComprovante(ctx context.Context, payload worker.ComprovanteJobPayload) error
}

type PedidoService interface {
	FinalizarVenda(ctx context.Context, op Operador, req dto.FinalizarVendaRequest) (*dto.PedidoResponse, error)
	CancelarPedido(ctx context.Context, op Operador, id uuid.UUID, motivo string) (*dto.PedidoResponse, error)
	ObterPedido(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error)
	ListarPedidos(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error)
	// Simular prices a cart from the live catalog and runs the tenders through
	// the splitter without writing anything.
	Simular(ctx context.Context, req dto.SimularVendaRequest) (*dto.SimulacaoResponse, error)
}

type pedidoService struct {
	repo         repository.PedidoRepository
	catalogoRepo repository.CatalogoRepository
	seqRepo      repository.SequenciaRepository
	caixaRepo    repository.CaixaRepository
	carteirinha  CarteirinhaService
	catalogo     CatalogoService
	dispatcher   ComprovanteEnqueuer
	metrics      *infra.BarMetrics
}

func NewPedidoService(
	repo repository.PedidoRepository,
	catalogoRepo repository.CatalogoRepository,
	seqRepo repository.SequenciaRepository,
	caixaRepo repository.CaixaRepository,
	carteirinha CarteirinhaService,
	catalogo CatalogoService,
	dispatcher ComprovanteEnqueuer,
	metrics *infra.BarMetrics,
) PedidoService {
	return &pedidoService{
		repo:         repo,
		catalogoRepo: catalogoRepo,
		seqRepo:      seqRepo,
		caixaRepo:    caixaRepo,
		carteirinha:  carteirinha,
		catalogo:     catalogo,
		dispatcher:   dispatcher,
		metrics:      metrics,
	}
}

// saldoTx lets the splitter pre-check read the balance through the commit
// transaction instead of a second connection.
type saldoTx struct {
	svc CarteirinhaService
	tx  *gorm.DB
}

func (s saldoTx) Saldo(_ context.Context, associadoID uuid.UUID) (decimal.Decimal, error) {
	return s.svc.SaldoTx(s.tx, associadoID)
}

type itemConferido struct {
	produtoID  uuid.UUID
	quantidade int
	preco      decimal.Decimal
	subtotal   decimal.Decimal
}

// ── FinalizarVenda ────────────────────────────────────────────────────────────
// One transaction:
//   1. check the cart lines against the declared subtotal
//   2. load the products and re-run the tenders through the splitter
//   3. tag the order with the operator's open caixa, if any
//   4. number and insert pedido + itens + pagamentos
//   5. move stock and debit the carteirinha
// Any failure rolls back all of it. Receipt job is enqueued after commit.

func (s *pedidoService) FinalizarVenda(ctx context.Context, op Operador, req dto.FinalizarVendaRequest) (*dto.PedidoResponse, error) {
	pedido, err := s.finalizar(ctx, op, req)
	if err != nil {
		s.metrics.PedidoRecusado(motivoRecusa(err))
		log.Warn().Err(err).Str("operador_id", op.ID.String()).Msg("pedido: venda recusada")
		return nil, err
	}

	s.metrics.PedidoRegistrado(string(model.PedidoPago))
	for _, pg := range pedido.Pagamentos {
		valor, _ := pg.Valor.Sub(pg.Troco).Float64()
		s.metrics.PagamentoRecebido(string(pg.Forma), valor)
	}
	s.catalogo.Invalidar(ctx)

	log.Info().
		Str("pedido_id", pedido.ID.String()).
		Int64("numero", pedido.Numero).
		Str("total", pedido.Total.StringFixed(2)).
		Str("operador_id", op.ID.String()).
		Msg("pedido: venda finalizada")

	if req.EmailComprovante != nil && s.dispatcher != nil {
		payload := worker.ComprovanteJobPayload{PedidoID: pedido.ID.String(), Email: req.EmailComprovante}
		if err := s.dispatcher.EnqueueComprovante(ctx, payload); err != nil {
			log.Warn().Err(err).Str("pedido_id", pedido.ID.String()).Msg("pedido: comprovante não enfileirado")
		}
	}

	return pedidoToResponse(pedido), nil
}

func (s *pedidoService) finalizar(ctx context.Context, op Operador, req dto.FinalizarVendaRequest) (*model.Pedido, error) {
	if len(req.Itens) == 0 {
		return nil, apierror.Invalid("carrinho vazio")
	}
	if len(req.Pagamentos) == 0 {
		return nil, apierror.Invalid("informe ao menos uma forma de pagamento")
	}

	itens, err := conferirItens(req.Itens, req.Subtotal)
	if err != nil {
		return nil, err
	}
	subtotal := req.Subtotal.Round(2)
	desconto := req.Desconto.Round(2)
	if desconto.IsNegative() || desconto.GreaterThan(subtotal) {
		return nil, apierror.Invalid("desconto deve estar entre 0 e o subtotal")
	}

	var associadoID *uuid.UUID
	if req.AssociadoID != nil && *req.AssociadoID != "" {
		id, err := parseID("associado_id", *req.AssociadoID)
		if err != nil {
			return nil, err
		}
		associadoID = &id
	}

	var pedido *model.Pedido
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(itens))
		for _, it := range itens {
			ids = append(ids, it.produtoID)
		}
		produtos, err := s.catalogoRepo.FindProdutosTx(tx, ids)
		if err != nil {
			return fmt.Errorf("pedido: carregar produtos: %w", err)
		}

		divisor := pdv.NovoDivisor(subtotal, desconto)
		if associadoID != nil {
			divisor.ComCarteirinha(*associadoID, saldoTx{svc: s.carteirinha, tx: tx})
		}
		pagamentos, err := s.aplicarPagamentos(ctx, divisor, req.Pagamentos)
		if err != nil {
			return err
		}

		var caixaID *uuid.UUID
		caixa, err := s.caixaRepo.FindAbertoPorOperadorTx(tx, op.ID)
		switch {
		case err == nil:
			caixaID = &caixa.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("pedido: consultar caixa: %w", err)
		}

		numero, err := s.seqRepo.NextTx(tx, model.SequenciaPedido)
		if err != nil {
			return fmt.Errorf("pedido: numerar: %w", err)
		}

		agora := time.Now()
		pedido = &model.Pedido{
			ID:          uuid.New(),
			Numero:      numero,
			AssociadoID: associadoID,
			OperadorID:  op.ID,
			CaixaID:     caixaID,
			Status:      model.PedidoPago,
			Subtotal:    subtotal,
			Desconto:    desconto,
			Total:       divisor.Total(),
			Observacao:  req.Observacao,
			Mesa:        req.Mesa,
			PagoEm:      &agora,
			Pagamentos:  pagamentos,
		}
		for _, it := range itens {
			p, ok := produtos[it.produtoID]
			if !ok {
				return apierror.NotFound("produto %s não encontrado", it.produtoID)
			}
			if !p.Ativo {
				return apierror.Invalid("produto %s está inativo e não pode ser vendido", p.Nome)
			}
			pedido.Itens = append(pedido.Itens, model.ItemPedido{
				ProdutoID:      p.ID,
				ProdutoNome:    p.Nome,
				ProdutoNCM:     p.NCM,
				ProdutoCFOP:    p.CFOP,
				ProdutoCST:     p.CST,
				ProdutoUnidade: p.Unidade,
				Quantidade:     it.quantidade,
				PrecoUnitario:  it.preco,
				Subtotal:       it.subtotal,
			})
		}
		if err := s.repo.CreateTx(tx, pedido); err != nil {
			return fmt.Errorf("pedido: gravar: %w", err)
		}

		for _, it := range itens {
			if err := s.catalogoRepo.AjustarEstoqueTx(tx, it.produtoID, -it.quantidade); err != nil {
				return fmt.Errorf("pedido: baixar estoque: %w", err)
			}
		}

		// Debit last: the order rows exist, and a refused debit undoes them.
		if pg, ok := pedido.PagamentoPor(model.FormaCarteirinha); ok {
			if _, err := s.carteirinha.DebitarTx(tx, DebitoInput{
				AssociadoID:  *associadoID,
				Valor:        pg.Valor,
				PedidoID:     &pedido.ID,
				PedidoNumero: pedido.Numero,
				OperadorID:   &op.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pedido, nil
}

// conferirItens checks every line against quantity × unit price and the lines
// against the declared subtotal, both within one centavo.
func conferirItens(req []dto.ItemPedidoRequest, subtotal decimal.Decimal) ([]itemConferido, error) {
	out := make([]itemConferido, 0, len(req))
	soma := decimal.Zero
	vistos := make(map[uuid.UUID]bool, len(req))
	for _, it := range req {
		id, err := parseID("produto_id", it.ProdutoID)
		if err != nil {
			return nil, err
		}
		if it.Quantidade <= 0 {
			return nil, apierror.Invalid("quantidade deve ser maior que zero")
		}
		if vistos[id] {
			return nil, apierror.Invalid("produto %s repetido no carrinho", id)
		}
		vistos[id] = true

		preco := it.PrecoUnitario.Round(2)
		calculado := preco.Mul(decimal.NewFromInt(int64(it.Quantidade)))
		if calculado.Sub(it.Subtotal).Abs().GreaterThan(pdv.Epsilon) {
			return nil, apierror.PricingMismatch("item %s: %d × %s ≠ %s",
				id, it.Quantidade, preco.StringFixed(2), it.Subtotal.StringFixed(2))
		}
		out = append(out, itemConferido{produtoID: id, quantidade: it.Quantidade, preco: preco, subtotal: calculado.Round(2)})
		soma = soma.Add(calculado)
	}
	if soma.Sub(subtotal).Abs().GreaterThan(pdv.Epsilon) {
		return nil, apierror.PricingMismatch("soma dos itens %s ≠ subtotal %s", soma.StringFixed(2), subtotal.StringFixed(2))
	}
	return out, nil
}

// aplicarPagamentos replays the tenders. A zero total (100% discount) is only
// accepted as cortesia, recorded at zero.
func (s *pedidoService) aplicarPagamentos(ctx context.Context, divisor *pdv.Divisor, req []dto.PagamentoRequest) ([]model.Pagamento, error) {
	referencias := make(map[model.FormaPagamento]*string, len(req))
	temCortesia := false
	for _, p := range req {
		forma := model.FormaPagamento(p.FormaPagamento)
		if !forma.Valid() {
			return nil, apierror.Invalid("forma de pagamento inválida: %s", p.FormaPagamento)
		}
		if forma == model.FormaCortesia {
			temCortesia = true
		}
		referencias[forma] = p.ReferenciaExterna
	}

	if divisor.Total().IsZero() {
		if !temCortesia {
			return nil, apierror.Invalid("pedido com total zero exige pagamento em cortesia")
		}
		return []model.Pagamento{{Forma: model.FormaCortesia, Valor: decimal.Zero, Troco: decimal.Zero}}, nil
	}

	for _, p := range req {
		if _, err := divisor.Adicionar(ctx, model.FormaPagamento(p.FormaPagamento), p.Valor); err != nil {
			return nil, err
		}
	}
	if !divisor.PodeFinalizar() {
		return nil, apierror.Invalid("pagamento insuficiente: faltam %s", apierror.FormatBRL(divisor.Restante()))
	}

	pagamentos := divisor.Pagamentos()
	for i := range pagamentos {
		pagamentos[i].ReferenciaExterna = referencias[pagamentos[i].Forma]
	}
	return pagamentos, nil
}

func motivoRecusa(err error) string {
	switch {
	case errors.Is(err, apierror.ErrInsufficientBalance):
		return "saldo_insuficiente"
	case errors.Is(err, apierror.ErrPricingMismatch):
		return "divergencia_preco"
	case errors.Is(err, apierror.ErrValidation), errors.Is(err, apierror.ErrNotFound):
		return "validacao"
	}
	return "erro_interno"
}

// ── CancelarPedido ────────────────────────────────────────────────────────────
// Explicit, audited reversal: refunds the carteirinha as a new credit entry
// and puts the stock back. Orders of a closed caixa stay as reconciled.

func (s *pedidoService) CancelarPedido(ctx context.Context, op Operador, id uuid.UUID, motivo string) (*dto.PedidoResponse, error) {
	motivo = strings.TrimSpace(motivo)
	if len([]rune(motivo)) < motivoCancelamentoMin {
		return nil, apierror.Invalid("motivo do cancelamento deve ter ao menos %d caracteres", motivoCancelamentoMin)
	}

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdateTx(tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("pedido %s não encontrado", id)
		}
		if err != nil {
			return err
		}
		if p.Status != model.PedidoPago {
			return apierror.Invalid("pedido #%d não está pago (status %s)", p.Numero, p.Status)
		}

		if p.CaixaID != nil {
			caixa, err := s.caixaRepo.FindByIDForUpdateTx(tx, *p.CaixaID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil && caixa.Status != model.CaixaAberto {
				return &apierror.SessionClosedError{CaixaID: caixa.ID}
			}
		}

		ok, err := s.repo.MarkCanceladoTx(tx, id, motivo, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return apierror.Invalid("pedido #%d já foi cancelado", p.Numero)
		}

		if pg, ok := p.PagamentoPor(model.FormaCarteirinha); ok && p.AssociadoID != nil {
			if _, err := s.carteirinha.CreditarTx(tx, CreditoInput{
				AssociadoID: *p.AssociadoID,
				Valor:       pg.Valor,
				Forma:       model.FormaCarteirinha,
				OperadorID:  &op.ID,
				PedidoID:    &p.ID,
			}); err != nil {
				return err
			}
		}

		for _, it := range p.Itens {
			if err := s.catalogoRepo.AjustarEstoqueTx(tx, it.ProdutoID, it.Quantidade); err != nil {
				return fmt.Errorf("pedido: devolver estoque: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PedidoRegistrado(string(model.PedidoCancelado))
	s.catalogo.Invalidar(ctx)
	log.Info().
		Str("pedido_id", id.String()).
		Str("operador_id", op.ID.String()).
		Str("motivo", motivo).
		Msg("pedido: cancelado")

	return s.ObterPedido(ctx, id)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *pedidoService) ObterPedido(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("pedido %s não encontrado", id)
	}
	if err != nil {
		return nil, err
	}
	return pedidoToResponse(p), nil
}

func (s *pedidoService) ListarPedidos(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	pedidos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.PedidoListResponse{
		Data:       make([]dto.PedidoResponse, 0, len(pedidos)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}
	for i := range pedidos {
		resp.Data = append(resp.Data, *pedidoToResponse(&pedidos[i]))
	}
	return resp, nil
}

// ── Simular ───────────────────────────────────────────────────────────────────

func (s *pedidoService) Simular(ctx context.Context, req dto.SimularVendaRequest) (*dto.SimulacaoResponse, error) {
	carrinho := pdv.NovoCarrinho()
	for _, it := range req.Itens {
		id, err := parseID("produto_id", it.ProdutoID)
		if err != nil {
			return nil, err
		}
		p, err := s.catalogo.ObterProduto(ctx, id)
		if err != nil {
			return nil, err
		}
		if !p.Ativo {
			return nil, apierror.Invalid("produto %s está inativo e não pode ser vendido", p.Nome)
		}
		carrinho.Adicionar(*p, it.Quantidade)
	}
	if carrinho.Vazio() {
		return nil, apierror.Invalid("carrinho vazio")
	}

	divisor := pdv.NovoDivisor(carrinho.Subtotal(), req.Desconto)
	if req.AssociadoID != nil && *req.AssociadoID != "" {
		id, err := parseID("associado_id", *req.AssociadoID)
		if err != nil {
			return nil, err
		}
		divisor.ComCarteirinha(id, s.carteirinha)
	}
	for _, p := range req.Pagamentos {
		if _, err := divisor.Adicionar(ctx, model.FormaPagamento(p.FormaPagamento), p.Valor); err != nil {
			return nil, err
		}
	}

	resp := &dto.SimulacaoResponse{
		Subtotal:      divisor.Subtotal(),
		Desconto:      divisor.Desconto(),
		Total:         divisor.Total(),
		TotalAplicado: divisor.TotalAplicado(),
		Restante:      divisor.Restante(),
		Troco:         divisor.Troco(),
		PodeFinalizar: divisor.PodeFinalizar(),
	}
	for _, it := range carrinho.Itens() {
		resp.Itens = append(resp.Itens, dto.ItemPedidoResponse{
			ProdutoID:     it.ProdutoID.String(),
			ProdutoNome:   it.Nome,
			Quantidade:    it.Quantidade,
			PrecoUnitario: it.PrecoUnitario,
			Subtotal:      it.Subtotal(),
		})
	}
	for _, pg := range divisor.Pagamentos() {
		resp.Pagamentos = append(resp.Pagamentos, dto.PagamentoResponse{
			FormaPagamento: string(pg.Forma),
			Valor:          pg.Valor,
			Troco:          pg.Troco,
		})
	}
	return resp, nil
}

func pedidoToResponse(p *model.Pedido) *dto.PedidoResponse {
	resp := &dto.PedidoResponse{
		ID:                 p.ID.String(),
		Numero:             p.Numero,
		AssociadoID:        uuidPtrString(p.AssociadoID),
		OperadorID:         p.OperadorID.String(),
		CaixaID:            uuidPtrString(p.CaixaID),
		Status:             string(p.Status),
		Itens:              make([]dto.ItemPedidoResponse, 0, len(p.Itens)),
		Pagamentos:         make([]dto.PagamentoResponse, 0, len(p.Pagamentos)),
		Subtotal:           p.Subtotal,
		Desconto:           p.Desconto,
		Total:              p.Total,
		Troco:              decimal.Zero,
		Observacao:         p.Observacao,
		Mesa:               p.Mesa,
		MotivoCancelamento: p.MotivoCancelamento,
		CreatedAt:          fmtTime(p.CreatedAt),
		PagoEm:             fmtTimePtr(p.PagoEm),
		CanceladoEm:        fmtTimePtr(p.CanceladoEm),
	}
	for _, it := range p.Itens {
		resp.Itens = append(resp.Itens, dto.ItemPedidoResponse{
			ProdutoID:     it.ProdutoID.String(),
			ProdutoNome:   it.ProdutoNome,
			Quantidade:    it.Quantidade,
			PrecoUnitario: it.PrecoUnitario,
			Subtotal:      it.Subtotal,
		})
	}
	for _, pg := range p.Pagamentos {
		resp.Troco = resp.Troco.Add(pg.Troco)
		resp.Pagamentos = append(resp.Pagamentos, dto.PagamentoResponse{
			FormaPagamento:    string(pg.Forma),
			Valor:             pg.Valor,
			Troco:             pg.Troco,
			ReferenciaExterna: pg.ReferenciaExterna,
		})
	}
	return resp
}
