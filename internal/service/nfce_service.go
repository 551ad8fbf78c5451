package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubebar/internal/apierror"
	"clubebar/internal/dto"
	"clubebar/internal/infra"
	"clubebar/internal/model"
	"clubebar/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const justificativaMin = 15

// emissaoEmCurso bounds how long a pendente document blocks a retry. It
// outlasts the ACBr command timeout, so only a crashed attempt expires.
const emissaoEmCurso = 2 * time.Minute

// EmissorFiscal is the ACBrMonitor command surface used for NFC-e.
type EmissorFiscal interface {
	EmitirNFCe(ctx context.Context, ini string, numero int64) (*infra.ACBrResposta, error)
	CancelarNFCe(ctx context.Context, chave, justificativa, cnpj string) (*infra.ACBrResposta, error)
	StatusServico(ctx context.Context) (*infra.ACBrResposta, error)
}

// NFCeConfig carries the emission switches read from config.
type NFCeConfig struct {
	Ativo bool
	// JanelaCancelamento is informational: SEFAZ decides, we only log when a
	// cancel is requested past it.
	JanelaCancelamento time.Duration
	Emitente           infra.Emitente
}

type NFCeService interface {
	Emitir(ctx context.Context, req dto.EmitirNFCeRequest) (*dto.NFCeResponse, error)
	Cancelar(ctx context.Context, id uuid.UUID, req dto.CancelarNFCeRequest) (*dto.NFCeResponse, error)
	Obter(ctx context.Context, id uuid.UUID) (*dto.NFCeResponse, error)
	ListarPorPedido(ctx context.Context, pedidoID uuid.UUID) ([]dto.NFCeResponse, error)
	StatusEmissor(ctx context.Context) *dto.StatusEmissorResponse
}

type nfceService struct {
	repo       repository.NFCeRepository
	pedidoRepo repository.PedidoRepository
	seqRepo    repository.SequenciaRepository
	emissor    EmissorFiscal
	breaker    *infra.CircuitBreaker
	cfg        NFCeConfig
	metrics    *infra.BarMetrics
}

func NewNFCeService(
	repo repository.NFCeRepository,
	pedidoRepo repository.PedidoRepository,
	seqRepo repository.SequenciaRepository,
	emissor EmissorFiscal,
	breaker *infra.CircuitBreaker,
	cfg NFCeConfig,
	metrics *infra.BarMetrics,
) NFCeService {
	if breaker == nil {
		breaker = infra.NewCircuitBreaker(infra.DefaultCBConfig())
	}
	return &nfceService{
		repo:       repo,
		pedidoRepo: pedidoRepo,
		seqRepo:    seqRepo,
		emissor:    emissor,
		breaker:    breaker,
		cfg:        cfg,
		metrics:    metrics,
	}
}

// Only transport failures count against the breaker; a SEFAZ rejection means
// the monitor is up.
func falhaDeTransporte(err error) bool {
	return errors.Is(err, infra.ErrBridgeUnavailable)
}

func mensagemIndisponivel(err error) string {
	if errors.Is(err, infra.ErrCircuitOpen) {
		return "Emissor fiscal indisponível: muitas falhas seguidas, nova tentativa em instantes"
	}
	return err.Error()
}

// ── Emitir ────────────────────────────────────────────────────────────────────
// pendente → autorizada | erro. An erro row (or an expired pendente one) is
// reused on retry so a pedido does not pile up attempts with fresh numbers.

func (s *nfceService) Emitir(ctx context.Context, req dto.EmitirNFCeRequest) (*dto.NFCeResponse, error) {
	if !s.cfg.Ativo {
		return nil, apierror.Invalid("emissão de NFC-e está desativada")
	}
	pedidoID, err := parseID("pedido_id", req.PedidoID)
	if err != nil {
		return nil, err
	}

	pedido, err := s.pedidoRepo.FindByID(ctx, pedidoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("pedido %s não encontrado", pedidoID)
	}
	if err != nil {
		return nil, err
	}

	var cpfCNPJ *string
	if req.CPFCNPJ != nil {
		if d := infra.SomenteDigitos(*req.CPFCNPJ); d != "" {
			cpfCNPJ = &d
		}
	}

	doc, err := s.reservarDocumento(ctx, pedido.ID, cpfCNPJ)
	if err != nil {
		return nil, err
	}

	cpf := ""
	if cpfCNPJ != nil {
		cpf = *cpfCNPJ
	}
	ini := infra.MontarININFCe(pedido, s.cfg.Emitente, *doc.Numero, cpf, time.Now())

	inicio := time.Now()
	var resp *infra.ACBrResposta
	err = s.breaker.Execute(func() error {
		var err error
		resp, err = s.emissor.EmitirNFCe(ctx, ini, *doc.Numero)
		return err
	}, falhaDeTransporte)

	if err != nil {
		msg := mensagemIndisponivel(err)
		s.metrics.ResultadoNFCe("indisponivel", time.Since(inicio))
		doc.Status = model.NFCeErro
		doc.MensagemRetorno = &msg
		s.salvar(ctx, doc)
		log.Error().Err(err).Str("pedido_id", pedidoID.String()).Int64("numero", *doc.Numero).Msg("nfce: emissor indisponível")
		return nil, &apierror.FiscalBridgeError{Mensagem: msg}
	}

	doc.MensagemRetorno = strPtr(resp.Motivo)
	doc.CStat = strPtr(resp.CStat)
	if resp.XML != "" {
		doc.XMLRetorno = &resp.XML
	}

	if !resp.Autorizada {
		s.metrics.ResultadoNFCe("rejeitada", time.Since(inicio))
		doc.Status = model.NFCeErro
		s.salvar(ctx, doc)
		log.Warn().
			Str("pedido_id", pedidoID.String()).
			Str("cstat", resp.CStat).
			Str("motivo", resp.Motivo).
			Msg("nfce: rejeitada")
		return nil, &apierror.FiscalBridgeError{Mensagem: resp.Motivo, CStat: resp.CStat}
	}

	agora := time.Now()
	doc.Status = model.NFCeAutorizada
	doc.ChaveAcesso = strPtr(resp.Chave)
	doc.Protocolo = strPtr(resp.Protocolo)
	doc.EmitidoEm = &agora
	if err := s.repo.Update(ctx, doc); err != nil {
		// Authorized at SEFAZ but not recorded: the chave in the log is the
		// only trace left, so it goes out at error level.
		log.Error().Err(err).
			Str("pedido_id", pedidoID.String()).
			Str("chave", resp.Chave).
			Msg("nfce: autorizada mas não gravada")
		return nil, fmt.Errorf("nfce: gravar autorização: %w", err)
	}

	s.metrics.ResultadoNFCe("autorizada", time.Since(inicio))
	log.Info().
		Str("pedido_id", pedidoID.String()).
		Int64("numero", *doc.Numero).
		Str("chave", resp.Chave).
		Str("protocolo", resp.Protocolo).
		Msg("nfce: autorizada")
	return nfceToResponse(doc), nil
}

// reservarDocumento claims the pedido's document before the bridge is called.
// The pedido row lock serializes concurrent requests; a pendente row touched
// within emissaoEmCurso belongs to a request still waiting on SEFAZ.
func (s *nfceService) reservarDocumento(ctx context.Context, pedidoID uuid.UUID, cpfCNPJ *string) (*model.NFCe, error) {
	var doc *model.NFCe
	err := runTx(ctx, s.pedidoRepo.DB(), func(tx *gorm.DB) error {
		pedido, err := s.pedidoRepo.FindByIDForUpdateTx(tx, pedidoID)
		if err != nil {
			return err
		}
		if pedido.Status != model.PedidoPago {
			return apierror.Invalid("pedido #%d não está pago (status %s)", pedido.Numero, pedido.Status)
		}

		if existente, err := s.repo.FindAutorizadaByPedidoTx(tx, pedidoID); err == nil {
			chave := ""
			if existente.ChaveAcesso != nil {
				chave = *existente.ChaveAcesso
			}
			return apierror.AlreadyIssued(pedido.Numero, chave)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		doc, err = s.repo.FindReaproveitavelByPedidoTx(tx, pedidoID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			doc = &model.NFCe{PedidoID: pedidoID}
		case err != nil:
			return err
		case doc.Status == model.NFCePendente && time.Since(doc.UpdatedAt) < emissaoEmCurso:
			return apierror.EmissionInProgress(pedido.Numero)
		}

		if doc.Numero == nil {
			numero, err := s.seqRepo.NextTx(tx, model.SequenciaNFCe)
			if err != nil {
				return fmt.Errorf("nfce: numerar: %w", err)
			}
			doc.Numero = &numero
		}
		serie := s.cfg.Emitente.Serie
		doc.Serie = &serie
		doc.Status = model.NFCePendente
		doc.CPFCNPJConsumidor = cpfCNPJ
		if err := s.repo.SaveTx(tx, doc); err != nil {
			return fmt.Errorf("nfce: registrar pendente: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *nfceService) salvar(ctx context.Context, doc *model.NFCe) {
	if err := s.repo.Update(ctx, doc); err != nil {
		log.Error().Err(err).Str("nfce_id", doc.ID.String()).Msg("nfce: falha ao gravar status")
	}
}

// ── Cancelar ──────────────────────────────────────────────────────────────────

func (s *nfceService) Cancelar(ctx context.Context, id uuid.UUID, req dto.CancelarNFCeRequest) (*dto.NFCeResponse, error) {
	justificativa := strings.TrimSpace(req.Justificativa)
	if len([]rune(justificativa)) < justificativaMin {
		return nil, apierror.Invalid("justificativa deve ter ao menos %d caracteres", justificativaMin)
	}

	doc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("NFC-e %s não encontrada", id)
	}
	if err != nil {
		return nil, err
	}
	if doc.Status != model.NFCeAutorizada || doc.ChaveAcesso == nil {
		return nil, apierror.Invalid("somente NFC-e autorizada pode ser cancelada (status %s)", doc.Status)
	}
	if s.cfg.JanelaCancelamento > 0 && doc.EmitidoEm != nil && time.Since(*doc.EmitidoEm) > s.cfg.JanelaCancelamento {
		log.Warn().
			Str("nfce_id", id.String()).
			Dur("desde_emissao", time.Since(*doc.EmitidoEm)).
			Msg("nfce: cancelamento fora da janela, SEFAZ pode recusar")
	}

	inicio := time.Now()
	var resp *infra.ACBrResposta
	err = s.breaker.Execute(func() error {
		var err error
		resp, err = s.emissor.CancelarNFCe(ctx, *doc.ChaveAcesso, justificativa, s.cfg.Emitente.CNPJ)
		return err
	}, falhaDeTransporte)
	if err != nil {
		s.metrics.ResultadoNFCe("indisponivel", time.Since(inicio))
		return nil, &apierror.FiscalBridgeError{Mensagem: mensagemIndisponivel(err)}
	}
	if !cancelamentoAceito(resp) {
		s.metrics.ResultadoNFCe("cancelamento_rejeitado", time.Since(inicio))
		log.Warn().Str("nfce_id", id.String()).Str("cstat", resp.CStat).Str("motivo", resp.Motivo).Msg("nfce: cancelamento rejeitado")
		return nil, &apierror.FiscalBridgeError{Mensagem: resp.Motivo, CStat: resp.CStat}
	}

	agora := time.Now()
	doc.Status = model.NFCeCancelada
	doc.Justificativa = &justificativa
	doc.CanceladoEm = &agora
	doc.CStat = strPtr(resp.CStat)
	doc.MensagemRetorno = strPtr(resp.Motivo)
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("nfce: gravar cancelamento: %w", err)
	}

	s.metrics.ResultadoNFCe("cancelada", time.Since(inicio))
	log.Info().Str("nfce_id", id.String()).Str("chave", *doc.ChaveAcesso).Msg("nfce: cancelada")
	return nfceToResponse(doc), nil
}

// cancelamentoAceito: 135/155 register the cancel event, 101 is the legacy
// cancel code. An OK reply without CStat is taken as accepted.
func cancelamentoAceito(r *infra.ACBrResposta) bool {
	if !r.OK {
		return false
	}
	switch r.CStat {
	case "", "101", "135", "151", "155":
		return true
	}
	return false
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *nfceService) Obter(ctx context.Context, id uuid.UUID) (*dto.NFCeResponse, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("NFC-e %s não encontrada", id)
	}
	if err != nil {
		return nil, err
	}
	return nfceToResponse(doc), nil
}

func (s *nfceService) ListarPorPedido(ctx context.Context, pedidoID uuid.UUID) ([]dto.NFCeResponse, error) {
	docs, err := s.repo.ListByPedido(ctx, pedidoID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.NFCeResponse, 0, len(docs))
	for i := range docs {
		out = append(out, *nfceToResponse(&docs[i]))
	}
	return out, nil
}

func (s *nfceService) StatusEmissor(ctx context.Context) *dto.StatusEmissorResponse {
	st := &dto.StatusEmissorResponse{Circuito: s.breaker.State().String()}
	if !s.cfg.Ativo {
		st.Mensagem = "emissão de NFC-e desativada"
		return st
	}
	var resp *infra.ACBrResposta
	err := s.breaker.Execute(func() error {
		var err error
		resp, err = s.emissor.StatusServico(ctx)
		return err
	}, falhaDeTransporte)
	if err != nil {
		st.Mensagem = mensagemIndisponivel(err)
		st.Circuito = s.breaker.State().String()
		return st
	}
	st.Conectado = resp.OK
	st.Mensagem = resp.Motivo
	st.Circuito = s.breaker.State().String()
	return st
}

func nfceToResponse(n *model.NFCe) *dto.NFCeResponse {
	return &dto.NFCeResponse{
		ID:              n.ID.String(),
		PedidoID:        n.PedidoID.String(),
		Status:          string(n.Status),
		Numero:          n.Numero,
		Serie:           n.Serie,
		ChaveAcesso:     n.ChaveAcesso,
		Protocolo:       n.Protocolo,
		CStat:           n.CStat,
		MensagemRetorno: n.MensagemRetorno,
		CPFCNPJ:         n.CPFCNPJConsumidor,
		EmitidoEm:       fmtTimePtr(n.EmitidoEm),
		CanceladoEm:     fmtTimePtr(n.CanceladoEm),
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
