package apierror

import (
	"errors"
	"net/http"
)

// Respond maps an error returned by a service to an HTTP status and body.
// Unknown errors become a bare 500; the caller is expected to log them.
func Respond(err error) (int, *APIError) {
	var (
		saldo   *InsufficientBalanceError
		aberto  *AlreadyOpenError
		fechado *SessionClosedError
		fiscal  *FiscalBridgeError
	)
	switch {
	case errors.As(err, &saldo):
		return http.StatusUnprocessableEntity, &APIError{
			Detail: saldo.Error(),
			Code:   "saldo_insuficiente",
			Meta: map[string]any{
				"disponivel": saldo.Disponivel,
				"solicitado": saldo.Solicitado,
				"falta":      saldo.Falta(),
			},
		}
	case errors.As(err, &aberto):
		return http.StatusConflict, &APIError{
			Detail: aberto.Error(),
			Code:   "caixa_ja_aberto",
			Meta:   map[string]any{"caixa_id": aberto.CaixaID},
		}
	case errors.As(err, &fechado):
		return http.StatusConflict, &APIError{
			Detail: fechado.Error(),
			Code:   "caixa_fechado",
			Meta:   map[string]any{"caixa_id": fechado.CaixaID},
		}
	case errors.As(err, &fiscal):
		return http.StatusBadGateway, &APIError{
			Detail: fiscal.Mensagem,
			Code:   "erro_emissor_fiscal",
			Meta:   map[string]any{"cstat": fiscal.CStat},
		}
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity, &APIError{Detail: err.Error(), Code: "validacao"}
	case errors.Is(err, ErrPricingMismatch):
		return http.StatusUnprocessableEntity, &APIError{Detail: err.Error(), Code: "preco_divergente"}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, &APIError{Detail: err.Error(), Code: "nao_encontrado"}
	case errors.Is(err, ErrNoOpenSession):
		return http.StatusConflict, &APIError{Detail: err.Error(), Code: "sem_caixa_aberto"}
	case errors.Is(err, ErrAlreadyIssued):
		return http.StatusConflict, &APIError{Detail: err.Error(), Code: "nfce_ja_emitida"}
	case errors.Is(err, ErrEmissionInProgress):
		return http.StatusConflict, &APIError{Detail: err.Error(), Code: "nfce_em_emissao"}
	}
	return http.StatusInternalServerError, New("Erro interno do servidor")
}
