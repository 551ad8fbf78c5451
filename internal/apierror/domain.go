package apierror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinels. Every domain error below unwraps to exactly one of them, so
// callers branch with errors.Is and reach the details with errors.As.
var (
	ErrValidation           = errors.New("dados inválidos")
	ErrNegativeAmount       = fmt.Errorf("%w: valor deve ser maior que zero", ErrValidation)
	ErrNotFound             = errors.New("registro não encontrado")
	ErrInsufficientBalance  = errors.New("saldo insuficiente")
	ErrAlreadyOpen          = errors.New("caixa já aberto")
	ErrNoOpenSession        = errors.New("nenhum caixa aberto")
	ErrSessionAlreadyClosed = errors.New("caixa já fechado")
	ErrPricingMismatch      = errors.New("itens não conferem com o subtotal")
	ErrAlreadyIssued        = errors.New("NFC-e já autorizada para este pedido")
	ErrEmissionInProgress   = errors.New("NFC-e em emissão para este pedido")
	ErrFiscalBridge         = errors.New("erro no emissor fiscal")
)

// DomainError carries a user-facing message on top of a sentinel.
type DomainError struct {
	Err error
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }
func (e *DomainError) Unwrap() error { return e.Err }

func Invalid(format string, args ...any) error {
	return &DomainError{Err: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NegativeAmount reports a non-positive monetary input for the named field.
func NegativeAmount(campo string) error {
	return &DomainError{Err: ErrNegativeAmount, Msg: fmt.Sprintf("%s deve ser maior que zero", campo)}
}

func NotFound(format string, args ...any) error {
	return &DomainError{Err: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func PricingMismatch(format string, args ...any) error {
	return &DomainError{Err: ErrPricingMismatch, Msg: fmt.Sprintf(format, args...)}
}

func NoOpenSession(format string, args ...any) error {
	return &DomainError{Err: ErrNoOpenSession, Msg: fmt.Sprintf(format, args...)}
}

func AlreadyIssued(pedidoNumero int64, chave string) error {
	return &DomainError{
		Err: ErrAlreadyIssued,
		Msg: fmt.Sprintf("Pedido #%d já possui NFC-e autorizada (chave %s)", pedidoNumero, chave),
	}
}

// EmissionInProgress: another request holds the pendente document and is
// waiting on the bridge.
func EmissionInProgress(pedidoNumero int64) error {
	return &DomainError{
		Err: ErrEmissionInProgress,
		Msg: fmt.Sprintf("Pedido #%d já tem uma NFC-e em emissão, aguarde o retorno da SEFAZ", pedidoNumero),
	}
}

// ── Stored value ──────────────────────────────────────────────────────────────

// InsufficientBalanceError is returned both by the splitter pre-check and by
// the ledger debit. Falta is the exact amount the member is short.
type InsufficientBalanceError struct {
	AssociadoID uuid.UUID
	Disponivel  decimal.Decimal
	Solicitado  decimal.Decimal
}

func (e *InsufficientBalanceError) Falta() decimal.Decimal {
	return e.Solicitado.Sub(e.Disponivel)
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Saldo insuficiente na carteirinha. Disponível: %s. Faltam %s",
		FormatBRL(e.Disponivel), FormatBRL(e.Falta()))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ── Cash session ──────────────────────────────────────────────────────────────

// AlreadyOpenError names the session that blocks a new open.
type AlreadyOpenError struct {
	CaixaID      uuid.UUID
	OperadorNome string
}

func (e *AlreadyOpenError) Error() string {
	if e.OperadorNome != "" {
		return fmt.Sprintf("Já existe um caixa aberto (%s) para %s", e.CaixaID, e.OperadorNome)
	}
	return fmt.Sprintf("Já existe um caixa aberto (%s)", e.CaixaID)
}

func (e *AlreadyOpenError) Unwrap() error { return ErrAlreadyOpen }

type SessionClosedError struct {
	CaixaID uuid.UUID
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("Caixa %s já está fechado", e.CaixaID)
}

func (e *SessionClosedError) Unwrap() error { return ErrSessionAlreadyClosed }

// ── Fiscal ────────────────────────────────────────────────────────────────────

// FiscalBridgeError carries the bridge's message verbatim. It usually holds a
// SEFAZ rejection code the operator has to act on, so it is never rewritten.
type FiscalBridgeError struct {
	Mensagem string
	CStat    string
}

func (e *FiscalBridgeError) Error() string { return e.Mensagem }

func (e *FiscalBridgeError) Unwrap() error { return ErrFiscalBridge }

// FormatBRL renders an amount the way the POS prints it: R$ 1.234,50.
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	inteiro, centavos, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range inteiro {
		if i > 0 && (len(inteiro)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + centavos
	if neg {
		return "-" + out
	}
	return out
}
