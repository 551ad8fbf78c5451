package pdv

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubebar/internal/apierror"
	"clubebar/internal/model"
)

// Epsilon is the tolerance for "fully paid": one centavo.
var Epsilon = decimal.New(1, -2)

// ConsultaSaldo is the read side of the stored-value ledger.
type ConsultaSaldo interface {
	Saldo(ctx context.Context, associadoID uuid.UUID) (decimal.Decimal, error)
}

// Tender is one applied payment.
type Tender struct {
	Forma model.FormaPagamento
	Valor decimal.Decimal
}

// Divisor matches tenders against an order total.
//
// Rules:
//   - one tender per kind; adding a kind again replaces its amount
//   - non-cash tenders are capped at what is still owed; cash overpays into troco
//   - carteirinha is checked against the member balance before it is accepted
//
// The balance check here is advisory. The ledger debit at commit time is the
// authoritative one.
type Divisor struct {
	subtotal    decimal.Decimal
	desconto    decimal.Decimal
	associadoID *uuid.UUID
	saldos      ConsultaSaldo
	tenders     []Tender
}

// NovoDivisor clamps desconto into [0, subtotal].
func NovoDivisor(subtotal, desconto decimal.Decimal) *Divisor {
	if desconto.IsNegative() {
		desconto = decimal.Zero
	}
	if desconto.GreaterThan(subtotal) {
		desconto = subtotal
	}
	return &Divisor{subtotal: subtotal.Round(2), desconto: desconto.Round(2)}
}

// ComCarteirinha binds the member account used by a carteirinha tender.
func (d *Divisor) ComCarteirinha(associadoID uuid.UUID, saldos ConsultaSaldo) *Divisor {
	d.associadoID = &associadoID
	d.saldos = saldos
	return d
}

func (d *Divisor) Subtotal() decimal.Decimal { return d.subtotal }
func (d *Divisor) Desconto() decimal.Decimal { return d.desconto }
func (d *Divisor) Total() decimal.Decimal    { return d.subtotal.Sub(d.desconto) }

// Adicionar applies valor under forma and returns the amount actually applied
// after capping.
func (d *Divisor) Adicionar(ctx context.Context, forma model.FormaPagamento, valor decimal.Decimal) (decimal.Decimal, error) {
	if !forma.Valid() {
		return decimal.Zero, apierror.Invalid("Forma de pagamento inválida: %q", forma)
	}
	valor = valor.Round(2)
	if !valor.IsPositive() {
		return decimal.Zero, apierror.NegativeAmount("Valor do pagamento")
	}

	if forma != model.FormaDinheiro {
		devido := d.Total().Sub(d.aplicadoExceto(forma))
		if valor.GreaterThan(devido) {
			valor = decimal.Max(devido, decimal.Zero)
		}
		if valor.IsZero() && !(forma == model.FormaCortesia && d.Total().IsZero()) {
			return decimal.Zero, apierror.Invalid("O valor do pedido já está coberto")
		}
	}

	if forma == model.FormaCarteirinha {
		if err := d.conferirSaldo(ctx, valor); err != nil {
			return decimal.Zero, err
		}
	}

	for i := range d.tenders {
		if d.tenders[i].Forma == forma {
			d.tenders[i].Valor = valor
			return valor, nil
		}
	}
	d.tenders = append(d.tenders, Tender{Forma: forma, Valor: valor})
	return valor, nil
}

func (d *Divisor) Remover(forma model.FormaPagamento) {
	for i := range d.tenders {
		if d.tenders[i].Forma == forma {
			d.tenders = append(d.tenders[:i], d.tenders[i+1:]...)
			return
		}
	}
}

func (d *Divisor) Tenders() []Tender {
	out := make([]Tender, len(d.tenders))
	copy(out, d.tenders)
	return out
}

func (d *Divisor) Valor(forma model.FormaPagamento) decimal.Decimal {
	for _, t := range d.tenders {
		if t.Forma == forma {
			return t.Valor
		}
	}
	return decimal.Zero
}

func (d *Divisor) TotalAplicado() decimal.Decimal { return d.aplicadoExceto("") }

// Restante is what is still owed, never negative.
func (d *Divisor) Restante() decimal.Decimal {
	return decimal.Max(d.Total().Sub(d.TotalAplicado()), decimal.Zero)
}

func (d *Divisor) Troco() decimal.Decimal {
	return decimal.Max(d.TotalAplicado().Sub(d.Total()), decimal.Zero)
}

func (d *Divisor) PodeFinalizar() bool {
	return len(d.tenders) > 0 && d.Restante().LessThanOrEqual(Epsilon)
}

// Pagamentos renders the tenders as payment rows, attributing troco to the
// dinheiro row.
func (d *Divisor) Pagamentos() []model.Pagamento {
	troco := d.Troco()
	out := make([]model.Pagamento, 0, len(d.tenders))
	for _, t := range d.tenders {
		p := model.Pagamento{Forma: t.Forma, Valor: t.Valor, Troco: decimal.Zero}
		if t.Forma == model.FormaDinheiro {
			p.Troco = troco
		}
		out = append(out, p)
	}
	return out
}

func (d *Divisor) aplicadoExceto(forma model.FormaPagamento) decimal.Decimal {
	total := decimal.Zero
	for _, t := range d.tenders {
		if t.Forma != forma {
			total = total.Add(t.Valor)
		}
	}
	return total
}

func (d *Divisor) conferirSaldo(ctx context.Context, valor decimal.Decimal) error {
	if d.associadoID == nil || d.saldos == nil {
		return apierror.Invalid("Selecione o associado para pagar com carteirinha")
	}
	saldo, err := d.saldos.Saldo(ctx, *d.associadoID)
	if err != nil {
		return err
	}
	if valor.GreaterThan(saldo) {
		return &apierror.InsufficientBalanceError{
			AssociadoID: *d.associadoID,
			Disponivel:  saldo,
			Solicitado:  valor,
		}
	}
	return nil
}
