package model

// FormaPagamento is the closed set of tenders a bar order can be paid with.
// Adding a kind means touching Valid, the splitter caps and TotaisPorForma.
type FormaPagamento string

const (
	FormaDinheiro      FormaPagamento = "dinheiro"
	FormaCartaoCredito FormaPagamento = "cartao_credito"
	FormaCartaoDebito  FormaPagamento = "cartao_debito"
	FormaPix           FormaPagamento = "pix"
	FormaCarteirinha   FormaPagamento = "carteirinha"
	FormaCortesia      FormaPagamento = "cortesia"
)

// FormasPagamento lists every tender in display order.
var FormasPagamento = []FormaPagamento{
	FormaDinheiro,
	FormaCartaoCredito,
	FormaCartaoDebito,
	FormaPix,
	FormaCarteirinha,
	FormaCortesia,
}

func (f FormaPagamento) Valid() bool {
	switch f {
	case FormaDinheiro, FormaCartaoCredito, FormaCartaoDebito, FormaPix, FormaCarteirinha, FormaCortesia:
		return true
	}
	return false
}

// EntraNaGaveta reports whether the tender moves physical cash in the drawer.
func (f FormaPagamento) EntraNaGaveta() bool { return f == FormaDinheiro }

// AceitaRecarga reports whether the tender can fund a carteirinha recharge.
func (f FormaPagamento) AceitaRecarga() bool {
	return f.Valid() && f != FormaCarteirinha && f != FormaCortesia
}

func (f FormaPagamento) Label() string {
	switch f {
	case FormaDinheiro:
		return "Dinheiro"
	case FormaCartaoCredito:
		return "Cartão de Crédito"
	case FormaCartaoDebito:
		return "Cartão de Débito"
	case FormaPix:
		return "PIX"
	case FormaCarteirinha:
		return "Carteirinha"
	case FormaCortesia:
		return "Cortesia"
	}
	return string(f)
}
