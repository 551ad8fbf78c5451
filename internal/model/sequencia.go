package model

// Sequencia is a named monotonic counter (order numbers, NFC-e numbers).
// Incremented inside the caller's transaction so gaps only appear on rollback.
type Sequencia struct {
	Nome  string `gorm:"type:varchar(40);primaryKey"`
	Valor int64  `gorm:"not null;default:0"`
}

func (Sequencia) TableName() string { return "sequencias" }

const (
	SequenciaPedido = "bar_pedido_numero"
	SequenciaNFCe   = "bar_nfce_numero"
)

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Sequencia{},
		&Categoria{},
		&Produto{},
		&Caixa{},
		&CaixaMovimento{},
		&Pedido{},
		&ItemPedido{},
		&Pagamento{},
		&CarteirinhaSaldo{},
		&CarteirinhaMovimento{},
		&NFCe{},
	}
}
