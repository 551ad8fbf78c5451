package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatusCaixa: "aberto" | "fechado"
type StatusCaixa string

const (
	CaixaAberto  StatusCaixa = "aberto"
	CaixaFechado StatusCaixa = "fechado"
)

// Caixa is one operator's register shift. At most one row per operator may be
// aberto (partial unique index idx_bar_caixas_operador_aberto). Totals stay at
// zero until Fechar freezes them.
type Caixa struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OperadorID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_bar_caixas_operador_aberto,unique,where:status = 'aberto'"`
	OperadorNome string          `gorm:"type:varchar(150);not null"`
	Status       StatusCaixa     `gorm:"type:varchar(10);not null;default:'aberto';index"`
	SaldoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	TotalVendas        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalDinheiro      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCartaoCredito decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCartaoDebito  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalPix           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCarteirinha   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCortesia      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalTroco         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalSangrias      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalSuprimentos   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	// SaldoFinal is the expected drawer balance computed on close.
	SaldoFinal     decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	SaldoConferido *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferenca      decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`

	ObservacaoAbertura   *string
	ObservacaoFechamento *string
	AbertoEm             time.Time
	FechadoEm            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Movimentos []CaixaMovimento `gorm:"foreignKey:CaixaID"`
}

func (Caixa) TableName() string { return "bar_caixas" }

func (c *Caixa) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TipoMovimentoCaixa: "sangria" (cash out) | "suprimento" (cash in)
type TipoMovimentoCaixa string

const (
	MovimentoSangria    TipoMovimentoCaixa = "sangria"
	MovimentoSuprimento TipoMovimentoCaixa = "suprimento"
)

func (t TipoMovimentoCaixa) Valid() bool {
	return t == MovimentoSangria || t == MovimentoSuprimento
}

// CaixaMovimento is an append-only manual cash movement on an open Caixa.
type CaixaMovimento struct {
	ID         uuid.UUID          `gorm:"type:uuid;primaryKey"`
	CaixaID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	Tipo       TipoMovimentoCaixa `gorm:"type:varchar(12);not null"`
	Valor      decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	Motivo     *string
	OperadorID uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
}

func (CaixaMovimento) TableName() string { return "bar_caixa_movimentos" }

func (m *CaixaMovimento) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
