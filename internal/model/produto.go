package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Categoria groups bar products on the POS screen. Ordem drives display order.
type Categoria struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nome      string    `gorm:"type:varchar(100);not null"`
	Descricao *string
	Ativo     bool `gorm:"not null"`
	Ordem     int  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Categoria) TableName() string { return "bar_categorias" }

func (c *Categoria) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Produto is read-only to the POS: catalog CRUD lives elsewhere.
// NCM / CFOP / CST / Unidade feed the NFC-e payload; empty values fall back
// to the fiscal defaults configured for the emitter.
type Produto struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CategoriaID     *uuid.UUID      `gorm:"type:uuid;index"`
	Nome            string          `gorm:"type:varchar(150);not null;index"`
	Descricao       *string
	Preco           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PrecoCusto      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	NCM             string          `gorm:"column:ncm;type:varchar(10)"`
	CFOP            string          `gorm:"column:cfop;type:varchar(4)"`
	CST             string          `gorm:"column:cst;type:varchar(4)"`
	Unidade         string          `gorm:"type:varchar(6);not null;default:'UN'"`
	EstoqueAtual    int             `gorm:"not null;default:0"`
	EstoqueMinimo   int             `gorm:"not null;default:0"`
	ControlaEstoque bool            `gorm:"not null"`
	Ativo           bool            `gorm:"not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Categoria *Categoria `gorm:"foreignKey:CategoriaID"`
}

func (Produto) TableName() string { return "bar_produtos" }

func (p *Produto) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
