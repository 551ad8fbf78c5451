package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusNFCe: "pendente" | "autorizada" | "cancelada" | "erro"
type StatusNFCe string

const (
	NFCePendente   StatusNFCe = "pendente"
	NFCeAutorizada StatusNFCe = "autorizada"
	NFCeCancelada  StatusNFCe = "cancelada"
	NFCeErro       StatusNFCe = "erro"
)

// NFCe tracks the local side of a fiscal document request for a Pedido.
// A pedido may accumulate erro rows across retries but at most one autorizada.
type NFCe struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PedidoID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	Numero            *int64     `gorm:"index"`
	Serie             *string    `gorm:"type:varchar(3)"`
	ChaveAcesso       *string    `gorm:"type:varchar(44);index"`
	Protocolo         *string    `gorm:"type:varchar(20)"`
	Status            StatusNFCe `gorm:"type:varchar(12);not null;default:'pendente'"`
	CStat             *string    `gorm:"column:cstat;type:varchar(5)"`
	MensagemRetorno   *string
	XMLRetorno        *string `gorm:"column:xml_retorno"`
	CPFCNPJConsumidor *string `gorm:"column:cpf_cnpj_consumidor;type:varchar(14)"`
	Justificativa     *string
	EmitidoEm         *time.Time
	CanceladoEm       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (NFCe) TableName() string { return "bar_nfce" }

func (n *NFCe) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
