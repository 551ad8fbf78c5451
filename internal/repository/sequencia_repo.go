package repository

import (
	"clubebar/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenciaRepository hands out gap-free numbers for orders and NFC-e.
// The increment holds the row lock until the surrounding transaction ends,
// so two registers never receive the same number.
type SequenciaRepository interface {
	NextTx(tx *gorm.DB, nome string) (int64, error)
}

type sequenciaRepo struct{}

func NewSequenciaRepository() SequenciaRepository { return &sequenciaRepo{} }

func (r *sequenciaRepo) NextTx(tx *gorm.DB, nome string) (int64, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Sequencia{Nome: nome, Valor: 0}).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&model.Sequencia{}).
		Where("nome = ?", nome).
		Update("valor", gorm.Expr("valor + 1")).Error; err != nil {
		return 0, err
	}
	var s model.Sequencia
	if err := tx.First(&s, "nome = ?", nome).Error; err != nil {
		return 0, err
	}
	return s.Valor, nil
}
