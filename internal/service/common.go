package service

import (
	"context"
	"time"

	"clubebar/internal/apierror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operador identifies who is at the register. It comes from the JWT claims.
type Operador struct {
	ID   uuid.UUID
	Nome string
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func parseID(campo, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.Invalid("%s inválido", campo)
	}
	return id, nil
}

func fmtTime(t time.Time) string { return t.Format(time.RFC3339) }

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
