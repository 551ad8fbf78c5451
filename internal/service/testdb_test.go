package service

import (
	"context"
	"fmt"
	"testing"

	"clubebar/internal/infra"
	"clubebar/internal/model"
	"clubebar/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
// A single connection serializes transactions the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// barFixture wires every service over one test database.
type barFixture struct {
	db          *gorm.DB
	metrics     *infra.BarMetrics
	carteirinha CarteirinhaService
	catalogo    CatalogoService
	caixa       CaixaService
	pedidos     PedidoService
	pedidoRepo  repository.PedidoRepository
	caixaRepo   repository.CaixaRepository
}

type fakeComprovantes struct{ pedidos []string }

func newBarFixture(t *testing.T, dispatcher ComprovanteEnqueuer) *barFixture {
	t.Helper()
	db := newTestDB(t)
	metrics := infra.NewBarMetrics(prometheus.NewRegistry())

	catalogoRepo := repository.NewCatalogoRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	caixaRepo := repository.NewCaixaRepository(db)
	carteirinha := NewCarteirinhaService(repository.NewCarteirinhaRepository(db), metrics)
	catalogo := NewCatalogoService(catalogoRepo, nil, 0)

	return &barFixture{
		db:          db,
		metrics:     metrics,
		carteirinha: carteirinha,
		catalogo:    catalogo,
		caixa:       NewCaixaService(caixaRepo, pedidoRepo, metrics),
		pedidos: NewPedidoService(pedidoRepo, catalogoRepo, repository.NewSequenciaRepository(),
			caixaRepo, carteirinha, catalogo, dispatcher, metrics),
		pedidoRepo: pedidoRepo,
		caixaRepo:  caixaRepo,
	}
}

func (f *barFixture) produto(t *testing.T, nome, preco string, estoque int) model.Produto {
	t.Helper()
	p := model.Produto{
		Nome:            nome,
		Preco:           decimal.RequireFromString(preco),
		Unidade:         "UN",
		EstoqueAtual:    estoque,
		ControlaEstoque: true,
		Ativo:           true,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *barFixture) recarga(t *testing.T, associado uuid.UUID, valor string) {
	t.Helper()
	_, err := f.carteirinha.Creditar(context.Background(), CreditoInput{
		AssociadoID: associado,
		Valor:       decimal.RequireFromString(valor),
		Forma:       model.FormaPix,
	})
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
