package router

import (
	"time"

	"clubebar/internal/cache"
	"clubebar/internal/config"
	"clubebar/internal/handler"
	"clubebar/internal/infra"
	"clubebar/internal/middleware"
	"clubebar/internal/repository"
	"clubebar/internal/service"
	"clubebar/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators built in main. Redis is optional.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Emissor  service.EmissorFiscal
	Breaker  *infra.CircuitBreaker
	Metrics  *infra.BarMetrics
	Gatherer prometheus.Gatherer
}

const (
	rolOperador      = "operador"
	rolSupervisor    = "supervisor"
	rolAdministrador = "administrador"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimit, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	catalogoRepo := repository.NewCatalogoRepository(d.DB)
	pedidoRepo := repository.NewPedidoRepository(d.DB)
	caixaRepo := repository.NewCaixaRepository(d.DB)
	carteirinhaRepo := repository.NewCarteirinhaRepository(d.DB)
	nfceRepo := repository.NewNFCeRepository(d.DB)
	seqRepo := repository.NewSequenciaRepository()

	// ── Services ─────────────────────────────────────────────────────────────
	var catalogoCache cache.CatalogoCache
	var dispatcher service.ComprovanteEnqueuer
	if d.Redis != nil {
		catalogoCache = cache.NewRedisCatalogoCache(d.Redis)
		dispatcher = worker.NewDispatcher(d.Redis)
	}

	catalogoSvc := service.NewCatalogoService(catalogoRepo, catalogoCache, cfg.CatalogoCacheTTL)
	carteirinhaSvc := service.NewCarteirinhaService(carteirinhaRepo, d.Metrics)
	caixaSvc := service.NewCaixaService(caixaRepo, pedidoRepo, d.Metrics)
	pedidoSvc := service.NewPedidoService(pedidoRepo, catalogoRepo, seqRepo, caixaRepo, carteirinhaSvc, catalogoSvc, dispatcher, d.Metrics)
	nfceSvc := service.NewNFCeService(nfceRepo, pedidoRepo, seqRepo, d.Emissor, d.Breaker, service.NFCeConfig{
		Ativo:              cfg.NFCeAtivo,
		JanelaCancelamento: cfg.NFCeJanelaCancelar,
		Emitente:           infra.EmitenteFromConfig(cfg),
	}, d.Metrics)

	// ── Handlers ─────────────────────────────────────────────────────────────
	catalogoH := handler.NewCatalogoHandler(catalogoSvc)
	pedidosH := handler.NewPedidosHandler(pedidoSvc)
	caixaH := handler.NewCaixaHandler(caixaSvc)
	carteirinhaH := handler.NewCarteirinhaHandler(carteirinhaSvc)
	nfceH := handler.NewNFCeHandler(nfceSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.Breaker))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	todos := middleware.RequireRole(rolOperador, rolSupervisor, rolAdministrador)
	gestores := middleware.RequireRole(rolSupervisor, rolAdministrador)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		cat := v1.Group("/catalogo", todos)
		{
			cat.GET("/produtos", catalogoH.Produtos)
			cat.GET("/categorias", catalogoH.Categorias)
		}

		ped := v1.Group("/pedidos")
		{
			ped.POST("", todos, pedidosH.Finalizar)
			ped.POST("/simular", todos, pedidosH.Simular)
			ped.GET("", todos, pedidosH.Listar)
			ped.GET("/:id", todos, pedidosH.Obter)
			ped.GET("/:id/nfce", todos, nfceH.PorPedido)
			ped.POST("/:id/cancelar", gestores, pedidosH.Cancelar)
		}

		cx := v1.Group("/caixa")
		{
			cx.POST("/abrir", todos, caixaH.Abrir)
			cx.POST("/fechar", todos, caixaH.Fechar)
			cx.POST("/movimento", todos, caixaH.RegistrarMovimento)
			cx.GET("/ativo", todos, caixaH.Ativo)
			cx.GET("/historico", gestores, caixaH.Historico)
			cx.GET("/sessoes/:id", gestores, caixaH.Resumo)
			cx.GET("/sessoes/:id/movimentos", gestores, caixaH.Movimentos)
		}

		cart := v1.Group("/carteirinha")
		{
			cart.POST("/recarga", todos, carteirinhaH.Recarga)
			cart.GET("/:associado_id/saldo", todos, carteirinhaH.Saldo)
			cart.GET("/:associado_id/extrato", todos, carteirinhaH.Extrato)
			cart.GET("/:associado_id/conferencia", gestores, carteirinhaH.Conferir)
		}

		nf := v1.Group("/nfce")
		{
			nf.POST("", todos, nfceH.Emitir)
			nf.GET("/status", todos, nfceH.Status)
			nf.GET("/:id", todos, nfceH.Obter)
			nf.POST("/:id/cancelar", gestores, nfceH.Cancelar)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
