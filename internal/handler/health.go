package handler

import (
	"context"
	"net/http"
	"time"

	"clubebar/internal/infra"
	"clubebar/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports DB, Redis and the fiscal breaker. Only the database is
// required: without Redis the catalog is read uncached and receipts are not
// queued, and an open breaker only blocks NFC-e.
func Health(db *gorm.DB, rdb *redis.Client, breaker *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		body := gin.H{"db": dbStatus}

		switch {
		case rdb == nil:
			body["redis"] = "disabled"
		case rdb.Ping(ctx).Err() != nil:
			body["redis"] = "error"
		default:
			body["redis"] = "connected"
			body["dlq"] = worker.ResumoDLQ(ctx, rdb, worker.QueueComprovante, worker.QueueEmail)
		}

		if breaker != nil {
			body["emissor_fiscal"] = breaker.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = status == http.StatusOK
		c.JSON(status, body)
	}
}
