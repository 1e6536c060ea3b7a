package server

import (
	"net/http"

	pkgdb "github.com/openytelse/regelport/pkg/db"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health probes the store and the bus. Any failing component degrades the
// whole answer to 503 so orchestrators stop routing here.
func (s *Server) Health(c *gin.Context) {
	ctx := c.Request.Context()
	components := map[string]string{
		"store": "ok",
		"bus":   "ok",
	}
	healthy := true

	if err := pkgdb.Ping(ctx, s.db); err != nil {
		s.log.Warn("store health probe failed", zap.Error(err))
		components["store"] = "down"
		healthy = false
	}
	if err := s.bus.Ping(ctx); err != nil {
		s.log.Warn("bus health probe failed", zap.Error(err))
		components["bus"] = "down"
		healthy = false
	}

	status := http.StatusOK
	resp := healthResponse{Status: "ok", Components: components}
	if !healthy {
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
	}
	c.JSON(status, resp)
}
