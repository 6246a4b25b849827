package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleProcessCashback triggers one sweep over due rewards. External
// schedulers call it on their own cadence; concurrent triggers are safe
// because the sweep claims each record before working on it.
func (s *Server) HandleProcessCashback(c *gin.Context) {
	if !s.authorizeCronRequest(c) {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summary, err := s.dispatcher.RunOnce(c.Request.Context())
	if err != nil {
		s.log.Error("cashback sweep failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) authorizeCronRequest(c *gin.Context) bool {
	secret := s.cfg.CronSecret
	if secret == "" {
		return true
	}

	auth := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
