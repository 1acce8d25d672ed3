package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/threadcomm/internal/comm"
	"github.com/GriffinCanCode/threadcomm/internal/workload"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": s.metrics.Uptime().Seconds(),
	})
}

func (s *Server) metricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetSnapshot())
}

func (s *Server) listWorkloads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"workloads": s.runner.Workloads()})
}

func (s *Server) lastRun(c *gin.Context) {
	last := s.runner.Last()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	c.JSON(http.StatusOK, last)
}

func (s *Server) createRun(c *gin.Context) {
	var req workload.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Ranks < 0 || req.Rounds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ranks and rounds must not be negative"})
		return
	}

	summary, err := s.runner.Run(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, summary)
	case errors.Is(err, workload.ErrTooManyRanks):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workload.ErrUnknownWorkload):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, comm.ErrRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("run failed", zap.String("workload", req.Workload), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
