// Package api 只读的运行状态接口。
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ncov-dump/internal/middleware/logger"
	"ncov-dump/internal/middleware/metrics"
	"ncov-dump/internal/ncov_dump/model"
	"ncov-dump/internal/ncov_dump/scheduler"
	"ncov-dump/internal/ncov_dump/snapshot"
)

type Server struct {
	Log         *zap.Logger
	Status      *scheduler.Status
	Snapshots   *snapshot.Store
	Collections []model.Collection
	Metrics     *metrics.Metrics
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(logger.GinLogger(s.Log), gin.Recovery())
	r.GET("/healthz", s.healthz)
	r.GET("/collections", s.listCollections)
	r.GET("/collections/:name/snapshot", s.getSnapshot) // 最近一次保存的快照
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
	return r
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCollections(c *gin.Context) {
	c.JSON(http.StatusOK, s.Status.Report())
}

func (s *Server) collection(name string) (model.Collection, bool) {
	for _, col := range s.Collections {
		if col.Name == name {
			return col, true
		}
	}
	return model.Collection{}, false
}

func (s *Server) getSnapshot(c *gin.Context) {
	col, ok := s.collection(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return
	}
	p := s.Snapshots.Load(col)
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot yet"})
		return
	}
	body, err := p.Encode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
