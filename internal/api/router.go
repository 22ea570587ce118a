// Package api serves the ingestion lifecycle and folder listings over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eivu-go/internal/eivu"
)

// Server holds the handlers' dependencies.
type Server struct {
	svc    *eivu.IngestService
	logger eivu.Logger
}

// NewRouter builds the HTTP router. gatherer may be nil, in which case
// /metrics is not served.
func NewRouter(svc *eivu.IngestService, logger eivu.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	if logger == nil {
		logger = eivu.NewNopLogger()
	}
	s := &Server{svc: svc, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/folders", s.listAllFolders)
		v1.GET("/folders/:folder_id/files", s.folderFiles)

		v1.GET("/buckets", s.listBuckets)
		v1.GET("/buckets/:bucket_id/folders", s.bucketFolders)
		v1.POST("/buckets/:bucket_id/folders/recount", s.recountFolders)
		v1.GET("/buckets/:bucket_id/files/exists", s.fileExists)
		v1.POST("/buckets/:bucket_id/files", s.reserveFile)

		v1.GET("/files/:file_id", s.showFile)
		v1.PATCH("/files/:file_id/transfer", s.transferFile)
		v1.PATCH("/files/:file_id/complete", s.completeFile)
		v1.DELETE("/files/:file_id", s.deleteFile)
	}
	return r
}

func requestLogger(logger eivu.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
