package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/contacts-service/internal/metrics"
	"github.com/maxviazov/contacts-service/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Options carries the cross-cutting dependencies of the HTTP layer. The zero value is usable.
type Options struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics; the route is not mounted when nil.
	Gatherer prometheus.Gatherer
	// SignInURL is where browsers go when the backend rejects the current credentials.
	SignInURL      string
	SecureHeaders  bool
	IsDevelopment  bool
	RequestTimeout time.Duration
}

// Register mounts middleware and all public routes on the given engine.
func Register(r *gin.Engine, backend Pinger, contactSvc service.ContactService, opts Options) {
	r.Use(gin.Recovery(), RequestID(), RequestLogger(opts.Logger), Metrics(opts.Metrics))
	if opts.SecureHeaders {
		r.Use(SecureHeaders(opts.IsDevelopment))
	}
	r.Use(Reauth(opts.SignInURL))
	r.SetHTMLTemplate(templates)

	h := NewHealthHandler(backend)

	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, ContactsPath)
	})
	NewContactHandler(contactSvc, opts).Register(r)

	api := r.Group(APIV1Prefix) // Versioning added via single source of truth
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
	}
}
