package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/maxviazov/contacts-service/internal/metrics"
	"github.com/maxviazov/contacts-service/internal/repository"
	"github.com/maxviazov/contacts-service/pkg/response"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	returnToParam   = "return_to"
)

// RequestID tags every request with an id, reusing the caller's when it sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one line per request once the handler chain is done.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	l := logger.With().Str("module", "handler").Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = l.Error()
		case status >= http.StatusBadRequest:
			event = l.Warn()
		default:
			event = l.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", c.FullPath()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	}
}

// Metrics records request count and latency per matched route.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// SecureHeaders applies browser hardening headers to every response.
func SecureHeaders(isDevelopment bool) gin.HandlerFunc {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'",
		IsDevelopment:         isDevelopment,
	})
	return func(c *gin.Context) {
		// Process has already written the response when it returns an error.
		if err := sm.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	}
}

// Reauth turns a credential failure attached by a handler into the response the client needs:
// a redirect to the sign-in flow for browsers, 401 for API clients or when no flow is configured.
func Reauth(signInURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			if !errors.Is(e.Err, repository.ErrReauthRequired) {
				continue
			}
			if c.Writer.Written() {
				return
			}
			if signInURL == "" || wantsJSON(c) {
				response.WriteError(c, e.Err)
				return
			}
			c.Redirect(http.StatusFound, signInRedirect(signInURL, c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
	}
}

func signInRedirect(signInURL, returnTo string) string {
	u, err := url.Parse(signInURL)
	if err != nil {
		return signInURL
	}
	q := u.Query()
	q.Set(returnToParam, returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(binding.MIMEHTML, binding.MIMEJSON) == binding.MIMEJSON
}
