package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/maxviazov/contacts-service/internal/metrics"
	"github.com/maxviazov/contacts-service/internal/model"
	"github.com/maxviazov/contacts-service/internal/service"
	"github.com/maxviazov/contacts-service/pkg/response"
	"github.com/rs/zerolog"
)

// ContactHandler serves the contact list and its create / edit / delete flows.
// Failures other than credential problems are absorbed: the user lands back on the list
// with the failure flag set, and the error is logged and counted.
type ContactHandler struct {
	svc     service.ContactService
	metrics *metrics.Metrics
	timeout time.Duration
	log     zerolog.Logger
}

func NewContactHandler(svc service.ContactService, opts Options) *ContactHandler {
	return &ContactHandler{
		svc:     svc,
		metrics: opts.Metrics,
		timeout: opts.RequestTimeout,
		log:     opts.Logger.With().Str("module", "handler").Str("component", "contact").Logger(),
	}
}

func (h *ContactHandler) Register(r gin.IRouter) {
	g := r.Group(ContactsPath)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/new", h.newForm)
	g.GET("/all", h.all)
	g.GET("/:id/edit", h.editForm)
	g.POST("/:id/edit", h.update)
	g.GET("/:id/delete", h.deleteForm)
	g.POST("/:id/delete", h.delete)
}

// listView is the model of the list page.
type listView struct {
	service.ContactPage
	OperationFailed bool   `json:"operation_failed"`
	NewID           string `json:"new_id,omitempty"`
	ChangedID       string `json:"changed_id,omitempty"`
}

type formView struct {
	Contact model.Contact `json:"contact"`
	Page    int           `json:"page"`
}

type allView struct {
	Items           []model.Contact `json:"items"`
	OperationFailed bool            `json:"operation_failed"`
}

type errorView struct {
	Status int
	response.ErrorPayload
}

func (h *ContactHandler) list(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	page, err := h.svc.ListContacts(ctx, parsePage(c.Query(pageParam)))
	view := listView{
		ContactPage:     page,
		OperationFailed: c.Query(failedParam) == "1",
		NewID:           c.Query(newIDParam),
		ChangedID:       c.Query(changedIDParam),
	}
	switch service.Classify(err) {
	case service.OutcomeReauthRequired:
		h.reauth(c, err)
		return
	case service.OutcomeFailed:
		h.absorb(c, "list", err)
		view.OperationFailed = true
		if view.Items == nil {
			view.Items = []model.Contact{}
		}
	}
	h.render(c, http.StatusOK, "index.html", view)
}

func (h *ContactHandler) newForm(c *gin.Context) {
	h.render(c, http.StatusOK, "create.html", formView{Page: 1})
}

func (h *ContactHandler) create(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	q := url.Values{}
	var form model.ContactFields
	err := c.ShouldBind(&form)
	var id string
	if err == nil {
		id, err = h.svc.CreateContact(ctx, form)
	}
	switch service.Classify(err) {
	case service.OutcomeReauthRequired:
		h.reauth(c, err)
		return
	case service.OutcomeFailed:
		h.absorb(c, "create", err)
		q.Set(failedParam, "1")
	default:
		q.Set(newIDParam, id)
	}
	redirectToList(c, q)
}

func (h *ContactHandler) editForm(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	contact, err := h.svc.GetContact(ctx, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "edit.html", formView{Contact: contact, Page: parsePage(c.Query(pageParam))})
}

func (h *ContactHandler) update(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id := c.Param("id")
	q := url.Values{}
	q.Set(pageParam, strconv.Itoa(parsePage(c.DefaultQuery(pageParam, c.PostForm(pageParam)))))
	q.Set(changedIDParam, id)

	var form model.ContactFields
	err := c.ShouldBind(&form)
	if err == nil {
		_, err = h.svc.UpdateContact(ctx, id, form)
	}
	switch service.Classify(err) {
	case service.OutcomeReauthRequired:
		h.reauth(c, err)
		return
	case service.OutcomeFailed:
		h.absorb(c, "update", err)
		q.Set(failedParam, "1")
	}
	redirectToList(c, q)
}

func (h *ContactHandler) deleteForm(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	contact, err := h.svc.GetContact(ctx, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.render(c, http.StatusOK, "delete.html", formView{Contact: contact, Page: parsePage(c.Query(pageParam))})
}

func (h *ContactHandler) delete(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	q := url.Values{}
	_, err := h.svc.DeleteContact(ctx, c.Param("id"))
	switch service.Classify(err) {
	case service.OutcomeReauthRequired:
		h.reauth(c, err)
		return
	case service.OutcomeFailed:
		h.absorb(c, "delete", err)
		q.Set(failedParam, "1")
	}
	redirectToList(c, q)
}

func (h *ContactHandler) all(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	items, err := h.svc.AllContacts(ctx)
	view := allView{Items: items}
	switch service.Classify(err) {
	case service.OutcomeReauthRequired:
		h.reauth(c, err)
		return
	case service.OutcomeFailed:
		h.absorb(c, "all", err)
		view.OperationFailed = true
	}
	if view.Items == nil {
		view.Items = []model.Contact{}
	}
	response.WriteData(c, http.StatusOK, view)
}

func (h *ContactHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// reauth leaves the response to the Reauth middleware.
func (h *ContactHandler) reauth(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func (h *ContactHandler) absorb(c *gin.Context, action string, err error) {
	h.log.Error().Err(err).
		Str("action", action).
		Str("request_id", c.GetString(requestIDKey)).
		Msg("contact operation failed")
	h.metrics.OperationFailed(action)
}

func (h *ContactHandler) render(c *gin.Context, status int, name string, data any) {
	c.Negotiate(status, gin.Negotiate{
		Offered:  []string{binding.MIMEHTML, binding.MIMEJSON},
		HTMLName: name,
		Data:     data,
	})
}

// renderError answers a form page whose contact could not be loaded.
func (h *ContactHandler) renderError(c *gin.Context, err error) {
	if service.Classify(err) == service.OutcomeReauthRequired {
		h.reauth(c, err)
		return
	}
	status, payload := response.MapError(err)
	if status >= http.StatusInternalServerError {
		h.absorb(c, "load", err)
	}
	c.Negotiate(status, gin.Negotiate{
		Offered:  []string{binding.MIMEHTML, binding.MIMEJSON},
		HTMLName: "error.html",
		HTMLData: errorView{Status: status, ErrorPayload: payload},
		JSONData: payload,
	})
	c.Abort()
}

func redirectToList(c *gin.Context, q url.Values) {
	target := ContactsPath
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}

// parsePage reads a 1-based page number; anything unusable means the first page.
func parsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
