// Package api is the HTTP query/write surface: a thin gin layer translating
// requests into WarehouseController/FleetHandler calls and JSON responses,
// grounded on jkilzi-assisted-migration-agent's internal/handlers pattern
// (gin.Context handlers on a Handler struct, zap logging, gin.H error
// bodies) and its internal/server doc.go (Logger+Recovery middleware, one
// router group).
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"warehousefleet/internal/controller"
	"warehousefleet/internal/fleet"
	"warehousefleet/internal/store"
	"warehousefleet/internal/types"
)

// longPollTimeout bounds how long a GET with ?wait=1 blocks for an update
// before returning the current value anyway.
const longPollTimeout = 25 * time.Second

// Handler holds every collaborator the HTTP surface calls into.
type Handler struct {
	ctrl     *controller.Controller
	fleet    *fleet.Handler
	store    *store.Store
	validate *validator.Validate
	log      *zap.Logger
}

// New constructs a Handler. log may be nil.
func New(ctrl *controller.Controller, fl *fleet.Handler, st *store.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{ctrl: ctrl, fleet: fl, store: st, validate: validator.New(), log: log.Named("api_handler")}
}

// NewRouter builds the gin.Engine with every route from SPEC_FULL.md §6
// registered, plus a Prometheus /metrics endpoint.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginLogger(h.log))

	r.POST("/orders/job", h.postJobOrder)
	r.POST("/orders/request", h.postRequestOrder)
	r.POST("/orders/warehouse", h.postWarehouseOrder)
	r.DELETE("/orders/job/:id", h.deleteJobOrder)
	r.DELETE("/orders/request/:id", h.deleteRequestOrder)
	r.GET("/robots", h.getRobots)
	r.GET("/robots/:name", h.getRobot)
	r.GET("/jobs/:id", h.getJob)
	r.GET("/requests/:id", h.getRequest)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			log.Warn("request error", zap.String("path", c.Request.URL.Path), zap.String("errors", c.Errors.String()))
		}
	}
}

func (h *Handler) bindAndValidate(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return false
	}
	return true
}

// statusForError maps domain sentinel errors to HTTP status codes, per
// SPEC_FULL.md §7.
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrJobNotFound), errors.Is(err, types.ErrRequestNotFound), errors.Is(err, types.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrUnknownRobot),
		errors.Is(err, types.ErrTravelTargetNotWaypoint),
		errors.Is(err, types.ErrAmbiguousNodeAssignment),
		errors.Is(err, types.ErrCrossRobotRequest),
		errors.Is(err, types.ErrNodeNotInRoute):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"success": false, "message": err.Error()})
}

func (h *Handler) postJobOrder(c *gin.Context) {
	var order controller.JobOrder
	if !h.bindAndValidate(c, &order) {
		return
	}
	job, err := h.ctrl.AcceptJobOrder(c.Request.Context(), order)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *Handler) postRequestOrder(c *gin.Context) {
	var order controller.RequestOrder
	if !h.bindAndValidate(c, &order) {
		return
	}
	req, err := h.ctrl.AcceptRequestOrder(c.Request.Context(), order)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) postWarehouseOrder(c *gin.Context) {
	var order controller.WarehouseOrder
	if !h.bindAndValidate(c, &order) {
		return
	}
	requests, err := h.ctrl.AcceptWarehouseOrder(c.Request.Context(), order)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, requests)
}

func (h *Handler) deleteJobOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid job id"})
		return
	}
	job, err := h.ctrl.CancelJobOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) deleteRequestOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request id"})
		return
	}
	req, err := h.ctrl.CancelRequestOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// waitForUpdate blocks until watch fires, the client's ?wait query param is
// absent, or longPollTimeout elapses — whichever is first. The caller always
// re-reads the store afterward, so a timeout or a missed publish just means
// the handler returns the value it would have returned anyway.
func (h *Handler) waitForUpdate(c *gin.Context, watch func(ctx context.Context) <-chan struct{}) {
	if c.Query("wait") == "" {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), longPollTimeout)
	defer cancel()
	ch := watch(ctx)
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (h *Handler) getJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid job id"})
		return
	}
	h.waitForUpdate(c, func(ctx context.Context) <-chan struct{} { return h.store.WatchJob(ctx, id) })

	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) getRobots(c *gin.Context) {
	c.JSON(http.StatusOK, h.fleet.GetRobots())
}

func (h *Handler) getRobot(c *gin.Context) {
	name := c.Param("name")
	snap, ok := h.fleet.GetRobot(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown robot"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// requestWithStatus is a Request plus its derived OrderStatus, for the read
// surface; the status itself is never stored (SPEC_FULL.md §4.1).
type requestWithStatus struct {
	types.Request
	Status types.OrderStatus `json:"status"`
}

func (h *Handler) getRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request id"})
		return
	}
	h.waitForUpdate(c, func(ctx context.Context) <-chan struct{} { return h.store.WatchRequest(ctx, id) })

	req, err := h.store.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if req == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "request not found"})
		return
	}
	status, err := h.store.GetRequestStatus(c.Request.Context(), *req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requestWithStatus{Request: *req, Status: status})
}
