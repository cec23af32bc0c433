package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/featuretoggle/featuretoggle/internal/toggle"
	"github.com/featuretoggle/featuretoggle/internal/toggle/service"
	"github.com/featuretoggle/featuretoggle/pkg/logger"
	"github.com/featuretoggle/featuretoggle/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Exporter writes a snapshot of a package somewhere durable and returns the
// object key plus a URL the caller can fetch it from.
type Exporter interface {
	Export(ctx context.Context, pkg string, toggles []*toggle.Toggle) (key, url string, err error)
}

// Handler exposes the toggle service over HTTP.
type Handler struct {
	svc      service.Service
	exporter Exporter
}

// NewHandler builds a Handler. exporter may be nil; the export route then
// answers 501.
func NewHandler(svc service.Service, exporter Exporter) *Handler {
	return &Handler{svc: svc, exporter: exporter}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/feature-toggle", h.Create)

	g := r.Group("/feature-toggles/:package")
	g.GET("", h.List)
	g.DELETE("", h.DeleteAll)
	g.GET("/by-date", h.ListByDate)
	g.GET("/active", h.ListActive)
	g.GET("/active-in-range", h.ListActiveInRange)
	g.GET("/recent", h.ListRecent)
	g.GET("/statistics", h.Statistics)
	g.POST("/export", h.Export)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/update-dates", h.UpdateDates)
	g.PUT("/:id/update-info", h.UpdateInfo)
}

type createRequest struct {
	PackageName    *string `json:"package_name"`
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	BeginningDate  *string `json:"beginning_date"`
	ExpirationDate *string `json:"expiration_date"`
}

type updateDatesRequest struct {
	BeginningDate  *string `json:"beginning_date"`
	ExpirationDate *string `json:"expiration_date"`
}

type updateInfoRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Create handles POST /feature-toggle.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "create", toggle.ErrMissingFields)
		return
	}
	id, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		Package:        req.PackageName,
		Name:           req.Name,
		Description:    req.Description,
		BeginningDate:  req.BeginningDate,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	observe("create", nil)
	c.JSON(http.StatusCreated, gin.H{"message": "Feature toggle created successfully", "_id": id})
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), c.Param("package"))
	h.list(c, "list", list, err)
}

func (h *Handler) ListByDate(c *gin.Context) {
	list, err := h.svc.ListByDate(c.Request.Context(), c.Param("package"), c.Query("date"))
	h.list(c, "list_by_date", list, err)
}

func (h *Handler) ListActive(c *gin.Context) {
	list, err := h.svc.ListActive(c.Request.Context(), c.Param("package"))
	h.list(c, "list_active", list, err)
}

func (h *Handler) ListActiveInRange(c *gin.Context) {
	list, err := h.svc.ListActiveInRange(c.Request.Context(), c.Param("package"), c.Query("start_date"), c.Query("end_date"))
	h.list(c, "list_active_in_range", list, err)
}

func (h *Handler) ListRecent(c *gin.Context) {
	list, err := h.svc.ListRecent(c.Request.Context(), c.Param("package"))
	h.list(c, "list_recent", list, err)
}

func (h *Handler) DeleteAll(c *gin.Context) {
	pkg := c.Param("package")
	n, err := h.svc.DeleteAll(c.Request.Context(), pkg)
	if err != nil {
		h.fail(c, "delete_all", err)
		return
	}
	logger.Infof("deleted %d feature toggles from package %q", n, pkg)
	observe("delete_all", nil)
	c.JSON(http.StatusOK, gin.H{"message": "All feature toggles deleted successfully"})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("package"), c.Param("id")); err != nil {
		h.fail(c, "delete", err)
		return
	}
	observe("delete", nil)
	c.JSON(http.StatusOK, gin.H{"message": "Feature toggle deleted successfully"})
}

// UpdateDates handles PUT .../:id/update-dates. An unreadable body counts as
// an empty one so that an unknown package still reports 404 first.
func (h *Handler) UpdateDates(c *gin.Context) {
	var req updateDatesRequest
	bindLenient(c, "update_dates", &req)
	err := h.svc.UpdateDates(c.Request.Context(), c.Param("package"), c.Param("id"), req.BeginningDate, req.ExpirationDate)
	if err != nil {
		h.fail(c, "update_dates", err)
		return
	}
	observe("update_dates", nil)
	c.JSON(http.StatusOK, gin.H{"message": "Feature toggle dates updated successfully"})
}

func (h *Handler) UpdateInfo(c *gin.Context) {
	var req updateInfoRequest
	bindLenient(c, "update_info", &req)
	err := h.svc.UpdateInfo(c.Request.Context(), c.Param("package"), c.Param("id"), req.Name, req.Description)
	if err != nil {
		h.fail(c, "update_info", err)
		return
	}
	observe("update_info", nil)
	c.JSON(http.StatusOK, gin.H{"message": "Feature toggle info updated successfully"})
}

// bindLenient decodes the body but leaves req empty on failure; the service
// then reports the missing fields after its not-found checks.
func bindLenient(c *gin.Context, op string, req interface{}) {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Debugf("%s %s/%s: ignoring unreadable body: %v", op, c.Param("package"), c.Param("id"), err)
	}
}

func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context(), c.Param("package"))
	if err != nil {
		h.fail(c, "statistics", err)
		return
	}
	observe("statistics", nil)
	c.JSON(http.StatusOK, stats)
}

// Export handles POST .../export.
func (h *Handler) Export(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "export not configured"})
		return
	}
	pkg := c.Param("package")
	list, err := h.svc.List(c.Request.Context(), pkg)
	if err != nil {
		h.fail(c, "export", err)
		return
	}
	key, url, err := h.exporter.Export(c.Request.Context(), pkg, list)
	if err != nil {
		h.fail(c, "export", err)
		return
	}
	observe("export", nil)
	c.JSON(http.StatusOK, gin.H{"message": "Feature toggles exported successfully", "key": key, "url": url})
}

func (h *Handler) list(c *gin.Context, op string, list []*toggle.Toggle, err error) {
	if err != nil {
		h.fail(c, op, err)
		return
	}
	if list == nil {
		list = []*toggle.Toggle{}
	}
	observe(op, nil)
	c.JSON(http.StatusOK, list)
}

// fail maps service errors to status codes. Internal details are logged,
// not returned.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	observe(op, err)
	switch {
	case errors.Is(err, toggle.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, toggle.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, toggle.ErrStoreUnavailable):
		logger.Errorf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not connect to the database"})
	default:
		logger.Errorf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, toggle.ErrValidation):
		outcome = "invalid"
	case errors.Is(err, toggle.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.ToggleOperations.WithLabelValues(op, outcome).Inc()
}
