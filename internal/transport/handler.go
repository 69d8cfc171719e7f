package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go-catfood-scanner/internal/capture"
	"go-catfood-scanner/internal/config"
	apperrors "go-catfood-scanner/internal/errors"
	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/internal/repository"
	"go-catfood-scanner/internal/service"
	"go-catfood-scanner/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHeader carries the opaque id of the acting user
const UserHeader = "X-User-ID"

// Catalogue is the read side of the catalogue exposed over HTTP
type Catalogue interface {
	GetItem(ctx context.Context, id string) (*models.CatalogueItem, error)
	FindItemByBarcode(ctx context.Context, barcode string) (*models.CatalogueItem, error)
	SearchItems(ctx context.Context, query string, limit int) ([]models.CatalogueItem, error)
	LinkedIngredients(ctx context.Context, itemID string) ([]repository.LinkedName, error)
	LinkedAdditives(ctx context.Context, itemID string) ([]repository.LinkedName, error)
	GetReport(ctx context.Context, itemID string) (*repository.StoredReport, error)
}

// MetricsSource exposes pipeline counters
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

// Dependencies of the HTTP handler. Catalogue, Metrics and Health may be nil.
type Dependencies struct {
	Sessions  *service.Registry
	Hub       *Hub
	Catalogue Catalogue
	Metrics   MetricsSource
	Health    func(ctx context.Context) error
}

// ItemDetail is a catalogue item with its links and stored report
type ItemDetail struct {
	Item        models.CatalogueItem     `json:"item"`
	Ingredients []repository.LinkedName  `json:"ingredients"`
	Additives   []repository.LinkedName  `json:"additives"`
	Report      *repository.StoredReport `json:"report,omitempty"`
}

type handler struct {
	deps Dependencies
	cfg  *config.Config
}

func NewHandler(deps Dependencies, cfg *config.Config) http.Handler {
	h := &handler{deps: deps, cfg: cfg}
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/metrics", h.metrics)

	r.POST("/sessions", h.createSession)
	s := r.Group("/sessions/:id")
	{
		s.GET("", h.withSession(h.snapshot))
		s.DELETE("", h.closeSession)
		s.GET("/ws", h.websocket)

		s.POST("/start", h.intent(func(ss *service.Session) { ss.StartScan() }))
		s.POST("/mode", h.withSession(h.selectMode))
		s.POST("/item", h.withSession(h.selectItem))
		s.POST("/scan-label", h.intent(func(ss *service.Session) { ss.ScanLabel() }))
		s.POST("/back", h.intent(func(ss *service.Session) { ss.GoBack() }))
		s.POST("/reset", h.intent(func(ss *service.Session) { ss.Reset() }))

		s.POST("/camera/ready", h.intent(func(ss *service.Session) { ss.CameraReady() }))
		s.POST("/camera/frame", h.withSession(h.pushFrame))
		s.POST("/camera/barcode", h.withSession(h.pushBarcode))

		s.POST("/photo/capture", h.withSession(h.capturePhoto))
		s.POST("/photo/retake", h.intent(func(ss *service.Session) { ss.RetakePhoto() }))
		s.POST("/photo/cancel", h.intent(func(ss *service.Session) { ss.CancelPreview() }))
		s.POST("/photo/confirm", h.withSession(h.confirmPhoto))

		s.POST("/report", h.withSession(h.generateReport))
		s.POST("/report/close", h.intent(func(ss *service.Session) { ss.CloseResultOverlay() }))
		s.POST("/associations", h.withSession(h.saveAssociations))
	}

	r.GET("/catalogue/search", h.searchCatalogue)
	r.GET("/catalogue/items/:itemID", h.getItem)
	r.GET("/catalogue/barcode/:code", h.findByBarcode)

	return r
}

type sessionHandler func(c *gin.Context, s *service.Session)

func (h *handler) withSession(fn sessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.deps.Sessions.Get(c.Param("id"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "unknown session", err)
			return
		}
		fn(c, s)
	}
}

// intent wraps a synchronous session operation and answers with the snapshot
func (h *handler) intent(fn func(s *service.Session)) gin.HandlerFunc {
	return h.withSession(func(c *gin.Context, s *service.Session) {
		fn(s)
		c.JSON(http.StatusOK, s.Snapshot())
	})
}

func (h *handler) timeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

func (h *handler) createSession(c *gin.Context) {
	s := h.deps.Sessions.Create(c.GetHeader(UserHeader))
	c.JSON(http.StatusCreated, models.SessionResponse{SessionID: s.ID()})
}

func (h *handler) closeSession(c *gin.Context) {
	if err := h.deps.Sessions.Close(c.Param("id")); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "unknown session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) snapshot(c *gin.Context, s *service.Session) {
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *handler) websocket(c *gin.Context) {
	s, err := h.deps.Sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "unknown session", err)
		return
	}
	if h.deps.Hub == nil {
		respondError(c, http.StatusServiceUnavailable, "event stream unavailable", errors.New("no hub configured"))
		return
	}
	if err := h.deps.Hub.Serve(c.Writer, c.Request, s); err != nil {
		// The upgrader has already written the HTTP error
		logger.WithError(err).WithField("session_id", s.ID()).Warn("Websocket upgrade failed")
	}
}

func (h *handler) selectMode(c *gin.Context, s *service.Session) {
	var req models.SelectModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	s.SelectMode(models.ScanMode(req.Mode))
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *handler) selectItem(c *gin.Context, s *service.Session) {
	var req models.SelectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	if _, err := s.SelectItem(ctx, req.ItemID); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "selecting item failed", err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *handler) pushFrame(c *gin.Context, s *service.Session) {
	frame, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "reading frame failed", err)
		return
	}
	if len(frame) == 0 {
		respondError(c, http.StatusBadRequest, "invalid frame", errors.New("empty body"))
		return
	}
	s.PushFrame(frame)
	c.Status(http.StatusAccepted)
}

func (h *handler) pushBarcode(c *gin.Context, s *service.Session) {
	var req models.BarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	forwarded := s.PushBarcode(models.BarcodeScanEvent{
		Payload:          req.Payload,
		Symbology:        req.Symbology,
		ObservedAtMillis: req.ObservedAtMillis,
	})
	c.JSON(http.StatusAccepted, gin.H{"forwarded": forwarded})
}

func (h *handler) capturePhoto(c *gin.Context, s *service.Session) {
	var req models.CaptureRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	h.respondPipeline(c, s, "capture failed", s.CapturePhoto(ctx, req.Zoom, req.Region))
}

func (h *handler) confirmPhoto(c *gin.Context, s *service.Session) {
	ctx, cancel := h.timeout(c)
	defer cancel()

	h.respondPipeline(c, s, "recognition failed", s.ConfirmPhoto(ctx))
}

func (h *handler) generateReport(c *gin.Context, s *service.Session) {
	var req models.GenerateReportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	h.respondPipeline(c, s, "report generation failed", s.GenerateReport(ctx, req.AssociateSelectedItem))
}

func (h *handler) saveAssociations(c *gin.Context, s *service.Session) {
	ctx, cancel := h.timeout(c)
	defer cancel()

	summary, err := s.SaveAssociations(ctx)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "saving associations failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// respondPipeline maps an orchestrator result onto a response. The notice for
// a failure is already in the snapshot, so failures still return it.
func (h *handler) respondPipeline(c *gin.Context, s *service.Session, message string, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, s.Snapshot())
	case errors.Is(err, capture.ErrAbandoned):
		c.JSON(http.StatusConflict, s.Snapshot())
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"session_id": s.ID(),
			"path":       c.Request.URL.Path,
		}).Warn(message)
		c.JSON(apperrors.GetStatusCode(err), s.Snapshot())
	}
}

func (h *handler) searchCatalogue(c *gin.Context) {
	if h.deps.Catalogue == nil {
		respondError(c, http.StatusServiceUnavailable, "catalogue unavailable", errors.New("no catalogue configured"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	ctx, cancel := h.timeout(c)
	defer cancel()

	items, err := h.deps.Catalogue.SearchItems(ctx, c.Query("q"), limit)
	if errors.Is(err, repository.ErrEmptyQuery) {
		respondError(c, http.StatusBadRequest, "invalid query", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "catalogue search failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handler) getItem(c *gin.Context) {
	if h.deps.Catalogue == nil {
		respondError(c, http.StatusServiceUnavailable, "catalogue unavailable", errors.New("no catalogue configured"))
		return
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	itemID := c.Param("itemID")
	item, err := h.deps.Catalogue.GetItem(ctx, itemID)
	if err != nil {
		respondCatalogueError(c, err)
		return
	}

	detail := ItemDetail{Item: *item}
	if detail.Ingredients, err = h.deps.Catalogue.LinkedIngredients(ctx, itemID); err != nil {
		respondCatalogueError(c, err)
		return
	}
	if detail.Additives, err = h.deps.Catalogue.LinkedAdditives(ctx, itemID); err != nil {
		respondCatalogueError(c, err)
		return
	}
	report, err := h.deps.Catalogue.GetReport(ctx, itemID)
	switch {
	case err == nil:
		detail.Report = report
	case !errors.Is(err, repository.ErrReportNotFound):
		respondCatalogueError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *handler) findByBarcode(c *gin.Context) {
	if h.deps.Catalogue == nil {
		respondError(c, http.StatusServiceUnavailable, "catalogue unavailable", errors.New("no catalogue configured"))
		return
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	item, err := h.deps.Catalogue.FindItemByBarcode(ctx, c.Param("code"))
	if err != nil {
		respondCatalogueError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func respondCatalogueError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrItemNotFound) {
		respondError(c, http.StatusNotFound, "catalogue item not found", err)
		return
	}
	respondError(c, http.StatusInternalServerError, "catalogue lookup failed", err)
}

func (h *handler) healthCheck(c *gin.Context) {
	status, code := "available", http.StatusOK
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health(ctx); err != nil {
			logger.WithError(err).Warn("Health check failed")
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":   status,
		"version":  "1.0.0",
		"sessions": h.deps.Sessions.Len(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) metrics(c *gin.Context) {
	if h.deps.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.deps.Metrics.GetMetrics())
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
