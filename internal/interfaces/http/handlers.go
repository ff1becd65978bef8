package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/application/service"
)

const (
	detailMalformedBody = "Ungültiger Anfrageinhalt."
	detailMissingBody   = "Ein Gutschein muss angegeben werden."
	detailInternal      = "Ein unerwarteter Fehler ist aufgetreten."

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// maxBodyBytes bounds JSON and form bodies
	maxBodyBytes = 1 << 20
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	voucherService service.VoucherService
	messageService service.MessageService
	alpakaService  service.AlpakaService
	eventService   service.EventService
	idempotency    port.IdempotencyStore
	health         HealthFunc
	config         ServerConfig
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	services Services,
	idempotency port.IdempotencyStore,
	health HealthFunc,
	config ServerConfig,
	logger Logger,
) *Handlers {
	return &Handlers{
		voucherService: services.Voucher,
		messageService: services.Message,
		alpakaService:  services.Alpaka,
		eventService:   services.Event,
		idempotency:    idempotency,
		health:         health,
		config:         config,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Problem is the error body of every failed API call
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// AddVoucherRequest is the body of POST /api/gutscheine
type AddVoucherRequest struct {
	Gutscheinnummer *string  `json:"gutscheinnummer"`
	Kaufdatum       *string  `json:"kaufdatum"`
	Betrag          *float64 `json:"betrag"`
	EingeloestAm    *string  `json:"eingeloestAm"`
	VerkauftAn      *string  `json:"verkauftAn"`
}

// RedeemVoucherRequest is the body of POST /api/gutscheine/:id/einloesen
type RedeemVoucherRequest struct {
	EingeloestAm *string `json:"eingeloestAm"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.config.Version,
	}

	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Data:    response,
				Error:   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// ListVouchers handles GET /api/gutscheine
func (h *Handlers) ListVouchers(c *gin.Context) {
	vouchers, err := h.voucherService.ListVouchers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, vouchers)
}

// AddVoucher handles POST /api/gutscheine
func (h *Handlers) AddVoucher(c *gin.Context) {
	key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	stored := false
	if key != "" {
		claimed, handled := h.claimKey(c, key)
		if handled {
			return
		}
		if claimed {
			defer func() {
				if !stored {
					h.releaseKey(c, key)
				}
			}()
		}
	}

	var req AddVoucherRequest
	present, ok := h.bindJSON(c, &req)
	if !ok {
		return
	}
	if !present {
		writeProblem(c, http.StatusBadRequest, detailMissingBody)
		return
	}

	result, err := h.voucherService.AddVoucher(c.Request.Context(), service.AddVoucherCommand{
		ID:           deref(req.Gutscheinnummer),
		PurchaseDate: deref(req.Kaufdatum),
		Amount:       req.Betrag,
		RedeemedDate: deref(req.EingeloestAm),
		SoldTo:       deref(req.VerkauftAn),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if key != "" && h.idempotency != nil {
		stored = h.remember(c, key, http.StatusCreated, body)
	}

	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// RedeemVoucher handles POST /api/gutscheine/:id/einloesen
func (h *Handlers) RedeemVoucher(c *gin.Context) {
	var req RedeemVoucherRequest
	if _, ok := h.bindJSON(c, &req); !ok {
		return
	}

	result, err := h.voucherService.RedeemVoucher(c.Request.Context(), service.RedeemVoucherCommand{
		ID:           c.Param("id"),
		RedeemedDate: deref(req.EingeloestAm),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportVouchers handles GET /api/gutscheine/export
func (h *Handlers) ExportVouchers(c *gin.Context) {
	data, err := h.voucherService.ExportVouchers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("gutscheine-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ListMessages handles GET /api/messages
func (h *Handlers) ListMessages(c *gin.Context) {
	messages, err := h.messageService.ListMessages(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// DeleteMessage handles DELETE /api/messages/:id
func (h *Handlers) DeleteMessage(c *gin.Context) {
	if err := h.messageService.DeleteMessage(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CountOldMessages handles GET /api/messages/count-old
func (h *Handlers) CountOldMessages(c *gin.Context) {
	result, err := h.messageService.CountOldMessages(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SendMessage handles POST /api/send-message with a form-encoded body
func (h *Handlers) SendMessage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.Request.ParseForm(); err != nil {
		h.logger.Error("Invalid contact form body", "error", err)
		writeProblem(c, http.StatusBadRequest, detailMalformedBody)
		return
	}

	result, err := h.messageService.SendMessage(c.Request.Context(), service.SendMessageCommand{
		Name:            c.Request.PostForm.Get("name"),
		Email:           c.Request.PostForm.Get("email"),
		Message:         c.Request.PostForm.Get("message"),
		PrivacyAccepted: isChecked(c.Request.PostForm.Get("privacyConsent")),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, result.RedirectLocation)
}

// bindJSON binds the body into obj. present is false for an empty or null
// body, which leaves obj untouched. On malformed input it writes the 400
// problem itself and reports ok false.
func (h *Handlers) bindJSON(c *gin.Context, obj interface{}) (present, ok bool) {
	if c.Request.ContentLength == 0 {
		return false, true
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindBodyWith(obj, binding.JSON); err != nil {
		if errors.Is(err, io.EOF) {
			return false, true
		}
		h.logger.Info("Invalid JSON payload", "path", c.FullPath(), "error", err.Error())
		writeProblem(c, http.StatusBadRequest, detailMalformedBody)
		return false, false
	}

	if raw, exists := c.Get(gin.BodyBytesKey); exists {
		if body, _ := raw.([]byte); bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
			return false, true
		}
	}
	return true, true
}

// writeError maps service errors to problem responses
func (h *Handlers) writeError(c *gin.Context, err error) {
	if ve, ok := service.AsValidationError(err); ok {
		writeProblem(c, statusForKind(ve.Kind), ve.Detail)
		return
	}

	h.logger.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	writeProblem(c, http.StatusInternalServerError, detailInternal)
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeProblem(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, Problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

func isChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1":
		return true
	default:
		return false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
