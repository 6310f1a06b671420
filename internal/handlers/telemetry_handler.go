package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"satellite-telemetry/internal/export"
	"satellite-telemetry/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TelemetryHandler struct {
	service service.TelemetryService
	logger  *zap.Logger
}

func NewTelemetryHandler(service service.TelemetryService, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{service: service, logger: logger}
}

func (h *TelemetryHandler) Register(r gin.IRouter) {
	group := r.Group("/telemetry")
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/export", h.Export)
	group.GET("/:id", h.Get)
	group.DELETE("/:id", h.Delete)
}

// Create handles POST /telemetry
func (h *TelemetryHandler) Create(c *gin.Context) {
	var req service.CreateTelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadPayload(c, err)
		return
	}

	record, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/telemetry/%d", record.ID))
	c.JSON(http.StatusCreated, record)
}

// List handles GET /telemetry?page=&size=&satelliteId=&status=
func (h *TelemetryHandler) List(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), service.ListQuery{
		Page:        c.Query("page"),
		Size:        c.Query("size"),
		SatelliteID: c.Query("satelliteId"),
		Status:      c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *TelemetryHandler) Get(c *gin.Context) {
	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *TelemetryHandler) Delete(c *gin.Context) {
	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Export handles GET /telemetry/export?format=csv|xlsx&satelliteId=&status=
func (h *TelemetryHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_format",
			Message: err.Error(),
		})
		return
	}

	records, total, err := h.service.Export(c.Request.Context(), c.Query("satelliteId"), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if format == export.FormatExcel {
		err = export.WriteExcel(&buf, records)
	} else {
		err = export.WriteCSV(&buf, records)
	}
	if err != nil {
		h.logger.Error("Failed to render export", zap.String("format", format), zap.Error(err))
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("telemetry_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
