package httpapi

import (
	"context"
	"errors"
	"net/http"

	"watersafe/internal/models"
	"watersafe/internal/service"

	"go.uber.org/zap"
)

// SensorAPI SensorHandler 依赖的服务接口
type SensorAPI interface {
	SubmitReading(ctx context.Context, req *service.SubmitReadingRequest) (*models.Reading, error)
	LatestByPin(ctx context.Context, pin string) (*service.PinValue, error)
	LatestWithStatus(ctx context.Context) (*service.ReadingStatus, error)
	History(ctx context.Context) ([]models.Reading, error)
}

// SensorHandler 传感器数据 API Handler
type SensorHandler struct {
	svc    SensorAPI
	logger *zap.Logger
}

// NewSensorHandler 创建传感器数据 Handler
func NewSensorHandler(svc SensorAPI, logger *zap.Logger) *SensorHandler {
	return &SensorHandler{
		svc:    svc,
		logger: logger,
	}
}

// SubmitReading POST /api/sensordata
func (h *SensorHandler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.SubmitReadingRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Incomplete sensor data"})
		return
	}

	reading, err := h.svc.SubmitReading(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrIncompleteData) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Incomplete sensor data"})
			return
		}
		h.logger.Error("Error saving sensor data", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Data saved",
		"data":    reading,
	})
}

// LatestByPin GET /api/latest/:pin
func (h *SensorHandler) LatestByPin(w http.ResponseWriter, r *http.Request, pin string) {
	ctx := r.Context()

	pv, err := h.svc.LatestByPin(ctx, pin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidChannel):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid pin"})
		case errors.Is(err, service.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No data found for this pin"})
		default:
			h.logger.Error("Error fetching latest pin value",
				zap.String("pin", pin),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, pv)
}

// LatestData GET /api/latest-data
func (h *SensorHandler) LatestData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rs, err := h.svc.LatestWithStatus(ctx)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "No data"})
			return
		}
		h.logger.Error("Error fetching latest reading", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, rs)
}

// History GET /api/history
func (h *SensorHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := h.svc.History(ctx)
	if err != nil {
		h.logger.Error("Error retrieving history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to retrieve data"})
		return
	}

	writeJSON(w, http.StatusOK, history)
}
