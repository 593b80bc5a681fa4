package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"heartlink/link"
)

// defaultAction is used when a haptic request names no action
const defaultAction = "match"

// HapticRequest is the body of POST /api/haptic
type HapticRequest struct {
	Action *string `json:"action"`
}

// HapticResponse reports the outcome of a haptic request
type HapticResponse struct {
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	Action            string `json:"action"`
	HardwareConnected *bool  `json:"hardware_connected,omitempty"`
}

// HapticHandler forwards frontend actions to the device
type HapticHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewHapticHandler creates a new haptic handler
func NewHapticHandler(dispatcher Dispatcher, logger *slog.Logger) *HapticHandler {
	return &HapticHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ServeHTTP handles POST /api/haptic
func (h *HapticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req HapticRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, HapticResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	action := defaultAction
	if req.Action != nil {
		action = *req.Action
	}

	sent, err := h.dispatcher.Dispatch(action)
	if errors.Is(err, link.ErrInvalidAction) {
		writeJSON(w, http.StatusBadRequest, HapticResponse{
			Error:  err.Error(),
			Action: action,
		})
		return
	}
	if err != nil {
		h.logger.Error("Haptic dispatch failed", "action", action, "error", err)
		writeJSON(w, http.StatusInternalServerError, HapticResponse{
			Error:  err.Error(),
			Action: action,
		})
		return
	}

	if !sent {
		writeJSON(w, http.StatusServiceUnavailable, HapticResponse{
			Error:             "device unavailable",
			Action:            action,
			HardwareConnected: &sent,
		})
		return
	}

	writeJSON(w, http.StatusOK, HapticResponse{
		Message:           "Haptic notification: " + action,
		Action:            action,
		HardwareConnected: &sent,
	})
}

// NewReconnectHandler makes one connection attempt when the device is down
// and reports the resulting snapshot.
func NewReconnectHandler(device Device, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !device.EnsureConnected() {
			logger.Warn("Reconnect request failed")
			writeJSON(w, http.StatusServiceUnavailable, device.Status())
			return
		}
		writeJSON(w, http.StatusOK, device.Status())
	})
}
