package api

import (
	"net/http"

	"heartlink/discovery"
)

// PortsHandler lists the serial ports discovery can see
type PortsHandler struct {
	lister PortLister
}

// NewPortsHandler creates a new ports handler
func NewPortsHandler(lister PortLister) *PortsHandler {
	return &PortsHandler{lister: lister}
}

// ServeHTTP handles GET /api/ports
func (h *PortsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ports, err := h.lister.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
		})
		return
	}
	if ports == nil {
		ports = []discovery.Descriptor{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ports": ports,
	})
}
