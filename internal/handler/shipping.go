package handler

import (
	"net/http"

	"github.com/go-faster/errors"
)

type zoneResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	States []string `json:"states"`
	Fee    float64  `json:"fee"`
}

// ListShippingZones returns the configured shipping zones.
func (h *Handler) ListShippingZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.zones.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list shipping zones"))
		return
	}
	out := make([]zoneResponse, len(zones))
	for i, z := range zones {
		states := z.States
		if states == nil {
			states = []string{}
		}
		out[i] = zoneResponse{ID: z.ID, Name: z.Name, States: states, Fee: money(z.Fee)}
	}
	writeJSON(w, http.StatusOK, out)
}
