package handler

import (
	"net/http"
	"strings"
)

// Dashboard returns order and revenue metrics, optionally for one ?storeId=.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	m, err := h.dashboard.Dashboard(r.Context(), strings.TrimSpace(r.URL.Query().Get("storeId")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toMetrics(m))
}
