package handler

import (
	"net/http"
	"strings"
)

type scanExitRequest struct {
	OrderID string `json:"orderId"`
}

type scanExitResponse struct {
	AllowExit bool     `json:"allowExit"`
	Message   string   `json:"message"`
	Order     orderDTO `json:"order"`
}

// ScanExit decides whether the customer holding the scanned order may leave.
// A refusal is still a 200.
func (h *Handler) ScanExit(w http.ResponseWriter, r *http.Request) {
	var req scanExitRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	id := strings.TrimSpace(req.OrderID)
	if id == "" {
		writeError(w, r, badRequest("Order ID is required"))
		return
	}

	res, err := h.orders.ScanExit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, scanExitResponse{
		AllowExit: res.AllowExit,
		Message:   res.Message,
		Order:     toOrder(res.Order),
	})
}
