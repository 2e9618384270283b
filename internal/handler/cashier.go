package handler

import (
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/xenking/scan-and-go/internal/domain/order"
)

// ListPendingOrders returns orders awaiting payment or verification,
// newest first, optionally for one ?storeId=.
func (h *Handler) ListPendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListPending(r.Context(), strings.TrimSpace(r.URL.Query().Get("storeId")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrders(orders))
}

type verifyRequest struct {
	CashierID string `json:"cashierId"`
	Verified  *bool  `json:"verified"`
	Notes     string `json:"notes"`
}

type verifyResponse struct {
	Order        orderDTO        `json:"order"`
	Verification verificationDTO `json:"verification"`
}

// VerifyOrder applies a cashier decision and logs it.
func (h *Handler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Verified == nil {
		writeError(w, r, &order.ValidationError{Field: "verified", Reason: "required"})
		return
	}

	res, err := h.orders.VerifyOrder(r.Context(), r.PathValue("orderId"), order.VerifyRequest{
		CashierID: req.CashierID,
		Verified:  *req.Verified,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, verifyResponse{
		Order:        toOrder(res.Order),
		Verification: toVerification(res.Record),
	})
}

// ListVerifications returns the verification log of an order.
func (h *Handler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	recs, err := h.orders.ListVerifications(r.Context(), r.PathValue("orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, lo.Map(recs, func(rec order.VerificationRecord, _ int) verificationDTO {
		return toVerification(rec)
	}))
}
