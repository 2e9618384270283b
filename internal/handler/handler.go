// Package handler exposes the checkout operations as a JSON HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/scan-and-go/internal/domain/analytics"
	"github.com/xenking/scan-and-go/internal/domain/catalog"
	"github.com/xenking/scan-and-go/internal/gateway"
)

// Catalog is the read-only product and store lookup.
type Catalog interface {
	ListStores() []catalog.Store
	GetStore(id string) (catalog.Store, error)
	ListProducts(f catalog.Filter) []catalog.Product
	GetProductByBarcode(code string) (catalog.Product, error)
	SearchProducts(query string) []catalog.Product
}

// Dashboard computes store analytics.
type Dashboard interface {
	Dashboard(ctx context.Context, storeID string) (analytics.Metrics, error)
}

// PaymentGateway creates hosted checkout sessions.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error)
}

// Handler serves the API routes. Business rules live in the order service.
type Handler struct {
	catalog   Catalog
	orders    OrderService
	dashboard Dashboard
	payments  PaymentGateway
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	c Catalog,
	orders OrderService,
	dashboard Dashboard,
	payments PaymentGateway,
) *Handler {
	return &Handler{
		catalog:   c,
		orders:    orders,
		dashboard: dashboard,
		payments:  payments,
	}
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stores", h.ListStores)
	mux.HandleFunc("GET /api/stores/{storeId}", h.GetStore)

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/barcode/{barcode}", h.GetProductByBarcode)
	mux.HandleFunc("GET /api/products/search", h.SearchProducts)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/{orderId}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{orderId}/claim", h.ClaimPayment)
	mux.HandleFunc("POST /api/orders/{orderId}/payment-session", h.CreatePaymentSession)

	mux.HandleFunc("GET /api/cashier/orders", h.ListPendingOrders)
	mux.HandleFunc("POST /api/cashier/orders/{orderId}/verify", h.VerifyOrder)
	mux.HandleFunc("GET /api/cashier/orders/{orderId}/verifications", h.ListVerifications)

	mux.HandleFunc("POST /api/exit/scan", h.ScanExit)

	mux.HandleFunc("GET /api/dashboard", h.Dashboard)

	mux.HandleFunc("/api/", h.NotFound)
}

// NotFound answers unknown API paths with the error envelope.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, &httpError{Code: http.StatusNotFound, Message: "route not found"})
}
