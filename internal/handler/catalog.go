package handler

import (
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/xenking/scan-and-go/internal/domain/catalog"
)

// ListStores returns every store.
func (h *Handler) ListStores(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, lo.Map(h.catalog.ListStores(), func(s catalog.Store, _ int) storeDTO {
		return toStore(s)
	}))
}

// GetStore returns one store.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	s, err := h.catalog.GetStore(r.PathValue("storeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toStore(s))
}

// ListProducts returns the catalog, optionally narrowed by ?category=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := catalog.Filter{Category: strings.TrimSpace(r.URL.Query().Get("category"))}
	writeData(w, http.StatusOK, toProducts(h.catalog.ListProducts(f)))
}

// GetProductByBarcode looks a product up by its scanned barcode.
func (h *Handler) GetProductByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProductByBarcode(r.PathValue("barcode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toProduct(p))
}

// SearchProducts matches ?q= against name, brand and category.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, badRequest("Search query is required"))
		return
	}
	writeData(w, http.StatusOK, toProducts(h.catalog.SearchProducts(q)))
}
