package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/scan-and-go/internal/domain/catalog"
	"github.com/xenking/scan-and-go/internal/domain/order"
	"github.com/xenking/scan-and-go/internal/gateway"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// httpError carries an explicit status and client-facing message.
type httpError struct {
	Code    int
	Message string
}

func (e *httpError) Error() string { return e.Message }

func badRequest(msg string) error {
	return &httpError{Code: http.StatusBadRequest, Message: msg}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data})
}

// writeError maps err to a status code. Unknown errors are logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := classify(err)
	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, code, envelope{Success: false, Message: msg})
}

func classify(err error) (int, string) {
	var (
		he         *httpError
		validation *order.ValidationError
		conflict   *order.ConflictError
		integrity  *order.IntegrityError
	)
	switch {
	case errors.As(err, &he):
		return he.Code, he.Message
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, catalog.ErrStoreNotFound):
		return http.StatusNotFound, "Store not found"
	case errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Error()
	case errors.As(err, &integrity):
		return http.StatusUnprocessableEntity, integrity.Error()
	case errors.Is(err, gateway.ErrDisabled):
		return http.StatusServiceUnavailable, "Payment gateway is not configured"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// decodeBody reads a JSON request body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("invalid JSON body")
	}
	return nil
}
