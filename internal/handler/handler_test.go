package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/scan-and-go/internal/domain/analytics"
	"github.com/xenking/scan-and-go/internal/domain/catalog"
	"github.com/xenking/scan-and-go/internal/domain/order"
	"github.com/xenking/scan-and-go/internal/gateway"
	"github.com/xenking/scan-and-go/internal/storage/memory"
)

// --- Test wiring ---

type stubGateway struct {
	session *gateway.Session
	err     error
	got     gateway.SessionRequest
}

func (g *stubGateway) CreateSession(_ context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	g.got = req
	return g.session, g.err
}

type failingDashboard struct{}

func (failingDashboard) Dashboard(context.Context, string) (analytics.Metrics, error) {
	return analytics.Metrics{}, errors.New("db down")
}

type env struct {
	mux  *http.ServeMux
	repo *memory.OrderRepository
	gw   *stubGateway
}

func newEnv(t *testing.T) *env {
	t.Helper()
	c, err := catalog.New(
		[]catalog.Store{{
			ID:            "S1",
			Name:          "Test Mart",
			UPIID:         "testmart@upi",
			UPIQRTemplate: "upi://pay?pa=testmart@upi&am={amount}&tn={orderId}",
		}},
		[]catalog.Product{
			{ID: "P1", Barcode: "111", Name: "Masala Tea", Brand: "Tata", Category: "Beverages", Price: decimal.NewFromInt(100)},
			{ID: "P2", Barcode: "222", Name: "Basmati Rice", Brand: "India Gate", Category: "Grocery", Price: decimal.NewFromInt(250)},
		},
	)
	require.NoError(t, err)

	repo := memory.NewOrderRepository()
	svc, err := order.NewService(c, repo)
	require.NoError(t, err)

	gw := &stubGateway{session: &gateway.Session{OrderID: "x", SessionID: "session_1"}}
	h := NewHandler(c, svc, analytics.NewAggregator(repo, nil), gw)

	mux := http.NewServeMux()
	h.Register(mux)
	return &env{mux: mux, repo: repo, gw: gw}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e *env) do(t *testing.T, method, path, body string) (int, response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (e *env) createOrder(t *testing.T) orderDTO {
	t.Helper()
	code, resp := e.do(t, http.MethodPost, "/api/orders",
		`{"storeId":"S1","items":[{"productId":"P1","quantity":2}],"customerPhone":"9876543210"}`)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	return decode[createOrderResponse](t, resp.Data).Order
}

// --- Catalog ---

func TestCatalogRoutes(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantLen  int
		wantMsg  string
	}{
		{name: "stores", path: "/api/stores", wantCode: http.StatusOK, wantLen: 1},
		{name: "products", path: "/api/products", wantCode: http.StatusOK, wantLen: 2},
		{name: "products by category", path: "/api/products?category=grocery", wantCode: http.StatusOK, wantLen: 1},
		{name: "search", path: "/api/products/search?q=TEA", wantCode: http.StatusOK, wantLen: 1},
		{name: "search brand", path: "/api/products/search?q=india", wantCode: http.StatusOK, wantLen: 1},
		{name: "search without query", path: "/api/products/search", wantCode: http.StatusBadRequest, wantMsg: "Search query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := e.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMsg != "" {
				assert.False(t, resp.Success)
				assert.Equal(t, tt.wantMsg, resp.Message)
				return
			}
			assert.True(t, resp.Success)
			assert.Len(t, decode[[]json.RawMessage](t, resp.Data), tt.wantLen)
		})
	}
}

func TestGetStoreAndBarcode(t *testing.T) {
	e := newEnv(t)

	code, resp := e.do(t, http.MethodGet, "/api/stores/S1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "testmart@upi", decode[storeDTO](t, resp.Data).UPIID)

	code, resp = e.do(t, http.MethodGet, "/api/stores/S9", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Store not found", resp.Message)

	code, resp = e.do(t, http.MethodGet, "/api/products/barcode/222", "")
	require.Equal(t, http.StatusOK, code)
	p := decode[productDTO](t, resp.Data)
	assert.Equal(t, "P2", p.ID)
	assert.InDelta(t, 250.0, p.Price, 0.001)

	code, _ = e.do(t, http.MethodGet, "/api/products/barcode/999", "")
	assert.Equal(t, http.StatusNotFound, code)
}

// --- Orders ---

func TestCreateOrder(t *testing.T) {
	e := newEnv(t)

	code, resp := e.do(t, http.MethodPost, "/api/orders",
		`{"storeId":"S1","items":[{"productId":"P1","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, code, resp.Message)

	got := decode[createOrderResponse](t, resp.Data)
	assert.InDelta(t, 200.0, got.Order.Subtotal, 0.001)
	assert.InDelta(t, 10.0, got.Order.Tax, 0.001)
	assert.InDelta(t, 210.0, got.Order.Total, 0.001)
	assert.Equal(t, "pending_payment", got.Order.Status)
	assert.Equal(t, order.AnonymousCustomer, got.Order.CustomerPhone)
	require.Len(t, got.Order.Items, 1)
	assert.Equal(t, "Masala Tea", got.Order.Items[0].Name)

	require.NotNil(t, got.Payment)
	assert.Equal(t, "testmart@upi", got.Payment.UPIID)
	assert.Equal(t, "upi://pay?pa=testmart@upi&am=210.00&tn="+got.Order.ID, got.Payment.QRCode)
	assert.InDelta(t, 210.0, got.Payment.Amount, 0.001)
}

func TestCreateOrder_UnknownStoreHasNoPayment(t *testing.T) {
	e := newEnv(t)

	code, resp := e.do(t, http.MethodPost, "/api/orders", `{"storeId":"S9","items":[{"productId":"P1","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `null`, string(decode[map[string]json.RawMessage](t, resp.Data)["payment"]))
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{name: "malformed json", body: `{"storeId":`, wantCode: http.StatusBadRequest, wantMsg: "invalid JSON body"},
		{name: "missing store", body: `{"items":[{"productId":"P1","quantity":1}]}`, wantCode: http.StatusBadRequest, wantMsg: "storeId: required"},
		{name: "missing items", body: `{"storeId":"S1"}`, wantCode: http.StatusBadRequest, wantMsg: "items: required"},
		{name: "bad quantity", body: `{"storeId":"S1","items":[{"productId":"P1","quantity":0}]}`, wantCode: http.StatusBadRequest},
		{name: "unknown product", body: `{"storeId":"S1","items":[{"productId":"P1","quantity":1},{"productId":"P404","quantity":1}]}`, wantCode: http.StatusUnprocessableEntity, wantMsg: "product P404 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			code, resp := e.do(t, http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, resp.Success)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Message)
			}
			assert.Zero(t, e.repo.Len(), "nothing persisted")
		})
	}
}

func TestGetOrder(t *testing.T) {
	e := newEnv(t)
	created := e.createOrder(t)

	code, resp := e.do(t, http.MethodGet, "/api/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.ID, decode[orderDTO](t, resp.Data).ID)

	code, resp = e.do(t, http.MethodGet, "/api/orders/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found", resp.Message)
}

func TestClaimPayment(t *testing.T) {
	e := newEnv(t)
	created := e.createOrder(t)
	path := "/api/orders/" + created.ID + "/claim"

	code, resp := e.do(t, http.MethodPost, path, `{"utrLast4":"4321","paidAmount":210}`)
	require.Equal(t, http.StatusOK, code, resp.Message)
	got := decode[orderDTO](t, resp.Data)
	assert.Equal(t, "payment_claimed", got.Status)
	assert.Equal(t, "4321", got.UTRLast4)
	require.NotNil(t, got.PaidAmount)
	assert.InDelta(t, 210.0, *got.PaidAmount, 0.001)
	assert.NotNil(t, got.ClaimedAt)

	code, resp = e.do(t, http.MethodPost, path, `{"utrLast4":"4321","paidAmount":210}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, resp.Message, "already processed")

	code, _ = e.do(t, http.MethodPost, "/api/orders/missing/claim", `{}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreatePaymentSession(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		e := newEnv(t)
		created := e.createOrder(t)

		code, resp := e.do(t, http.MethodPost, "/api/orders/"+created.ID+"/payment-session", "")
		require.Equal(t, http.StatusOK, code, resp.Message)
		assert.Equal(t, "session_1", decode[gateway.Session](t, resp.Data).SessionID)
		assert.Equal(t, created.ID, e.gw.got.OrderID)
		assert.True(t, decimal.NewFromInt(210).Equal(e.gw.got.Amount))
	})

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "disabled", err: gateway.ErrDisabled, wantCode: http.StatusServiceUnavailable},
		{name: "upstream", err: &gateway.StatusError{Code: http.StatusUnauthorized}, wantCode: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.gw.err = tt.err
			created := e.createOrder(t)

			code, resp := e.do(t, http.MethodPost, "/api/orders/"+created.ID+"/payment-session", "")
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, resp.Success)
		})
	}

	t.Run("not pending", func(t *testing.T) {
		e := newEnv(t)
		created := e.createOrder(t)
		code, _ := e.do(t, http.MethodPost, "/api/orders/"+created.ID+"/claim", `{"utrLast4":"1111","paidAmount":210}`)
		require.Equal(t, http.StatusOK, code)

		code, _ = e.do(t, http.MethodPost, "/api/orders/"+created.ID+"/payment-session", "")
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("unknown order", func(t *testing.T) {
		e := newEnv(t)
		code, _ := e.do(t, http.MethodPost, "/api/orders/missing/payment-session", "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}

// --- Cashier and exit ---

func TestVerifyOrder(t *testing.T) {
	e := newEnv(t)
	created := e.createOrder(t)
	path := "/api/cashier/orders/" + created.ID + "/verify"

	code, resp := e.do(t, http.MethodPost, path, `{"notes":"no decision"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "verified: required", resp.Message)

	code, resp = e.do(t, http.MethodPost, path, `{"verified":true,"notes":"ok"}`)
	require.Equal(t, http.StatusOK, code, resp.Message)
	got := decode[verifyResponse](t, resp.Data)
	assert.Equal(t, "verified", got.Order.Status)
	assert.Equal(t, order.DefaultCashier, got.Order.VerifiedBy)
	assert.Equal(t, order.DefaultCashier, got.Verification.CashierID)
	assert.True(t, got.Verification.Verified)

	code, resp = e.do(t, http.MethodPost, path, `{"cashierId":"c-7","verified":false,"notes":"amount mismatch"}`)
	require.Equal(t, http.StatusOK, code)
	got = decode[verifyResponse](t, resp.Data)
	assert.Equal(t, "rejected", got.Order.Status)
	assert.Equal(t, "amount mismatch", got.Order.RejectionReason)

	code, resp = e.do(t, http.MethodGet, "/api/cashier/orders/"+created.ID+"/verifications", "")
	require.Equal(t, http.StatusOK, code)
	recs := decode[[]verificationDTO](t, resp.Data)
	require.Len(t, recs, 2)
	assert.Equal(t, "c-7", recs[1].CashierID)

	code, _ = e.do(t, http.MethodPost, "/api/cashier/orders/missing/verify", `{"verified":true}`)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(t, http.MethodGet, "/api/cashier/orders/missing/verifications", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListPendingOrders(t *testing.T) {
	e := newEnv(t)
	first := e.createOrder(t)
	second := e.createOrder(t)
	done := e.createOrder(t)
	code, _ := e.do(t, http.MethodPost, "/api/cashier/orders/"+done.ID+"/verify", `{"verified":true}`)
	require.Equal(t, http.StatusOK, code)

	code, resp := e.do(t, http.MethodGet, "/api/cashier/orders?storeId=S1", "")
	require.Equal(t, http.StatusOK, code)
	ids := map[string]bool{}
	for _, o := range decode[[]orderDTO](t, resp.Data) {
		ids[o.ID] = true
	}
	assert.Equal(t, map[string]bool{first.ID: true, second.ID: true}, ids)

	code, resp = e.do(t, http.MethodGet, "/api/cashier/orders?storeId=S9", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]orderDTO](t, resp.Data))
}

func TestScanExit(t *testing.T) {
	e := newEnv(t)

	code, resp := e.do(t, http.MethodPost, "/api/exit/scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Order ID is required", resp.Message)

	code, _ = e.do(t, http.MethodPost, "/api/exit/scan", `{"orderId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodPost, "/api/exit/scan", ``)
	assert.Equal(t, http.StatusBadRequest, code)

	created := e.createOrder(t)
	body := `{"orderId":"` + created.ID + `"}`

	code, resp = e.do(t, http.MethodPost, "/api/exit/scan", body)
	require.Equal(t, http.StatusOK, code)
	got := decode[scanExitResponse](t, resp.Data)
	assert.False(t, got.AllowExit)
	assert.Equal(t, order.MessagePaymentNotCompleted, got.Message)
	assert.Equal(t, "pending_payment", got.Order.Status)
}

// TestCheckoutFlow walks one order through the whole lifecycle.
func TestCheckoutFlow(t *testing.T) {
	e := newEnv(t)
	created := e.createOrder(t)
	id := created.ID

	code, _ := e.do(t, http.MethodPost, "/api/orders/"+id+"/claim", `{"utrLast4":"9876","paidAmount":"210"}`)
	require.Equal(t, http.StatusOK, code)

	code, resp := e.do(t, http.MethodPost, "/api/exit/scan", `{"orderId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, order.MessageVerificationPending, decode[scanExitResponse](t, resp.Data).Message)

	code, _ = e.do(t, http.MethodPost, "/api/cashier/orders/"+id+"/verify", `{"cashierId":"c-1","verified":true}`)
	require.Equal(t, http.StatusOK, code)

	code, resp = e.do(t, http.MethodPost, "/api/exit/scan", `{"orderId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, code)
	exit := decode[scanExitResponse](t, resp.Data)
	assert.True(t, exit.AllowExit)
	assert.Equal(t, order.MessageExitAllowed, exit.Message)
	assert.Equal(t, "completed", exit.Order.Status)
	assert.NotNil(t, exit.Order.CompletedAt)

	code, resp = e.do(t, http.MethodPost, "/api/exit/scan", `{"orderId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, code)
	exit = decode[scanExitResponse](t, resp.Data)
	assert.False(t, exit.AllowExit)
	assert.Equal(t, order.MessageInvalidStatus, exit.Message)

	code, resp = e.do(t, http.MethodGet, "/api/dashboard?storeId=S1", "")
	require.Equal(t, http.StatusOK, code)
	m := decode[metricsDTO](t, resp.Data)
	assert.Equal(t, 1, m.TotalOrders)
	assert.Equal(t, 1, m.CompletedOrders)
	assert.Equal(t, 0, m.PendingOrders)
	assert.InDelta(t, 210.0, m.TotalRevenue, 0.001)
	assert.InDelta(t, 210.0, m.AverageOrderValue, 0.001)
}

func TestDashboardError(t *testing.T) {
	h := NewHandler(nil, nil, failingDashboard{}, nil)
	mux := http.NewServeMux()
	h.Register(mux)
	e := &env{mux: mux}

	code, resp := e.do(t, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", resp.Message)
}

func TestUnknownRoute(t *testing.T) {
	e := newEnv(t)
	code, resp := e.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
}
