package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "id-1", r.Header.Get("x-client-id"))
		assert.Equal(t, "secret-1", r.Header.Get("x-client-secret"))
		assert.Equal(t, APIVersion, r.Header.Get("x-api-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":"o-1","payment_session_id":"session_abc"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", ClientID: "id-1", ClientSecret: "secret-1"})
	require.True(t, c.Enabled())

	s, err := c.CreateSession(context.Background(), SessionRequest{
		OrderID:       "o-1",
		Amount:        decimal.NewFromInt(210),
		CustomerPhone: "9876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, &Session{OrderID: "o-1", SessionID: "session_abc"}, s)

	assert.Equal(t, "o-1", got.OrderID)
	assert.InDelta(t, 210.0, got.OrderAmount, 0.001)
	assert.Equal(t, Currency, got.OrderCurrency)
	assert.Equal(t, "9876543210", got.CustomerDetails.CustomerPhone)
}

func TestCreateSession_Disabled(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Enabled())

	_, err := c.CreateSession(context.Background(), SessionRequest{OrderID: "o-1"})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx",
			status: http.StatusUnauthorized,
			body:   `{"message":"authentication failed"}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusUnauthorized, se.Code)
				assert.Contains(t, se.Body, "authentication failed")
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"payment_session_id":`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "decode response")
			},
		},
		{
			name:   "missing session id",
			status: http.StatusOK,
			body:   `{"order_id":"o-1"}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "no payment session id")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL}).CreateSession(context.Background(), SessionRequest{OrderID: "o-1"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
