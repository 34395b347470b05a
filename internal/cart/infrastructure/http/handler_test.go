package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shop-cart-service/internal/cart/application"
	catalog "github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	"github.com/dmehra2102/shop-cart-service/internal/storage/memory"
	"github.com/dmehra2102/shop-cart-service/pkg/logging"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New(catalog.Product{ID: "X", Name: "Tee", Price: money.MustParse("199.00")})
	svc := application.NewService(logging.Discard(), store.Carts(), application.NewPriceResolver(store))
	srv := httptest.NewServer(NewHandler(logging.Discard(), svc).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func cartOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data: %v", body)
	c, ok := data["cart"].(map[string]any)
	require.True(t, ok, "missing cart: %v", data)
	return c
}

func TestAddItemDefaultsAndWireFormat(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/items", `{"phone":"+91","productId":"X"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	c := cartOf(t, body)
	assert.Equal(t, float64(1), c["totalItems"])
	assert.Equal(t, map[string]any{"$numberDecimal": "199.00"}, c["totalAmount"])

	items := c["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "M", item["size"])
	assert.Equal(t, "X", item["product"])
}

func TestGetCartMissingIsEmptyStub(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/?phone=%2B91", "")
	require.Equal(t, http.StatusOK, status)
	c := cartOf(t, body)
	assert.Empty(t, c["items"])
	assert.Equal(t, float64(0), c["totalItems"])
}

func TestErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing phone", http.MethodGet, "/", "", http.StatusBadRequest, "VALIDATION"},
		{"bad json", http.MethodPost, "/items", `{`, http.StatusBadRequest, "VALIDATION"},
		{"unknown product", http.MethodPost, "/items", `{"phone":"+91","productId":"nope"}`, http.StatusNotFound, "NOT_FOUND"},
		{"update without quantity", http.MethodPut, "/items", `{"phone":"+91","productId":"X"}`, http.StatusBadRequest, "VALIDATION"},
		{"clear missing cart", http.MethodDelete, "/clear", `{"phone":"+99"}`, http.StatusNotFound, "NOT_FOUND"},
		{"quantity over cap", http.MethodPost, "/items", `{"phone":"+91","productId":"X","quantity":10001}`, http.StatusBadRequest, "VALIDATION"},
		{"create without phone", http.MethodPost, "/", `{}`, http.StatusBadRequest, "VALIDATION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, srv, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, false, body["retryable"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestUpdateRemoveDeleteFlow(t *testing.T) {
	srv := newTestServer(t)

	_, _ = do(t, srv, http.MethodPost, "/items", `{"phone":"+91","productId":"X","quantity":2,"size":"L"}`)

	status, body := do(t, srv, http.MethodPut, "/items", `{"phone":"+91","productId":"X","size":"L","quantity":5}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), cartOf(t, body)["totalItems"])

	status, body = do(t, srv, http.MethodDelete, "/items", `{"phone":"+91","productId":"X"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, cartOf(t, body)["items"])

	status, body = do(t, srv, http.MethodDelete, "/delete", `{"phone":"+91"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cart deleted", body["message"])

	status, _ = do(t, srv, http.MethodDelete, "/delete", `{"phone":"+91"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateCartStoresEmptyCart(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/", `{"phone":"+92"}`)
	require.Equal(t, http.StatusOK, status)
	c := cartOf(t, body)
	assert.Equal(t, "+92", c["phone"])
	assert.Empty(t, c["items"])

	// The cart now exists, so clearing it succeeds.
	status, _ = do(t, srv, http.MethodDelete, "/clear", `{"phone":"+92"}`)
	assert.Equal(t, http.StatusOK, status)
}
