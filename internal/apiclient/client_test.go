package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pizzeria-pos/storefront/internal/cart"
	"github.com/pizzeria-pos/storefront/internal/order"
	"github.com/pizzeria-pos/storefront/internal/tracking"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second, nil)
	require.NoError(t, err)
	return c
}

func testLines() []cart.Line {
	return []cart.Line{{Name: "Margherita", Size: "small", UnitPrice: decimal.RequireFromString("8.5"), Toppings: []string{"tomate"}}}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8000", time.Second, nil)
	assert.Error(t, err)
}

func TestFetchMenu(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pizzas/menu", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(requestIDHeader))
		io.WriteString(w, `[{"name":"Margherita","base_toppings":["tomate","mozzarella"],"prices":{"small":8.5,"medium":10,"large":12.5}}]`)
	}))

	menu, err := c.FetchMenu(context.Background())

	require.NoError(t, err)
	require.Len(t, menu, 1)
	assert.Equal(t, "Margherita", menu[0].Name)
	assert.Equal(t, []string{"tomate", "mozzarella"}, menu[0].BaseToppings)
	assert.True(t, menu[0].Prices.Medium.Equal(decimal.NewFromInt(10)))
}

func TestFetchToppings(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/topping/menu", r.URL.Path)
		io.WriteString(w, `[{"name":"champignons","price":1.0},{"name":"jambon","price":1.5}]`)
	}))

	toppings, err := c.FetchToppings(context.Background())

	require.NoError(t, err)
	require.Len(t, toppings, 2)
	assert.True(t, toppings[1].Price.Equal(decimal.RequireFromString("1.5")))
}

func TestBaseURLWithPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/topping/menu", r.URL.Path)
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api", time.Second, nil)
	require.NoError(t, err)
	_, err = c.FetchToppings(context.Background())
	require.NoError(t, err)
}

func TestPlaceOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		pizzas := body["pizzas"].([]any)
		first := pizzas[0].(map[string]any)
		_, hasPrice := first["price"]
		assert.False(t, hasPrice)
		addr := body["customer_address"].(map[string]any)
		assert.Equal(t, "Toulouse", addr["city"])

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"order_id":7,"total":14.5,"customer_address":"12 rue de Metz, 31000 Toulouse"}`)
	}))

	receipt, err := c.PlaceOrder(context.Background(), order.PlaceOrderRequest{
		CustomerName: "Alice",
		Pizzas:       []order.PizzaRequest{{Name: "Margherita", Size: "medium", Toppings: []string{"tomate"}}},
		CustomerAddress: order.Address{
			StreetNumber: "12", Street: "rue de Metz", City: "Toulouse", PostalCode: "31000",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), receipt.OrderID)
	assert.True(t, receipt.Total.Equal(decimal.RequireFromString("14.5")))
	assert.Equal(t, order.AddressText("12 rue de Metz, 31000 Toulouse"), receipt.Address)
}

func TestPlaceOrder_StringDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Stock insuffisant pour mozzarella"}`)
	}))

	_, err := c.PlaceOrder(context.Background(), order.PlaceOrderRequest{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Stock insuffisant pour mozzarella", apiErr.ServerDetail())
	assert.False(t, IsNotFound(err))
}

func TestPlaceOrder_ValidationListDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":[{"loc":["body","customer_address","city"],"msg":"Livraison uniquement à Toulouse","type":"value_error"},{"msg":"second"}]}`)
	}))

	_, err := c.PlaceOrder(context.Background(), order.PlaceOrderRequest{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Livraison uniquement à Toulouse; second", apiErr.Detail)
}

func TestPlaceOrder_SubmitterSeesRejection(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Pizza inconnue"}`)
	}))

	s := order.NewSubmitter(c, nil)
	_, err := s.Submit(context.Background(), testLines(), "Alice", order.Address{StreetNumber: "1", Street: "rue Alsace"})

	var subErr *order.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.True(t, subErr.Rejected)
	assert.Equal(t, "Pizza inconnue", subErr.Message)
}

func TestOrderStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/42/status", r.URL.Path)
		io.WriteString(w, `{"order_id":42,"status":"preparing","status_label":"En préparation","progress_percent":40,"created_at":"2025-03-01T12:00:00","started_at":"2025-03-01T12:03:00"}`)
	}))

	snap, err := c.OrderStatus(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, "preparing", snap.Status)
	require.NotNil(t, snap.StartedAt)
	assert.Nil(t, snap.ReadyAt)
}

func TestOrderStatus_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Commande non trouvée"}`)
	}))

	_, err := c.OrderStatus(context.Background(), 999)

	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, tracking.ErrNotFound)
}

func TestAdminOrders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/orders", r.URL.Path)
		io.WriteString(w, `{"total_orders":2,"orders_by_status":{"pending":[{"order_id":1,"status":"pending"}],"delivered":[{"order_id":2,"status":"delivered"}]}}`)
	}))

	board, err := c.AdminOrders(context.Background())

	require.NoError(t, err)
	require.Len(t, board["pending"], 1)
	assert.Equal(t, int64(2), board["delivered"][0].OrderID)
}

func TestAdminOrders_EmptyBoard(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))

	board, err := c.AdminOrders(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, board)
	assert.Empty(t, board)
}

func TestAdvanceOrder(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		io.WriteString(w, `{"message":"ok"}`)
	}))

	require.NoError(t, c.AdvanceOrder(context.Background(), 5, "deliver"))
	assert.Equal(t, "/admin/orders/5/deliver", gotPath)
}

func TestAdvanceOrder_InvalidTransition(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"La commande doit être en préparation"}`)
	}))

	err := c.AdvanceOrder(context.Background(), 5, "ready")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "La commande doit être en préparation", apiErr.Detail)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, time.Second, nil)
	require.NoError(t, err)
	_, err = c.FetchMenu(context.Background())

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string detail", `{"detail":"boom"}`, "boom"},
		{"list detail", `{"detail":[{"msg":"a"},{"msg":"b"}]}`, "a; b"},
		{"plain text", `Internal Server Error`, "Internal Server Error"},
		{"empty body", ``, "500 Internal Server Error"},
		{"json without detail", `{"error":"x"}`, "500 Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail([]byte(tt.raw), "500 Internal Server Error"))
		})
	}
}
