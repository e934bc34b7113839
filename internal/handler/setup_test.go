package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pizzeria-pos/storefront/internal/auth"
	"github.com/pizzeria-pos/storefront/internal/catalog"
	"github.com/pizzeria-pos/storefront/internal/middleware"
	"github.com/pizzeria-pos/storefront/internal/order"
	"github.com/pizzeria-pos/storefront/internal/session"
	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

// --- Mock order API ---

type mockAPI struct {
	menu         []catalog.MenuItem
	toppings     []catalog.Topping
	menuErr      error
	placeOrderFn func(ctx context.Context, req order.PlaceOrderRequest) (*order.Receipt, error)
}

func newMockAPI() *mockAPI {
	d := decimal.RequireFromString
	return &mockAPI{
		menu: []catalog.MenuItem{
			{Name: "Margherita", BaseToppings: []string{"tomate", "mozzarella"}, Prices: catalog.Prices{Small: d("8"), Medium: d("10"), Large: d("12")}},
			{Name: "Reine", BaseToppings: []string{"tomate", "jambon"}, Prices: catalog.Prices{Small: d("9"), Medium: d("11"), Large: d("13")}},
		},
		toppings: []catalog.Topping{
			{Name: "champignons", Price: d("1")},
			{Name: "olives", Price: d("0.5")},
		},
	}
}

func (m *mockAPI) FetchToppings(ctx context.Context) ([]catalog.Topping, error) {
	return m.toppings, nil
}

func (m *mockAPI) FetchMenu(ctx context.Context) ([]catalog.MenuItem, error) {
	return m.menu, m.menuErr
}

func (m *mockAPI) PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Receipt, error) {
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx, req)
	}
	return &order.Receipt{OrderID: 1, Total: decimal.RequireFromString("13"), Address: "1 rue, 31000 Toulouse"}, nil
}

// --- Session lookup ---

type mockLookup struct {
	sessions map[uuid.UUID]*session.Session
}

func (m *mockLookup) Get(id uuid.UUID) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

// testEnv is a router with one open session.
type testEnv struct {
	api    *mockAPI
	sess   *session.Session
	token  string
	router chi.Router
}

// newTestEnv mounts the handlers registered by mount behind the session
// middleware, the way the router does.
func newTestEnv(t *testing.T, surface string, mount func(r chi.Router)) *testEnv {
	t.Helper()
	api := newMockAPI()
	sess := session.New(surface, session.Deps{Source: api, Placer: api})
	if err := sess.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	token, err := auth.GenerateToken(testSecret, sess.ID, surface)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Use(middleware.RequireSession(&mockLookup{sessions: map[uuid.UUID]*session.Session{sess.ID: sess}}))
		mount(r)
	})
	return &testEnv{api: api, sess: sess, token: token, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}
