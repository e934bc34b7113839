package handler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/handler"
	"github.com/pizzeria-pos/storefront/internal/tracking"
)

// --- Mock projector ---

type mockProjector struct {
	projectFn func(ctx context.Context, orderID int64) (tracking.View, error)
	current   map[int64]tracking.View
}

func (m *mockProjector) Project(ctx context.Context, orderID int64) (tracking.View, error) {
	return m.projectFn(ctx, orderID)
}

func (m *mockProjector) Current(orderID int64) (tracking.View, bool) {
	v, ok := m.current[orderID]
	return v, ok
}

type mockQR struct {
	err error
}

func (m mockQR) Generate(orderID int64) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []byte(fmt.Sprintf("png-%d", orderID)), nil
}

func trackingEnv(t *testing.T, surface string, customer, admin *mockProjector, qr handler.QRGenerator) *testEnv {
	return newTestEnv(t, surface, func(r chi.Router) {
		handler.NewTrackingHandler(customer, admin, qr, nil).RegisterRoutes(r)
	})
}

func viewFor(id int64, status string) tracking.View {
	return tracking.Render(tracking.Snapshot{OrderID: id, Status: status, StatusLabel: "label " + status}, "admin")
}

func TestTracking_SurfaceSelectsProjector(t *testing.T) {
	customer := &mockProjector{projectFn: func(ctx context.Context, id int64) (tracking.View, error) {
		return tracking.Render(tracking.Snapshot{OrderID: id, Status: "pending"}, "customer"), nil
	}}
	admin := &mockProjector{projectFn: func(ctx context.Context, id int64) (tracking.View, error) {
		return viewFor(id, "pending"), nil
	}}

	for _, tc := range []struct {
		surface    string
		wantAction bool
	}{
		{"customer", false},
		{"admin", true},
	} {
		t.Run(tc.surface, func(t *testing.T) {
			env := trackingEnv(t, tc.surface, customer, admin, mockQR{})

			rr := env.do(t, "GET", "/orders/42/tracking", nil)
			expectStatus(t, rr, http.StatusOK)

			var body struct {
				OrderID    int64 `json:"order_id"`
				NextAction *struct {
					Name string `json:"name"`
				} `json:"next_action"`
			}
			decodeBody(t, rr, &body)
			if body.OrderID != 42 {
				t.Errorf("order id: got %d", body.OrderID)
			}
			if (body.NextAction != nil) != tc.wantAction {
				t.Errorf("next action present: got %v, want %v", body.NextAction != nil, tc.wantAction)
			}
		})
	}
}

func TestTracking_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"not found", "/orders/999/tracking", fmt.Errorf("get order 999 status: %w", tracking.ErrNotFound), http.StatusNotFound},
		{"upstream down", "/orders/1/tracking", errors.New("connection refused"), http.StatusBadGateway},
		{"bad id", "/orders/abc/tracking", nil, http.StatusBadRequest},
		{"zero id", "/orders/0/tracking", nil, http.StatusBadRequest},
		{"stale without current", "/orders/5/tracking", tracking.ErrStale, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProjector{projectFn: func(ctx context.Context, id int64) (tracking.View, error) {
				return tracking.View{}, tt.err
			}}
			env := trackingEnv(t, "customer", p, p, mockQR{})
			expectStatus(t, env.do(t, "GET", tt.path, nil), tt.status)
		})
	}
}

func TestTracking_StaleServesCurrent(t *testing.T) {
	p := &mockProjector{
		projectFn: func(ctx context.Context, id int64) (tracking.View, error) {
			return tracking.View{}, tracking.ErrStale
		},
		current: map[int64]tracking.View{7: viewFor(7, "preparing")},
	}
	env := trackingEnv(t, "customer", p, p, mockQR{})

	rr := env.do(t, "GET", "/orders/7/tracking", nil)

	expectStatus(t, rr, http.StatusOK)
	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, rr, &body)
	if body.Status != "preparing" {
		t.Errorf("status: got %q", body.Status)
	}
}

func TestTracking_QRCode(t *testing.T) {
	env := trackingEnv(t, "customer", &mockProjector{}, &mockProjector{}, mockQR{})

	rr := env.do(t, "GET", "/orders/42/qrcode", nil)

	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type: got %s", ct)
	}
	if rr.Body.String() != "png-42" {
		t.Errorf("body: got %q", rr.Body.String())
	}
}

func TestTracking_QRCodeError(t *testing.T) {
	env := trackingEnv(t, "customer", &mockProjector{}, &mockProjector{}, mockQR{err: errors.New("too long")})
	expectStatus(t, env.do(t, "GET", "/orders/42/qrcode", nil), http.StatusInternalServerError)
}

func TestDefaultQRGenerator(t *testing.T) {
	data, err := handler.DefaultQRGenerator{BaseURL: "http://shop.test/"}.Generate(42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Errorf("width: got %d, want 256", img.Bounds().Dx())
	}
}
