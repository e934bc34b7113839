package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/handler"
	"github.com/pizzeria-pos/storefront/internal/middleware"
	"github.com/pizzeria-pos/storefront/internal/tracking"
)

// --- Mock QueueService ---

type mockQueue struct {
	refreshFn func(ctx context.Context) (tracking.QueueView, error)
	advanceFn func(ctx context.Context, orderID int64, status string) (tracking.QueueView, error)
	current   *tracking.QueueView
}

func (m *mockQueue) Refresh(ctx context.Context) (tracking.QueueView, error) {
	return m.refreshFn(ctx)
}

func (m *mockQueue) Current() (tracking.QueueView, bool) {
	if m.current == nil {
		return tracking.QueueView{}, false
	}
	return *m.current, true
}

func (m *mockQueue) Advance(ctx context.Context, orderID int64, status string) (tracking.QueueView, error) {
	return m.advanceFn(ctx, orderID, status)
}

func testBoard() tracking.QueueView {
	return tracking.RenderQueue(map[string][]tracking.Snapshot{
		"pending":   {{OrderID: 1, Status: "pending"}, {OrderID: 2, Status: "pending"}},
		"preparing": {{OrderID: 3, Status: "preparing"}},
	}, "admin")
}

func adminEnv(t *testing.T, surface string, q *mockQueue) *testEnv {
	return newTestEnv(t, surface, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSurface("admin"))
			handler.NewAdminHandler(q, nil).RegisterRoutes(r)
		})
	})
}

func TestAdminQueue_FullBoard(t *testing.T) {
	q := &mockQueue{refreshFn: func(ctx context.Context) (tracking.QueueView, error) { return testBoard(), nil }}
	env := adminEnv(t, "admin", q)

	rr := env.do(t, "GET", "/admin/queue", nil)

	expectStatus(t, rr, http.StatusOK)
	var body struct {
		Counts      map[string]int                   `json:"counts"`
		TotalOrders int                              `json:"total_orders"`
		ByStatus    map[string][]map[string]any      `json:"orders_by_status"`
	}
	decodeBody(t, rr, &body)
	if body.TotalOrders != 3 || body.Counts["pending"] != 2 || body.Counts["delivered"] != 0 {
		t.Errorf("counts: got %+v total %d", body.Counts, body.TotalOrders)
	}
	if len(body.ByStatus["preparing"]) != 1 {
		t.Errorf("preparing column: got %v", body.ByStatus["preparing"])
	}
}

func TestAdminQueue_StatusFilter(t *testing.T) {
	q := &mockQueue{refreshFn: func(ctx context.Context) (tracking.QueueView, error) { return testBoard(), nil }}
	env := adminEnv(t, "admin", q)

	rr := env.do(t, "GET", "/admin/queue?status=pending", nil)
	expectStatus(t, rr, http.StatusOK)
	var body struct {
		Status string `json:"status"`
		Orders []struct {
			OrderID    int64 `json:"order_id"`
			NextAction struct {
				Name string `json:"name"`
			} `json:"next_action"`
		} `json:"orders"`
	}
	decodeBody(t, rr, &body)
	if body.Status != "pending" || len(body.Orders) != 2 || body.Orders[0].NextAction.Name != "start" {
		t.Errorf("filtered board: got %+v", body)
	}

	expectStatus(t, env.do(t, "GET", "/admin/queue?status=lost", nil), http.StatusBadRequest)
}

func TestAdminQueue_RefreshErrors(t *testing.T) {
	board := testBoard()
	stale := &mockQueue{
		refreshFn: func(ctx context.Context) (tracking.QueueView, error) { return tracking.QueueView{}, tracking.ErrStale },
		current:   &board,
	}
	expectStatus(t, adminEnv(t, "admin", stale).do(t, "GET", "/admin/queue", nil), http.StatusOK)

	down := &mockQueue{
		refreshFn: func(ctx context.Context) (tracking.QueueView, error) { return tracking.QueueView{}, errors.New("503") },
		current:   &board,
	}
	expectStatus(t, adminEnv(t, "admin", down).do(t, "GET", "/admin/queue", nil), http.StatusBadGateway)
}

func TestAdminQueue_CustomerForbidden(t *testing.T) {
	q := &mockQueue{refreshFn: func(ctx context.Context) (tracking.QueueView, error) {
		t.Fatal("queue should not be refreshed")
		return tracking.QueueView{}, nil
	}}
	env := adminEnv(t, "customer", q)

	expectStatus(t, env.do(t, "GET", "/admin/queue", nil), http.StatusForbidden)
	expectStatus(t, env.do(t, "POST", "/admin/orders/1/advance", map[string]string{"status": "pending"}), http.StatusForbidden)
}

func TestAdminAdvance(t *testing.T) {
	var gotID int64
	var gotStatus string
	q := &mockQueue{advanceFn: func(ctx context.Context, id int64, status string) (tracking.QueueView, error) {
		gotID, gotStatus = id, status
		return testBoard(), nil
	}}
	env := adminEnv(t, "admin", q)

	rr := env.do(t, "POST", "/admin/orders/3/advance", map[string]string{"status": "preparing"})

	expectStatus(t, rr, http.StatusOK)
	if gotID != 3 || gotStatus != "preparing" {
		t.Errorf("advance: got %d/%s", gotID, gotStatus)
	}
}

func TestAdminAdvance_StatusFromBoard(t *testing.T) {
	board := testBoard()
	var gotStatus string
	q := &mockQueue{
		advanceFn: func(ctx context.Context, id int64, status string) (tracking.QueueView, error) {
			gotStatus = status
			return board, nil
		},
		current: &board,
	}
	env := adminEnv(t, "admin", q)

	expectStatus(t, env.do(t, "POST", "/admin/orders/3/advance", nil), http.StatusOK)
	if gotStatus != "preparing" {
		t.Errorf("status: got %q, want preparing", gotStatus)
	}

	expectStatus(t, env.do(t, "POST", "/admin/orders/99/advance", nil), http.StatusNotFound)
}

func TestAdminAdvance_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"terminal status", fmt.Errorf("%w: delivered", tracking.ErrNoNextAction), http.StatusConflict},
		{"server rejects", fmt.Errorf("advance order 1 (start): %w", &rejection{detail: "Transition invalide"}), http.StatusUnprocessableEntity},
		{"upstream down", errors.New("timeout"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQueue{advanceFn: func(ctx context.Context, id int64, status string) (tracking.QueueView, error) {
				return tracking.QueueView{}, tt.err
			}}
			env := adminEnv(t, "admin", q)
			expectStatus(t, env.do(t, "POST", "/admin/orders/1/advance", map[string]string{"status": "pending"}), tt.status)
		})
	}
}
