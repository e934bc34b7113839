package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pizzeria-pos/storefront/internal/apiclient"
	"github.com/pizzeria-pos/storefront/internal/config"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/tracking"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

func main() {
	// CLI flags
	apiURL := flag.String("api", "", "Order API base URL")
	orderID := flag.Int64("order", 0, "Order ID to track")
	watch := flag.Bool("watch", false, "Keep polling and print every status change")
	board := flag.Bool("board", false, "Print the admin order board instead of one order")
	interval := flag.Duration("interval", tracking.DefaultPollInterval, "Polling interval with -watch")
	verbose := flag.Bool("v", false, "Log API requests")
	flag.Parse()

	// Fall back to environment (and .env)
	cfg := config.Load()
	if *apiURL == "" {
		*apiURL = cfg.APIBaseURL
	}
	if !*board && *orderID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: track -order <id> [-watch] [-interval 5s] | track -board")
		os.Exit(2)
	}

	zlog := zap.NewNop()
	if *verbose {
		zlog, _ = zap.NewDevelopment()
	}

	api, err := apiclient.New(*apiURL, cfg.HTTPTimeout, zlog)
	if err != nil {
		log.Fatalf("Invalid API URL: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := message.NewPrinter(language.French)

	if *board {
		q := tracking.NewQueue(api, api, enum.SurfaceAdmin, zlog)
		qv, err := q.Refresh(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch order board: %v", err)
		}
		printBoard(os.Stdout, p, qv)
		return
	}

	tr := tracking.NewTracker(api, enum.SurfaceCustomer, zlog)
	tr.SetListener(tracking.ListenerFunc(func(v tracking.View, previous string) {
		if previous == v.Status {
			return
		}
		printView(os.Stdout, p, v)
	}))

	if !*watch {
		if _, err := tr.Project(ctx, *orderID); err != nil {
			if errors.Is(err, tracking.ErrNotFound) {
				log.Fatalf("Order %d not found", *orderID)
			}
			log.Fatalf("Failed to track order: %v", err)
		}
		return
	}

	w := &watcher{projector: tr, orderID: *orderID, stop: stop, errOut: os.Stderr}
	tracking.NewPoller(*interval, w.refresh, zlog).Run(ctx)
	if w.err != nil {
		log.Fatalf("Failed to track order: %v", w.err)
	}
}

// projector is satisfied by *tracking.Tracker.
type projector interface {
	Project(ctx context.Context, orderID int64) (tracking.View, error)
}

// watcher polls one order until it reaches a terminal status or turns out
// not to exist. Transient failures are reported and polled again.
type watcher struct {
	projector projector
	orderID   int64
	stop      context.CancelFunc
	errOut    io.Writer
	err       error
}

func (w *watcher) refresh(ctx context.Context) error {
	v, err := w.projector.Project(ctx, w.orderID)
	switch {
	case errors.Is(err, tracking.ErrNotFound):
		w.err = fmt.Errorf("order %d not found", w.orderID)
		w.stop()
		return nil
	case errors.Is(err, tracking.ErrStale):
		return err
	case err != nil:
		fmt.Fprintf(w.errOut, "poll failed, retrying: %v\n", err)
		return err
	}
	if v.Status == enum.OrderStatusDelivered || v.Status == enum.OrderStatusCancelled {
		w.stop()
	}
	return nil
}

// euros formats an amount the French way, e.g. "27,50 €".
func euros(p *message.Printer, d decimal.Decimal) string {
	return p.Sprintf("%v €", number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

func printView(w io.Writer, p *message.Printer, v tracking.View) {
	// Ids go out ungrouped so they can be pasted back into -order.
	p.Fprintf(w, "Commande #%s  %s  (%v %%)\n", strconv.FormatInt(v.OrderID, 10), v.Label, number.Decimal(v.ProgressPercent))
	if v.CustomerName != "" {
		p.Fprintf(w, "  %s, %s\n", v.CustomerName, v.CustomerAddress)
	}
	for _, pz := range v.Pizzas {
		p.Fprintf(w, "  - %s (%s) %s  %s\n", pz.Name, pz.Size, strings.Join(pz.Toppings, ", "), euros(p, pz.Price))
	}
	p.Fprintf(w, "  Total: %s", euros(p, v.Total))
	if v.FreeDelivery {
		p.Fprintf(w, " (livraison offerte)")
	}
	p.Fprintln(w)
	for _, m := range v.Milestones {
		p.Fprintf(w, "  %-10s %s\n", m.Name, m.At.Format("15:04:05"))
	}
}

func printBoard(w io.Writer, p *message.Printer, qv tracking.QueueView) {
	p.Fprintf(w, "%d commandes\n", qv.TotalOrders)
	for _, status := range enum.OrderStatuses {
		p.Fprintf(w, "%-20s %d\n", tracking.Style(status).Label, qv.Counts[status])
		for _, v := range qv.Orders(status) {
			action := ""
			if v.NextAction != nil {
				action = "  -> " + v.NextAction.Label
			}
			p.Fprintf(w, "  #%s %s%s\n", strconv.FormatInt(v.OrderID, 10), v.CustomerName, action)
		}
	}
}
