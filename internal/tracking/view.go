package tracking

import (
	"strings"
	"time"

	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/shopspring/decimal"
)

// StatusStyle is the static presentation of a status.
type StatusStyle struct {
	Label string `json:"label"`
	Badge string `json:"badge"`
	Color string `json:"color"`
}

var statusStyles = map[string]StatusStyle{
	enum.OrderStatusPending:          {Label: "En attente", Badge: "badge-pending", Color: "#f0ad4e"},
	enum.OrderStatusPreparing:        {Label: "En préparation", Badge: "badge-preparing", Color: "#5bc0de"},
	enum.OrderStatusReadyForDelivery: {Label: "Prête pour livraison", Badge: "badge-ready-for-delivery", Color: "#0275d8"},
	enum.OrderStatusInDelivery:       {Label: "En cours de livraison", Badge: "badge-in-delivery", Color: "#6f42c1"},
	enum.OrderStatusDelivered:        {Label: "Livrée", Badge: "badge-delivered", Color: "#5cb85c"},
	enum.OrderStatusCancelled:        {Label: "Annulée", Badge: "badge-cancelled", Color: "#d9534f"},
}

// neutralStyle is used for statuses outside the known set.
var neutralStyle = StatusStyle{Label: "Statut inconnu", Badge: "badge-default", Color: "#6c757d"}

// Style looks up the presentation of status, falling back to a neutral style.
func Style(status string) StatusStyle {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return neutralStyle
}

var nextActions = map[string]string{
	enum.OrderStatusPending:          enum.ActionStart,
	enum.OrderStatusPreparing:        enum.ActionReady,
	enum.OrderStatusReadyForDelivery: enum.ActionDeliver,
	enum.OrderStatusInDelivery:       enum.ActionDelivered,
}

// NextAction returns the admin action that moves status one step forward.
// Delivered, cancelled and unknown statuses have none.
func NextAction(status string) (string, bool) {
	a, ok := nextActions[status]
	return a, ok
}

var actionLabels = map[string]string{
	enum.ActionStart:     "Commencer la préparation",
	enum.ActionReady:     "Marquer prête",
	enum.ActionDeliver:   "Envoyer en livraison",
	enum.ActionDelivered: "Confirmer livraison",
}

// Action is a status-advance button offered on the admin surface.
type Action struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Milestone is a lifecycle timestamp shown on the timeline.
type Milestone struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// View is the display form of a Snapshot.
type View struct {
	OrderID          int64           `json:"order_id"`
	CustomerName     string          `json:"customer_name"`
	CustomerAddress  string          `json:"customer_address"`
	Status           string          `json:"status"`
	Label            string          `json:"label"`
	Style            StatusStyle     `json:"style"`
	ProgressPercent  float64         `json:"progress_percent"`
	Pizzas           []PizzaSummary  `json:"pizzas"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	FreeDelivery     bool            `json:"free_delivery"`
	Total            decimal.Decimal `json:"total"`
	EstimatedMinutes int             `json:"estimated_delivery_minutes"`
	Milestones       []Milestone     `json:"milestones"`
	NextAction       *Action         `json:"next_action,omitempty"`
}

// Shows reports whether the named milestone is on the timeline.
func (v View) Shows(name string) bool {
	for _, m := range v.Milestones {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Render projects a snapshot for a surface. The label and progress come from
// the server untouched, except that a blank label falls back to the status
// style's; a milestone is shown iff its timestamp is present.
// Only the admin surface gets a next action.
func Render(snap Snapshot, surface string) View {
	style := Style(snap.Status)
	label := snap.StatusLabel
	if strings.TrimSpace(label) == "" {
		label = style.Label
	}

	v := View{
		OrderID:          snap.OrderID,
		CustomerName:     snap.CustomerName,
		CustomerAddress:  snap.CustomerAddress,
		Status:           snap.Status,
		Label:            label,
		Style:            style,
		ProgressPercent:  snap.ProgressPercent,
		Pizzas:           clonePizzas(snap.Pizzas),
		Subtotal:         snap.Subtotal,
		DeliveryFee:      snap.DeliveryFee,
		FreeDelivery:     snap.DeliveryFee.IsZero(),
		Total:            snap.Total,
		EstimatedMinutes: snap.EstimatedMinutes,
		Milestones:       milestones(snap),
	}

	if surface == enum.SurfaceAdmin {
		if name, ok := NextAction(snap.Status); ok {
			v.NextAction = &Action{Name: name, Label: actionLabels[name]}
		}
	}
	return v
}

func milestones(snap Snapshot) []Milestone {
	stamps := []struct {
		name string
		at   *Timestamp
	}{
		{enum.MilestoneCreated, snap.CreatedAt},
		{enum.MilestoneStarted, snap.StartedAt},
		{enum.MilestoneReady, snap.ReadyAt},
		{enum.MilestoneDelivered, snap.DeliveredAt},
	}
	out := make([]Milestone, 0, len(stamps))
	for _, s := range stamps {
		if s.at == nil {
			continue
		}
		out = append(out, Milestone{Name: s.name, At: s.at.Time})
	}
	return out
}

func clonePizzas(in []PizzaSummary) []PizzaSummary {
	out := make([]PizzaSummary, len(in))
	for i, p := range in {
		p.Toppings = append([]string(nil), p.Toppings...)
		out[i] = p
	}
	return out
}
