package enum

// ── Pizza sizes (keys of the menu price table) ──

const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

// ── Order lifecycle (owned by the order API) ──

const (
	OrderStatusPending          = "pending"
	OrderStatusPreparing        = "preparing"
	OrderStatusReadyForDelivery = "ready_for_delivery"
	OrderStatusInDelivery       = "in_delivery"
	OrderStatusDelivered        = "delivered"
	OrderStatusCancelled        = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReadyForDelivery,
	OrderStatusInDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ── Admin status-advance actions (path segment of POST /admin/orders/{id}/{action}) ──

const (
	ActionStart     = "start"
	ActionReady     = "ready"
	ActionDeliver   = "deliver"
	ActionDelivered = "delivered"
)

// ── Surfaces sharing the tracking core ──

const (
	SurfaceCustomer = "customer"
	SurfaceAdmin    = "admin"
)

// ── Milestones shown on the tracking timeline ──

const (
	MilestoneCreated   = "created"
	MilestoneStarted   = "started"
	MilestoneReady     = "ready"
	MilestoneDelivered = "delivered"
)

func IsValidSize(s string) bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

func IsValidSurface(s string) bool {
	return s == SurfaceCustomer || s == SurfaceAdmin
}

func IsValidOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}
