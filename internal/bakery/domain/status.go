package domain

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusBaking     OrderStatus = "baking"
	StatusDecorating OrderStatus = "decorating"
	StatusReady      OrderStatus = "ready"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"

	// Legacy values still present on older rows.
	StatusReceived  OrderStatus = "received"
	StatusDelivered OrderStatus = "delivered"
)

// progression is the only forward path an order can take.
var progression = []OrderStatus{
	StatusPending,
	StatusBaking,
	StatusDecorating,
	StatusReady,
	StatusCompleted,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case StatusPending, StatusBaking, StatusDecorating, StatusReady, StatusCompleted,
		StatusCancelled, StatusReceived, StatusDelivered:
		return st, true
	}
	return "", false
}

// Canonical folds the legacy pair onto the current progression.
func (s OrderStatus) Canonical() OrderStatus {
	switch s {
	case StatusReceived:
		return StatusPending
	case StatusDelivered:
		return StatusCompleted
	}
	return s
}

func (s OrderStatus) Terminal() bool {
	c := s.Canonical()
	return c == StatusCompleted || c == StatusCancelled
}

// Next returns the status that follows s, or false when s is terminal.
func (s OrderStatus) Next() (OrderStatus, bool) {
	c := s.Canonical()
	for i, st := range progression {
		if st == c && i+1 < len(progression) {
			return progression[i+1], true
		}
	}
	return "", false
}

// CanTransition allows exactly one forward step, or a move into cancelled
// from any non-terminal status.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	next, ok := from.Next()
	return ok && next == to
}
