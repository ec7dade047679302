package models

// OrderStatus is the closed set of order workflow states. Every mutating
// endpoint validates its transition through CanTransition rather than
// comparing strings inline.
type OrderStatus string

const (
	StatusPending             OrderStatus = "pending"
	StatusAssignedToManager   OrderStatus = "assigned_to_manager"
	StatusAssignedToDesigner  OrderStatus = "assigned_to_designer"
	StatusDesignerAccepted    OrderStatus = "designer_accepted"
	StatusInProduction        OrderStatus = "in_production"
	StatusProductionCompleted OrderStatus = "production_completed"
	StatusReadyForDelivery    OrderStatus = "ready_for_delivery"
	StatusOutForDelivery      OrderStatus = "out_for_delivery"
	StatusDelivered           OrderStatus = "delivered"
	StatusCancelled           OrderStatus = "cancelled"
)

// successors lists the forward edges of the workflow. The custom-design
// track runs through the designer states; ready-made orders go straight
// from assigned_to_manager to ready_for_delivery. Both branches are kept
// in one table and the custom/ready-made distinction is enforced at
// assignment time (a designer can only be assigned when the order has a
// design line item).
var successors = map[OrderStatus][]OrderStatus{
	StatusPending:             {StatusAssignedToManager},
	StatusAssignedToManager:   {StatusAssignedToDesigner, StatusReadyForDelivery},
	StatusAssignedToDesigner:  {StatusDesignerAccepted},
	StatusDesignerAccepted:    {StatusInProduction},
	StatusInProduction:        {StatusProductionCompleted},
	StatusProductionCompleted: {StatusReadyForDelivery},
	StatusReadyForDelivery:    {StatusOutForDelivery},
	StatusOutForDelivery:      {StatusDelivered},
	StatusDelivered:           {},
	StatusCancelled:           {},
}

// IsValid reports whether s is a known workflow state.
func (s OrderStatus) IsValid() bool {
	_, ok := successors[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to the
// next. Cancellation is reachable from every non-terminal state; all
// other moves must follow an adjacency edge, so skips and regressions are
// rejected rather than clamped.
func CanTransition(from, to OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if to == StatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment statuses
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)
