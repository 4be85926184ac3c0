package order

// MilestoneState is the display state of a single milestone.
type MilestoneState string

const (
	MilestoneComplete  MilestoneState = "complete"
	MilestoneCurrent   MilestoneState = "current"
	MilestoneUpcoming  MilestoneState = "upcoming"
	MilestoneCancelled MilestoneState = "cancelled"
)

// Milestone is one named step in the tracking timeline.
type Milestone struct {
	Key   string         `json:"key"`
	Label string         `json:"label"`
	State MilestoneState `json:"state"`
}

// Timeline is the display-ready progress of an order.
type Timeline struct {
	Status     Status      `json:"status"`
	Milestones []Milestone `json:"milestones"`
	Progress   int         `json:"progress"`
}

type milestoneDef struct {
	key   string
	label string
	rank  int
}

// A milestone is reached once the order status rank is at least its rank.
var milestones = []milestoneDef{
	{key: "received", label: "Order received", rank: 0},
	{key: "preparing", label: "Preparing", rank: 1},
	{key: "ready", label: "Ready", rank: 2},
	{key: "driver_assigned", label: "Driver assigned", rank: 3},
	{key: "on_the_way", label: "On the way", rank: 3},
	{key: "delivered", label: "Delivered", rank: 4},
}

// BuildTimeline derives the tracking timeline for status. For cancelled
// orders, cancelledFrom is the status the order was in when it was
// cancelled; milestones up to its rank stay complete and the rest are marked
// cancelled. An empty cancelledFrom is treated as pending.
func BuildTimeline(status, cancelledFrom Status) Timeline {
	out := Timeline{
		Status:     status,
		Milestones: make([]Milestone, len(milestones)),
	}

	cancelled := status == StatusCancelled
	reached := status.Rank()
	if cancelled {
		if cancelledFrom == "" || cancelledFrom.Rank() < 0 {
			cancelledFrom = StatusPending
		}
		reached = cancelledFrom.Rank()
	}

	completed := 0
	currentSet := false
	for i, m := range milestones {
		var state MilestoneState
		switch {
		case m.rank <= reached:
			state = MilestoneComplete
			completed++
		case cancelled:
			state = MilestoneCancelled
		case !currentSet:
			state = MilestoneCurrent
			currentSet = true
		default:
			state = MilestoneUpcoming
		}
		out.Milestones[i] = Milestone{Key: m.key, Label: m.label, State: state}
	}

	out.Progress = 100 * completed / len(milestones)
	return out
}
