package broadcast

import (
	"time"

	"castbot/internal/eventbus"
)

const (
	EventStarted          = "broadcast.started"
	EventFinished         = "broadcast.finished"
	EventDenied           = "broadcast.denied"
	EventRecipientRemoved = "broadcast.recipient_removed"
)

// RunEvent is the Data of every broadcast event. A finished event with Err
// set means the run aborted before any recipient was contacted.
type RunEvent struct {
	JobID       string
	TenantID    string
	InitiatorID int64
	RecipientID int64
	Summary     *RunSummary
	Err         string
}

func publish(bus eventbus.Bus, typ string, ev RunEvent) {
	if bus == nil {
		return
	}
	bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
}
