package out

import "context"

type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is a structured observability record emitted by the core services.
type Event struct {
	Severity Severity
	Name     string
	Message  string
	Fields   map[string]any
	Err      error
}

// Observer receives events. The core never writes to a logging sink directly.
type Observer interface {
	Emit(ctx context.Context, ev Event)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) Emit(context.Context, Event) {}

// ObserverOrNop returns o, or a NopObserver when o is nil.
func ObserverOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
