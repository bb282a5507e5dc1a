package sale

import (
	"github.com/rony4d/go-opera-crowdsale/inter"
)

// Lifecycle is the phase of the sale at a given instant.
type Lifecycle uint8

const (
	// Pending: before StartTime.
	Pending Lifecycle = iota
	// Open: in [StartTime, EndTime).
	Open
	// Closed: at or after EndTime.
	Closed
)

func (l Lifecycle) String() string {
	switch l {
	case Pending:
		return "pending"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Window is the half-open interval during which contributions are accepted.
// The phase is a pure function of the instant: there is no stored state
// machine and no early close.
type Window struct {
	Start inter.Timestamp
	End   inter.Timestamp
}

// Status returns the phase of the sale at now.
func (w Window) Status(now inter.Timestamp) Lifecycle {
	switch {
	case now < w.Start:
		return Pending
	case now < w.End:
		return Open
	default:
		return Closed
	}
}

// IsOpen reports whether now lies in [Start, End).
func (w Window) IsOpen(now inter.Timestamp) bool {
	return w.Status(now) == Open
}
