package forwarder

// State is the connection state of a Forwarder.
type State int

const (
	// StateLocal means no remote store is configured.
	StateLocal State = iota
	// StateDisconnected means the last store interaction failed.
	StateDisconnected
	// StateConnected means the store accepted the last interaction.
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateLocal:
		return "local"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Outcome says what happened to one reading.
type Outcome int

const (
	// OutcomeLocal means the reading was only shown (local mode).
	OutcomeLocal Outcome = iota
	// OutcomeDelivered means the reading, and any backlog, reached the store.
	OutcomeDelivered
	// OutcomeBuffered means the reading was persisted to the local buffer.
	OutcomeBuffered
	// OutcomeRejected means the reading cannot be persisted at all (missing
	// timestamp or non-finite values). It was still shown on the sinks.
	OutcomeRejected
	// OutcomeFatal means the buffer failed; the reading may be lost.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLocal:
		return "local"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeBuffered:
		return "buffered"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is returned by Log for every reading.
type Result struct {
	Outcome Outcome

	// Replayed is the number of backlog records written to the store
	// during this call.
	Replayed int

	// Err is set for OutcomeFatal and OutcomeRejected.
	Err error
}
