package forwarder

// Recorder is notified of everything the Forwarder does. Implementations
// must not block; they are called with the Forwarder's lock held.
type Recorder interface {
	ObserveOutcome(o Outcome)
	ObserveReplay(n int)
	ObserveReconnect(ok bool)
	ObserveState(s State)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOutcome(Outcome) {}
func (nopRecorder) ObserveReplay(int)      {}
func (nopRecorder) ObserveReconnect(bool)  {}
func (nopRecorder) ObserveState(State)     {}
