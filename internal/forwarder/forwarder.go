package forwarder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/aq-logger/internal/buffer"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

// DefaultTimeout bounds every store call when Options.Timeout is zero.
const DefaultTimeout = 3 * time.Second

// Store is a remote time-series store.
//
// Provision creates the database, principal and grants the logger needs and
// is idempotent. Connect opens a session and reports whether the store is
// healthy. WriteReading fails when the store did not take the reading.
type Store interface {
	Provision(ctx context.Context) error
	Connect(ctx context.Context) (bool, error)
	WriteReading(ctx context.Context, r reading.Reading, id reading.RunIdentity) error
	Close() error
}

// Options configures a Forwarder.
type Options struct {
	// Local disables the store and the buffer entirely.
	Local bool

	Store  Store
	Buffer buffer.Buffer

	Identity reading.RunIdentity

	// Sinks see every reading first, in order. Errors are logged only.
	Sinks []Sink

	Recorder Recorder
	Logger   *logging.Logger

	// Timeout bounds each store call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Status is a point-in-time snapshot for status reporting.
type Status struct {
	State        string    `json:"state"`
	RunID        uuid.UUID `json:"run_id"`
	HostName     string    `json:"host_name"`
	Delivered    uint64    `json:"delivered"`
	Buffered     uint64    `json:"buffered"`
	Replayed     uint64    `json:"replayed"`
	Rejected     uint64    `json:"rejected"`
	LastDelivery time.Time `json:"last_delivery,omitzero"`
}

// Forwarder delivers readings to a remote store, buffering them locally
// while the store is unreachable.
//
// Thread Safety: Log calls are serialised. State and Status never wait on
// a Log in progress.
type Forwarder struct {
	local   bool
	store   Store
	buf     buffer.Buffer
	id      reading.RunIdentity
	sinks   []Sink
	rec     Recorder
	log     *logging.Logger
	timeout time.Duration

	// mu serialises Log and Close.
	mu sync.Mutex

	statusMu sync.RWMutex
	state    State
	status   Status
}

// New creates a Forwarder. In remote mode it provisions and connects once;
// a store failure only leaves it Disconnected, it never fails New.
//
// Returns:
//   - error: ErrMissingDependency in remote mode without a store or buffer
func New(opts Options) (*Forwarder, error) {
	if !opts.Local && (opts.Store == nil || opts.Buffer == nil) {
		return nil, ErrMissingDependency
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	f := &Forwarder{
		local:   opts.Local,
		store:   opts.Store,
		buf:     opts.Buffer,
		id:      opts.Identity,
		sinks:   opts.Sinks,
		rec:     rec,
		log:     log.With("component", "forwarder"),
		timeout: timeout,
		status: Status{
			RunID:    opts.Identity.RunID,
			HostName: opts.Identity.HostName,
		},
	}

	if f.local {
		f.setState(StateLocal)
		f.log.Info("local mode, readings are not persisted")
		return f, nil
	}

	if f.reconnect() {
		f.setState(StateConnected)
		f.log.Info("connected to store")
	} else {
		f.setState(StateDisconnected)
		f.log.Warn("store unavailable, readings will be buffered")
	}
	return f, nil
}

// Log shows r on every sink and, in remote mode, delivers or buffers it.
func (f *Forwarder) Log(r reading.Reading) Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.observe(r)

	res := f.handle(r)

	f.rec.ObserveOutcome(res.Outcome)
	if res.Replayed > 0 {
		f.rec.ObserveReplay(res.Replayed)
	}
	f.count(res)

	return res
}

func (f *Forwarder) handle(r reading.Reading) Result {
	if f.local {
		return Result{Outcome: OutcomeLocal}
	}

	if err := r.Validate(); err != nil {
		f.log.Warn("reading rejected, quarantining", "error", err)
		if qErr := f.buf.Reject(r, err); qErr != nil {
			return fatal(qErr)
		}
		return Result{Outcome: OutcomeRejected, Err: err}
	}

	switch f.State() {
	case StateConnected:
		pending, err := f.buf.Exists()
		if err != nil {
			return fatal(err)
		}
		if pending {
			return f.replay(r)
		}
		if err := f.write(r); err != nil {
			f.log.Warn("store write failed, buffering", "error", err)
			f.disconnect()
			return f.bufferAll(r)
		}
		return Result{Outcome: OutcomeDelivered}

	default:
		if !f.reconnect() {
			return f.bufferAll(r)
		}
		f.setState(StateConnected)
		f.log.Info("store reachable again")
		return f.replay(r)
	}
}

// replay writes the buffered backlog followed by r. The backlog stays on
// disk until every record is written or, after a failed write, the unwritten
// tail and r are back in the buffer; only then is the drain committed.
func (f *Forwarder) replay(r reading.Reading) Result {
	backlog, err := f.buf.DrainAll()
	if err != nil {
		return fatal(err)
	}
	if len(backlog) > 0 {
		f.log.Info("replaying buffered readings", "count", len(backlog))
	}

	res := Result{Outcome: OutcomeDelivered, Replayed: len(backlog)}
	pending := append(backlog, r)
	for i, rd := range pending {
		if err := f.write(rd); err != nil {
			f.log.Warn("store write failed during replay, buffering",
				"error", err, "replayed", i, "remaining", len(pending)-i)
			f.disconnect()
			res = f.bufferAll(pending[i:]...)
			res.Replayed = i
			break
		}
		f.log.Debug("reading written", "timestamp", rd.Timestamp, "backlog", i < len(backlog))
	}
	if res.Outcome == OutcomeFatal {
		return res
	}

	if err := f.buf.Commit(); err != nil {
		return fatal(err)
	}
	return res
}

func (f *Forwarder) write(r reading.Reading) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.store.WriteReading(ctx, r, f.id); err != nil {
		return err
	}

	f.statusMu.Lock()
	f.status.LastDelivery = time.Now()
	f.statusMu.Unlock()
	return nil
}

// bufferAll appends readings in order. Any append failure is fatal.
func (f *Forwarder) bufferAll(readings ...reading.Reading) Result {
	for _, rd := range readings {
		if err := f.buf.Append(rd); err != nil {
			return fatal(err)
		}
	}
	f.log.Debug("readings buffered", "count", len(readings))
	return Result{Outcome: OutcomeBuffered}
}

// reconnect provisions and connects, each step bounded by the store timeout.
func (f *Forwarder) reconnect() bool {
	ok := f.tryConnect()
	f.rec.ObserveReconnect(ok)
	return ok
}

func (f *Forwarder) tryConnect() bool {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	err := f.store.Provision(ctx)
	cancel()
	if err != nil {
		f.log.Debug("provisioning failed", "error", err)
		return false
	}

	ctx, cancel = context.WithTimeout(context.Background(), f.timeout)
	healthy, err := f.store.Connect(ctx)
	cancel()
	if err != nil {
		f.log.Debug("connect failed", "error", err)
		return false
	}
	if !healthy {
		f.log.Debug("store reported unhealthy")
		return false
	}
	return true
}

func (f *Forwarder) disconnect() {
	if err := f.store.Close(); err != nil {
		f.log.Debug("closing store session", "error", err)
	}
	f.setState(StateDisconnected)
}

func (f *Forwarder) observe(r reading.Reading) {
	for _, s := range f.sinks {
		if err := s.Observe(r); err != nil {
			f.log.Warn("sink failed", "sink", fmt.Sprintf("%T", s), "error", err)
		}
	}
}

func (f *Forwarder) setState(s State) {
	f.statusMu.Lock()
	changed := f.state != s || f.status.State == ""
	f.state = s
	f.status.State = s.String()
	f.statusMu.Unlock()

	if changed {
		f.rec.ObserveState(s)
	}
}

func (f *Forwarder) count(res Result) {
	f.statusMu.Lock()
	defer f.statusMu.Unlock()

	switch res.Outcome {
	case OutcomeDelivered:
		f.status.Delivered++
	case OutcomeBuffered:
		f.status.Buffered++
	case OutcomeRejected:
		f.status.Rejected++
	}
	f.status.Replayed += uint64(res.Replayed)
}

// State returns the current connection state.
func (f *Forwarder) State() State {
	f.statusMu.RLock()
	defer f.statusMu.RUnlock()
	return f.state
}

// Status returns a snapshot of the counters and identity.
func (f *Forwarder) Status() Status {
	f.statusMu.RLock()
	defer f.statusMu.RUnlock()
	return f.status
}

// Close releases the store session and the buffer. It waits for a Log in
// progress to finish.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.local {
		return nil
	}

	var errs []error
	if err := f.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	if err := f.buf.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing buffer: %w", err))
	}
	return errors.Join(errs...)
}

func fatal(err error) Result {
	return Result{Outcome: OutcomeFatal, Err: err}
}
