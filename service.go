package statch

import (
	"log/slog"
	"sort"

	"github.com/statch/statch/internal/logging"
	"github.com/statch/statch/internal/runtime"
	"github.com/statch/statch/pkg/domain"
)

// Service is the stateful interpreter: it owns a mutable context, drives the
// machine, executes actions and notifies subscribers.
//
// A Service is single-threaded: one logical thread of control, no internal
// locks. Every call runs synchronously to completion. Reentrant Send from
// inside an action is allowed and runs depth-first; persistence follows
// call-return order, so the outermost call's result is the one that sticks.
type Service struct {
	machine *Machine
	exec    *runtime.Executor
	logger  *slog.Logger

	context map[string]any
	state   domain.StateResult
	status  domain.Status

	listeners map[int]domain.Listener
	nextSubID int

	// Microtask machinery: deferred work (initial subscribe notifications)
	// runs when the outermost public call unwinds.
	depth   int
	pending []func()
}

// ServiceOption configures a Service at interpretation time.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger   *slog.Logger
	actions  map[string]domain.ActionFunc
	guards   map[string]domain.GuardFunc
	snapshot *domain.Snapshot
}

// WithLogger sets a structured logger for contained failures. Defaults to a
// no-op logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithLocalActions registers service-scope named actions, the highest
// priority of the three resolution scopes.
func WithLocalActions(actions map[string]domain.ActionFunc) ServiceOption {
	return func(o *serviceOptions) { o.actions = actions }
}

// WithLocalGuards registers service-scope named guards.
func WithLocalGuards(guards map[string]domain.GuardFunc) ServiceOption {
	return func(o *serviceOptions) { o.guards = guards }
}

// WithSnapshot resumes the service from a persisted snapshot: context,
// current value and status are restored verbatim. A snapshot in Running
// status makes Start a no-op, so entry actions are not replayed on resume.
//
// A NotStarted snapshot only seeds the visible pre-start state: Start then
// begins fresh from the machine definition, rebuilding the context. Callers
// who want to begin at the snapshot's position use StartAt(snap.Value).
func WithSnapshot(snap domain.Snapshot) ServiceOption {
	return func(o *serviceOptions) { o.snapshot = &snap }
}

func newService(m *Machine, opts ...ServiceOption) *Service {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	scopes := m.scopes.Prepend(runtime.Scope{Actions: o.actions, Guards: o.guards})

	s := &Service{
		machine:   m,
		exec:      runtime.NewExecutor(scopes, o.logger),
		logger:    o.logger,
		context:   domain.CopyContext(m.config.Context),
		status:    domain.StatusNotStarted,
		listeners: make(map[int]domain.Listener),
	}

	// Seed the visible state without running anything: before Start the
	// context is the raw config context (entry assigns not yet applied).
	s.state = domain.StateResult{
		Value:   m.config.Initial,
		Context: domain.CopyContext(s.context),
	}

	if o.snapshot != nil {
		s.restore(*o.snapshot)
	}
	return s
}

func (s *Service) restore(snap domain.Snapshot) {
	if snap.Value != "" {
		s.state.Value = snap.Value
	}
	if snap.Context != nil {
		s.context = domain.CopyContext(snap.Context)
		s.state.Context = domain.CopyContext(snap.Context)
	}
	s.status = domain.StatusFromString(snap.Status)
}

// State returns the latest persisted StateResult snapshot.
func (s *Service) State() domain.StateResult { return s.state }

// Status returns the lifecycle status.
func (s *Service) Status() domain.Status { return s.status }

// Machine returns the underlying pure machine.
func (s *Service) Machine() *Machine { return s.machine }

// Snapshot projects the service into its persistable form.
func (s *Service) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Value:   s.state.Value,
		Context: domain.CopyContext(s.context),
		Status:  s.status.String(),
	}
}

// Start brings the service to Running at the machine's initial state,
// executing the initial entry actions with the synthetic init event.
// Idempotent when already Running.
func (s *Service) Start() *Service { return s.StartAt(s.machine.config.Initial) }

// StartAt starts the service seeded at a caller-chosen state value, e.g. to
// resume a persisted session at a specific state. The seeded state's entry
// actions run as the initial actions.
func (s *Service) StartAt(value string) *Service {
	s.enter()
	defer s.leave()

	if s.status == domain.StatusRunning {
		return s
	}

	st, err := s.machine.stateResultFor(value)
	if err != nil {
		s.logger.Error("start failed", "machine", s.machine.ID(), "value", value, "error", err)
		return s
	}

	// Rebuild the owned context from the entry result. The map identity must
	// stay stable: actions and reentrant sends hold references to it.
	for k := range s.context {
		delete(s.context, k)
	}
	s.adoptContext(st.Context)
	if err := s.exec.Run(s.context, st.Actions, domain.InitEvent()); err != nil {
		s.logger.Warn("initial action failed", "machine", s.machine.ID(), "error", err)
	}

	s.status = domain.StatusRunning
	s.persist(st)
	s.notify()
	return s
}

// Stop halts the service and clears the subscription registry. Further Send
// calls are no-ops.
func (s *Service) Stop() *Service {
	s.enter()
	defer s.leave()

	s.status = domain.StatusStopped
	s.listeners = make(map[int]domain.Listener)
	return s
}

// Send delivers an event to a running service and returns the service;
// callers read the outcome via State(). It is a no-op unless Running.
//
// Per-call failures (invalid events, panicking actions, unknown targets in
// strict mode) are contained: the in-flight result is discarded, context
// mutations already applied are retained, and the service stays usable.
func (s *Service) Send(event any) *Service {
	s.enter()
	defer s.leave()

	if s.status != domain.StatusRunning {
		return s
	}

	ev, err := runtime.NormalizeEvent(event)
	if err != nil {
		s.logger.Warn("event rejected", "machine", s.machine.ID(), "error", err)
		return s
	}

	next, err := s.machine.transition(s.state.Value, s.context, ev, s.exec.Scopes())
	if err != nil {
		s.logger.Warn("transition discarded", "machine", s.machine.ID(), "event", ev.Type, "error", err)
		return s
	}

	// Fold the pass-1 writes into the owned context before the remainder
	// runs, so every non-assign action (and any reentrant Send) observes
	// them. The map is merged in place, never swapped: a nested Send must
	// keep mutating the same map the outer call's actions hold, or patches
	// applied after the nested call would land in an orphaned copy.
	s.adoptContext(next.Context)
	if err := s.exec.Run(s.context, next.Actions, ev); err != nil {
		s.logger.Warn("action failed, result discarded",
			"machine", s.machine.ID(), "event", ev.Type, "error", err)
		return s
	}

	s.persist(next)
	s.notify()
	return s
}

// Subscribe registers a listener and schedules exactly one notification with
// the current state. The notification fires when the outermost public call
// unwinds: subscribing from inside an action or listener defers it until that
// call finishes, while a top-level Subscribe delivers it during its own
// return, before the caller holds the unsubscribe func. It returns an
// unsubscribe func bound to this registration's id; subscribing the same
// listener twice yields two independent registrations.
func (s *Service) Subscribe(listener domain.Listener) func() {
	s.enter()
	defer s.leave()

	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = listener

	s.pending = append(s.pending, func() {
		if fn, ok := s.listeners[id]; ok {
			fn(s.state)
		}
	})

	return func() { s.unsubscribe(id) }
}

// unsubscribe removes the listener registered under id. Removal is always by
// id, never by callable identity; repeat calls are no-ops.
func (s *Service) unsubscribe(id int) {
	delete(s.listeners, id)
}

// adoptContext merges src into the owned context in place. The context map's
// identity is stable for the life of the service.
func (s *Service) adoptContext(src map[string]any) {
	for k, v := range src {
		s.context[k] = v
	}
}

// persist commits the outcome of a call: context snapshot and state are
// replaced exactly once per Start/Send.
func (s *Service) persist(next domain.StateResult) {
	next.Context = domain.CopyContext(s.context)
	s.state = next
}

func (s *Service) notify() {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := s.listeners[id]; ok {
			fn(s.state)
		}
	}
}

func (s *Service) enter() { s.depth++ }

func (s *Service) leave() {
	s.depth--
	if s.depth > 0 {
		return
	}
	for len(s.pending) > 0 {
		queue := s.pending
		s.pending = nil
		for _, task := range queue {
			task()
		}
	}
}
