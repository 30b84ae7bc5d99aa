package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/example/med-dispatch/internal/backend"
	"github.com/example/med-dispatch/internal/journal"
	"github.com/example/med-dispatch/internal/models"
	"github.com/example/med-dispatch/internal/observability"
	"github.com/example/med-dispatch/internal/proximity"
	"github.com/example/med-dispatch/internal/routing"
	"github.com/example/med-dispatch/internal/snapshot"
)

// input is one item on the engine's event queue. All mutation of driver
// status and assignment happens while handling inputs, one at a time, so
// interleaving of the independent sources (poller, positions, visibility,
// user actions) is deterministic.
type input interface{ isInput() }

type actionInput struct{ kind EventKind }
type positionInput struct{ sample models.PositionSample }
type remoteInput struct{ state models.RemoteState }
type suspendInput struct{}
type resumeInput struct{}
type permErrorInput struct{ msg string }

func (actionInput) isInput()    {}
func (positionInput) isInput()  {}
func (remoteInput) isInput()    {}
func (suspendInput) isInput()   {}
func (resumeInput) isInput()    {}
func (permErrorInput) isInput() {}

// Deps wires the engine's collaborators. Nil capabilities default to
// no-ops so tests and stripped-down deployments stay simple.
type Deps struct {
	Log       *slog.Logger
	Backend   backend.Dispatch
	Proximity *proximity.Monitor
	Routes    *routing.Synchronizer
	Snapshots snapshot.Store
	Journal   journal.TransportLog
	Telemetry Telemetry
	Notifier  Notifier
	Watch     PositionWatch
	KeepAlive ScreenKeepAlive
	Poll      PollControl
}

// Engine is the lifecycle state machine plus the glue that reconciles the
// poller, the proximity monitor, interruption persistence and user actions
// into one consistent driver state. Local state is the source of truth for
// the UI; the backend catches up via fire-and-forget calls and wins only
// for assignment absence on the next poll.
type Engine struct {
	log       *slog.Logger
	backend   backend.Dispatch
	prox      *proximity.Monitor
	routes    *routing.Synchronizer
	snaps     snapshot.Store
	journal   journal.TransportLog
	telemetry Telemetry
	notifier  Notifier
	watch     PositionWatch
	keepAlive ScreenKeepAlive
	poll      PollControl

	inputs chan input
	now    func() time.Time
	async  func(func())

	// mu guards the fields below; they are written only by the event
	// loop and read by View.
	mu            sync.Mutex
	status        models.DriverStatus
	assignment    *models.Assignment
	lastSeenID    string
	lastLocation  *models.PositionSample
	routeVisible  bool
	engagedAt     time.Time
	suspended     bool
	adoptRemote   bool
	lastPermError string
}

func New(d Deps) *Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Watch == nil {
		d.Watch = nopWatch{}
	}
	if d.KeepAlive == nil {
		d.KeepAlive = nopKeepAlive{}
	}
	if d.Poll == nil {
		d.Poll = nopPollControl{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Snapshots == nil {
		d.Snapshots = snapshot.NewMemoryStore()
	}
	e := &Engine{
		log:       d.Log,
		backend:   d.Backend,
		prox:      d.Proximity,
		routes:    d.Routes,
		snaps:     d.Snapshots,
		journal:   d.Journal,
		telemetry: d.Telemetry,
		notifier:  d.Notifier,
		watch:     d.Watch,
		keepAlive: d.KeepAlive,
		poll:      d.Poll,
		inputs:    make(chan input, 64),
		now:       time.Now,
		async:     func(fn func()) { go fn() },
		status:    models.StatusOffline,
	}
	return e
}

// SetPoll attaches the poll control after construction; the poller itself
// needs the engine as its sink, so wiring is two-phase.
func (e *Engine) SetPoll(p PollControl) {
	if p != nil {
		e.poll = p
	}
}

// Run drives the event loop until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	e.bootstrap(ctx)
	for {
		select {
		case <-ctx.Done():
			e.poll.Stop()
			e.watch.Stop()
			return
		case in := <-e.inputs:
			e.handle(in)
		}
	}
}

// bootstrap treats a snapshot left over from a previous session exactly
// like an interruption resume: route and location reappear immediately and
// the first poll re-derives status and assignment.
func (e *Engine) bootstrap(ctx context.Context) {
	snap, ok, err := e.snaps.Load(ctx)
	if err != nil || !ok {
		return
	}
	e.mu.Lock()
	e.restoreSnapshot(snap)
	e.adoptRemote = true
	e.mu.Unlock()
	e.poll.Start()
}

// --- event sources ---

func (e *Engine) GoOnline()       { e.submit(actionInput{EventGoOnline}) }
func (e *Engine) GoOffline()      { e.submit(actionInput{EventGoOffline}) }
func (e *Engine) Accept()         { e.submit(actionInput{EventAccept}) }
func (e *Engine) Reject()         { e.submit(actionInput{EventReject}) }
func (e *Engine) StartRoute()     { e.submit(actionInput{EventStartRoute}) }
func (e *Engine) Arrive()         { e.submit(actionInput{EventArrived}) }
func (e *Engine) StartTransport() { e.submit(actionInput{EventStartTransport}) }
func (e *Engine) Complete()       { e.submit(actionInput{EventComplete}) }

func (e *Engine) SubmitPosition(s models.PositionSample) { e.submit(positionInput{s}) }
func (e *Engine) Suspend()                               { e.submit(suspendInput{}) }
func (e *Engine) Resume()                                { e.submit(resumeInput{}) }

// ApplyRemote feeds one poll result into the loop.
func (e *Engine) ApplyRemote(rs models.RemoteState) { e.submit(remoteInput{rs}) }

// SurfacePermanent reports a non-retryable poll failure (auth/permission).
func (e *Engine) SurfacePermanent(msg string) { e.submit(permErrorInput{msg}) }

func (e *Engine) submit(in input) {
	select {
	case e.inputs <- in:
	default:
		// a stalled loop must not block position callbacks; drop and log
		e.log.Warn("event queue full, dropping input")
	}
}

// View returns the read-only projection for the UI shell.
func (e *Engine) View() models.StateView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view()
}

// --- event loop ---

func (e *Engine) handle(in input) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch v := in.(type) {
	case actionInput:
		e.applyEvent(v.kind)
	case positionInput:
		e.onPosition(v.sample)
	case remoteInput:
		e.reconcile(v.state)
	case suspendInput:
		e.onSuspend()
	case resumeInput:
		e.onResume()
	case permErrorInput:
		e.onPermanentError(v.msg)
	}
}

// applyEvent is the total transition function: illegal pairs log a warning
// and leave the state untouched.
func (e *Engine) applyEvent(kind EventKind) {
	next, ok := NextStatus(e.status, kind)
	if !ok {
		observability.IllegalTransitionsTotal.Inc()
		e.log.Warn("illegal transition ignored", "status", e.status, "event", kind)
		return
	}
	e.transition(kind, next)
}

func (e *Engine) transition(kind EventKind, next models.DriverStatus) {
	prev := e.status
	e.status = next
	observability.TransitionsTotal.WithLabelValues(prev.String(), next.String()).Inc()
	e.log.Info("transition", "from", prev, "to", next, "event", kind)

	switch kind {
	case EventGoOnline:
		e.poll.Start()
		e.updateStatusRemote(models.StatusAvailable, "")
	case EventGoOffline:
		e.poll.Stop()
		e.stopWatching()
		e.updateStatusRemote(models.StatusOffline, "")
	case EventAccept:
		id := e.assignment.ID
		e.notifier.Resolve(id)
		e.userCall("accept", func(ctx context.Context) error {
			return e.backend.AcceptAssignment(ctx, id)
		})
	case EventReject:
		a := *e.assignment
		e.notifier.Resolve(a.ID)
		e.userCall("reject", func(ctx context.Context) error {
			return e.backend.RejectAssignment(ctx, a.ID)
		})
		e.record(a, models.OutcomeRejected)
		e.clearEngagement()
	case EventStartRoute:
		id := e.assignment.ID
		e.updateStatusRemote(models.StatusEnRoute, id)
		e.startWatching()
		e.keepAlive.Set(true)
		e.routeVisible = true
		if pc := e.assignment.PickupCoord; pc != nil {
			if e.prox != nil {
				e.prox.Arm(*pc)
			}
			if e.routes != nil {
				e.routes.BeginLeg(*pc)
				if e.lastLocation != nil {
					origin := e.lastLocation.Coord
					// manual start-route always forces one immediate fetch
					e.async(func() { e.routes.Refresh(context.Background(), origin, true) })
				}
			}
		}
	case EventArrived:
		id := e.assignment.ID
		e.updateStatusRemote(models.StatusOnSite, id)
		e.routeVisible = false
		if e.prox != nil {
			e.prox.Disarm()
		}
		if e.routes != nil {
			e.routes.EndLeg()
		}
	case EventStartTransport:
		e.updateStatusRemote(models.StatusTransporting, e.assignment.ID)
	case EventComplete:
		a := *e.assignment
		e.userCall("complete", func(ctx context.Context) error {
			return e.backend.CompleteTransport(ctx, a.ID)
		})
		e.record(a, models.OutcomeCompleted)
		e.clearEngagement()
		e.stopWatching()
		e.keepAlive.Set(false)
		e.clearSnapshot()
	case EventAssignmentGone:
		a := *e.assignment
		e.notifier.AssignmentWithdrawn(a.ID)
		e.record(a, models.OutcomeWithdrawn)
		e.clearEngagement()
		e.stopWatching()
		e.keepAlive.Set(false)
		e.clearSnapshot()
	}

	e.afterMutation()
}

// reconcile applies one backend snapshot. Absence is evaluated before the
// new-assignment diff so a disappear-and-reappear between ticks is a full
// replace, never a no-op.
func (e *Engine) reconcile(rs models.RemoteState) {
	e.lastPermError = ""
	// adoption must run even while status is still offline, which is the
	// case right after a cold-start restore
	if e.adoptRemote {
		e.adopt(rs)
		return
	}
	if e.status == models.StatusOffline {
		return
	}

	// step 1: connection-of-record wins for absence
	if !rs.HasAssignment || rs.Assignment == nil {
		if e.status.Active() {
			e.applyEvent(EventAssignmentGone)
		}
		return
	}

	a := *rs.Assignment
	if a.ID == e.lastSeenID {
		// same identity: duplicate or retried tick, nothing to do
		return
	}

	// step 2: identity changed. Retire the old engagement first, then
	// record the id before the alert fires so a retried tick cannot
	// re-fire it.
	if e.status.Active() {
		e.applyEvent(EventAssignmentGone)
	}
	e.lastSeenID = a.ID
	if next, ok := NextStatus(e.status, EventNewAssignment); ok {
		e.assignment = &a
		e.engagedAt = e.now()
		e.transition(EventNewAssignment, next)
		e.notifier.OfferAssignment(a)
	}
}

// adopt rebuilds local status and assignment from the backend after an
// interruption; only UI/derived fields came from the snapshot.
func (e *Engine) adopt(rs models.RemoteState) {
	e.adoptRemote = false
	if !rs.HasAssignment || rs.Assignment == nil {
		e.assignment = nil
		if rs.Status == models.StatusOffline {
			e.status = models.StatusOffline
			e.poll.Stop()
		} else {
			e.status = models.StatusAvailable
		}
		e.stopWatching()
		e.keepAlive.Set(false)
		e.afterMutation()
		return
	}

	a := *rs.Assignment
	e.assignment = &a
	e.lastSeenID = a.ID
	e.engagedAt = e.now()
	st := rs.Status
	if !st.Active() {
		st = models.StatusAssigned
	}
	e.status = st
	if st == models.StatusAssigned {
		// still undecided: the blocking prompt must reappear
		e.notifier.OfferAssignment(a)
	}
	if st.TransportActive() {
		e.startWatching()
		e.keepAlive.Set(true)
	}
	if st == models.StatusEnRoute && a.PickupCoord != nil {
		e.routeVisible = true
		if e.prox != nil {
			e.prox.Arm(*a.PickupCoord)
		}
		if e.routes != nil && e.routes.Current() == nil {
			e.routes.BeginLeg(*a.PickupCoord)
		}
	}
	e.afterMutation()
}

func (e *Engine) onPosition(s models.PositionSample) {
	if !s.Valid() {
		e.log.Warn("discarding invalid position sample", "lat", s.Lat, "lon", s.Lon)
		return
	}
	if !e.status.TransportActive() {
		// watch is gated to active transports; a late callback after the
		// watch stopped is dropped
		return
	}
	sample := s
	e.lastLocation = &sample
	observability.PositionSamplesTotal.Inc()
	if e.telemetry != nil {
		status := e.status
		e.async(func() { _ = e.telemetry.PublishPosition(status, sample) })
	}
	if e.status == models.StatusEnRoute && e.prox != nil {
		_, arrived := e.prox.Observe(sample)
		if arrived {
			observability.ArrivalsTotal.Inc()
			e.applyEvent(EventArrived)
			return
		}
		if e.routes != nil {
			origin := sample.Coord
			e.async(func() { e.routes.Refresh(context.Background(), origin, false) })
		}
	}
	e.afterMutation()
}

func (e *Engine) onSuspend() {
	e.suspended = true
	if e.status.Active() {
		e.saveSnapshot()
	}
}

func (e *Engine) onResume() {
	e.suspended = false
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if snap, ok, err := e.snaps.Load(ctx); err != nil {
		e.log.Warn("snapshot load failed on resume", "error", err)
	} else if ok {
		e.restoreSnapshot(snap)
	}
	// status and assignment come from the next poll, never the snapshot
	e.adoptRemote = true
	e.notifier.StateChanged(e.view())
}

// restoreSnapshot reinstates only the UI/derived fields; restoring status
// or assignment could mask a remote change during the interruption.
func (e *Engine) restoreSnapshot(snap models.PersistedSnapshot) {
	e.routeVisible = snap.RouteVisible
	e.lastLocation = snap.LastLocation
	if e.routes != nil && snap.Route != nil {
		e.routes.Restore(snap.Route)
	}
}

func (e *Engine) onPermanentError(msg string) {
	if msg == e.lastPermError {
		return
	}
	e.lastPermError = msg
	observability.PollFailuresTotal.Inc()
	e.notifier.SurfaceError(msg)
}

// --- helpers, called with mu held ---

func (e *Engine) afterMutation() {
	if e.status.TransportActive() || (e.suspended && e.status.Active()) {
		e.saveSnapshot()
	}
	e.notifier.StateChanged(e.view())
}

func (e *Engine) view() models.StateView {
	v := models.StateView{
		Status:          e.status,
		Assignment:      e.assignment,
		RouteVisible:    e.routeVisible,
		LastLocation:    e.lastLocation,
		PendingPromptID: e.notifier.Pending(),
	}
	if e.routes != nil {
		v.Route = e.routes.Current()
	}
	if e.status == models.StatusEnRoute && e.prox != nil {
		if d := e.prox.LastDistance(); !math.IsNaN(d) {
			v.DistanceToPickup = &d
		}
	}
	return v
}

func (e *Engine) saveSnapshot() {
	snap := models.PersistedSnapshot{
		DriverStatus: e.status,
		Assignment:   e.assignment,
		RouteVisible: e.routeVisible,
		LastLocation: e.lastLocation,
		SavedAt:      e.now(),
	}
	if e.routes != nil {
		snap.Route = e.routes.Current()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := e.snaps.Save(ctx, snap); err != nil {
		e.log.Warn("snapshot write failed", "error", err)
		return
	}
	observability.SnapshotWrites.Inc()
}

func (e *Engine) clearSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := e.snaps.Clear(ctx); err != nil {
		e.log.Warn("snapshot clear failed", "error", err)
	}
}

func (e *Engine) clearEngagement() {
	e.assignment = nil
	e.routeVisible = false
	if e.prox != nil {
		e.prox.Disarm()
	}
	if e.routes != nil {
		e.routes.EndLeg()
	}
}

func (e *Engine) startWatching() { e.watch.Start() }
func (e *Engine) stopWatching()  { e.watch.Stop() }

// updateStatusRemote mirrors a local transition to the backend without
// blocking the loop; a failure is logged and left to reconciliation.
func (e *Engine) updateStatusRemote(status models.DriverStatus, bookingID string) {
	if e.backend == nil {
		return
	}
	e.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := e.backend.UpdateStatus(ctx, status, bookingID); err != nil {
			e.log.Warn("status update failed", "status", status, "error", err)
		}
	})
}

// userCall runs an explicit user action against the backend. The local
// transition stands either way; a genuine backend rejection (non-transient)
// surfaces inline because it needs user acknowledgment.
func (e *Engine) userCall(op string, call func(context.Context) error) {
	if e.backend == nil {
		return
	}
	e.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		err := call(ctx)
		if err == nil {
			return
		}
		e.log.Warn("backend call failed", "op", op, "error", err)
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && !apiErr.Transient() {
			e.notifier.SurfaceError(op + " failed: " + apiErr.Body)
		}
	})
}

func (e *Engine) record(a models.Assignment, outcome models.TransportOutcome) {
	if e.journal == nil {
		return
	}
	rec := &models.TransportRecord{
		AssignmentID: a.ID,
		PatientName:  a.PatientName,
		Outcome:      outcome,
		StartedAt:    e.engagedAt,
		EndedAt:      e.now(),
	}
	e.async(func() {
		if err := e.journal.Record(rec); err != nil {
			e.log.Warn("journal write failed", "assignment", a.ID, "error", err)
		}
	})
}
