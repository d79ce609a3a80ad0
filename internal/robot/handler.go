// Package robot implements RobotHandler: the per-robot finite state machine
// driven concurrently by API-context calls (assign, set_active, free_cell,
// clear_error) and asynchronous transport-callback events. SPEC_FULL.md
// §4.2/§9 resolves the source's unguarded dual-thread mutation by giving
// each handler exactly one goroutine that owns all mutable state; every
// method below marshals its work onto that goroutine's inbox instead of
// taking a lock.
package robot

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"warehousefleet/internal/metrics"
	"warehousefleet/internal/routeoracle"
	"warehousefleet/internal/transport"
	"warehousefleet/internal/types"
)

const unusedCell = -1

// Handler owns one robot's live connection, job queue, and cell array. The
// zero value is not usable; construct with New.
type Handler struct {
	name string

	inbox    chan func()
	done     chan struct{}
	closeFn  sync.Once
	wg       sync.WaitGroup

	transport transport.Client
	oracle    routeoracle.Oracle
	graphID   string
	updates   chan<- types.Job
	metrics   *metrics.Collector
	log       *zap.Logger

	// Fields below are only ever touched on the actor goroutine.
	active       bool
	actionStatus types.RobotActionStatus
	lastTagID    string
	cells        []types.RobotCell
	currentJob   *types.Job
	currentCell  int
	queue        []types.Job
}

// Config is the construction-time state for a RobotHandler.
type Config struct {
	Name        string
	Transport   transport.Client
	Oracle      routeoracle.Oracle
	GraphID     string
	CellHeights []float64
	StartTagID  string
	Updates     chan<- types.Job
	Metrics     *metrics.Collector
	Log         *zap.Logger
}

// New constructs a RobotHandler and starts its owning goroutine. The handler
// begins active, online per its transport's reported connection status, and
// idle.
func New(cfg Config) *Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	cells := make([]types.RobotCell, len(cfg.CellHeights))
	for i, h := range cfg.CellHeights {
		cells[i] = types.RobotCell{Height: h}
	}

	h := &Handler{
		name:         cfg.Name,
		inbox:        make(chan func(), 64),
		done:         make(chan struct{}),
		transport:    cfg.Transport,
		oracle:       cfg.Oracle,
		graphID:      cfg.GraphID,
		updates:      cfg.Updates,
		metrics:      cfg.Metrics,
		log:          log.Named("robot_handler").With(zap.String("robot", cfg.Name)),
		active:       true,
		actionStatus: types.ActionIdle,
		lastTagID:    cfg.StartTagID,
		cells:        cells,
		currentCell:  unusedCell,
	}

	h.wg.Add(1)
	go h.run()
	return h
}

// Name returns the robot's name, stable for the handler's lifetime.
func (h *Handler) Name() string { return h.name }

func (h *Handler) run() {
	defer h.wg.Done()
	for {
		select {
		case fn := <-h.inbox:
			fn()
		case <-h.done:
			return
		}
	}
}

// submit enqueues fn to run on the actor goroutine and blocks until it has.
// Used for every public method so a caller observes a linearized view of
// handler state, matching the actor model in SPEC_FULL.md §4.2.
func (h *Handler) submit(fn func()) {
	done := make(chan struct{})
	select {
	case h.inbox <- func() { fn(); close(done) }:
		<-done
	case <-h.done:
	}
}

// Shutdown stops the actor goroutine and closes the robot's transport.
// In-flight goals are left to the transport to settle; FleetHandler.Shutdown
// calls this for every robot.
func (h *Handler) Shutdown() {
	h.closeFn.Do(func() {
		close(h.done)
		if err := h.transport.Close(); err != nil {
			h.log.Warn("transport close failed", zap.Error(err))
		}
	})
	h.wg.Wait()
}

// Assign appends a job to the queue, then attempts to promote it (Trigger).
func (h *Handler) Assign(job types.Job) {
	h.submit(func() {
		h.queue = append(h.queue, job)
		h.reportQueueDepth()
		h.triggerLocked()
	})
}

// Trigger attempts to promote the queue head to current. It is idempotent:
// repeated calls with no intervening state change have no additional
// effect (SPEC_FULL.md §8 property 7).
func (h *Handler) Trigger() {
	h.submit(h.triggerLocked)
}

// ClearError transitions ERROR -> IDLE and re-triggers. No-op otherwise.
func (h *Handler) ClearError() bool {
	var cleared bool
	h.submit(func() {
		if h.actionStatus != types.ActionError {
			return
		}
		h.actionStatus = types.ActionIdle
		cleared = true
		h.triggerLocked()
	})
	return cleared
}

// SetActive marks the robot available/unavailable for future triggers.
// Disabling a robot with a current job does not cancel that job.
func (h *Handler) SetActive(active bool) {
	h.submit(func() {
		h.active = active
		if active {
			h.triggerLocked()
		}
	})
}

// FreeCell clears a cell's holding job id. Cells are only ever freed by this
// explicit operator action (SPEC_FULL.md §9) — never automatically on
// delivery completion.
func (h *Handler) FreeCell(index int) error {
	var err error
	h.submit(func() {
		if index < 0 || index >= len(h.cells) {
			err = fmt.Errorf("robot %s: cell index %d out of range", h.name, index)
			return
		}
		h.cells[index].Holding = nil
	})
	return err
}

// RemoveQueuedJob removes a waiting job by id. It must never touch
// current_job — cancelling an in-flight job needs a transport-level cancel,
// out of scope per SPEC_FULL.md §9.
func (h *Handler) RemoveQueuedJob(id uuid.UUID) bool {
	var removed bool
	h.submit(func() {
		for i, j := range h.queue {
			if j.ID == id {
				h.queue = append(h.queue[:i], h.queue[i+1:]...)
				removed = true
				h.reportQueueDepth()
				return
			}
		}
	})
	return removed
}

// CurrentJob returns a copy of the robot's current job, or nil.
func (h *Handler) CurrentJob() *types.Job {
	var out *types.Job
	h.submit(func() {
		if h.currentJob != nil {
			j := *h.currentJob
			out = &j
		}
	})
	return out
}

// Queue returns a snapshot copy of the waiting jobs, in FIFO order.
func (h *Handler) Queue() []types.Job {
	var out []types.Job
	h.submit(func() {
		out = append(out, h.queue...)
	})
	return out
}

// Cells returns a snapshot copy of the robot's cell array.
func (h *Handler) Cells() []types.RobotCell {
	var out []types.RobotCell
	h.submit(func() {
		out = append(out, h.cells...)
	})
	return out
}

// ToSnapshot produces a read-only view for the query layer.
func (h *Handler) ToSnapshot() types.RobotSnapshot {
	var out types.RobotSnapshot
	h.submit(func() {
		out = types.RobotSnapshot{
			Name:             h.name,
			Active:           h.active,
			ConnectionStatus: h.transport.ConnectionStatus(),
			ActionStatus:     h.actionStatus,
			LastTagID:        h.lastTagID,
			Queue:            append([]types.Job(nil), h.queue...),
			Cells:            append([]types.RobotCell(nil), h.cells...),
		}
		if h.currentJob != nil {
			j := *h.currentJob
			out.CurrentJob = &j
		}
	})
	return out
}

func (h *Handler) reportQueueDepth() {
	h.metrics.QueueDepthSet(h.name, len(h.queue))
}

// triggerLocked is the admission gate. It runs on the actor goroutine only.
func (h *Handler) triggerLocked() {
	if !h.admissible() {
		h.metrics.Trigger(h.name, false)
		return
	}

	job := h.queue[0]
	h.queue = h.queue[1:]
	h.reportQueueDepth()
	h.currentJob = &job

	cellIndex := unusedCell
	if job.Operation == types.OpPickup {
		idx, ok := h.allocateCell()
		if !ok {
			h.failDispatch(job, types.ErrNoFreeCell)
			h.metrics.Trigger(h.name, false)
			return
		}
		cellIndex = idx
	}
	h.currentCell = cellIndex

	if err := h.sendJob(job, cellIndex); err != nil {
		h.failDispatch(job, err)
		h.metrics.Trigger(h.name, false)
		return
	}

	h.metrics.Trigger(h.name, true)
}

func (h *Handler) admissible() bool {
	return h.active &&
		h.transport.ConnectionStatus() == types.ConnOnline &&
		h.currentJob == nil &&
		len(h.queue) > 0 &&
		h.actionStatus.IsReady()
}

// allocateCell walks the cells array in index order and returns the first
// free one.
func (h *Handler) allocateCell() (int, bool) {
	for i, c := range h.cells {
		if c.Free() {
			return i, true
		}
	}
	return 0, false
}

// failDispatch handles a synchronous dispatch failure (no free cell, unknown
// start tag, no path found): mark ERROR, fail the job, publish, clear
// current job/cell. It does not re-trigger — the failure happened within
// this very trigger invocation.
func (h *Handler) failDispatch(job types.Job, cause error) {
	h.log.Warn("dispatch failed", zap.String("job", job.ID.String()), zap.Error(cause))
	h.actionStatus = types.ActionError
	job.Status = types.StatusFailed
	h.currentJob = nil
	h.currentCell = unusedCell
	h.metrics.Terminal(h.name, job.Status.String())
	h.publish(job)
}

func (h *Handler) publish(job types.Job) {
	h.updates <- job
}

// sendJob resolves the start node, plans a path, hydrates it, and hands the
// goal to the transport. Callbacks marshal back onto the actor goroutine via
// submit-like enqueue so terminal handling never races with API calls.
func (h *Handler) sendJob(job types.Job, cellIndex int) error {
	ctx := context.Background()

	if h.lastTagID == "" {
		return types.ErrUnknownStartTag
	}
	startNode, err := h.oracle.GetNodeByTagID(ctx, h.graphID, h.lastTagID)
	if err != nil || startNode == nil {
		return fmt.Errorf("%w: %v", types.ErrUnknownStartTag, err)
	}

	pathIDs, err := h.oracle.GetShortestPathByID(ctx, h.graphID, startNode.ID, job.Target.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrNoPathFound, err)
	}
	if len(pathIDs) == 0 {
		return types.ErrNoPathFound
	}

	nodes, err := h.oracle.GetNodesByIDs(ctx, h.graphID, pathIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrNoPathFound, err)
	}

	goal := transport.Goal{Nodes: nodes, Operation: job.Operation, RobotCell: cellIndex}

	_, err = h.transport.SendGoal(ctx, goal,
		func(fb transport.Feedback) { h.onFeedback(fb) },
		func(result types.TransportResult) { h.onResult(job, cellIndex, result) },
		func(terr error) { h.onTransportError(job, terr) },
	)
	if err != nil {
		return err
	}

	h.actionStatus = types.ActionOperating
	job.Status = types.StatusInProgress
	h.currentJob = &job
	h.metrics.Dispatched(h.name, job.Operation.String())
	h.publish(job)
	return nil
}

func (h *Handler) onFeedback(fb transport.Feedback) {
	h.enqueue(func() {
		h.lastTagID = fb.TagID
	})
}

func (h *Handler) onResult(job types.Job, cellIndex int, result types.TransportResult) {
	h.enqueue(func() {
		switch result {
		case types.ResultSucceeded:
			h.actionStatus = types.ActionSucceeded
			job.Status = types.StatusCompleted
		case types.ResultCanceled:
			h.actionStatus = types.ActionCanceled
			job.Status = types.StatusCanceled
		default:
			h.actionStatus = types.ActionError
			job.Status = types.StatusFailed
		}

		if job.Operation == types.OpPickup && job.Status == types.StatusCompleted && cellIndex != unusedCell {
			id := job.ID
			h.cells[cellIndex].Holding = &id
		}

		h.currentCell = unusedCell
		h.currentJob = nil
		h.metrics.Terminal(h.name, job.Status.String())
		h.publish(job)
		h.triggerLocked()
	})
}

func (h *Handler) onTransportError(job types.Job, cause error) {
	h.log.Warn("transport fault", zap.String("job", job.ID.String()), zap.Error(cause))
	h.enqueue(func() {
		h.actionStatus = types.ActionError
		job.Status = types.StatusFailed
		h.currentCell = unusedCell
		h.currentJob = nil
		h.metrics.Terminal(h.name, job.Status.String())
		h.publish(job)
		h.triggerLocked()
	})
}

// enqueue marshals a callback-originated mutation onto the actor goroutine
// without blocking the transport's thread on a response.
func (h *Handler) enqueue(fn func()) {
	select {
	case h.inbox <- fn:
	case <-h.done:
	}
}
