// Package fleet implements FleetHandler: the dictionary of per-robot
// RobotHandlers, and thin routing of assignments/lookups/cancellations to
// the right one. All operations are no-ops or return zero values when the
// robot name is unknown, per SPEC_FULL.md §4.3.
package fleet

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"warehousefleet/internal/metrics"
	"warehousefleet/internal/robot"
	"warehousefleet/internal/routeoracle"
	"warehousefleet/internal/transport"
	"warehousefleet/internal/types"
)

// Handler is the FleetHandler.
type Handler struct {
	mu     sync.RWMutex
	robots map[string]*robot.Handler
	specs  map[string]RobotSpec

	oracle   routeoracle.Oracle
	graphID  string
	updates  chan<- types.Job
	metrics  *metrics.Collector
	robotLog *zap.Logger
	log      *zap.Logger
}

// RobotSpec is one entry of the robots configuration: name -> transport +
// cell heights, used to construct that robot's Handler.
type RobotSpec struct {
	Name        string
	Transport   transport.Client
	CellHeights []float64
	StartTagID  string
}

// New constructs a FleetHandler with one RobotHandler per spec. updates is
// the shared status-update channel every RobotHandler publishes terminal
// job transitions to; oracle and graphID are shared across every robot.
func New(specs []RobotSpec, oracle routeoracle.Oracle, graphID string, updates chan<- types.Job, m *metrics.Collector, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		robots:   make(map[string]*robot.Handler, len(specs)),
		specs:    make(map[string]RobotSpec, len(specs)),
		oracle:   oracle,
		graphID:  graphID,
		updates:  updates,
		metrics:  m,
		robotLog: log,
		log:      log.Named("fleet_handler"),
	}

	for _, spec := range specs {
		h.robots[spec.Name] = h.buildRobot(spec)
		h.specs[spec.Name] = spec
	}

	return h
}

func (h *Handler) buildRobot(spec RobotSpec) *robot.Handler {
	return robot.New(robot.Config{
		Name:        spec.Name,
		Transport:   spec.Transport,
		Oracle:      h.oracle,
		GraphID:     h.graphID,
		CellHeights: spec.CellHeights,
		StartTagID:  spec.StartTagID,
		Updates:     h.updates,
		Metrics:     h.metrics,
		Log:         h.robotLog,
	})
}

// ReconcileRobots applies a freshly reloaded robots configuration: robots no
// longer present are shut down and dropped, new ones are started, and ones
// whose cell layout or start tag changed are restarted with a fresh
// RobotHandler built from the given spec's (new) transport. Robots whose
// spec is unchanged are left running untouched, so in-flight jobs survive a
// reload that doesn't actually concern them. Used by the config hot-reload
// watch (SPEC_FULL.md §2) — the robots map is the only hot-reloadable field.
func (h *Handler) ReconcileRobots(specs []RobotSpec) {
	h.mu.Lock()
	defer h.mu.Unlock()

	want := make(map[string]RobotSpec, len(specs))
	for _, s := range specs {
		want[s.Name] = s
	}

	for name, r := range h.robots {
		if _, ok := want[name]; !ok {
			h.log.Info("reconcile: removing robot", zap.String("robot", name))
			r.Shutdown()
			delete(h.robots, name)
			delete(h.specs, name)
		}
	}

	for name, spec := range want {
		prev, exists := h.specs[name]
		if exists && robotSpecEqual(prev, spec) {
			continue
		}
		if exists {
			h.log.Info("reconcile: restarting robot with new config", zap.String("robot", name))
			h.robots[name].Shutdown()
		} else {
			h.log.Info("reconcile: adding robot", zap.String("robot", name))
		}
		h.robots[name] = h.buildRobot(spec)
		h.specs[name] = spec
	}
}

func robotSpecEqual(a, b RobotSpec) bool {
	if a.StartTagID != b.StartTagID || len(a.CellHeights) != len(b.CellHeights) {
		return false
	}
	for i := range a.CellHeights {
		if a.CellHeights[i] != b.CellHeights[i] {
			return false
		}
	}
	return true
}

// AssignJob routes a job to the named robot's queue. No-op if the robot is
// unknown.
func (h *Handler) AssignJob(robotName string, job types.Job) {
	h.mu.RLock()
	r, ok := h.robots[robotName]
	h.mu.RUnlock()
	if !ok {
		h.log.Warn("assign_job: unknown robot", zap.String("robot", robotName))
		return
	}
	r.Assign(job)
}

// GetRobot returns the named robot's snapshot, or false if unknown.
func (h *Handler) GetRobot(robotName string) (types.RobotSnapshot, bool) {
	h.mu.RLock()
	r, ok := h.robots[robotName]
	h.mu.RUnlock()
	if !ok {
		return types.RobotSnapshot{}, false
	}
	return r.ToSnapshot(), true
}

// GetRobots returns snapshots of every known robot.
func (h *Handler) GetRobots() []types.RobotSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.RobotSnapshot, 0, len(h.robots))
	for _, r := range h.robots {
		out = append(out, r.ToSnapshot())
	}
	return out
}

// KnowsRobot reports whether robotName is a configured robot.
func (h *Handler) KnowsRobot(robotName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.robots[robotName]
	return ok
}

// GetRobotCells returns the named robot's cell array, or nil if unknown.
func (h *Handler) GetRobotCells(robotName string) []types.RobotCell {
	r, ok := h.robotByName(robotName)
	if !ok {
		return nil
	}
	return r.Cells()
}

// GetCurrentJob returns the named robot's current job, or nil.
func (h *Handler) GetCurrentJob(robotName string) *types.Job {
	r, ok := h.robotByName(robotName)
	if !ok {
		return nil
	}
	return r.CurrentJob()
}

// GetJobQueue returns the named robot's waiting jobs, or nil.
func (h *Handler) GetJobQueue(robotName string) []types.Job {
	r, ok := h.robotByName(robotName)
	if !ok {
		return nil
	}
	return r.Queue()
}

// RemoveQueuedJob removes a waiting job by id from the named robot's queue.
// It never touches current_job.
func (h *Handler) RemoveQueuedJob(robotName string, jobID uuid.UUID) bool {
	r, ok := h.robotByName(robotName)
	if !ok {
		return false
	}
	return r.RemoveQueuedJob(jobID)
}

// FreeCell clears a cell's holding job id on the named robot.
func (h *Handler) FreeCell(robotName string, cellIndex int) error {
	r, ok := h.robotByName(robotName)
	if !ok {
		return nil
	}
	return r.FreeCell(cellIndex)
}

// ClearError clears the named robot's sticky ERROR state, if set.
func (h *Handler) ClearError(robotName string) bool {
	r, ok := h.robotByName(robotName)
	if !ok {
		return false
	}
	return r.ClearError()
}

// SetActive marks the named robot available/unavailable for future triggers.
func (h *Handler) SetActive(robotName string, active bool) {
	r, ok := h.robotByName(robotName)
	if !ok {
		return
	}
	r.SetActive(active)
}

func (h *Handler) robotByName(robotName string) (*robot.Handler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.robots[robotName]
	return r, ok
}

// Shutdown tears down every robot's transport connection and actor
// goroutine. In-flight jobs may settle in whatever terminal status the
// transport reports.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.robots {
		r.Shutdown()
	}
}
