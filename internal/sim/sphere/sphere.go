package sphere

import (
	"io"
	"log"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/persistence/snapshot"
	"geosphere.ai/internal/sim/graph"
)

type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte
	// Debug sessions receive DEBUG frames; others receive FRAME messages.
	Debug bool
	// IncludeLeaves adds the leaf set to DEBUG frames.
	IncludeLeaves bool
}

// DebugTagRequest toggles the debug-draw tag of a node by path.
type DebugTagRequest struct {
	Path string
	On   bool
	Resp chan error
}

// Sphere is a single-threaded authoritative subdivision engine.
// All state must be accessed only from the loop goroutine; the data-parallel
// passes inside a tick are the only exception and they follow the store's
// read/flag discipline.
type Sphere struct {
	cfg SphereConfig
	log *log.Logger

	store     *graph.Store
	rootIndex map[graph.Handle]int

	tick atomic.Uint64

	viewpoint    r3.Vec
	hasViewpoint bool

	viewIn        chan r3.Vec
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	debugTag      chan DebugTagRequest
	stop          chan struct{}

	observers       map[string]*observerClient
	lastFrameDigest string

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	auditsThisTick []AuditEntry
	tagsThisTick   []TagChange
	totals         Totals
	metrics        atomic.Value // SphereMetrics
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick       uint64      `json:"tick"`
	Viewpoint  *[3]float64 `json:"viewpoint,omitempty"`
	Splits     int         `json:"splits"`
	Collapses  int         `json:"collapses"`
	Forced     int         `json:"forced"`
	Iterations int         `json:"iterations"`
	Nodes      int         `json:"nodes"`
	Leaves     int         `json:"leaves"`
	Digest     string      `json:"digest"`
	// Tags are debug-tag changes applied before this tick.
	Tags []TagChange `json:"tags,omitempty"`
}

type TagChange struct {
	Path string `json:"path"`
	On   bool   `json:"on"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Action string `json:"action"` // SUBDIVIDE, FORCED_SUBDIVIDE, UNSUBDIVIDE, INVARIANT
	Path   string `json:"path"`
	Level  int    `json:"level"`
	Reason string `json:"reason,omitempty"`
}

const (
	AuditSubdivide       = "SUBDIVIDE"
	AuditForcedSubdivide = "FORCED_SUBDIVIDE"
	AuditUnsubdivide     = "UNSUBDIVIDE"
	AuditInvariant       = "INVARIANT"
)

// Totals are cumulative counters since the sphere was created.
type Totals struct {
	Splits     uint64 `json:"splits"`
	Collapses  uint64 `json:"collapses"`
	Forced     uint64 `json:"forced"`
	Violations uint64 `json:"violations"`
}

func New(cfg SphereConfig, logger *log.Logger) (*Sphere, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Sphere{
		cfg:           cfg,
		log:           logger,
		store:         graph.NewStore(),
		rootIndex:     map[graph.Handle]int{},
		viewIn:        make(chan r3.Vec, 64),
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerLeave: make(chan string, 64),
		debugTag:      make(chan DebugTagRequest, 16),
		stop:          make(chan struct{}),
		observers:     map[string]*observerClient{},
	}
	s.metrics.Store(SphereMetrics{})
	return s, nil
}

func (s *Sphere) SetTickLogger(l TickLogger)                    { s.tickLogger = l }
func (s *Sphere) SetAuditLogger(l AuditLogger)                  { s.auditLogger = l }
func (s *Sphere) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { s.snapshotSink = ch }

func (s *Sphere) Viewpoint() chan<- r3.Vec                 { return s.viewIn }
func (s *Sphere) ObserverJoin() chan<- ObserverJoinRequest { return s.observerJoin }
func (s *Sphere) ObserverLeave() chan<- string             { return s.observerLeave }
func (s *Sphere) DebugTag() chan<- DebugTagRequest         { return s.debugTag }

func (s *Sphere) Config() SphereConfig { return s.cfg }
func (s *Sphere) CurrentTick() uint64  { return s.tick.Load() }

// Store exposes the graph for read-only queries from the loop goroutine.
func (s *Sphere) Store() *graph.Store { return s.store }

// SetViewpoint replaces the viewpoint used by the next tick.
func (s *Sphere) SetViewpoint(vp r3.Vec) {
	s.viewpoint = vp
	s.hasViewpoint = true
}

func (s *Sphere) CurrentViewpoint() (r3.Vec, bool) { return s.viewpoint, s.hasViewpoint }

func (s *Sphere) Totals() Totals { return s.totals }
