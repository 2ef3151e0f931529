package sphere

import (
	"encoding/json"

	"geosphere.ai/internal/observerproto"
	"geosphere.ai/internal/protocol"
	"geosphere.ai/internal/sim/graph"
)

type observerClient struct {
	id            string
	out           chan []byte
	debug         bool
	includeLeaves bool

	// sentShape is the leaf digest of the last FRAME this viewer received.
	sentShape string
}

func (s *Sphere) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	s.observers[req.SessionID] = &observerClient{
		id:            req.SessionID,
		out:           req.Out,
		debug:         req.Debug,
		includeLeaves: req.IncludeLeaves,
	}
}

func (s *Sphere) handleObserverLeave(id string) {
	delete(s.observers, id)
}

func (s *Sphere) handleDebugTag(req DebugTagRequest) {
	err := s.SetDebugTag(req.Path, req.On)
	if req.Resp != nil {
		req.Resp <- err
	}
}

// stepObservers publishes the post-tick state. Viewers get a FRAME only when
// the leaf set changed since the last one they saw; debug sessions get DEBUG
// every tick.
func (s *Sphere) stepObservers(p *tickPass, digest string, audits []AuditEntry) {
	if len(s.observers) == 0 {
		return
	}

	var frame []byte
	var leaves []protocol.LeafPatch
	leafPatches := func() []protocol.LeafPatch {
		if leaves == nil {
			views := s.LeafViews()
			leaves = make([]protocol.LeafPatch, 0, len(views))
			for _, v := range views {
				leaves = append(leaves, protocol.LeafPatch{Path: v.Path, Level: v.Level, Corners: v.Corners})
			}
		}
		return leaves
	}

	var dbg, dbgLeaves []byte
	shape := ""
	for _, c := range s.observers {
		if c.debug {
			if c.includeLeaves {
				if dbgLeaves == nil {
					dbgLeaves = s.debugFrame(p, digest, audits, leafPatches())
				}
				sendLatest(c.out, dbgLeaves)
				continue
			}
			if dbg == nil {
				dbg = s.debugFrame(p, digest, audits, nil)
			}
			sendLatest(c.out, dbg)
			continue
		}

		if shape == "" {
			shape = s.leafDigest()
		}
		if c.sentShape == shape {
			continue
		}
		if frame == nil {
			b, err := json.Marshal(protocol.FrameMsg{
				Type:            protocol.TypeFrame,
				ProtocolVersion: protocol.Version,
				Tick:            p.tick,
				Digest:          digest,
				Leaves:          leafPatches(),
			})
			if err != nil {
				s.log.Printf("tick %d: marshal frame: %v", p.tick, err)
				return
			}
			frame = b
		}
		sendLatest(c.out, frame)
		c.sentShape = shape
	}
}

func (s *Sphere) debugFrame(p *tickPass, digest string, audits []AuditEntry, leaves []protocol.LeafPatch) []byte {
	msg := observerproto.DebugMsg{
		Type:            observerproto.TypeDebug,
		ProtocolVersion: observerproto.Version,
		Tick:            p.tick,
		Digest:          digest,
		Nodes:           s.store.Len(),
		Leaves:          p.leafCount,
		Splits:          p.splits,
		Collapses:       p.collapses,
		Forced:          len(p.forced),
		Iterations:      p.iterations,
		Tagged:          []observerproto.DebugNode{},
		LeafSet:         leaves,
	}
	s.Walk(func(_ graph.Handle, n graph.Node, path string) bool {
		if n.Debug {
			msg.Tagged = append(msg.Tagged, observerproto.DebugNode{
				Path:    path,
				Level:   n.Level,
				Leaf:    n.IsLeaf(),
				Corners: s.worldCorners(n),
			})
		}
		return true
	})
	for _, a := range audits {
		msg.Audits = append(msg.Audits, observerproto.AuditEntry{
			Tick:   a.Tick,
			Action: a.Action,
			Path:   a.Path,
			Level:  a.Level,
			Reason: a.Reason,
		})
	}
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("tick %d: marshal debug: %v", p.tick, err)
		return nil
	}
	return b
}

func sendLatest(ch chan []byte, b []byte) {
	if b == nil {
		return
	}
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
