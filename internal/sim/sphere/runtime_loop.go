package sphere

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

func (s *Sphere) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingTags []DebugTagRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case vp := <-s.viewIn:
			// Latest wins; older viewpoints are never evaluated.
			s.SetViewpoint(vp)
		case req := <-s.observerJoin:
			s.handleObserverJoin(req)
		case id := <-s.observerLeave:
			s.handleObserverLeave(id)
		case req := <-s.debugTag:
			pendingTags = append(pendingTags, req)
		case <-ticker.C:
			// Tags apply at the tick boundary so a tick sees one consistent set.
			for _, req := range pendingTags {
				s.handleDebugTag(req)
			}
			pendingTags = pendingTags[:0]
			s.step()
		}
	}
}

func (s *Sphere) Stop() { close(s.stop) }

// OfferViewpoint queues a viewpoint without blocking. When the queue is full
// the oldest queued viewpoint is dropped.
func (s *Sphere) OfferViewpoint(vp r3.Vec) {
	select {
	case s.viewIn <- vp:
		return
	default:
	}
	select {
	case <-s.viewIn:
	default:
	}
	select {
	case s.viewIn <- vp:
	default:
	}
}

func (s *Sphere) ID() string {
	if s == nil {
		return ""
	}
	return s.cfg.ID
}

func (s *Sphere) TickRateHz() int {
	if s == nil {
		return 0
	}
	return s.cfg.TickRateHz
}
