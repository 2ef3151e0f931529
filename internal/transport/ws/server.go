package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/protocol"
	"geosphere.ai/internal/sim/sphere"
)

type Options struct {
	// ViewpointMaxPerSec caps VIEWPOINT messages per connection. Zero disables the cap.
	ViewpointMaxPerSec int
	// FrameQueue is the default per-client frame buffer when HELLO does not set one.
	FrameQueue int
}

type Server struct {
	sphere *sphere.Sphere
	log    *log.Logger
	opts   Options

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(s *sphere.Sphere, logger *log.Logger, opts Options) *Server {
	if opts.FrameQueue <= 0 {
		opts.FrameQueue = 4
	}
	return &Server{
		sphere: s,
		log:    logger,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid, out := s.handshake(conn)
		if sid == "" {
			return
		}
		defer func() {
			select {
			case s.sphere.ObserverLeave() <- sid:
			default:
				// Sphere loop is stopping; nothing else to do.
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Replies from the reader go through the writer; a conn has one writer.
		replies := make(chan []byte, 4)

		// Writer goroutine.
		go func() {
			for {
				var b []byte
				var ok bool
				select {
				case <-ctx.Done():
					return
				case b, ok = <-replies:
				case b, ok = <-out:
				}
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		var window rateWindow

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				reply(replies, protocol.NewError(protocol.ErrProtoBadRequest, "invalid json"))
				continue
			}
			if base.Type != protocol.TypeViewpoint {
				reply(replies, protocol.NewError(protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected message type %q", base.Type)))
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				reply(replies, protocol.NewError(protocol.ErrProtoVersion, "bad protocol_version"))
				continue
			}
			if err := protocol.Validate(protocol.TypeViewpoint, msg); err != nil {
				reply(replies, protocol.NewError(protocol.ErrBadRequest, err.Error()))
				continue
			}
			var vp protocol.ViewpointMsg
			if err := json.Unmarshal(msg, &vp); err != nil {
				reply(replies, protocol.NewError(protocol.ErrBadRequest, err.Error()))
				continue
			}
			if !window.allow(time.Now(), s.opts.ViewpointMaxPerSec) {
				reply(replies, protocol.NewError(protocol.ErrRateLimit, "too many viewpoints"))
				continue
			}
			s.sphere.OfferViewpoint(r3.Vec{X: vp.Pos[0], Y: vp.Pos[1], Z: vp.Pos[2]})
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}
	if base.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "bad protocol_version"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad HELLO"), time.Now().Add(time.Second))
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = s.opts.FrameQueue
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	sid := fmt.Sprintf("V%d", s.nextID.Add(1))
	select {
	case s.sphere.ObserverJoin() <- sphere.ObserverJoinRequest{SessionID: sid, Out: out}:
	default:
		_ = writeJSON(conn, protocol.NewError(protocol.ErrSphereBusy, "join queue full"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
		return "", nil
	}
	s.log.Printf("viewer %s joined (%s)", sid, hello.ClientName)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sid,
		SphereParams:    s.sphere.Params(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		select {
		case s.sphere.ObserverLeave() <- sid:
		default:
		}
		return "", nil
	}
	return sid, out
}

// rateWindow counts events in a fixed one-second window.
type rateWindow struct {
	start time.Time
	count int
}

func (w *rateWindow) allow(now time.Time, max int) bool {
	if max <= 0 {
		return true
	}
	if w.start.IsZero() || now.Sub(w.start) >= time.Second {
		w.start = now
		w.count = 0
	}
	if w.count >= max {
		return false
	}
	w.count++
	return true
}

func reply(ch chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case ch <- b:
	default:
		// Slow reader; errors are advisory.
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
