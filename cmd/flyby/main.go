package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"geosphere.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "flyby", "client name")
		altitude = flag.Float64("altitude", 1.2, "orbit radius as a multiple of the sphere radius")
		period   = flag.Duration("period", 60*time.Second, "time for one full orbit")
		tilt     = flag.Float64("tilt", 0.4, "orbit inclination in radians")
		hz       = flag.Int("hz", 20, "viewpoint updates per second")
		every    = flag.Int("log_every", 20, "log every n-th frame")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[flyby] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		logger.Fatalf("expected WELCOME, got %s", msg)
	}
	p := welcome.SphereParams
	logger.Printf("WELCOME session=%s sphere=%s radius=%g max_level=%d", welcome.SessionID, p.SphereID, p.Radius, p.MaxLevel)

	o := newOrbit(p, *altitude, *tilt, *period)

	done := make(chan struct{})
	go readFrames(conn, logger, *every, done)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	rate := *hz
	if rate <= 0 {
		rate = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-stop:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			return
		case <-done:
			return
		case now := <-ticker.C:
			vp := protocol.ViewpointMsg{
				Type:            protocol.TypeViewpoint,
				ProtocolVersion: protocol.Version,
				Pos:             o.at(now.Sub(start)),
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(vp); err != nil {
				logger.Printf("send VIEWPOINT: %v", err)
				return
			}
		}
	}
}

func readFrames(conn *websocket.Conn, logger *log.Logger, every int, done chan<- struct{}) {
	defer close(done)
	var frames int
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeFrame:
			var f protocol.FrameMsg
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			frames++
			if every > 0 && frames%every == 0 {
				st := summarize(f)
				logger.Printf("FRAME tick=%d leaves=%d max_level=%d digest=%.12s", f.Tick, st.Leaves, st.MaxLevel, f.Digest)
			}
		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}
	}
}

type frameStats struct {
	Leaves   int
	MaxLevel int
	ByLevel  map[int]int
}

func summarize(f protocol.FrameMsg) frameStats {
	st := frameStats{Leaves: len(f.Leaves), ByLevel: map[int]int{}}
	for _, l := range f.Leaves {
		st.ByLevel[l.Level]++
		if l.Level > st.MaxLevel {
			st.MaxLevel = l.Level
		}
	}
	return st
}
