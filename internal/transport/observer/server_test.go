package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/observerproto"
	"geosphere.ai/internal/sim/sphere"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := sphere.New(sphere.SphereConfig{
		ID:         "obs",
		TickRateHz: 50,
		Transform:  sphere.Transform{Radius: 1, Axis: r3.Vec{Y: 1}},
		Detail: sphere.Detail{
			SubdivideDistance:   0.3,
			UnsubdivideDistance: 0.5,
			LevelScale:          1,
			MaxLevel:            1,
		},
		Workers: 1,
	}, nil)
	if err != nil {
		t.Fatalf("new sphere: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	srv := NewServer(s, log.New(io.Discard, "", 0))
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", srv.BootstrapHandler())
	mux.HandleFunc("/ws", srv.WSHandler())
	hs := httptest.NewServer(mux)
	t.Cleanup(func() {
		hs.Close()
		cancel()
		<-done
	})
	return hs
}

func TestBootstrap(t *testing.T) {
	hs := startServer(t)

	resp, err := http.Get(hs.URL + "/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.ProtocolVersion != observerproto.Version || b.SphereID != "obs" || b.SphereParams.RootCount != sphere.RootCount {
		t.Fatalf("bootstrap: %+v", b)
	}

	post, err := http.Post(hs.URL+"/bootstrap", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("post status=%d", post.StatusCode)
	}
}

func TestDebugStreamAndTag(t *testing.T) {
	hs := startServer(t)
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		IncludeLeaves:   true,
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	read := func() (string, []byte) {
		t.Helper()
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var base struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(msg, &base)
		return base.Type, msg
	}

	typ, msg := read()
	if typ != observerproto.TypeDebug {
		t.Fatalf("first message type=%s want DEBUG", typ)
	}
	var dbg observerproto.DebugMsg
	_ = json.Unmarshal(msg, &dbg)
	if dbg.Nodes != sphere.RootCount || len(dbg.LeafSet) != sphere.RootCount {
		t.Fatalf("debug frame: nodes=%d leaves=%d", dbg.Nodes, len(dbg.LeafSet))
	}

	tag := func(path string) {
		t.Helper()
		if err := conn.WriteJSON(observerproto.SubscribeMsg{
			Type:            observerproto.TypeSubscribe,
			ProtocolVersion: observerproto.Version,
			Tag:             &observerproto.TagRequest{Path: path, On: true},
		}); err != nil {
			t.Fatalf("tag: %v", err)
		}
	}

	tag("3")
	tag("3/1")
	results := map[string]observerproto.TagResult{}
	sawTagged := false
	for len(results) < 2 || !sawTagged {
		typ, msg := read()
		switch typ {
		case observerproto.TypeTagResult:
			var r observerproto.TagResult
			_ = json.Unmarshal(msg, &r)
			results[r.Path] = r
		case observerproto.TypeDebug:
			var d observerproto.DebugMsg
			_ = json.Unmarshal(msg, &d)
			for _, n := range d.Tagged {
				if n.Path == "3" && n.Leaf {
					sawTagged = true
				}
			}
		}
	}
	if r := results["3"]; r.Error != "" {
		t.Fatalf("tag root: %+v", r)
	}
	if r := results["3/1"]; r.Error == "" {
		t.Fatalf("tag of missing path should fail: %+v", r)
	}
}

func TestForbidsRemote(t *testing.T) {
	srv := NewServer(nil, log.New(io.Discard, "", 0))
	req := httptest.NewRequest(http.MethodGet, "/bootstrap", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rw := httptest.NewRecorder()
	srv.BootstrapHandler()(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("status=%d want 403", rw.Code)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"::1":          true,
		"10.0.0.1:80":  false,
		"garbage":      false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}
