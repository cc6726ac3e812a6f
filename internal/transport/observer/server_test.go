package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"crowdfield.ai/internal/observerproto"
	"crowdfield.ai/internal/sim/scenario"
	"crowdfield.ai/internal/sim/tuning"
	"crowdfield.ai/internal/sim/world"
	"crowdfield.ai/schemas"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	raw, err := schemas.FS.ReadFile(name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func decodeNumbers(t *testing.T, b []byte) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func startWorld(t *testing.T) (*world.World, *httptest.Server) {
	t.Helper()
	tu := tuning.Defaults()
	tu.GridSize = 0.25
	tu.TickRateHz = 100
	sc, err := scenario.Builtin("corridor", tu)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	w, err := world.New(world.ConfigFromScenario("obs-test", sc))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	mux := http.NewServeMux()
	NewServer(w, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return w, srv
}

func TestBootstrap(t *testing.T) {
	_, srv := startWorld(t)
	resp, err := http.Get(srv.URL + BootstrapPath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=200", resp.StatusCode)
	}
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.RunID != "obs-test" || b.Scenario != "corridor" || b.ProtocolVersion != observerproto.Version {
		t.Fatalf("bootstrap=%+v", b)
	}
	if b.Params.Size[0] != 40 || b.Params.Grid[0] != 160 || b.Params.TickRateHz != 100 {
		t.Fatalf("params=%+v", b.Params)
	}
	// u = m0*x + m12 maps the left and right edges to -1 and 1.
	m := b.Params.ViewProj
	left := m[0]*b.Params.Origin[0] + m[12]
	right := m[0]*(b.Params.Origin[0]+b.Params.Size[0]) + m[12]
	if m[0] != 2.0/40 || m[15] != 1 || math.Abs(left+1) > 1e-12 || math.Abs(right-1) > 1e-12 {
		t.Fatalf("view_proj=%v left=%v right=%v", m, left, right)
	}
	if len(b.Obstacles) != 2 || b.Params.Agents != 6 {
		t.Fatalf("obstacles=%d agents=%d", len(b.Obstacles), b.Params.Agents)
	}
}

func TestBootstrap_RejectsPost(t *testing.T) {
	_, srv := startWorld(t)
	resp, err := http.Post(srv.URL+BootstrapPath, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want=405", resp.StatusCode)
	}
}

func TestWS_StreamsSchemaValidMessages(t *testing.T) {
	_, srv := startWorld(t)
	tickSchema := compileSchema(t, "observer_tick.schema.json")
	gridSchema := compileSchema(t, "observer_grid.schema.json")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WSPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            "SUBSCRIBE",
		ProtocolVersion: observerproto.Version,
		Layers:          []string{observerproto.LayerOwnership, observerproto.LayerSpeed},
		GridEvery:       1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var sawTick, sawGrid bool
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for !sawTick || !sawGrid {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (tick=%v grid=%v)", err, sawTick, sawGrid)
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			t.Fatalf("json: %v", err)
		}
		switch head.Type {
		case "TICK":
			if err := tickSchema.Validate(decodeNumbers(t, msg)); err != nil {
				t.Fatalf("tick schema: %v\n%s", err, msg)
			}
			sawTick = true
		case "GRID":
			if err := gridSchema.Validate(decodeNumbers(t, msg)); err != nil {
				t.Fatalf("grid schema: %v\n%s", err, msg)
			}
			var g observerproto.GridMsg
			if err := json.Unmarshal(msg, &g); err != nil {
				t.Fatalf("grid: %v", err)
			}
			if len(g.Layers) != 2 || g.Encoding != observerproto.EncodingRLE {
				t.Fatalf("grid layers=%v encoding=%q", g.Layers, g.Encoding)
			}
			sawGrid = true
		default:
			t.Fatalf("unexpected message type %q", head.Type)
		}
	}
}

func TestWS_RejectsBadHandshake(t *testing.T) {
	_, srv := startWorld(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WSPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v want policy violation close", err)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:1234": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want=%v", in, got, want)
		}
	}
}
