package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heartrelay/heartrelay/server/internal/store"
	wsHub "github.com/heartrelay/heartrelay/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

type countingObserver struct {
	added   atomic.Int32
	removed atomic.Int32
}

func (o *countingObserver) WSClientAdded()   { o.added.Add(1) }
func (o *countingObserver) WSClientRemoved() { o.removed.Add(1) }

// startHub serves the hub from an httptest server and starts its Run loop.
func startHub(t *testing.T, st *store.Store, obs wsHub.ClientObserver) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, testInterval, obs)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type message struct {
	Event string `json:"event"`
	Data  struct {
		HeartBeat *int `json:"heart_beat"`
	} `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateValue(t *testing.T) {
	st := store.New(time.Minute)
	if err := st.Set(72); err != nil {
		t.Fatal(err)
	}
	wsURL, _, _ := startHub(t, st, nil)

	m := readMessage(t, dial(t, wsURL))
	if m.Event != wsHub.EventHeartBeat {
		t.Errorf("event: got %q, want %q", m.Event, wsHub.EventHeartBeat)
	}
	if m.Data.HeartBeat == nil || *m.Data.HeartBeat != 72 {
		t.Errorf("heart_beat: got %v, want 72", m.Data.HeartBeat)
	}
}

func TestHub_Connect_EmptyStoreSendsNull(t *testing.T) {
	wsURL, _, _ := startHub(t, store.New(time.Minute), nil)

	m := readMessage(t, dial(t, wsURL))
	if m.Data.HeartBeat != nil {
		t.Errorf("heart_beat: got %d, want null", *m.Data.HeartBeat)
	}
}

func TestHub_TickBroadcastsNewValue(t *testing.T) {
	st := store.New(time.Minute)
	wsURL, _, _ := startHub(t, st, nil)

	conn := dial(t, wsURL)
	readMessage(t, conn) // immediate

	if err := st.Set(95); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		m := readMessage(t, conn)
		if m.Data.HeartBeat != nil && *m.Data.HeartBeat == 95 {
			return
		}
	}
	t.Fatal("never received heart_beat 95")
}

func TestHub_AllClientsReceiveBroadcast(t *testing.T) {
	st := store.New(time.Minute)
	wsURL, _, _ := startHub(t, st, nil)

	conns := []*websocket.Conn{dial(t, wsURL), dial(t, wsURL), dial(t, wsURL)}
	for _, c := range conns {
		readMessage(t, c)
	}
	if err := st.Set(61); err != nil {
		t.Fatal(err)
	}
	for i, c := range conns {
		got := false
		for j := 0; j < 20 && !got; j++ {
			m := readMessage(t, c)
			got = m.Data.HeartBeat != nil && *m.Data.HeartBeat == 61
		}
		if !got {
			t.Errorf("client %d: never received 61", i)
		}
	}
}

func TestHub_Count(t *testing.T) {
	wsURL, hub, _ := startHub(t, store.New(time.Minute), nil)

	if hub.Count() != 0 {
		t.Fatalf("initial count: got %d, want 0", hub.Count())
	}
	conn := dial(t, wsURL)
	readMessage(t, conn)
	if hub.Count() != 1 {
		t.Fatalf("count after connect: got %d, want 1", hub.Count())
	}

	conn.Close()
	waitFor(t, "client removal", func() bool { return hub.Count() == 0 })
}

func TestHub_ObserverTracksClients(t *testing.T) {
	obs := &countingObserver{}
	wsURL, hub, _ := startHub(t, store.New(time.Minute), obs)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	if got := obs.added.Load(); got != 1 {
		t.Errorf("added: got %d, want 1", got)
	}

	conn.Close()
	waitFor(t, "removal callback", func() bool { return obs.removed.Load() == 1 })
	if hub.Count() != 0 {
		t.Errorf("count after removal: got %d, want 0", hub.Count())
	}
}

func TestHub_CancelClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, store.New(time.Minute), nil)

	conn := dial(t, wsURL)
	readMessage(t, conn)

	cancel()
	waitFor(t, "hub to drop clients", func() bool { return hub.Count() == 0 })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(store.New(time.Minute), testInterval, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
