package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/pwendlys/viaja-mais/internal/functions"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/realtime"
	"github.com/redis/go-redis/v9"
)

type streamFixture struct {
	handler *StreamHandler
	manager *realtime.Manager
	client  *redis.Client
	server  *httptest.Server
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	transport := realtime.NewRedisTransport(client)
	fanout := realtime.NewFanout()
	registry := functions.NewDefault(functions.Services{
		Notifier: realtime.NewPublisher(transport, nil),
	}, time.Second)
	manager := realtime.NewManager(ctx, transport, realtime.NewFeed(), fanout, registry, realtime.Config{
		ConnectTimeout:    time.Second,
		HeartbeatInterval: time.Hour,
		BackoffBase:       10 * time.Millisecond,
		BackoffMax:        50 * time.Millisecond,
	})
	t.Cleanup(manager.CloseAll)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	h := NewStreamHandler(manager, fanout, hub, registry, &fakeRideService{})
	h.heartbeat = time.Hour
	srv := httptest.NewServer(newRouter(h))
	t.Cleanup(srv.Close)

	return &streamFixture{handler: h, manager: manager, client: client, server: srv}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type sseEvent struct {
	name string
	data string
}

// readEvents parses the SSE stream into events until the body closes.
func readEvents(body *bufio.Reader) <-chan sseEvent {
	out := make(chan sseEvent, 16)
	go func() {
		defer close(out)
		var ev sseEvent
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "":
				out <- ev
				ev = sseEvent{}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseEvent, name string) sseEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("stream closed before %q event", name)
			}
			if ev.name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %q event", name)
		}
	}
}

func TestNotificationStream(t *testing.T) {
	f := newStreamFixture(t)

	resp, err := http.Get(f.server.URL + "/v1/users/u1/notifications?role=patient")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	events := readEvents(bufio.NewReader(resp.Body))
	nextEvent(t, events, "state")

	waitUntil(t, "bridge connected", func() bool {
		b, ok := f.manager.Get("u1")
		return ok && b.IsConnected()
	})

	w := doRequest(f.server.Config.Handler, http.MethodPost, "/v1/users/u1/notifications",
		`{"type":"ride_status","message":"motorista a caminho"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("send status = %d (%s)", w.Code, w.Body.String())
	}

	ev := nextEvent(t, events, "notification")
	var n models.Notification
	if err := json.Unmarshal([]byte(ev.data), &n); err != nil {
		t.Fatalf("decode notification %q: %v", ev.data, err)
	}
	if n.Type != "ride_status" || n.Body != "motorista a caminho" || n.Channel != "user_u1" || n.Title != "Viaja+" {
		t.Errorf("notification = %+v", n)
	}

	w = doRequest(f.server.Config.Handler, http.MethodGet, "/v1/users/u1/notifications/history", "")
	var history []models.Notification
	decodeBody(t, w, &history)
	if len(history) != 1 || history[0].ID != n.ID {
		t.Errorf("history = %+v", history)
	}

	w = doRequest(f.server.Config.Handler, http.MethodDelete, "/v1/users/u1/notifications/history", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", w.Code)
	}
	w = doRequest(f.server.Config.Handler, http.MethodGet, "/v1/users/u1/notifications/history", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("history after clear = %s", w.Body.String())
	}

	resp.Body.Close()
	waitUntil(t, "bridge released", func() bool { return f.manager.Active() == 0 })
}

func TestSendNotificationWithoutBridge(t *testing.T) {
	f := newStreamFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := f.client.Subscribe(ctx, "user_u2")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	w := doRequest(f.server.Config.Handler, http.MethodPost, "/v1/users/u2/notifications",
		`{"type":"info","message":"consulta confirmada"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("send status = %d (%s)", w.Code, w.Body.String())
	}
	if f.manager.Active() != 0 {
		t.Errorf("Active() = %d, want no bridge started", f.manager.Active())
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage() error = %v", err)
	}
	var payload models.NotificationPayload
	if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
		t.Fatalf("decode payload %q: %v", msg.Payload, err)
	}
	if payload.Type != "info" || payload.Body != "consulta confirmada" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNotificationHistoryWithoutBridge(t *testing.T) {
	f := newStreamFixture(t)

	w := doRequest(f.server.Config.Handler, http.MethodGet, "/v1/users/nobody/notifications/history", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("history = %d %s", w.Code, w.Body.String())
	}

	w = doRequest(f.server.Config.Handler, http.MethodPost, "/v1/users/nobody/notifications", `{"type":"info"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing message status = %d", w.Code)
	}
	if f.manager.Active() != 0 {
		t.Errorf("active bridges = %d", f.manager.Active())
	}
}

func TestTrackRide(t *testing.T) {
	f := newStreamFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/v1/rides/"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+patientID+"/ws", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown ride: err = %v, resp = %+v", err, resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+rideID+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot struct {
		Type string      `json:"type"`
		Ride models.Ride `json:"ride"`
	}
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Type != "ride_update" || snapshot.Ride.ID != rideID {
		t.Errorf("snapshot = %+v", snapshot)
	}
}
