package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adwski/fourseat/backend/model"
	"github.com/adwski/fourseat/backend/service"
	store "github.com/adwski/fourseat/backend/storage/memory"
	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type harness struct {
	svc *service.Service
	url string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	// connection goroutines may outlive the test, so they must not log through t
	logger := zerolog.Nop()
	ms := store.NewMemStore()
	svc := service.NewService(service.Config{
		SessionStore: ms,
		Timers:       model.Timers{Grace: time.Second, Remaining: time.Minute},
		Logger:       &logger,
	})
	ts := httptest.NewServer(NewServer(Config{Logger: &logger, SeatService: svc}).Routes())
	t.Cleanup(func() {
		ms.CloseAll()
		ts.Close()
	})
	return &harness{svc: svc, url: "ws" + strings.TrimPrefix(ts.URL, "http")}
}

func (h *harness) dial(t *testing.T, sessionID, seat string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(h.url+"/session/"+sessionID+"/seat/"+seat, nil)
	if conn != nil {
		t.Cleanup(func() {
			_ = conn.Close()
		})
	}
	return conn, resp, err
}

func read(t *testing.T, conn *websocket.Conn) model.Outbound {
	t.Helper()
	var msg model.Outbound
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func expectType(t *testing.T, conn *websocket.Conn, typ string, seat model.Seat) model.Outbound {
	t.Helper()
	msg := read(t, conn)
	if msg.Type != typ || msg.Seat != seat {
		t.Fatalf("want %s(%s), got %s", typ, seat, spew.Sdump(msg))
	}
	return msg
}

func TestServer_PlayGame(t *testing.T) {
	h := newHarness(t)
	id, err := h.svc.CreateSession(model.Timers{})
	if err != nil {
		t.Fatal(err)
	}

	conns := make([]*websocket.Conn, 0, model.SeatCount)
	for _, seat := range []string{"1", "2", "3", "4"} {
		conn, _, dErr := h.dial(t, id, seat)
		if dErr != nil {
			t.Fatalf("dial seat %s: %v", seat, dErr)
		}
		conns = append(conns, conn)
	}
	first, second, third, fourth := conns[0], conns[1], conns[2], conns[3]

	expectType(t, first, model.OutboundCallToMove, model.SeatFirst)
	if err = first.WriteJSON(model.Inbound{Type: model.InboundMove, Move: "x"}); err != nil {
		t.Fatal(err)
	}
	msg := read(t, first)
	if msg.Type != model.OutboundMoveRejected || msg.Reason == "" {
		t.Fatalf("want move_rejected, got %s", spew.Sdump(msg))
	}
	if err = first.WriteJSON(model.Inbound{Type: model.InboundSurrender}); err != nil {
		t.Fatal(err)
	}

	expectType(t, second, model.OutboundCallToMove, model.SeatFirst)
	msg = expectType(t, second, model.OutboundStatusChanged, model.NoSeat)
	if msg.Delta[model.SeatFirst] != model.StatusLost {
		t.Fatalf("unexpected delta: %v", msg.Delta)
	}
	expectType(t, second, model.OutboundCallToMove, model.SeatSecond)

	// closing the socket leaves the seat, which loses like a surrender
	if err = second.Close(); err != nil {
		t.Fatal(err)
	}
	expectType(t, third, model.OutboundCallToMove, model.SeatFirst)
	expectType(t, third, model.OutboundStatusChanged, model.NoSeat)
	expectType(t, third, model.OutboundCallToMove, model.SeatSecond)
	msg = expectType(t, third, model.OutboundStatusChanged, model.NoSeat)
	if msg.Delta[model.SeatSecond] != model.StatusLost {
		t.Fatalf("unexpected delta: %v", msg.Delta)
	}
	expectType(t, third, model.OutboundCallToMove, model.SeatThird)

	if err = fourth.WriteJSON(model.Inbound{Type: model.InboundSurrender}); err != nil {
		t.Fatal(err)
	}
	if err = third.WriteJSON(model.Inbound{Type: model.InboundMove, Move: "d13-d12"}); err != nil {
		t.Fatal(err)
	}
	expectType(t, third, model.OutboundMoveApplied, model.SeatThird)
	expectType(t, third, model.OutboundCallToMove, model.SeatFourth)
	expectType(t, third, model.OutboundStatusChanged, model.NoSeat)
	expectType(t, third, model.OutboundGameOver, model.SeatThird)

	if err = third.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, _, err = third.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("want normal closure after game over, got %v", err)
	}
}

func TestServer_JoinRefused(t *testing.T) {
	h := newHarness(t)
	id, err := h.svc.CreateSession(model.Timers{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err = h.dial(t, id, "1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		session  string
		seat     string
		wantCode int
	}{
		{name: "seat taken", session: id, seat: "1", wantCode: http.StatusConflict},
		{name: "bad seat", session: id, seat: "5", wantCode: http.StatusBadRequest},
		{name: "unknown session", session: "missing", seat: "2", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, dErr := h.dial(t, tt.session, tt.seat)
			if dErr == nil {
				t.Fatal("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.wantCode {
				t.Fatalf("response = %+v, want status %d", resp, tt.wantCode)
			}
		})
	}
}

func TestWebSocketSender_StopsWhenPingFails(t *testing.T) {
	logger := zerolog.Nop()
	accepted := make(chan *websocket.Conn, 1)
	upgrader := &websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	defer ts.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = client.Close()
	}()

	var conn *websocket.Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not accepted")
	}
	// writes on a closed connection fail right away
	_ = conn.Close()

	done := make(chan struct{})
	go func() {
		webSocketSender(context.Background(), conn, make(chan model.Outbound), 10*time.Millisecond, &logger)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender kept running after a failed ping")
	}
}
