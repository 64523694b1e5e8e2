package handlers

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/database/dbtest"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/websocket"
	wsclient "github.com/fasthttp/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func TestWebSocketClosesSilentClient(t *testing.T) {
	db := dbtest.Open(t)
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	h := NewMessagingHandler(services.NewMessagingService(db, hub, nil), hub, "ws-secret")
	h.authTimeout = 100 * time.Millisecond

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", websocketcontrib.New(h.ServeWs))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := wsclient.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	started := time.Now()
	_ = conn.SetReadDeadline(started.Add(3 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected an error frame, got %v", err)
	}
	if !strings.Contains(string(frame), "auth message") {
		t.Errorf("frame = %s", frame)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should be closed after the auth timeout")
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Errorf("server waited %s for the auth frame", elapsed)
	}
}
