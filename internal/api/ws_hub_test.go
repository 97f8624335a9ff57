package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridwatt/exchange/internal/api"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) api.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev api.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := api.NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c1 := dialHub(t, srv)
	c2 := dialHub(t, srv)
	time.Sleep(100 * time.Millisecond) // let registration land

	hub.Broadcast(api.Event{Type: "listing_created", ListingID: 7, Seller: "seller1"})

	for _, conn := range []*websocket.Conn{c1, c2} {
		ev := readEvent(t, conn)
		if ev.Type != "listing_created" || ev.ListingID != 7 {
			t.Errorf("unexpected event: %+v", ev)
		}
	}
}

func TestHubSurvivesClientDisconnect(t *testing.T) {
	hub := api.NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	stayer := dialHub(t, srv)
	leaver := dialHub(t, srv)
	time.Sleep(100 * time.Millisecond)

	leaver.Close()
	time.Sleep(100 * time.Millisecond)

	// Both broadcasts reach the remaining client; the dead connection is
	// evicted without disturbing the loop.
	hub.Broadcast(api.Event{Type: "trade_executed", TradeID: 1})
	hub.Broadcast(api.Event{Type: "trade_confirmed", TradeID: 1})

	first := readEvent(t, stayer)
	second := readEvent(t, stayer)
	if first.Type != "trade_executed" || second.Type != "trade_confirmed" {
		t.Errorf("unexpected events: %+v, %+v", first, second)
	}
}
