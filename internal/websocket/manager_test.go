package websocket_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/redis"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/websocket"
)

func dial(t *testing.T, srv *httptest.Server, room string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/" + room
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	assert.NoError(t, err)
	var hello map[string]string
	assert.NoError(t, json.Unmarshal(msg, &hello))
	check.Equal(t, "connected", hello["type"])
	check.Equal(t, room, hello["room"])
	return conn
}

func waitForSubscribers(t *testing.T, m *websocket.Manager, room string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.GetSubscriberCount(room) != n {
		if time.Now().After(deadline) {
			t.Fatalf("room %s has %d subscribers, want %d", room, m.GetSubscriberCount(room), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManager_RoomFanout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := websocket.NewManager()
	go m.Run(ctx)
	srv := httptest.NewServer(websocket.NewHandler(m).SetupRoutes())
	defer srv.Close()

	all := dial(t, srv, "all")
	item := dial(t, srv, "item-7")
	waitForSubscribers(t, m, "all", 1)
	waitForSubscribers(t, m, "item-7", 1)

	in := make(chan *redis.Message, 2)
	go m.Forward(ctx, in)
	in <- &redis.Message{Room: "item-7", Payload: `{"kind":"item-sold"}`}
	in <- &redis.Message{Room: "all", Payload: `{"kind":"ledger-cleared"}`}

	item.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := item.ReadMessage()
	assert.NoError(t, err)
	check.Equal(t, `{"kind":"item-sold"}`, string(got))

	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err = all.ReadMessage()
	assert.NoError(t, err)
	check.Equal(t, `{"kind":"ledger-cleared"}`, string(got))
}

func TestManager_Disconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := websocket.NewManager()
	go m.Run(ctx)
	srv := httptest.NewServer(websocket.NewHandler(m).SetupRoutes())
	defer srv.Close()

	conn := dial(t, srv, "bidder-3")
	waitForSubscribers(t, m, "bidder-3", 1)
	conn.Close()
	waitForSubscribers(t, m, "bidder-3", 0)
}
