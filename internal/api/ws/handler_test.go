package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/casdk/internal/domain/app"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stream", h.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var welcome map[string]any
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "system", welcome["type"])
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestStreamFiltersUpdates(t *testing.T) {
	metrics := monitoring.NewMetrics()
	h := NewHandler(nil, metrics, nil)
	conn := startServer(t, h)

	assert.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Type: "subscribe", IDs: []string{"VDTVehicleSpeed"}}))
	sub := readType(t, conn, "subscribed")
	assert.Equal(t, []any{"vdtvehiclespeed"}, sub["ids"])

	ctx := context.Background()
	h.OnValueChange(ctx, types.Event{ID: "vdtengine", Value: types.IntValue(1), Changed: true})
	h.OnValueChange(ctx, types.Event{ID: "vdtvehiclespeed", Value: types.IntValue(60), Changed: false})
	h.OnValueChange(ctx, types.Event{ID: "vdtvehiclespeed", Value: types.IntValue(61), Changed: true})

	msg := readType(t, conn, "data")
	ev := msg["event"].(map[string]any)
	assert.Equal(t, "vdtvehiclespeed", ev["id"])
	assert.Equal(t, float64(61), ev["value"])
}

func TestStreamPingAndErrors(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	conn := startServer(t, h)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	readType(t, conn, "pong")

	require.NoError(t, conn.WriteJSON(Message{Type: "bogus"}))
	msg := readType(t, conn, "error")
	assert.Equal(t, "unknown message type", msg["message"])

	require.NoError(t, conn.WriteJSON(Message{Type: "controller", Event: "cw"}))
	msg = readType(t, conn, "error")
	assert.Equal(t, "controller events are disabled", msg["message"])
}

func TestStreamControllerEvents(t *testing.T) {
	apps := app.NewManager()
	apps.Register("speedo", app.Definition{Hooks: app.Hooks{
		ControllerEvent: func(context.Context, *app.Instance, string) error { return nil },
	}})
	require.True(t, apps.Run(context.Background(), "speedo"))

	conn := startServer(t, NewHandler(apps, nil, nil))
	require.NoError(t, conn.WriteJSON(Message{Type: "controller", Event: "selectStart"}))

	msg := readType(t, conn, "controller")
	assert.Equal(t, true, msg["handled"])
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	conn := startServer(t, h)
	assert.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Close())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 5*time.Millisecond)
}
