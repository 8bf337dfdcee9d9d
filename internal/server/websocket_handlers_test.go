package server

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"dreamio/internal/models"
	"dreamio/internal/notifications"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the env app on a loopback port and returns its ws base URL.
func (e *testEnv) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = e.app.Listener(ln) }()
	t.Cleanup(func() { _ = e.app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func (e *testEnv) viewerCount(t *testing.T, id uint) int {
	t.Helper()
	var stream models.LiveStream
	require.NoError(t, e.db.Select("viewer_count").First(&stream, id).Error)
	return stream.ViewerCount
}

func readMessage(t *testing.T, conn *websocket.Conn) notifications.ViewerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg notifications.ViewerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestViewerSocket_CountsViewers(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t, "owner@example.com", "")
	stream := env.createExternalStream(t, token, "Watched", nil)
	base := env.listen(t)
	url := fmt.Sprintf("%s/api/ws/live-streams/%d", base, stream.ID)

	first, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	defer func() { _ = first.Close() }()

	msg := readMessage(t, first)
	assert.Equal(t, notifications.ViewerMessage{Type: "viewers", StreamID: stream.ID, Count: 1}, msg)
	assert.Equal(t, 1, env.viewerCount(t, stream.ID))

	second, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, readMessage(t, first).Count)
	assert.Equal(t, 2, readMessage(t, second).Count)

	require.NoError(t, second.Close())
	assert.Equal(t, 1, readMessage(t, first).Count)
	assert.Eventually(t, func() bool {
		return env.viewerCount(t, stream.ID) == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool {
		return env.viewerCount(t, stream.ID) == 0 && env.srv.viewerHub.RoomSize(stream.ID) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestViewerSocket_Rejects(t *testing.T) {
	env := newTestEnv(t)
	base := env.listen(t)

	_, resp, err := websocket.DefaultDialer.Dial(base+"/api/ws/live-streams/999", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"/api/ws/live-streams/abc", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Plain HTTP requests are not upgraded.
	plain := env.doJSON(t, http.MethodGet, "/api/ws/live-streams/1", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, plain.StatusCode)
}
