package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/realtime"
)

func dialStream(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	ws, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func receiveFrame(t *testing.T, ws *websocket.Conn) realtime.Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f realtime.Frame
	require.NoError(t, websocket.JSON.Receive(ws, &f))
	return f
}

func TestStream_ViewerReceivesAssignment(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	issue := ts.createIssue(t, ts.alice)

	viewer := dialStream(t, srv, ts.tokens[ts.bob.ID])
	assert.Equal(t, realtime.FrameHello, receiveFrame(t, viewer).Type)
	require.Eventually(t, func() bool { return ts.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	code, _ := ts.do(t, &ts.admin, http.MethodPut, "/api/v1/issues/"+issue.ID+"/assign", map[string]string{"assigned_to": "Bob"})
	require.Equal(t, http.StatusOK, code)

	update := receiveFrame(t, viewer)
	assert.Equal(t, string(domain.EventIssueUpdated), update.Type)
	require.NotNil(t, update.Issue)
	assert.Equal(t, "Bob", update.Issue.AssignedTo)

	ping := receiveFrame(t, viewer)
	assert.Equal(t, string(domain.EventNotification), ping.Type)
	assert.Equal(t, ts.bob.ID, ping.Data["user_id"])
}

func TestStream_RejectsBadToken(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=bogus"
	_, err := websocket.Dial(url, "", "http://localhost/")
	assert.Error(t, err)
}
