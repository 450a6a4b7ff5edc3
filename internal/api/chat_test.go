package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkexplorer/pkg/model"
)

func TestChatHandler_RoundTrip(t *testing.T) {
	fp := &fakePlanner{}
	chat := NewChatHandler(NewPlanHandler(fp, nil, testCatalog()))
	srv := httptest.NewServer(http.HandlerFunc(chat.HandleChat))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(model.PlanRequest{Message: "2 hours of food"}))
	var first chatReply
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "req-1", first.ID)
	assert.Equal(t, "Try Star Ferry Sunset", first.Response)
	require.NotNil(t, first.Route)

	// The second request carries no history, so the connection supplies it.
	require.NoError(t, conn.WriteJSON(model.PlanRequest{Message: "make it shorter"}))
	var second chatReply
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "req-2", second.ID)

	history := fp.last().History
	require.Len(t, history, 2)
	assert.Equal(t, model.Turn{Role: "user", Content: "2 hours of food"}, history[0])
	assert.Equal(t, model.Turn{Role: "assistant", Content: "Try Star Ferry Sunset"}, history[1])

	// Malformed frames get an error reply and keep the socket open.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	var bad chatError
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "invalid request", bad.Error)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
}

func TestChatHandler_RejectsPlainHTTP(t *testing.T) {
	chat := NewChatHandler(NewPlanHandler(&fakePlanner{}, nil, testCatalog()))
	w := httptest.NewRecorder()
	chat.HandleChat(w, httptest.NewRequest(http.MethodGet, "/api/chat/ws", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
