package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hkexplorer/pkg/model"
)

const (
	chatWriteWait = 10 * time.Second
	// chatHistoryCap bounds the turns a connection remembers.
	chatHistoryCap = 20
)

// chatReply is one answer on the chat socket.
type chatReply struct {
	ID string `json:"id,omitempty"`
	model.WorkflowResult
}

type chatError struct {
	Error string `json:"error"`
}

// ChatHandler serves GET /api/chat/ws. Every text frame is a plan request and
// every reply a workflow result. A request without history continues the
// conversation the connection has seen so far.
type ChatHandler struct {
	plans    *PlanHandler
	upgrader websocket.Upgrader
}

// NewChatHandler creates a ChatHandler that answers through plans.
func NewChatHandler(plans *PlanHandler) *ChatHandler {
	return &ChatHandler{
		plans: plans,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// HandleChat upgrades the connection and answers requests until the client leaves.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		slog.Warn("API: chat upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBytes)

	log := slog.With("remote", r.RemoteAddr)
	log.Info("API: chat connected")

	var history []model.Turn
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("API: chat read failed", "error", err)
			}
			log.Info("API: chat disconnected", "turns", len(history))
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var req model.PlanRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if !h.send(conn, chatError{Error: "invalid request"}) {
				return
			}
			continue
		}
		if len(req.History) == 0 {
			req.History = history
		}

		res := h.plans.plan(r.Context(), req)
		if !h.send(conn, chatReply{ID: res.RequestID, WorkflowResult: res.WorkflowResult}) {
			return
		}

		history = append(req.History,
			model.Turn{Role: "user", Content: req.Message},
			model.Turn{Role: "assistant", Content: res.Response},
		)
		if len(history) > chatHistoryCap {
			history = history[len(history)-chatHistoryCap:]
		}
	}
}

func (h *ChatHandler) send(conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
	if err := conn.WriteJSON(v); err != nil {
		slog.Warn("API: chat write failed", "error", err)
		return false
	}
	return true
}
