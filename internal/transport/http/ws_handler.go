package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Lambodaran/AgileProject-sub001/internal/app"
	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSHandler struct {
	engine   *app.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	OptionIndex int    `json:"optionIndex"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Kind: domain.ErrorKind(err)}}
}

// ServeWS upgrades HTTP requests to websockets and binds them to one session view.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("applicationId")
	if appID == "" {
		http.Error(w, "missing applicationId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.engine.Subscribe()
	defer cancel()

	view, err := h.engine.OpenSession(r.Context(), appID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer func() {
		// the request context is gone once the client disconnects
		if err := h.engine.LeaveSession(context.Background(), appID); err != nil {
			h.logger.Debug("leave session", zap.String("application_id", appID), zap.Error(err))
		}
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				// unblock the reader; keep draining until send closes
				h.logger.Debug("ws write error", zap.Error(err))
				failed = true
				_ = conn.Close()
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case n, ok := <-updates:
				if !ok {
					return
				}
				if n.ApplicationID != appID {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: string(n.Kind), Payload: n}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: view}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.dispatch(r.Context(), appID, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, appID string, inbound inboundMessage) (outboundMessage[any], bool) {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload", Kind: "validation"}}, true
		}
		if err := h.engine.RecordAnswer(ctx, appID, payload.QuestionID, payload.OptionIndex); err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{}, false
	case "navigate":
		var payload navigatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid navigate payload", Kind: "validation"}}, true
		}
		if err := h.engine.Navigate(ctx, appID, payload.Index); err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{}, false
	case "submit":
		if err := h.engine.Submit(ctx, appID); err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{}, false
	case "view":
		view, err := h.engine.View(ctx, appID)
		if err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "session", Payload: view}, true
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Kind: "validation"}}, true
	}
}
