package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"mediwise-quiz-service/internal/app"
	"mediwise-quiz-service/internal/session"
)

type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
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

type choosePayload struct {
	Key string `json:"key"`
}

type jumpPayload struct {
	Position int `json:"position"`
}

type startedPayload struct {
	SessionID string           `json:"sessionId"`
	Mode      string           `json:"mode"`
	Question  app.QuestionView `json:"question"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into one quiz
// attempt: the session starts on connect and is discarded on disconnect.
//
// Forward navigation is not gated behind reveal here; the state machine
// permits free review and clients disable their own Next button pre-submit.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	bankID := r.URL.Query().Get("bankId")
	if bankID == "" {
		http.Error(w, "missing bankId", http.StatusBadRequest)
		return
	}
	mode, ok := session.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		http.Error(w, "mode must be sequential or randomized", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID, err := h.service.Start(r.Context(), bankID, mode)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.End(sessionID)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	first, err := h.service.Current(sessionID)
	if err != nil {
		send <- errMsg(err)
	} else {
		send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
			SessionID: sessionID,
			Mode:      mode.String(),
			Question:  first,
		}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if done := h.handle(sessionID, inbound, send); done {
			break
		}
	}

	close(send)
	<-writerDone
}

// handle dispatches one inbound intent; a true return ends the connection.
// Precondition violations come back as error frames and mutate nothing.
func (h *WSHandler) handle(sessionID string, inbound inboundMessage, send chan<- outboundMessage[any]) bool {
	switch inbound.Type {
	case "choose":
		var payload choosePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errText("invalid choose payload")
			return false
		}
		if err := h.service.Choose(sessionID, payload.Key); err != nil {
			send <- errMsg(err)
			return false
		}
		send <- h.currentOrError(sessionID, "chosen")
	case "clear":
		if err := h.service.Clear(sessionID); err != nil {
			send <- errMsg(err)
			return false
		}
		send <- h.currentOrError(sessionID, "cleared")
	case "submit":
		reveal, err := h.service.Submit(sessionID)
		if err != nil {
			send <- errMsg(err)
			return false
		}
		send <- outboundMessage[any]{Type: "revealed", Payload: reveal}
		if reveal.Finished {
			if summary, err := h.service.Results(sessionID); err == nil {
				send <- outboundMessage[any]{Type: "results", Payload: summary}
			}
		}
	case "next":
		view, err := h.service.Next(sessionID)
		if err != nil {
			send <- errMsg(err)
			return false
		}
		send <- outboundMessage[any]{Type: "question", Payload: view}
	case "previous":
		view, err := h.service.Previous(sessionID)
		if err != nil {
			send <- errMsg(err)
			return false
		}
		send <- outboundMessage[any]{Type: "question", Payload: view}
	case "jump":
		var payload jumpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errText("invalid jump payload")
			return false
		}
		view, err := h.service.Jump(sessionID, payload.Position)
		if err != nil {
			send <- errMsg(err)
			return false
		}
		send <- outboundMessage[any]{Type: "question", Payload: view}
	case "progress":
		progress, err := h.service.Progress(sessionID)
		if err != nil {
			send <- errMsg(err)
			return false
		}
		send <- outboundMessage[any]{Type: "progress", Payload: progress}
	case "results":
		summary, err := h.service.Results(sessionID)
		if err != nil {
			send <- errMsg(err)
			return false
		}
		send <- outboundMessage[any]{Type: "results", Payload: summary}
	case "end":
		return true
	default:
		send <- errText("unsupported message type")
	}
	return false
}

func (h *WSHandler) currentOrError(sessionID, msgType string) outboundMessage[any] {
	view, err := h.service.Current(sessionID)
	if err != nil {
		return errMsg(err)
	}
	return outboundMessage[any]{Type: msgType, Payload: view}
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

func errText(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
