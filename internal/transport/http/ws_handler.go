package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// WSHandler is the realtime gateway: it mints a participant identity per
// connection, routes inbound commands through a dispatch table, and pumps
// the session room's events back out over the socket.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
	dispatch map[string]commandHandler
}

type commandHandler func(c *connState, payload json.RawMessage)

func NewWSHandler(service *app.SessionService) *WSHandler {
	h := &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	h.dispatch = map[string]commandHandler{
		domain.CommandJoinQuiz:     h.handleJoin,
		domain.CommandSubmitAnswer: h.handleSubmitAnswer,
		domain.CommandLeaveQuiz:    h.handleLeave,
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	AvatarID    string `json:"avatarId"`
}

type answerPayload struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
	ResponseTime      float64  `json:"responseTime"`
}

// connState is the per-connection state the dispatch handlers operate on.
// Only the reader goroutine touches session/cancel/pumpDone; the send
// channel is the single funnel into the socket writer.
type connState struct {
	participantID string
	send          chan domain.Event
	session       *app.Session
	cancel        func()
	pumpDone      chan struct{}
}

func (c *connState) sendEvent(eventType string, payload any) {
	c.send <- domain.Event{Type: eventType, Payload: payload}
}

func (c *connState) sendError(message string) {
	c.sendEvent(domain.EventConnectionError, map[string]string{"message": message})
}

// ServeWS upgrades the request and runs the connection's read loop. The
// client is told its server-generated id before anything else; every other
// command depends on that ordering.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &connState{
		participantID: app.NewParticipantID(),
		send:          make(chan domain.Event, 16),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Keep draining after a write failure so the room pump can never
		// block on a dead socket's send channel.
		failed := false
		for msg := range c.send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				failed = true
			}
		}
	}()

	c.sendEvent(domain.EventConnectionEstablished, map[string]string{"participantId": c.participantID})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		handler, ok := h.dispatch[inbound.Type]
		if !ok {
			c.sendError("unsupported message type")
			continue
		}
		handler(c, inbound.Payload)
	}

	// A dropped socket is indistinguishable from a graceful leave; both
	// detach the participant the same way.
	h.detach(c)
	close(c.send)
	<-writerDone
}

func (h *WSHandler) handleJoin(c *connState, payload json.RawMessage) {
	if c.session != nil {
		c.sendError("already joined a quiz")
		return
	}
	var p joinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError("invalid join payload")
		return
	}

	session, snapshot, events, cancel, err := h.service.Join(p.Code, c.participantID, p.DisplayName, p.AvatarID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.sendError("quiz not found")
			return
		}
		c.sendError(err.Error())
		return
	}
	c.session = session
	c.cancel = cancel

	c.sendEvent(domain.EventQuizJoined, snapshot)

	c.pumpDone = make(chan struct{})
	go func(events <-chan domain.Event, done chan struct{}) {
		defer close(done)
		for event := range events {
			c.send <- event
		}
	}(events, c.pumpDone)
}

func (h *WSHandler) handleSubmitAnswer(c *connState, payload json.RawMessage) {
	if c.session == nil {
		c.sendError("join a quiz before answering")
		return
	}
	var p answerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError("invalid answer payload")
		return
	}
	if err := c.session.SubmitAnswer(c.participantID, p.QuestionID, p.SelectedOptionIDs, p.ResponseTime); err != nil {
		c.sendError(err.Error())
	}
	// Stale and duplicate answers return nil: dropped silently, the result
	// event simply never arrives.
}

func (h *WSHandler) handleLeave(c *connState, _ json.RawMessage) {
	h.detach(c)
}

// detach removes the connection's participant from their session, if any,
// and waits for the room pump to drain. Safe to call twice: leave:quiz
// followed by the socket closing takes this path both times.
func (h *WSHandler) detach(c *connState) {
	if c.session == nil {
		return
	}
	c.session.Leave(c.participantID)
	if c.cancel != nil {
		c.cancel()
	}
	if c.pumpDone != nil {
		<-c.pumpDone
	}
	c.session = nil
	c.cancel = nil
	c.pumpDone = nil
}
