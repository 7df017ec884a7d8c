// Package ws is the websocket transport: it authenticates connections,
// decodes intents and forwards them to the room. No rules decision is
// made here.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BeautifulBabe-MTM/penki-server/internal/auth"
	"github.com/BeautifulBabe-MTM/penki-server/internal/room"
)

// writeTimeout bounds each outgoing message so one stalled client
// cannot wedge a room broadcast.
const writeTimeout = 5 * time.Second

// Handler upgrades /ws requests and runs the per-connection read loop.
type Handler struct {
	rooms *room.Store
	auth  *auth.Service // nil disables the token gate
	log   *logrus.Logger
}

// NewHandler wires the transport. authSvc may be nil, in which case the
// client supplies (or is minted) a player id.
func NewHandler(rooms *room.Store, authSvc *auth.Service, logger *logrus.Logger) *Handler {
	return &Handler{rooms: rooms, auth: authSvc, log: logger}
}

// connSender adapts one websocket connection to the room's Sender.
type connSender struct {
	conn *websocket.Conn
	log  *logrus.Entry
}

func (s *connSender) Send(msg room.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		s.log.WithError(err).Debug("websocket write failed")
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	roomID := req.URL.Query().Get("room")
	rm, err := h.rooms.Get(roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	playerID, err := h.identify(req)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	logger := h.log.WithFields(logrus.Fields{"room": roomID, "player": playerID})
	logger.Info("websocket connected")

	sender := &connSender{conn: conn, log: logger}
	rm.Attach(playerID, sender)
	defer func() {
		rm.Detach(playerID)
		h.rooms.DestroyWhenEmpty(roomID)
		logger.Info("websocket disconnected")
	}()

	ctx := req.Context()
	for {
		var intent Intent
		if err := wsjson.Read(ctx, conn, &intent); err != nil {
			logger.WithError(err).Debug("read loop ended")
			return
		}
		if err := h.dispatch(rm, playerID, intent); err != nil {
			sender.Send(room.Message{Type: "error", Error: err.Error()})
		}
	}
}

// identify resolves the player identity for this connection. With the
// token gate enabled the token is mandatory; without it the client may
// name itself via ?player= or gets a fresh id.
func (h *Handler) identify(req *http.Request) (string, error) {
	if h.auth == nil {
		if pid := req.URL.Query().Get("player"); pid != "" {
			return pid, nil
		}
		return uuid.NewString(), nil
	}
	token := req.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	}
	return h.auth.VerifyToken(token)
}

func (h *Handler) dispatch(rm *room.Room, playerID string, intent Intent) error {
	switch intent.Type {
	case IntentJoin:
		return rm.Join(playerID, intent.Name)
	case IntentStart:
		return rm.Start(playerID)
	case IntentPlay:
		return rm.Play(playerID, intent.CardID)
	case IntentDefend:
		return rm.Defend(playerID, intent.CardID)
	case IntentTake:
		return rm.Take(playerID)
	default:
		return fmt.Errorf("unknown intent type %q", intent.Type)
	}
}
