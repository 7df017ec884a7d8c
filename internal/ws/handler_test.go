package ws

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeautifulBabe-MTM/penki-server/internal/auth"
	"github.com/BeautifulBabe-MTM/penki-server/internal/engine"
	"github.com/BeautifulBabe-MTM/penki-server/internal/room"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func wsURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// readUntil reads messages until one of the wanted type arrives.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string) room.Message {
	t.Helper()
	for {
		var msg room.Message
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == msgType {
			return msg
		}
	}
}

func newTestServer(t *testing.T, authSvc *auth.Service) (*httptest.Server, *room.Room) {
	t.Helper()
	store := room.NewStore(nil, nil, testLogger())
	rm, err := store.Create(engine.DefaultConfig())
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(store, authSvc, testLogger()))
	t.Cleanup(srv.Close)
	return srv, rm
}

func TestConnectJoinAndState(t *testing.T) {
	srv, rm := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv.URL, "/?room="+rm.ID+"&player=p1"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// Attach pushes the current (empty) state immediately.
	msg := readUntil(ctx, t, conn, "state")
	require.NotNil(t, msg.State)
	assert.False(t, msg.State.Started)

	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentJoin, Name: "Anya"}))
	msg = readUntil(ctx, t, conn, "state")
	require.Len(t, msg.State.Players, 1)
	assert.Equal(t, "Anya", msg.State.Players[0].Name)
}

func TestIntentErrorsAreAcked(t *testing.T) {
	srv, rm := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv.URL, "/?room="+rm.ID+"&player=p1"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: "shuffle"}))
	msg := readUntil(ctx, t, conn, "error")
	assert.Contains(t, msg.Error, "unknown intent")

	// A rules rejection comes back as an ack too, not a disconnect.
	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentJoin, Name: "Anya"}))
	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentStart}))
	msg = readUntil(ctx, t, conn, "error")
	assert.Contains(t, msg.Error, engine.ErrNotEnoughPlayers.Error())
}

func TestUnknownRoomRejected(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv.URL, "/?room=nope&player=p1"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTokenGate(t *testing.T) {
	authSvc := auth.New("test-secret", time.Minute)
	srv, rm := newTestServer(t, authSvc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv.URL, "/?room="+rm.ID), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := authSvc.CreateToken("p1")
	require.NoError(t, err)
	conn, _, err := websocket.Dial(ctx, wsURL(srv.URL, "/?room="+rm.ID+"&token="+token), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// Attach pushes a pre-join snapshot; skip states until the join
	// lands.
	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentJoin, Name: "Anya"}))
	var msg room.Message
	for {
		msg = readUntil(ctx, t, conn, "state")
		if len(msg.State.Players) > 0 {
			break
		}
	}
	require.Len(t, msg.State.Players, 1)
	assert.Equal(t, "p1", msg.State.Players[0].ID, "seat identity must come from the token subject")
}

func TestTwoPlayersPlayARound(t *testing.T) {
	srv, rm := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dial := func(pid string) *websocket.Conn {
		conn, _, err := websocket.Dial(ctx, wsURL(srv.URL, "/?room="+rm.ID+"&player="+pid), nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.CloseNow() })
		return conn
	}
	c1, c2 := dial("p1"), dial("p2")

	require.NoError(t, wsjson.Write(ctx, c1, Intent{Type: IntentJoin, Name: "Anya"}))
	require.NoError(t, wsjson.Write(ctx, c2, Intent{Type: IntentJoin, Name: "Boris"}))
	require.NoError(t, wsjson.Write(ctx, c1, Intent{Type: IntentStart}))

	var started room.Message
	for {
		started = readUntil(ctx, t, c1, "state")
		if started.State.Started {
			break
		}
	}

	// The attacker leads with their first visible card; the defender
	// either answers or takes the bottom.
	attacker, defender := c1, c2
	attackerID := started.State.AttackerID
	if attackerID == "p2" {
		attacker, defender = c2, c1
	}
	grabHand := func(msg room.Message) []engine.CardView {
		for _, p := range msg.State.Players {
			if p.ID == attackerID {
				return p.Hand
			}
		}
		return nil
	}
	var hand []engine.CardView
	if attackerID == "p1" {
		hand = grabHand(started)
	} else {
		// c1's view hides p2's hand; p2's own connection already holds
		// the queued start broadcast with the real cards.
		for {
			snap := readUntil(ctx, t, c2, "state")
			if snap.State.Started {
				hand = grabHand(snap)
				break
			}
		}
	}
	require.NotEmpty(t, hand)
	require.False(t, hand[0].Hidden)

	require.NoError(t, wsjson.Write(ctx, attacker, Intent{Type: IntentPlay, CardID: hand[0].ID}))
	require.NoError(t, wsjson.Write(ctx, defender, Intent{Type: IntentTake}))

	// Both clients converge on a state where the roles rotated or the
	// round closed; either way the defender picked up or the stack moved.
	msg := readUntil(ctx, t, defender, "state")
	require.NotNil(t, msg.State)
}
