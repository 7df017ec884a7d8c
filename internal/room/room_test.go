package room

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeautifulBabe-MTM/penki-server/internal/engine"
	"github.com/BeautifulBabe-MTM/penki-server/internal/history"
)

// mockSender captures delivered messages for assertions.
type mockSender struct {
	mu   sync.Mutex
	msgs []Message
}

func (m *mockSender) Send(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
}

func (m *mockSender) lastByType(msgType string) *Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Type == msgType {
			return &m.msgs[i]
		}
	}
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r, err := New("r1", engine.DefaultConfig(), nil, nil, testLogger())
	require.NoError(t, err)
	return r
}

func TestJoinStartFansOutState(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.Join("p1", "Anya"))
	require.NoError(t, r.Join("p2", "Boris"))

	s1, s2 := &mockSender{}, &mockSender{}
	r.Attach("p1", s1)
	r.Attach("p2", s2)

	require.NoError(t, r.Start("p1"))

	for name, s := range map[string]*mockSender{"p1": s1, "p2": s2} {
		msg := s.lastByType("state")
		require.NotNil(t, msg, "%s got no state message", name)
		require.NotNil(t, msg.State)
		assert.True(t, msg.State.Started)
		assert.Len(t, msg.State.Players, 2)
	}

	// Each viewer sees only their own cards.
	own := s1.lastByType("state").State
	assert.False(t, own.Players[0].Hand[0].Hidden, "p1 must see their own hand")
	assert.True(t, own.Players[1].Hand[0].Hidden, "p1 must not see p2's hand")
}

func TestStartRequiresSeatAndPlayers(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.Join("p1", "Anya"))
	assert.ErrorIs(t, r.Start("ghost"), engine.ErrUnknownPlayer)
	assert.ErrorIs(t, r.Start("p1"), engine.ErrNotEnoughPlayers)
}

func TestIntentErrorsPassThrough(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.Join("p1", "Anya"))
	require.NoError(t, r.Join("p2", "Boris"))
	require.NoError(t, r.Start("p1"))

	snap := r.SnapshotFor("p1")
	var idle string
	for _, p := range snap.Players {
		if p.ID != snap.AttackerID {
			idle = p.ID
		}
	}
	err := r.Play(idle, "♣9")
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	err = r.Play(snap.AttackerID, "no-such-card")
	assert.ErrorIs(t, err, engine.ErrCardNotInHand)
}

func TestGameOverFlow(t *testing.T) {
	r := newTestRoom(t)
	trump := engine.SuitHearts
	r.game.Players = []*engine.Player{
		{ID: "p1", Name: "Anya", Hand: []engine.Card{engine.NewCard(7, engine.SuitSpades)}},
		{ID: "p2", Name: "Boris", Hand: []engine.Card{engine.NewCard(6, engine.SuitDiamonds)}},
	}
	r.game.Trump = &trump
	r.game.Started = true
	r.game.Attacker, r.game.Defender = 0, 1

	s2 := &mockSender{}
	r.Attach("p2", s2)

	// The closer empties their hand with no reserve left and goes out;
	// the remaining player loses.
	require.NoError(t, r.Play("p1", "♠7"))

	finished, loser := r.Finished()
	assert.True(t, finished)
	assert.Equal(t, "p2", loser)
	assert.Equal(t, 1, r.game.Players[0].GamesWon)
	assert.Equal(t, 0, r.game.Players[1].GamesWon)

	over := s2.lastByType("game_over")
	require.NotNil(t, over)
	assert.Equal(t, "p2", over.LoserID)

	assert.ErrorIs(t, r.Take("p2"), ErrGameFinished)
	assert.ErrorIs(t, r.Join("p3", "Vera"), ErrGameFinished)
}

func TestAttachSendsStateAndDetachEmpties(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.Join("p1", "Anya"))

	s1 := &mockSender{}
	r.Attach("p1", s1)
	require.NotNil(t, s1.lastByType("state"), "attach must push current state")
	assert.False(t, r.Empty())

	r.Detach("p1")
	assert.True(t, r.Empty())

	sent := s1.count()
	require.NoError(t, r.Join("p2", "Boris"))
	assert.Equal(t, sent, s1.count(), "detached senders must not receive broadcasts")
}

func TestActionsReachHistorian(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	recorder := history.NewRecorder(client, time.Hour)

	r, err := New("r1", engine.DefaultConfig(), recorder, nil, testLogger())
	require.NoError(t, err)
	require.NoError(t, r.Join("p1", "Anya"))
	require.NoError(t, r.Join("p2", "Boris"))

	require.Eventually(t, func() bool {
		records, err := recorder.List(context.Background(), "r1")
		return err == nil && len(records) == 2
	}, 2*time.Second, 10*time.Millisecond, "join records must reach redis")

	records, err := recorder.List(context.Background(), "r1")
	require.NoError(t, err)
	// Publishing is fire-and-forget, so list order may differ from
	// intent order; the index field carries the authoritative order.
	indexes := []int{records[0].Index, records[1].Index}
	assert.ElementsMatch(t, []int{1, 2}, indexes)
	for _, rec := range records {
		assert.Equal(t, "join", rec.Action)
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(nil, nil, testLogger())
	r, err := s.Create(engine.DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	sender := &mockSender{}
	r.Attach("p1", sender)
	s.DestroyWhenEmpty(r.ID)
	_, err = s.Get(r.ID)
	assert.NoError(t, err, "room with live connections must survive")

	r.Detach("p1")
	s.DestroyWhenEmpty(r.ID)
	_, err = s.Get(r.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Zero(t, s.Len())
}

func TestDestroyWhenEmptyConcurrent(t *testing.T) {
	s := NewStore(nil, nil, testLogger())
	for i := 0; i < 50; i++ {
		r, err := s.Create(engine.DefaultConfig())
		require.NoError(t, err)
		r.Attach("p1", &mockSender{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Detach("p1")
		}()
		go func() {
			defer wg.Done()
			s.DestroyWhenEmpty(r.ID)
		}()
		wg.Wait()

		// Whatever the interleaving, a final sweep after the detach
		// must leave no trace of the room.
		s.DestroyWhenEmpty(r.ID)
		_, err = s.Get(r.ID)
		assert.ErrorIs(t, err, ErrRoomNotFound)
	}
	assert.Zero(t, s.Len())
}
