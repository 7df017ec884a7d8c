// Package room wraps one engine game with the concurrency, delivery and
// bookkeeping the engine deliberately leaves out: a per-room mutex,
// per-player snapshot fan-out, the action historian, and result
// persistence when a game finishes.
package room

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BeautifulBabe-MTM/penki-server/internal/database"
	"github.com/BeautifulBabe-MTM/penki-server/internal/engine"
	"github.com/BeautifulBabe-MTM/penki-server/internal/history"
)

// ErrGameFinished rejects intents arriving after the game ended.
var ErrGameFinished = errors.New("game already finished")

// publishTimeout bounds the fire-and-forget historian write.
const publishTimeout = 2 * time.Second

// Message is the envelope delivered to connected clients.
type Message struct {
	Type    string           `json:"type"` // "state", "game_over" or "error"
	State   *engine.Snapshot `json:"state,omitempty"`
	LoserID string           `json:"loserId,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Sender delivers messages to one connected player. Implementations
// must tolerate concurrent calls.
type Sender interface {
	Send(msg Message)
}

// Room serializes access to one game. Every exported method takes the
// room mutex; the engine itself is single-threaded by construction.
type Room struct {
	ID string

	mu       sync.Mutex
	game     *engine.Game
	conns    map[string]Sender
	finished bool
	loserID  string

	actionIndex int
	recorder    *history.Recorder
	results     *database.Store
	log         *logrus.Entry
}

// New creates a room around a fresh game. recorder and results may be
// nil; logger must not be.
func New(id string, cfg engine.Config, recorder *history.Recorder, results *database.Store, logger *logrus.Logger) (*Room, error) {
	g, err := engine.NewGame(id, cfg, nil)
	if err != nil {
		return nil, err
	}
	return &Room{
		ID:       id,
		game:     g,
		conns:    make(map[string]Sender),
		recorder: recorder,
		results:  results,
		log:      logger.WithField("room", id),
	}, nil
}

// Join seats a player. Allowed only before the game starts.
func (r *Room) Join(playerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrGameFinished
	}
	if err := r.game.AddPlayer(playerID, name); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"player": playerID, "name": name}).Info("player joined")
	r.logAction(playerID, "join", map[string]interface{}{"name": name})
	r.broadcast()
	return nil
}

// Start deals the table. Any seated player may trigger it.
func (r *Room) Start(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrGameFinished
	}
	if _, _, err := r.seatOf(playerID); err != nil {
		return err
	}
	if err := r.game.Start(); err != nil {
		return err
	}
	r.log.WithField("player", playerID).Info("game started")
	r.logAction(playerID, "start", nil)
	r.broadcast()
	return nil
}

// Play lays an attack card.
func (r *Room) Play(playerID, cardID string) error {
	return r.mutate(playerID, "play_card", map[string]interface{}{"cardId": cardID}, func() (engine.Result, error) {
		return r.game.PlayCard(playerID, cardID)
	})
}

// Defend answers the top of the stack.
func (r *Room) Defend(playerID, cardID string) error {
	return r.mutate(playerID, "defend", map[string]interface{}{"cardId": cardID}, func() (engine.Result, error) {
		return r.game.DefendWith(playerID, cardID)
	})
}

// Take concedes the defense and takes the bottom card.
func (r *Room) Take(playerID string) error {
	return r.mutate(playerID, "take", nil, func() (engine.Result, error) {
		return r.game.TakeBottom(playerID)
	})
}

// mutate runs one engine operation under the room lock, then records
// it, fans out fresh snapshots and checks for game end.
func (r *Room) mutate(playerID, action string, payload map[string]interface{}, op func() (engine.Result, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrGameFinished
	}
	res, err := op()
	if err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["status"] = res.Status.String()
	r.log.WithFields(logrus.Fields{"player": playerID, "action": action, "status": res.Status.String()}).Info("intent applied")
	r.logAction(playerID, action, payload)
	r.broadcast()
	r.checkGameOver()
	return nil
}

// Attach registers a player's connection and sends them the current
// state at once. Re-attaching replaces the previous sender.
func (r *Room) Attach(playerID string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[playerID] = s
	r.log.WithField("player", playerID).Info("connection attached")
	snap := r.game.ProjectFor(playerID)
	s.Send(Message{Type: "state", State: &snap})
	if r.finished {
		s.Send(Message{Type: "game_over", LoserID: r.loserID})
	}
}

// Detach drops a player's connection. The seat stays; the game plays on.
func (r *Room) Detach(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, playerID)
	r.log.WithField("player", playerID).Info("connection detached")
}

// Empty reports whether no connection remains attached.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns) == 0
}

// SnapshotFor returns the current state as seen by one viewer.
func (r *Room) SnapshotFor(playerID string) engine.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.ProjectFor(playerID)
}

// Finished reports whether the game ended, and who lost.
func (r *Room) Finished() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished, r.loserID
}

// broadcast re-projects the game for every attached player. Assumes the
// lock is held.
func (r *Room) broadcast() {
	for pid, s := range r.conns {
		snap := r.game.ProjectFor(pid)
		s.Send(Message{Type: "state", State: &snap})
	}
}

// checkGameOver detects the end condition: at most one player still in.
// That player is the loser; everyone out gets a win. Assumes the lock
// is held.
func (r *Room) checkGameOver() {
	if r.finished || !r.game.Started {
		return
	}
	var alive []*engine.Player
	for _, p := range r.game.Players {
		if !p.IsOut {
			alive = append(alive, p)
		}
	}
	if len(alive) > 1 {
		return
	}
	r.finished = true
	if len(alive) == 1 {
		r.loserID = alive[0].ID
	}
	for _, p := range r.game.Players {
		if p.IsOut {
			p.GamesWon++
		}
	}
	r.log.WithField("loser", r.loserID).Info("game finished")
	r.logAction("", "game_over", map[string]interface{}{"loserId": r.loserID})

	for _, s := range r.conns {
		s.Send(Message{Type: "game_over", LoserID: r.loserID})
	}

	if r.results != nil {
		result := database.GameResult{
			RoomID:     r.ID,
			LoserID:    r.loserID,
			Players:    len(r.game.Players),
			FinishedAt: time.Now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			if err := r.results.RecordResult(ctx, result); err != nil {
				r.log.WithError(err).Error("failed to persist game result")
			}
		}()
	}
}

// logAction ships one record to the historian, fire-and-forget. Assumes
// the lock is held.
func (r *Room) logAction(actorID, action string, payload map[string]interface{}) {
	r.actionIndex++
	rec := history.ActionRecord{
		RoomID:  r.ID,
		Index:   r.actionIndex,
		ActorID: actorID,
		Action:  action,
		Payload: payload,
		TS:      time.Now().UnixMilli(),
	}
	recorder := r.recorder
	if recorder == nil {
		return
	}
	logger := r.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := recorder.Publish(ctx, rec); err != nil {
			logger.WithError(err).WithField("action", rec.Action).Error("failed to publish action record")
		}
	}()
}

// seatOf checks the player is seated. Assumes the lock is held.
func (r *Room) seatOf(playerID string) (int, *engine.Player, error) {
	for i, p := range r.game.Players {
		if p.ID == playerID {
			return i, p, nil
		}
	}
	return 0, nil, engine.ErrUnknownPlayer
}
