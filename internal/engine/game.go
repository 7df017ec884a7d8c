package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// Each player is dealt this many face-down reserve cards ("penki").
const reserveSize = 2

// maxEvents bounds the in-memory event log.
const maxEvents = 64

// Config enumerates the game parameters, validated at construction.
type Config struct {
	DeckVariant    int `json:"deckVariant"` // Deck36 or Deck52
	TargetHandSize int `json:"targetHandSize"`
}

// DefaultConfig is the classic setup: 36 cards, 6-card hands.
func DefaultConfig() Config {
	return Config{DeckVariant: Deck36, TargetHandSize: 6}
}

// Validate checks the config against the supported deck variants.
func (c Config) Validate() error {
	if c.DeckVariant != Deck36 && c.DeckVariant != Deck52 {
		return fmt.Errorf("deck variant must be %d or %d, got %d", Deck36, Deck52, c.DeckVariant)
	}
	if c.TargetHandSize < 1 || c.TargetHandSize > 12 {
		return fmt.Errorf("target hand size %d out of range [1,12]", c.TargetHandSize)
	}
	return nil
}

// MaxPlayers returns the seat cap for the configured deck.
func (c Config) MaxPlayers() int {
	if c.DeckVariant == Deck52 {
		return 6
	}
	return 4
}

// Status tags the outcome of a successful mutating operation.
type Status uint8

const (
	StatusOK       Status = iota // attack laid, defense expected
	StatusDefended               // defense held, round continues
	StatusTook                   // defender took the bottom card
	StatusClosed                 // round closed, stack discarded
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDefended:
		return "defended"
	case StatusTook:
		return "took"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// Result describes the outcome of a mutating operation.
type Result struct {
	Status      Status `json:"status"`
	AttackerIdx int    `json:"attackerIdx"`
	DefenderIdx int    `json:"defenderIdx"`
}

// Game is the complete state of one table. All mutating methods are
// synchronous, bounded-time and atomic: they either fully succeed or
// return an error having touched nothing. The caller serializes access.
type Game struct {
	ID      string
	Config  Config
	Players []*Player // turn order, circular
	Deck    []Card
	Stack   []Card // cards in play this round; index 0 = bottom, last = top
	Discard []Card
	Trump   *Suit // nil when the revealed card was a spade (no trump)

	Attacker int
	Defender int
	Started  bool

	Events []string // bounded, most recent last

	rng *rand.Rand
}

// NewGame creates an empty table. A nil rng falls back to a
// time-seeded source; tests inject a fixed seed.
func NewGame(id string, cfg Config, rng *rand.Rand) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Game{ID: id, Config: cfg, rng: rng}, nil
}

// AddPlayer appends a seat in turn order. Only legal before Start.
func (g *Game) AddPlayer(id, name string) error {
	if g.Started {
		return ErrAlreadyStarted
	}
	if len(g.Players) >= g.Config.MaxPlayers() {
		return ErrRoomFull
	}
	g.Players = append(g.Players, &Player{ID: id, Name: name})
	return nil
}

// Start deals the table and opens play: two reserve cards per player,
// one open-determination card per player (into the hand), hands topped
// up to the target size, first drawer determined by highest open card
// (draw-off on ties), and the trump revealed from the deck. If the
// revealed card is a spade the game has no trump.
// The revealed card goes onto the stack and is discarded at the first
// round close.
func (g *Game) Start() error {
	if g.Started {
		return ErrAlreadyStarted
	}
	if len(g.Players) < 2 {
		return ErrNotEnoughPlayers
	}
	deck, err := BuildDeck(g.Config.DeckVariant, g.rng)
	if err != nil {
		return err
	}
	g.Deck = deck

	// Reserves and open cards cannot exhaust the deck: the seat cap
	// keeps 3 cards per player well under either deck size.
	for r := 0; r < reserveSize; r++ {
		for _, p := range g.Players {
			c, _ := drawTop(&g.Deck)
			p.Reserve = append(p.Reserve, c)
		}
	}
	for _, p := range g.Players {
		c, _ := drawTop(&g.Deck)
		p.OpenCard = c
		p.Hand = append(p.Hand, c)
		g.logf("%s shows %s", p.Name, c)
	}
	for _, p := range g.Players {
		for len(p.Hand) < g.Config.TargetHandSize && len(g.Deck) > 0 {
			c, _ := drawTop(&g.Deck)
			p.Hand = append(p.Hand, c)
		}
	}

	drawer := g.determineFirstDrawer()

	if c, err := drawTop(&g.Deck); err == nil {
		if c.Suit == SuitSpades {
			g.Trump = nil
			g.logf("%s revealed; spades mean no trump this game", c)
		} else {
			s := c.Suit
			g.Trump = &s
			g.logf("trump is %s (%s revealed)", s, c)
		}
		g.Stack = append(g.Stack, c)
	} else {
		// Only reachable after a pathological draw-off. No trump,
		// nothing on the stack.
		g.Trump = nil
		g.logf("deck exhausted before the trump reveal; no trump")
	}

	g.Attacker = drawer
	g.Defender = g.nextIn(drawer)
	g.Started = true
	g.logf("%s leads the first attack", g.Players[drawer].Name)
	return nil
}

// determineFirstDrawer compares the players' open cards by rank. Ties
// among the maximum holders are broken by dealing one more card to
// each tied player and comparing again, narrowing until one survivor
// remains. If the deck cannot cover another draw-off round, the first
// remaining candidate in turn order wins by default.
func (g *Game) determineFirstDrawer() int {
	candidates := make([]int, len(g.Players))
	ranks := make([]int, len(g.Players))
	for i, p := range g.Players {
		candidates[i] = i
		ranks[i] = p.OpenCard.Rank
	}
	for {
		best := candidates[0]
		for _, i := range candidates[1:] {
			if ranks[i] > ranks[best] {
				best = i
			}
		}
		var tied []int
		for _, i := range candidates {
			if ranks[i] == ranks[best] {
				tied = append(tied, i)
			}
		}
		if len(tied) == 1 {
			return tied[0]
		}
		if len(g.Deck) < len(tied) {
			g.logf("deck exhausted during the draw-off; %s wins by turn order", g.Players[tied[0]].Name)
			return tied[0]
		}
		for _, i := range tied {
			c, _ := drawTop(&g.Deck)
			g.Players[i].Hand = append(g.Players[i].Hand, c)
			ranks[i] = c.Rank
			g.logf("draw-off: %s draws %s", g.Players[i].Name, c)
		}
		candidates = tied
	}
}

// sevenOfSpades is the named exception card: played or defended with,
// it closes the round outright, bypassing the beat relation.
func sevenOfSpades(c Card) bool {
	return c.Rank == 7 && c.Suit == SuitSpades
}

// PlayCard lays an attack card on top of the stack. Only the current
// attacker may call it. The seven of spades closes the round at once
// with the attacker as closer.
func (g *Game) PlayCard(playerID, cardID string) (Result, error) {
	if !g.Started {
		return Result{}, ErrNotStarted
	}
	idx, p, err := g.seatOf(playerID)
	if err != nil {
		return Result{}, err
	}
	if idx != g.Attacker {
		return Result{}, ErrNotYourTurn
	}
	i := p.handIndex(cardID)
	if i < 0 {
		return Result{}, ErrCardNotInHand
	}

	c := p.removeFromHand(i)
	g.Stack = append(g.Stack, c)
	g.logf("%s attacks with %s", p.Name, c)

	if sevenOfSpades(c) {
		g.logf("%s closes the round with %s", p.Name, c)
		g.closeRoundBy(idx)
		return g.result(StatusClosed), nil
	}
	return g.result(StatusOK), nil
}

// DefendWith answers the top card of the stack. Only the current
// defender may call it. The seven of spades beats anything and closes
// the round with this defender as closer. Any other card must satisfy
// CanBeat against the top of the stack; on success the defense passes
// down the table and the chain-defense sweep runs: every player the
// defense lands on who cannot beat the current bottom card takes it
// into hand and passes the defense on, until someone can answer or the
// stack empties or every remaining player has been visited. The latter
// two close the round with the original attacker as closer.
func (g *Game) DefendWith(playerID, cardID string) (Result, error) {
	if !g.Started {
		return Result{}, ErrNotStarted
	}
	idx, p, err := g.seatOf(playerID)
	if err != nil {
		return Result{}, err
	}
	if idx != g.Defender {
		return Result{}, ErrNotYourTurn
	}
	if len(g.Stack) == 0 {
		return Result{}, ErrNothingToDefend
	}
	i := p.handIndex(cardID)
	if i < 0 {
		return Result{}, ErrCardNotInHand
	}
	c := p.Hand[i]

	if sevenOfSpades(c) {
		p.removeFromHand(i)
		g.Stack = append(g.Stack, c)
		g.logf("%s closes the round with %s", p.Name, c)
		g.closeRoundBy(idx)
		return g.result(StatusClosed), nil
	}

	top := g.Stack[len(g.Stack)-1]
	if !CanBeat(top, c, g.Trump) {
		return Result{}, ErrIllegalDefense
	}

	p.removeFromHand(i)
	g.Stack = append(g.Stack, c)
	g.logf("%s beats %s with %s", p.Name, top, c)

	closer := g.Attacker
	g.Defender = g.nextIn(g.Defender)

	// Chain-defense sweep against the bottom of the stack.
	alive := g.aliveCount()
	swept := 0
	for ; swept < alive && len(g.Stack) > 0; swept++ {
		d := g.Players[g.Defender]
		bottom := g.Stack[0]
		if d.canBeatAny(bottom, g.Trump) {
			break
		}
		g.Stack = g.Stack[1:]
		d.Hand = append(d.Hand, bottom)
		g.logf("%s cannot answer and picks up %s", d.Name, bottom)
		g.Defender = g.nextIn(g.Defender)
	}

	if len(g.Stack) == 0 || swept == alive {
		g.closeRoundBy(closer)
		return g.result(StatusClosed), nil
	}
	// The sweep may land the defense on the attacker; the attack role
	// then moves one seat past the defender to keep the two distinct.
	if g.Defender == g.Attacker {
		g.Attacker = g.nextIn(g.Defender)
	}
	return g.result(StatusDefended), nil
}

// TakeBottom concedes the defense: the oldest (bottom) card of the
// stack moves into the defender's hand, and both the attack and defense
// roles advance one seat onward. Any remaining stack cards stay on the
// table and are cleared into discard only at the next round close.
func (g *Game) TakeBottom(playerID string) (Result, error) {
	if !g.Started {
		return Result{}, ErrNotStarted
	}
	idx, p, err := g.seatOf(playerID)
	if err != nil {
		return Result{}, err
	}
	if idx != g.Defender {
		return Result{}, ErrNotYourTurn
	}
	if len(g.Stack) == 0 {
		return Result{}, ErrEmptyStack
	}

	bottom := g.Stack[0]
	g.Stack = g.Stack[1:]
	p.Hand = append(p.Hand, bottom)
	g.logf("%s takes %s from the bottom", p.Name, bottom)

	g.Attacker = g.nextIn(g.Attacker)
	g.Defender = g.nextIn(g.Defender)
	if g.Defender == g.Attacker {
		g.Defender = g.nextIn(g.Attacker)
	}
	return g.result(StatusTook), nil
}

// closeRoundBy clears the stack into discard, re-anchors the attack on
// the closer, refills hands from the deck, reveals penki into hands
// that emptied, and marks players with nothing left as out.
func (g *Game) closeRoundBy(closer int) {
	g.Discard = append(g.Discard, g.Stack...)
	g.Stack = nil

	n := len(g.Players)
	for k := 0; k < n; k++ {
		p := g.Players[(closer+k)%n]
		if p.IsOut {
			continue
		}
		for len(p.Hand) < g.Config.TargetHandSize && len(g.Deck) > 0 {
			c, _ := drawTop(&g.Deck)
			p.Hand = append(p.Hand, c)
		}
	}

	for _, p := range g.Players {
		if p.IsOut || len(p.Hand) > 0 {
			continue
		}
		if len(p.Reserve) > 0 {
			p.Hand = append(p.Hand, p.Reserve...)
			p.Reserve = nil
			g.logf("%s picks up the penki", p.Name)
		} else {
			p.IsOut = true
			g.logf("%s is out of the game", p.Name)
		}
	}

	g.Attacker = closer
	if g.Players[closer].IsOut {
		g.Attacker = g.nextIn(closer)
	}
	g.Defender = g.nextIn(g.Attacker)
	g.logf("round closed; trump %s", g.trumpLabel())
}

// seatOf resolves a player ID to its seat index.
func (g *Game) seatOf(playerID string) (int, *Player, error) {
	for i, p := range g.Players {
		if p.ID == playerID {
			return i, p, nil
		}
	}
	return 0, nil, ErrUnknownPlayer
}

// nextIn returns the next seat after i in turn order, skipping players
// who are out. Falls back to i itself when nobody else remains in.
func (g *Game) nextIn(i int) int {
	n := len(g.Players)
	for k := 1; k <= n; k++ {
		j := (i + k) % n
		if !g.Players[j].IsOut {
			return j
		}
	}
	return i
}

// aliveCount returns the number of players still in the game.
func (g *Game) aliveCount() int {
	count := 0
	for _, p := range g.Players {
		if !p.IsOut {
			count++
		}
	}
	return count
}

func (g *Game) trumpLabel() string {
	if g.Trump == nil {
		return "none"
	}
	return g.Trump.String()
}

func (g *Game) result(s Status) Result {
	return Result{Status: s, AttackerIdx: g.Attacker, DefenderIdx: g.Defender}
}

// logf appends a formatted entry to the bounded event log.
func (g *Game) logf(format string, args ...any) {
	g.Events = append(g.Events, fmt.Sprintf(format, args...))
	if len(g.Events) > maxEvents {
		g.Events = g.Events[len(g.Events)-maxEvents:]
	}
}
