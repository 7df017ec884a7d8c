package engine

// CardView is a card as seen by one viewer. Hidden cards carry only
// the placeholder flag.
type CardView struct {
	ID     string `json:"id,omitempty"`
	Rank   int    `json:"rank,omitempty"`
	Suit   string `json:"suit,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// PlayerView is one seat as seen by a viewer. Hand contents are real
// only for the viewer's own seat; every other hand is placeholders of
// matching count. Reserve contents never appear, only the count.
type PlayerView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	HandSize     int        `json:"handSize"`
	ReserveCount int        `json:"reserveCount"`
	IsOut        bool       `json:"isOut"`
	GamesWon     int        `json:"gamesWon"`
	Hand         []CardView `json:"hand"`
}

// Snapshot is the per-viewer filtered state. It is the only sanctioned
// way state leaves the engine.
type Snapshot struct {
	GameID       string       `json:"gameId"`
	Started      bool         `json:"started"`
	Trump        *string      `json:"trump,omitempty"` // suit symbol; absent when no trump
	DeckCount    int          `json:"deckCount"`
	DiscardCount int          `json:"discardCount"`
	Stack        []CardView   `json:"stack"` // public table information, fully visible
	AttackerID   string       `json:"attackerId,omitempty"`
	DefenderID   string       `json:"defenderId,omitempty"`
	Players      []PlayerView `json:"players"`
	Events       []string     `json:"events"`
}

func viewOf(c Card) CardView {
	return CardView{ID: c.ID, Rank: c.Rank, Suit: c.Suit.String()}
}

// ProjectFor builds the snapshot visible to viewerID. Projection never
// mutates the game: two calls with no mutation in between are
// identical.
func (g *Game) ProjectFor(viewerID string) Snapshot {
	snap := Snapshot{
		GameID:       g.ID,
		Started:      g.Started,
		DeckCount:    len(g.Deck),
		DiscardCount: len(g.Discard),
		Stack:        make([]CardView, len(g.Stack)),
		Players:      make([]PlayerView, len(g.Players)),
		Events:       append([]string(nil), g.Events...),
	}
	if g.Trump != nil {
		s := g.Trump.String()
		snap.Trump = &s
	}
	if g.Started && len(g.Players) > 0 {
		snap.AttackerID = g.Players[g.Attacker].ID
		snap.DefenderID = g.Players[g.Defender].ID
	}
	for i, c := range g.Stack {
		snap.Stack[i] = viewOf(c)
	}
	for i, p := range g.Players {
		pv := PlayerView{
			ID:           p.ID,
			Name:         p.Name,
			HandSize:     len(p.Hand),
			ReserveCount: len(p.Reserve),
			IsOut:        p.IsOut,
			GamesWon:     p.GamesWon,
			Hand:         make([]CardView, len(p.Hand)),
		}
		if p.ID == viewerID {
			for j, c := range p.Hand {
				pv.Hand[j] = viewOf(c)
			}
		} else {
			for j := range p.Hand {
				pv.Hand[j] = CardView{Hidden: true}
			}
		}
		snap.Players[i] = pv
	}
	return snap
}
