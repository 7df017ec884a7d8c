package engine

// Player holds one seat's cards and status. Hand order carries no
// meaning (cards are selected by ID); Reserve is the two face-down
// "penki" dealt at start and revealed into the hand exactly once, when
// the hand empties after a round close. IsOut is monotonic within a
// game.
type Player struct {
	ID       string
	Name     string
	Hand     []Card
	Reserve  []Card
	OpenCard Card // open-determination card dealt at start; zero before dealing
	IsOut    bool
	GamesWon int
}

// handIndex returns the position of the card with the given ID in the
// player's hand, or -1.
func (p *Player) handIndex(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// removeFromHand takes the card at index i out of the hand.
func (p *Player) removeFromHand(i int) Card {
	c := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	return c
}

// canBeatAny reports whether any card in the hand beats target.
func (p *Player) canBeatAny(target Card, trump *Suit) bool {
	for _, c := range p.Hand {
		if CanBeat(target, c, trump) {
			return true
		}
	}
	return false
}
