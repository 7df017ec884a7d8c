// Package engine implements the rules of Penki, a Russian Fool-family
// attack/defense card game with a spades-immunity twist and a two-card
// hidden reserve per player.
//
// The package is the authoritative rules core: pure, synchronous,
// in-memory state transitions with no I/O and no internal locking.
// Callers (one logical writer per game) serialize access themselves.
package engine

import (
	"fmt"
	"math/rand"
)

// Suit identifies one of the four French suits.
type Suit uint8

const (
	SuitSpades Suit = iota
	SuitHearts
	SuitDiamonds
	SuitClubs
)

var suitSymbols = [4]string{"♠", "♥", "♦", "♣"}

// String returns the suit symbol.
func (s Suit) String() string {
	if int(s) < len(suitSymbols) {
		return suitSymbols[s]
	}
	return "?"
}

// Rank bounds. Face ranks: 11=J, 12=Q, 13=K, 14=A.
const (
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13
	RankAce   = 14
)

// Deck variants: the 36-card deck runs 6..A, the 52-card deck 2..A.
const (
	Deck36 = 36
	Deck52 = 52
)

// Card is an immutable value: rank, suit, and a deterministic ID unique
// within one deck instance. The ID doubles as the display form used by
// the event log and by clients.
type Card struct {
	Rank int    `json:"rank"`
	Suit Suit   `json:"suit"`
	ID   string `json:"id"`
}

// NewCard builds a card with its deterministic ID.
func NewCard(rank int, suit Suit) Card {
	return Card{Rank: rank, Suit: suit, ID: suit.String() + RankLabel(rank)}
}

// RankLabel renders face ranks as J/Q/K/A and numeric ranks as digits.
func RankLabel(rank int) string {
	switch rank {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

// String returns the card's display form, e.g. "♠A" or "♥10".
func (c Card) String() string { return c.ID }

// isZero reports whether the card is the missing-card zero value.
// Rank 0 is outside both deck variants' rank domains.
func (c Card) isZero() bool { return c.Rank == 0 }

// lowestRank returns the smallest rank in the given deck variant.
func lowestRank(variant int) int {
	if variant == Deck52 {
		return 2
	}
	return 6
}

// BuildDeck generates one card per (rank, suit) pair of the variant and
// applies a uniform random permutation using the supplied source.
func BuildDeck(variant int, rng *rand.Rand) ([]Card, error) {
	if variant != Deck36 && variant != Deck52 {
		return nil, fmt.Errorf("unknown deck variant %d", variant)
	}
	deck := make([]Card, 0, variant)
	for s := SuitSpades; s <= SuitClubs; s++ {
		for r := lowestRank(variant); r <= RankAce; r++ {
			deck = append(deck, NewCard(r, s))
		}
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck, nil
}

// drawTop removes and returns the last card of the deck.
func drawTop(deck *[]Card) (Card, error) {
	d := *deck
	if len(d) == 0 {
		return Card{}, ErrEmptyDeck
	}
	c := d[len(d)-1]
	*deck = d[:len(d)-1]
	return c, nil
}
