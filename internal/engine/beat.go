package engine

// CanBeat reports whether defending legally counters attacking under
// the given trump suit (nil = no trump this game).
//
// Spades are a self-contained immune suit: a spade attack is beaten
// only by a higher spade, trump or not. Any other attack is beaten by
// a strictly higher card of the same suit, or by any trump card when
// the attack itself is not trump. A trump attack is answered like any
// same-suit attack: only a higher trump.
// Equal rank never beats; a missing card on either side never beats.
func CanBeat(attacking, defending Card, trump *Suit) bool {
	if attacking.isZero() || defending.isZero() {
		return false
	}
	if attacking.Suit == SuitSpades {
		return defending.Suit == SuitSpades && defending.Rank > attacking.Rank
	}
	if defending.Suit == attacking.Suit && defending.Rank > attacking.Rank {
		return true
	}
	return trump != nil && defending.Suit == *trump && attacking.Suit != *trump
}
