package engine

import "errors"

// Sentinel errors for every caller-input and turn-sequencing failure.
// All are local and recoverable: a failing operation performs no
// mutation, and callers match with errors.Is.
var (
	ErrAlreadyStarted   = errors.New("game already started")
	ErrNotStarted       = errors.New("game not started")
	ErrRoomFull         = errors.New("room is full")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrUnknownPlayer    = errors.New("player not in game")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrNothingToDefend  = errors.New("nothing to defend")
	ErrEmptyStack       = errors.New("stack is empty")
	ErrIllegalDefense   = errors.New("card cannot beat the attack")
	ErrEmptyDeck        = errors.New("deck is empty")
)
