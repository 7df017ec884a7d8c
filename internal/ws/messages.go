package ws

// Intent is the client-to-server envelope. One intent maps to one room
// operation; the server answers with state messages or an error ack.
type Intent struct {
	Type   string `json:"type"`             // join, start, play_card, defend, take
	Name   string `json:"name,omitempty"`   // join only
	CardID string `json:"cardId,omitempty"` // play_card and defend
}

// Intent types accepted by the handler.
const (
	IntentJoin   = "join"
	IntentStart  = "start"
	IntentPlay   = "play_card"
	IntentDefend = "defend"
	IntentTake   = "take"
)
