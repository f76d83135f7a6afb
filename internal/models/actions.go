package models

// ActionKind distinguishes the ways a user can interact with the engine
type ActionKind string

const (
	ActionButton ActionKind = "button"
	ActionText   ActionKind = "text"
	ActionPhoto  ActionKind = "photo"
)

// UserAction is one normalized input event from the transport layer.
// Exactly one of Button, Text, or PhotoRef is meaningful depending on Kind.
type UserAction struct {
	UserId      int64
	Username    string
	DisplayName string
	Kind        ActionKind
	Button      string
	Text        string
	PhotoRef    string
}

// ButtonRef is a single choice offered to the user in a view
type ButtonRef struct {
	Label string
	Data  string
}

// View is a renderable reply: text plus optional button rows and an
// optional voice attachment produced after settlement.
type View struct {
	UserId     int64
	Text       string
	Buttons    [][]ButtonRef
	VoiceAudio []byte
}
