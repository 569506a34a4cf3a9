// Package state provides a lightweight per-user FSM used for multi-step
// conversations, such as asking a user for a connection name.
package state

import tele "gopkg.in/telebot.v4"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// Idle indicates there is no active conversation with the user.
	Idle State = "idle"
	// AwaitingName means the bot is waiting for the user to send a
	// name for their VPN connection.
	AwaitingName State = "awaiting_name"
)

// Manager orchestrates user sessions and FSM state transitions.
type Manager interface {
	SetState(userID int64, st State)
	GetState(userID int64) State
	ClearState(userID int64)

	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	GetTempInt64(userID int64, key string) (int64, bool)
	ClearTemp(userID int64, key string)
	Clear(userID int64)

	// InProgress reports whether the user has an active non-idle state.
	InProgress(userID int64) bool
	// ManagerHandler dispatches the update to the handler registered
	// for the user's current state.
	ManagerHandler(c tele.Context) error
}

var stateHandlers = map[State]tele.HandlerFunc{}

// RegisterHandler associates a state with its handler.
func RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	stateHandlers[st] = h
}
