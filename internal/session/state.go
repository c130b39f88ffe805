// Package session keeps per-user conversation state and live chat bindings in
// process memory. Nothing here survives a restart.
package session

// Category groups states that are routed the same way.
type Category uint8

const (
	// CategoryMenu is the idle state waiting for a menu choice.
	CategoryMenu Category = iota
	// CategoryInput covers states that consume the next free-form text.
	CategoryInput
	// CategoryChat is a customer bridged to the operator.
	CategoryChat
	// CategoryOperator is the operator replying to a bound customer.
	CategoryOperator
)

// State identifies a conversation step. The zero value is not a valid state.
type State struct {
	name     string
	category Category
}

var (
	MainMenu         = State{name: "main_menu", category: CategoryMenu}
	AwaitingName     = InputState("awaiting_name")
	AwaitingPhone    = InputState("awaiting_phone")
	AwaitingAddress  = InputState("awaiting_address")
	AwaitingTracking = InputState("awaiting_tracking")
	Chatting         = State{name: "chatting", category: CategoryChat}
	AdminReplying    = State{name: "admin_replying", category: CategoryOperator}
)

// InputState declares a state that collects one piece of free-form input.
// Every such state is routed to the input handlers without further wiring.
func InputState(name string) State {
	return State{name: name, category: CategoryInput}
}

// String returns the state label used in logs.
func (s State) String() string {
	if s.name == "" {
		return "unset"
	}
	return s.name
}

// Category reports the routing group of the state.
func (s State) Category() Category { return s.category }

// CollectsInput reports whether the state waits for free-form input.
func (s State) CollectsInput() bool { return s.category == CategoryInput }

// IsZero reports whether the state was never set.
func (s State) IsZero() bool { return s.name == "" }

// Session is a snapshot of one user's conversation.
type Session struct {
	State   State
	Name    string
	Phone   string
	Address string
	// CustomerID is the customer an operator session is replying to. Zero means none.
	CustomerID int64
}

func fresh() *Session {
	return &Session{State: MainMenu}
}
