package relay

// Action is a raw relay query value as the device understands it.
type Action string

const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
)

// Complement returns the opposite raw action.
func (a Action) Complement() Action {
	if a == ActionOn {
		return ActionOff
	}
	return ActionOn
}

// Command is one of the two door operations.  Which raw action a command
// maps to depends on the device's configured open polarity, decided once at
// configuration load time — the polarity is never hard-coded at call sites.
type Command int

const (
	Open Command = iota
	Close
)

func (c Command) String() string {
	if c == Open {
		return "open"
	}
	return "close"
}
