package menu

// Action is what a click on a menu asks the host to do.
type Action int

const (
	ActionNone Action = iota
	ActionResume
	ActionQuit
)
