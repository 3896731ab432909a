package orchestrator

// State is a step of the bracket state machine. Steps run strictly in order;
// Failed can be reached from any of them.
type State string

const (
	StateValidating        State = "VALIDATING"
	StateFlattening        State = "FLATTENING"
	StateSizing            State = "SIZING"
	StateEnteringPosition  State = "ENTERING_POSITION"
	StateSettingStopLoss   State = "SETTING_STOP_LOSS"
	StateSettingTakeProfit State = "SETTING_TAKE_PROFIT"
	StateCompleted         State = "COMPLETED"
	StateFailed            State = "FAILED"
)

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}
