package detector

// State is the detector process handle state.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateModelsLoaded
	StateCameraOpen
	StateCameraError
	StateStopping
	StateExited
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateModelsLoaded:
		return "models-loaded"
	case StateCameraOpen:
		return "camera-open"
	case StateCameraError:
		return "camera-error"
	case StateStopping:
		return "stopping"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Live reports whether a process handle exists in this state.
func (s State) Live() bool {
	switch s {
	case StateStarting, StateModelsLoaded, StateCameraOpen, StateCameraError, StateStopping:
		return true
	default:
		return false
	}
}
