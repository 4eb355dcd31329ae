package sensor

import "github.com/andys/dbsensor/reading"

// DecisionKind is the outcome class of a poll
type DecisionKind int

const (
	DecisionReadings DecisionKind = iota
	DecisionNoCapture
	DecisionError
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionReadings:
		return "readings"
	case DecisionNoCapture:
		return "no_capture"
	case DecisionError:
		return "error"
	default:
		return "unknown"
	}
}

// Decision is produced exactly once per poll
type Decision struct {
	Kind    DecisionKind
	Reading reading.Reading
	Err     error
}

func readingsDecision(r reading.Reading) Decision {
	return Decision{Kind: DecisionReadings, Reading: r}
}

func noCaptureDecision() Decision {
	return Decision{Kind: DecisionNoCapture, Err: ErrNoCaptureToStore}
}

func errorDecision(err error) Decision {
	return Decision{Kind: DecisionError, Err: err}
}
