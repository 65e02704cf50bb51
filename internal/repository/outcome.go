package repository

import "fmt"

// Status classifies the result of an interactive operation.
type Status int

const (
	// Success means the durable effect happened.
	Success Status = iota
	// Declined means the user cancelled a dialog; nothing happened.
	Declined
	// Failed means the operation was attempted and did not happen.
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Declined:
		return "declined"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the result of create, rename and delete. Err is set only when
// Status is Failed.
type Outcome struct {
	Status Status
	Err    error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Status == Success }

func succeeded() Outcome { return Outcome{Status: Success} }

func declined() Outcome { return Outcome{Status: Declined} }

func failed(err error) Outcome { return Outcome{Status: Failed, Err: err} }
