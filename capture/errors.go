package capture

import (
	"fmt"

	"github.com/hb9tf/sweeprx/sdr"
)

// Fault classifies the outcome of one transfer call.
type Fault int

const (
	FaultNone Fault = iota
	FaultTimeout
	FaultOverflow
	FaultOther
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultTimeout:
		return "timeout"
	case FaultOverflow:
		return "overflow"
	case FaultOther:
		return "other"
	}
	return fmt.Sprintf("fault(%d)", int(f))
}

// Classify maps a device error code to a Fault.
func Classify(code sdr.ErrorCode) Fault {
	switch code {
	case sdr.ErrorCodeNone:
		return FaultNone
	case sdr.ErrorCodeTimeout:
		return FaultTimeout
	case sdr.ErrorCodeOverflow:
		return FaultOverflow
	}
	return FaultOther
}

// StreamFault is an unexpected device fault. It is fatal to the process.
type StreamFault struct {
	Code sdr.ErrorCode
	Err  error
}

func (e *StreamFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected error code 0x%x: %s", uint32(e.Code), e.Err)
	}
	return fmt.Sprintf("unexpected error code 0x%x", uint32(e.Code))
}

func (e *StreamFault) Unwrap() error {
	return e.Err
}

// ClockLockError reports a lock sensor that did not lock.
type ClockLockError struct {
	Sensor string
}

func (e *ClockLockError) Error() string {
	return fmt.Sprintf("sensor %s is not locked", e.Sensor)
}
