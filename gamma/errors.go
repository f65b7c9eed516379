package gamma

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pgaskin/screenfilter/display"
)

// Some errors.
var (
	ErrNoDevices = errors.New("no devices selected")
	ErrClosed    = errors.New("gamma controller closed")
)

// DeviceError is a failure to read or write a single device's table.
type DeviceError struct {
	Device display.DeviceID
	Op     string // read, write
	Err    error
}

func (e *DeviceError) Error() string {
	return string(e.Device) + ": " + e.Op + " gamma ramp: " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// PartialFailure is returned when one or more devices of a multi-device
// operation failed. Changes to the devices in Succeeded are not rolled back.
type PartialFailure struct {
	Succeeded []display.DeviceID
	Failed    []*DeviceError
}

func (e *PartialFailure) Error() string {
	var b strings.Builder
	b.WriteString("failed to update ")
	if len(e.Failed) == 1 {
		b.WriteString("1 device")
	} else {
		b.WriteString(strconv.Itoa(len(e.Failed)) + " devices")
	}
	if len(e.Succeeded) != 0 {
		b.WriteString(" (" + strconv.Itoa(len(e.Succeeded)) + " succeeded)")
	}
	for i, d := range e.Failed {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(d.Error())
	}
	return b.String()
}

func (e *PartialFailure) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, d := range e.Failed {
		errs[i] = d
	}
	return errs
}

// FailedDevices returns the IDs of the failed devices, suitable for retrying
// only those.
func (e *PartialFailure) FailedDevices() []display.DeviceID {
	ids := make([]display.DeviceID, len(e.Failed))
	for i, d := range e.Failed {
		ids[i] = d.Device
	}
	return ids
}
