package freewili

import (
	"errors"
	"fmt"
)

// ErrNoScriptName is returned when a script run is requested without a script
// name and no name can be derived from a prior file transfer.
var ErrNoScriptName = errors.New("no script or file name provided")

// UnknownExtensionError is returned when a file's extension has no entry in
// the route table and the caller supplied no explicit target or processor.
type UnknownExtensionError struct {
	Ext string
}

func (e *UnknownExtensionError) Error() string {
	return fmt.Sprintf("extension %q is not a known Free-Wili file type", e.Ext)
}

// TopologyError is returned when a USB bus group does not contain exactly one
// endpoint per processor, which signals malformed or partially enumerated
// hardware.
type TopologyError struct {
	Bus   int
	Count int
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("usb bus %d exposes %d endpoint(s), expected %d per Free-Wili", e.Bus, e.Count, busGroupSize)
}

// SerialUnavailableError is returned when an operation targets a processor
// whose serial port has not been enumerated by the host.
type SerialUnavailableError struct {
	Role ProcessorRole
}

func (e *SerialUnavailableError) Error() string {
	return fmt.Sprintf("serial port not available for %s processor", e.Role)
}

// ProcessorNotFoundError indicates a device record missing a processor role.
// Resolution guarantees one handle per role, so seeing this error means an
// internal defect rather than a user mistake.
type ProcessorNotFoundError struct {
	Role ProcessorRole
}

func (e *ProcessorNotFoundError) Error() string {
	return fmt.Sprintf("processor %s not found", e.Role)
}
