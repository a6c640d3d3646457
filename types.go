package freewili

import "fmt"

// ProcessorRole identifies one of the three processors a Free-Wili exposes
// behind its internal USB hub.
type ProcessorRole int

const (
	// RoleUnknown is the zero value, used by callers to leave the target
	// processor unspecified so it can be derived from context.
	RoleUnknown ProcessorRole = iota
	// RoleBridge is the FTDI USB-to-serial adapter.
	RoleBridge
	// RoleMain is the primary compute processor, target for script uploads.
	RoleMain
	// RoleDisplay is the processor driving the display, target for image and
	// radio-config uploads.
	RoleDisplay
)

// String implements fmt.Stringer.
func (r ProcessorRole) String() string {
	switch r {
	case RoleBridge:
		return "Bridge"
	case RoleMain:
		return "Main"
	case RoleDisplay:
		return "Display"
	default:
		return "Unknown"
	}
}

// USBLocationInfo describes where on the host's USB topology a single
// Free-Wili endpoint was enumerated.
type USBLocationInfo struct {
	Bus     int    // bus number the device is attached to
	Address int    // address assigned on that bus
	Vendor  uint16 // USB vendor identifier
	Product uint16 // USB product identifier
	Serial  string // serial number string reported by the device
}

// String implements fmt.Stringer.
func (u USBLocationInfo) String() string {
	return fmt.Sprintf("USB %04X:%04X bus %d addr %d serial %q", u.Vendor, u.Product, u.Bus, u.Address, u.Serial)
}

// SerialPortInfo describes a serial port the host exposes for one of the
// Free-Wili's processors.
type SerialPortInfo struct {
	Port   string // OS port identifier, e.g. COM3 or /dev/ttyACM0
	Serial string // USB serial number the port driver reports

	// DeviceSerial is set during topology resolution to the owning device's
	// bridge serial so listings can show which Free-Wili a port belongs to.
	// Display only; it takes no part in correlation.
	DeviceSerial string
}

// String implements fmt.Stringer.
func (s *SerialPortInfo) String() string {
	if s.DeviceSerial != "" {
		return fmt.Sprintf("%s - Free-Wili %s", s.Port, s.DeviceSerial)
	}
	return s.Port
}

// ProcessorHandle pairs one processor's USB location with its correlated
// serial port. Port is nil when the hardware is visible on USB but no serial
// interface has been enumerated for it yet; that is a valid state, not an
// error.
type ProcessorHandle struct {
	Role ProcessorRole
	USB  USBLocationInfo
	Port *SerialPortInfo
}

// String implements fmt.Stringer.
func (p ProcessorHandle) String() string {
	if p.Port != nil {
		return p.Port.String()
	}
	return fmt.Sprintf("%s: %s", p.Role, p.USB)
}

// DeviceRecord is the resolved, immutable representation of one physical
// Free-Wili: its bridge serial number and exactly one handle per processor
// role. Records are safe to share between readers; rediscovery produces a
// fresh set rather than updating old ones.
type DeviceRecord struct {
	SerialNumber string
	Processors   [busGroupSize]ProcessorHandle
}
