// Package freewili discovers Free-Wili devices attached to the host and
// drives their processors over serial: uploading and fetching files, running
// scripts and toggling IO pins.
//
// A Free-Wili shows up on the host as three USB endpoints behind one hub: an
// FTDI bridge, a main processor and a display processor. Discovery groups the
// raw USB locations into devices, correlates each processor with its serial
// port, and hands back one Device per physical board.
package freewili

import (
	"fmt"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Device is one resolved Free-Wili. It is a stateless facade over an
// immutable DeviceRecord; every operation dials the target processor's serial
// port, performs the exchange and releases the port again.
type Device struct {
	Record DeviceRecord

	dial func(portName string) (Link, error)
}

// Finder discovers Free-Wili devices attached to the host.
type Finder struct {
	usb    locationEnumerator
	ports  portEnumerator
	logger golog.Logger
}

// NewFinder creates a Finder backed by the host's USB and serial port
// enumeration. A nil logger disables logging.
func NewFinder(logger golog.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Finder{
		usb:    newGousbEnumerator(),
		ports:  detailedPortEnumerator{},
		logger: logger,
	}
}

// Close releases the Finder's USB context.
func (f *Finder) Close() error {
	return f.usb.Close()
}

// FindAll takes a fresh snapshot of the attached Free-Wili devices, in
// ascending USB bus order. Results are never cached; call again to refresh.
func (f *Finder) FindAll() ([]*Device, error) {
	var locations []USBLocationInfo
	var errs error
	for _, vendor := range []uint16{VendorFTDI, VendorRPi} {
		infos, err := f.usb.Find(vendor)
		if err != nil {
			f.logger.Warnw("usb enumeration incomplete", "vendor", fmt.Sprintf("%04x", vendor), "error", err)
			errs = multierr.Append(errs, err)
		}
		locations = append(locations, infos...)
	}
	if len(locations) == 0 && errs != nil {
		return nil, errs
	}

	ports, err := f.ports.Ports()
	if err != nil {
		return nil, errors.Wrap(err, "enumerating serial ports")
	}

	records, err := Resolve(locations, ports)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	devices := make([]*Device, 0, len(records))
	for _, record := range records {
		if _, ok := seen[record.SerialNumber]; ok {
			// Two boards reporting the same bridge serial across different
			// host controllers cannot be told apart except by index.
			f.logger.Warnw("duplicate bridge serial", "serial", record.SerialNumber)
		}
		seen[record.SerialNumber] = struct{}{}
		devices = append(devices, newDevice(record))
	}
	return devices, nil
}

// FindAll is a convenience for one-shot discovery with a throwaway Finder.
func FindAll(logger golog.Logger) ([]*Device, error) {
	finder := NewFinder(logger)
	defer func() {
		_ = finder.Close()
	}()
	return finder.FindAll()
}

func newDevice(record DeviceRecord) *Device {
	return &Device{Record: record, dial: openLink}
}

// String implements fmt.Stringer.
func (d *Device) String() string {
	return fmt.Sprintf("Free-Wili %s", d.Record.SerialNumber)
}

// Processor returns the handle for the given role.
func (d *Device) Processor(role ProcessorRole) (ProcessorHandle, error) {
	for _, proc := range d.Record.Processors {
		if proc.Role == role {
			return proc, nil
		}
	}
	return ProcessorHandle{}, &ProcessorNotFoundError{Role: role}
}

// Bridge returns the FTDI bridge handle.
func (d *Device) Bridge() (ProcessorHandle, error) {
	return d.Processor(RoleBridge)
}

// Main returns the main processor handle.
func (d *Device) Main() (ProcessorHandle, error) {
	return d.Processor(RoleMain)
}

// Display returns the display processor handle.
func (d *Device) Display() (ProcessorHandle, error) {
	return d.Processor(RoleDisplay)
}

// link dials the serial port of the given role's processor.
func (d *Device) link(role ProcessorRole) (Link, error) {
	proc, err := d.Processor(role)
	if err != nil {
		return nil, err
	}
	if proc.Port == nil {
		return nil, &SerialUnavailableError{Role: role}
	}
	return d.dial(proc.Port.Port)
}

// SendFile uploads the file at sourcePath to the device. If targetName is
// empty it is derived from the source's extension via the route table, as is
// the owning processor when role is RoleUnknown; when both are given the
// route table is never consulted. Returns the firmware's acknowledgment
// message.
func (d *Device) SendFile(sourcePath, targetName string, role ProcessorRole) (string, error) {
	if targetName == "" || role == RoleUnknown {
		route, err := RouteFile(sourcePath)
		if err != nil {
			return "", err
		}
		if targetName == "" {
			targetName = route.TargetPath(sourcePath)
		}
		if role == RoleUnknown {
			role = route.Role
		}
	}
	link, err := d.link(role)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = link.Close()
	}()
	return link.SendFile(sourcePath, targetName)
}

// GetFile downloads the file at sourcePath from the device. When role is
// RoleUnknown the owning processor is derived from the path's extension,
// falling back to the main processor for unrouted extensions.
func (d *Device) GetFile(sourcePath string, role ProcessorRole) ([]byte, error) {
	if role == RoleUnknown {
		if route, err := RouteFile(sourcePath); err == nil {
			role = route.Role
		} else {
			role = RoleMain
		}
	}
	link, err := d.link(role)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = link.Close()
	}()
	return link.GetFile(sourcePath)
}

// RunScript starts a previously uploaded script. RoleUnknown targets the main
// processor. An empty name fails with ErrNoScriptName; deriving a name from a
// prior transfer is the caller's job.
func (d *Device) RunScript(name string, role ProcessorRole) (string, error) {
	if name == "" {
		return "", ErrNoScriptName
	}
	if role == RoleUnknown {
		role = RoleMain
	}
	link, err := d.link(role)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = link.Close()
	}()
	return link.RunScript(name)
}

// SetIO drives an IO pin high or low. RoleUnknown targets the main processor.
func (d *Device) SetIO(pin int, high bool, role ProcessorRole) (string, error) {
	if role == RoleUnknown {
		role = RoleMain
	}
	link, err := d.link(role)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = link.Close()
	}()
	return link.SetIO(pin, high)
}
