package freewili

import (
	"errors"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

type fakeLink struct {
	sends  [][2]string
	gets   []string
	runs   []string
	pins   []int
	levels []bool
	closed int
}

func (l *fakeLink) SendFile(sourcePath, targetPath string) (string, error) {
	l.sends = append(l.sends, [2]string{sourcePath, targetPath})
	return "Uploaded " + targetPath, nil
}

func (l *fakeLink) GetFile(sourcePath string) ([]byte, error) {
	l.gets = append(l.gets, sourcePath)
	return []byte("data"), nil
}

func (l *fakeLink) RunScript(name string) (string, error) {
	l.runs = append(l.runs, name)
	return "Running " + name, nil
}

func (l *fakeLink) SetIO(pin int, high bool) (string, error) {
	l.pins = append(l.pins, pin)
	l.levels = append(l.levels, high)
	return "OK", nil
}

func (l *fakeLink) Close() error {
	l.closed++
	return nil
}

// testDevice resolves a fully correlated single-board topology and wires the
// device to a fake link, recording which port every operation dialed.
func testDevice(t *testing.T) (*Device, *fakeLink, *[]string) {
	t.Helper()
	records, err := Resolve(
		busGroup(1, "M1", "D1", "F1"),
		[]*SerialPortInfo{
			{Port: "COM3", Serial: "F1X"},
			{Port: "COM4", Serial: "M1"},
			{Port: "COM5", Serial: "D1"},
		},
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, records, test.ShouldHaveLength, 1)

	device := newDevice(records[0])
	link := &fakeLink{}
	var dialed []string
	device.dial = func(portName string) (Link, error) {
		dialed = append(dialed, portName)
		return link, nil
	}
	return device, link, &dialed
}

func TestDeviceSendFileRouted(t *testing.T) {
	device, link, dialed := testDevice(t)

	msg, err := device.SendFile("some/dir/blink.wasm", "", RoleUnknown)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg, test.ShouldEqual, "Uploaded /scripts/blink.wasm")
	test.That(t, *dialed, test.ShouldResemble, []string{"COM4"})
	test.That(t, link.sends, test.ShouldResemble, [][2]string{{"some/dir/blink.wasm", "/scripts/blink.wasm"}})
	test.That(t, link.closed, test.ShouldEqual, 1)
}

func TestDeviceSendFileExplicit(t *testing.T) {
	device, link, dialed := testDevice(t)

	// Both the target name and the processor are explicit, so the unroutable
	// extension never reaches the route table.
	msg, err := device.SendFile("firmware.bin", "/images/firmware.bin", RoleDisplay)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg, test.ShouldEqual, "Uploaded /images/firmware.bin")
	test.That(t, *dialed, test.ShouldResemble, []string{"COM5"})
	test.That(t, link.sends, test.ShouldHaveLength, 1)
}

func TestDeviceSendFileUnknownExtension(t *testing.T) {
	device, _, dialed := testDevice(t)

	_, err := device.SendFile("firmware.xyz", "", RoleUnknown)
	test.That(t, err, test.ShouldNotBeNil)
	var extErr *UnknownExtensionError
	test.That(t, errors.As(err, &extErr), test.ShouldBeTrue)
	test.That(t, *dialed, test.ShouldBeEmpty)
}

func TestDeviceSerialUnavailable(t *testing.T) {
	records, err := Resolve(busGroup(1, "M1", "D1", "F1"), nil)
	test.That(t, err, test.ShouldBeNil)
	device := newDevice(records[0])

	_, err = device.SendFile("blink.wasm", "", RoleUnknown)
	test.That(t, err, test.ShouldNotBeNil)
	var unavailErr *SerialUnavailableError
	test.That(t, errors.As(err, &unavailErr), test.ShouldBeTrue)
	test.That(t, unavailErr.Role, test.ShouldEqual, RoleMain)
}

func TestDeviceGetFile(t *testing.T) {
	device, link, dialed := testDevice(t)

	data, err := device.GetFile("/images/photo.fwi", RoleUnknown)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldResemble, []byte("data"))
	test.That(t, (*dialed)[0], test.ShouldEqual, "COM5")

	// Unrouted extensions default to the main processor.
	_, err = device.GetFile("/logs/boot.txt", RoleUnknown)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, (*dialed)[1], test.ShouldEqual, "COM4")
	test.That(t, link.gets, test.ShouldResemble, []string{"/images/photo.fwi", "/logs/boot.txt"})
}

func TestDeviceRunScript(t *testing.T) {
	device, link, dialed := testDevice(t)

	_, err := device.RunScript("", RoleUnknown)
	test.That(t, err, test.ShouldBeError, ErrNoScriptName)
	test.That(t, *dialed, test.ShouldBeEmpty)

	msg, err := device.RunScript("blink.wasm", RoleUnknown)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, msg, test.ShouldEqual, "Running blink.wasm")
	test.That(t, *dialed, test.ShouldResemble, []string{"COM4"})
	test.That(t, link.runs, test.ShouldResemble, []string{"blink.wasm"})
}

func TestDeviceSetIO(t *testing.T) {
	device, link, dialed := testDevice(t)

	_, err := device.SetIO(25, true, RoleUnknown)
	test.That(t, err, test.ShouldBeNil)
	_, err = device.SetIO(7, false, RoleDisplay)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, *dialed, test.ShouldResemble, []string{"COM4", "COM5"})
	test.That(t, link.pins, test.ShouldResemble, []int{25, 7})
	test.That(t, link.levels, test.ShouldResemble, []bool{true, false})
}

func TestDeviceProcessorNotFound(t *testing.T) {
	device := newDevice(DeviceRecord{})

	_, err := device.Processor(RoleMain)
	test.That(t, err, test.ShouldNotBeNil)
	var notFoundErr *ProcessorNotFoundError
	test.That(t, errors.As(err, &notFoundErr), test.ShouldBeTrue)
	test.That(t, notFoundErr.Role, test.ShouldEqual, RoleMain)
}

func TestDeviceAccessors(t *testing.T) {
	device, _, _ := testDevice(t)

	bridge, err := device.Bridge()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bridge.USB.Serial, test.ShouldEqual, "F1")
	main, err := device.Main()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, main.USB.Serial, test.ShouldEqual, "M1")
	display, err := device.Display()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, display.USB.Serial, test.ShouldEqual, "D1")

	test.That(t, device.String(), test.ShouldEqual, "Free-Wili F1")
}

type fakeLocationEnumerator struct {
	byVendor map[uint16][]USBLocationInfo
	errs     map[uint16]error
	closed   bool
}

func (e *fakeLocationEnumerator) Find(vendor uint16) ([]USBLocationInfo, error) {
	return e.byVendor[vendor], e.errs[vendor]
}

func (e *fakeLocationEnumerator) Close() error {
	e.closed = true
	return nil
}

type fakePortEnumerator struct {
	ports []*SerialPortInfo
	err   error
}

func (e *fakePortEnumerator) Ports() ([]*SerialPortInfo, error) {
	return e.ports, e.err
}

func TestFinderFindAll(t *testing.T) {
	usb := &fakeLocationEnumerator{
		byVendor: map[uint16][]USBLocationInfo{
			VendorFTDI: {{Bus: 1, Address: 2, Vendor: VendorFTDI, Serial: "F1"}},
			VendorRPi: {
				{Bus: 1, Address: 0, Vendor: VendorRPi, Serial: "M1"},
				{Bus: 1, Address: 1, Vendor: VendorRPi, Serial: "D1"},
			},
		},
	}
	finder := &Finder{
		usb: usb,
		ports: &fakePortEnumerator{ports: []*SerialPortInfo{
			{Port: "COM3", Serial: "F1X"},
		}},
		logger: golog.NewTestLogger(t),
	}

	devices, err := finder.FindAll()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldHaveLength, 1)
	test.That(t, devices[0].String(), test.ShouldEqual, "Free-Wili F1")

	bridge, err := devices[0].Bridge()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bridge.Port, test.ShouldNotBeNil)
	test.That(t, bridge.Port.Port, test.ShouldEqual, "COM3")

	test.That(t, finder.Close(), test.ShouldBeNil)
	test.That(t, usb.closed, test.ShouldBeTrue)
}

func TestFinderFindAllPartialEnumeration(t *testing.T) {
	// One vendor scan failing does not lose the other's devices.
	finder := &Finder{
		usb: &fakeLocationEnumerator{
			byVendor: map[uint16][]USBLocationInfo{
				VendorFTDI: busGroup(1, "M1", "D1", "F1"),
			},
			errs: map[uint16]error{VendorRPi: errors.New("libusb: permission denied")},
		},
		ports:  &fakePortEnumerator{},
		logger: golog.NewTestLogger(t),
	}

	devices, err := finder.FindAll()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldHaveLength, 1)
}

func TestFinderFindAllFailure(t *testing.T) {
	boom := errors.New("libusb: not initialized")
	finder := &Finder{
		usb: &fakeLocationEnumerator{
			errs: map[uint16]error{VendorFTDI: boom, VendorRPi: boom},
		},
		ports:  &fakePortEnumerator{},
		logger: golog.NewTestLogger(t),
	}

	_, err := finder.FindAll()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not initialized")
}
