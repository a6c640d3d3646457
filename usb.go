package freewili

import (
	"github.com/google/gousb"
	"go.uber.org/multierr"
)

// USB vendor IDs Free-Wili processors enumerate under.
const (
	// VendorFTDI is the bridge's USB-to-serial adapter vendor.
	VendorFTDI uint16 = 0x0403
	// VendorRPi is the vendor of the RP2040-based main and display processors.
	VendorRPi uint16 = 0x2E8A
)

type gousbEnumerator struct {
	ctx *gousb.Context
}

// newGousbEnumerator creates a libusb-backed USB location enumerator.
func newGousbEnumerator() locationEnumerator {
	return &gousbEnumerator{ctx: gousb.NewContext()}
}

func (e *gousbEnumerator) Find(vendor uint16) ([]USBLocationInfo, error) {
	devs, err := e.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(vendor)
	})
	// OpenDevices returns the devices it did open even when some failed, so
	// keep what we have and report the rest.
	var infos []USBLocationInfo
	for _, dev := range devs {
		serial, serr := dev.SerialNumber()
		if serr != nil {
			// Keep the location; a missing serial string resolves to the
			// sentinel serial number downstream.
			err = multierr.Append(err, serr)
		}
		infos = append(infos, USBLocationInfo{
			Bus:     dev.Desc.Bus,
			Address: dev.Desc.Address,
			Vendor:  uint16(dev.Desc.Vendor),
			Product: uint16(dev.Desc.Product),
			Serial:  serial,
		})
		err = multierr.Append(err, dev.Close())
	}
	return infos, err
}

func (e *gousbEnumerator) Close() error {
	return e.ctx.Close()
}
