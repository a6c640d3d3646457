package freewili

import (
	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
)

type detailedPortEnumerator struct{}

// Ports returns every USB-backed serial port on the host along with the
// serial number its driver reports. Non-USB ports cannot belong to a
// Free-Wili and are skipped.
func (detailedPortEnumerator) Ports() ([]*SerialPortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "listing serial ports")
	}
	var ports []*SerialPortInfo
	for _, detail := range details {
		if !detail.IsUSB {
			continue
		}
		ports = append(ports, &SerialPortInfo{
			Port:   detail.Name,
			Serial: detail.SerialNumber,
		})
	}
	return ports, nil
}
