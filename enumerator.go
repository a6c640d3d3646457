package freewili

// locationEnumerator yields the USB location of every attached device
// matching a vendor filter.
type locationEnumerator interface {
	// Find returns the locations of the USB devices matching the vendor ID.
	Find(vendor uint16) ([]USBLocationInfo, error)
	// Close releases any resources held by the enumerator.
	Close() error
}

// portEnumerator yields the serial ports the host currently exposes.
type portEnumerator interface {
	// Ports returns the list of USB-backed serial ports.
	Ports() ([]*SerialPortInfo, error)
}
