package freewili

import (
	"sort"
	"strings"
)

// busGroupSize is the number of USB endpoints one Free-Wili presents behind
// its internal hub.
const busGroupSize = 3

// Hub positions of the processors after sorting a bus group by ascending
// address.
const (
	mainHubIndex    = 0
	displayHubIndex = 1
	bridgeHubIndex  = 2
)

// Resolve groups raw USB locations into physical Free-Wili devices and
// correlates each processor with its serial port.
//
// Locations sharing a bus number form one device. A well-formed group holds
// exactly three endpoints; sorted by ascending address they are the main,
// display and bridge processors, in that order. Devices are emitted in
// ascending bus order, so the result is deterministic regardless of input
// order. A group with any other endpoint count fails with a TopologyError.
//
// Correlation scans ports in input order and keeps the first match per role.
// The bridge matches any port whose serial starts with the bridge's USB
// serial, since some hosts append decoration characters to the serial they
// report for FTDI ports; main and display require an exact match. As a side
// effect, ports matched to the main or display processor get their
// DeviceSerial field set to the bridge's serial.
func Resolve(locations []USBLocationInfo, ports []*SerialPortInfo) ([]DeviceRecord, error) {
	groups := make(map[int][]USBLocationInfo)
	var buses []int
	for _, loc := range locations {
		if _, ok := groups[loc.Bus]; !ok {
			buses = append(buses, loc.Bus)
		}
		groups[loc.Bus] = append(groups[loc.Bus], loc)
	}
	sort.Ints(buses)

	records := make([]DeviceRecord, 0, len(buses))
	for _, bus := range buses {
		group := groups[bus]
		if len(group) != busGroupSize {
			return nil, &TopologyError{Bus: bus, Count: len(group)}
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].Address < group[j].Address
		})
		bridgeUSB := group[bridgeHubIndex]
		mainUSB := group[mainHubIndex]
		displayUSB := group[displayHubIndex]

		var bridgePort, mainPort, displayPort *SerialPortInfo
		for _, port := range ports {
			if bridgePort == nil && strings.HasPrefix(port.Serial, bridgeUSB.Serial) {
				bridgePort = port
			}
			if mainPort == nil && port.Serial == mainUSB.Serial {
				port.DeviceSerial = bridgeUSB.Serial
				mainPort = port
			}
			if displayPort == nil && port.Serial == displayUSB.Serial {
				port.DeviceSerial = bridgeUSB.Serial
				displayPort = port
			}
		}

		serial := bridgeUSB.Serial
		if serial == "" {
			serial = "None"
		}
		records = append(records, DeviceRecord{
			SerialNumber: serial,
			Processors: [busGroupSize]ProcessorHandle{
				{Role: RoleBridge, USB: bridgeUSB, Port: bridgePort},
				{Role: RoleMain, USB: mainUSB, Port: mainPort},
				{Role: RoleDisplay, USB: displayUSB, Port: displayPort},
			},
		})
	}
	return records, nil
}
