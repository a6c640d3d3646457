package freewili

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// linkBaudRate is the rate every Free-Wili processor talks at.
const linkBaudRate = 115200

// Link is the command channel to one Free-Wili processor. Operations block
// until the firmware acknowledges; timeouts and retries, if any, belong to
// the caller. A Link is not safe for concurrent use.
type Link interface {
	// SendFile uploads the file at sourcePath to targetPath on the device and
	// returns the firmware's acknowledgment message.
	SendFile(sourcePath, targetPath string) (string, error)
	// GetFile downloads the file at sourcePath from the device.
	GetFile(sourcePath string) ([]byte, error)
	// RunScript starts a previously uploaded script by name.
	RunScript(name string) (string, error)
	// SetIO drives an IO pin high or low.
	SetIO(pin int, high bool) (string, error)
	// Close releases the underlying port.
	Close() error
}

// openLink dials the command channel on the given serial port. It's a
// variable so tests can substitute a fake link.
var openLink = func(portName string) (Link, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: linkBaudRate})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", portName)
	}
	return newSerialLink(port), nil
}

// serialLink speaks the firmware's line-oriented command protocol: one
// command per line, one "OK <detail>" or "ERR <reason>" reply per command,
// with raw payload bytes in between for file transfers.
type serialLink struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
}

func newSerialLink(port io.ReadWriteCloser) *serialLink {
	return &serialLink{port: port, reader: bufio.NewReader(port)}
}

func (l *serialLink) command(format string, args ...interface{}) (string, error) {
	if _, err := fmt.Fprintf(l.port, format+"\r\n", args...); err != nil {
		return "", err
	}
	return l.response()
}

func (l *serialLink) response() (string, error) {
	line, err := l.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	switch {
	case line == "OK" || strings.HasPrefix(line, "OK "):
		return strings.TrimPrefix(strings.TrimPrefix(line, "OK"), " "), nil
	case strings.HasPrefix(line, "ERR"):
		return "", errors.New(strings.TrimSpace(strings.TrimPrefix(line, "ERR")))
	}
	return "", errors.Errorf("unexpected reply %q", line)
}

// SendFile implements Link. The upload is framed as a header naming the
// target path, byte count and CRC-32 of the payload, followed by the raw
// bytes; the firmware acknowledges once the checksum verifies.
func (l *serialLink) SendFile(sourcePath, targetPath string) (string, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", err
	}
	if _, err := l.command("fwup %s %d %d", targetPath, len(data), crc32.ChecksumIEEE(data)); err != nil {
		return "", err
	}
	if _, err := l.port.Write(data); err != nil {
		return "", err
	}
	return l.response()
}

// GetFile implements Link. The firmware replies with the byte count, the raw
// bytes, then a trailing acknowledgment carrying the payload's CRC-32.
func (l *serialLink) GetFile(sourcePath string) ([]byte, error) {
	reply, err := l.command("fwget %s", sourcePath)
	if err != nil {
		return nil, err
	}
	size, err := strconv.ParseUint(reply, 10, 31)
	if err != nil {
		return nil, errors.Wrapf(err, "bad file size %q", reply)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(l.reader, data); err != nil {
		return nil, err
	}
	reply, err = l.response()
	if err != nil {
		return nil, err
	}
	sum, err := strconv.ParseUint(reply, 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "bad checksum %q", reply)
	}
	if uint32(sum) != crc32.ChecksumIEEE(data) {
		return nil, errors.Errorf("%s failed checksum", sourcePath)
	}
	return data, nil
}

// RunScript implements Link.
func (l *serialLink) RunScript(name string) (string, error) {
	return l.command("fwrun %s", name)
}

// SetIO implements Link.
func (l *serialLink) SetIO(pin int, high bool) (string, error) {
	level := 0
	if high {
		level = 1
	}
	return l.command("fwio %d %d", pin, level)
}

// Close implements Link.
func (l *serialLink) Close() error {
	return l.port.Close()
}
