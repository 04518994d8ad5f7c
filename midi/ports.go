package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

var (
	ErrPortNotFound = errors.New("midi: port not found")
	ErrPortsTimeout = errors.New("midi: timed out listing ports")
)

// PortScanTimeout bounds a port listing; CoreMIDI can hang
const PortScanTimeout = 3 * time.Second

// Ports is a snapshot of the available ports
type Ports struct {
	In  []drivers.In
	Out []drivers.Out
}

// InNames returns the input port names
func (p Ports) InNames() []string {
	names := make([]string, len(p.In))
	for i, in := range p.In {
		names[i] = in.String()
	}
	return names
}

// OutNames returns the output port names
func (p Ports) OutNames() []string {
	names := make([]string, len(p.Out))
	for i, out := range p.Out {
		names[i] = out.String()
	}
	return names
}

// ListPorts lists ports, giving up after timeout
func ListPorts(timeout time.Duration) (Ports, error) {
	ch := make(chan Ports, 1)
	go func() {
		ch <- Ports{In: gomidi.GetInPorts(), Out: gomidi.GetOutPorts()}
	}()

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(timeout):
		return Ports{}, ErrPortsTimeout
	}
}

// OpenDrumPad finds an input port by case-insensitive substring and listens on it
func OpenDrumPad(portName string, channel int) (*DrumPad, error) {
	ports, err := ListPorts(PortScanTimeout)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(portName)
	for _, in := range ports.In {
		if strings.Contains(strings.ToLower(in.String()), want) {
			return NewDrumPad(in.String(), in, channel)
		}
	}
	return nil, fmt.Errorf("%w: input %q", ErrPortNotFound, portName)
}

// Close releases the MIDI driver
func Close() {
	gomidi.CloseDriver()
}
