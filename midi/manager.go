package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeviceEvent is emitted when drum pads connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// ignoredPorts never carry drum input
var ignoredPorts = []string{"through", "midi thru"}

// DeviceManager handles hot-plug detection of drum pads
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	patterns    []string
	channel     int
	log         *zap.Logger
}

// NewDeviceManager watches input ports whose names contain one of patterns
// (case-insensitive). No patterns means every port except loopbacks.
func NewDeviceManager(patterns []string, channel int, log *zap.Logger) *DeviceManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		patterns:    patterns,
		channel:     channel,
		log:         log.Named("devices"),
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	ports, err := ListPorts(PortScanTimeout)
	if err != nil {
		// CoreMIDI is hung - skip this scan
		dm.log.Warn("port scan", zap.Error(err))
		return
	}

	seen := make(map[string]bool)
	for _, in := range ports.In {
		id := in.String()
		if !dm.wants(id) {
			continue
		}
		seen[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		pad, err := NewDrumPad(id, in, dm.channel)
		if err != nil {
			dm.log.Warn("open drum pad", zap.String("port", id), zap.Error(err))
			continue
		}
		dm.mu.Lock()
		dm.controllers[id] = pad
		dm.mu.Unlock()
		dm.log.Info("connected", zap.String("port", id))
		dm.events <- DeviceEvent{Type: DeviceConnected, Controller: pad, ID: id}
	}

	dm.mu.Lock()
	var gone []string
	for id := range dm.controllers {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		dm.controllers[id].Close()
		delete(dm.controllers, id)
		dm.log.Info("disconnected", zap.String("port", id))
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
	dm.mu.Unlock()
}

func (dm *DeviceManager) wants(name string) bool {
	return matchPort(name, dm.patterns)
}

func matchPort(name string, patterns []string) bool {
	name = strings.ToLower(name)
	for _, ignored := range ignoredPorts {
		if strings.Contains(name, ignored) {
			return false
		}
	}
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if p != "" && strings.Contains(name, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}
