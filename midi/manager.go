package midi

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"midi-mapper/debug"
	"midi-mapper/engine"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// feedSize bounds the serialized input queue
const feedSize = 64

// Options configures a DeviceManager
type Options struct {
	PollRate time.Duration
	// Port names containing any of these substrings are never opened
	Ignore []string
	// PortFor maps a mapping device name to a port name (nil: names are used as is)
	PortFor func(device string) string
	// If set, every raw input message is echoed here
	Echo io.Writer
}

type inPort struct {
	port drivers.In
	stop func()
}

type outPort struct {
	port drivers.Out // nil for ports added with AddOutput
	send func(gomidi.Message) error
}

// DeviceManager opens every MIDI port, funnels all input into one ordered
// feed and sends output commands to ports by name. Ports are rescanned
// periodically so devices can be plugged in while running.
type DeviceManager struct {
	inputs  map[string]*inPort
	outputs map[string]*outPort
	mu      sync.RWMutex

	feed     chan engine.InputEvent
	events   chan DeviceEvent
	pollRate time.Duration
	ignore   []string
	portFor  func(string) string
	echo     io.Writer
	done     chan struct{} // closed when Run has closed all ports
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(opts Options) *DeviceManager {
	if opts.PollRate <= 0 {
		opts.PollRate = 2 * time.Second
	}
	return &DeviceManager{
		inputs:   make(map[string]*inPort),
		outputs:  make(map[string]*outPort),
		feed:     make(chan engine.InputEvent, feedSize),
		events:   make(chan DeviceEvent, 16),
		pollRate: opts.PollRate,
		ignore:   opts.Ignore,
		portFor:  opts.PortFor,
		echo:     opts.Echo,
		done:     make(chan struct{}),
	}
}

// Feed returns the serialized input events of all ports
func (dm *DeviceManager) Feed() <-chan engine.InputEvent {
	return dm.feed
}

// Events returns a channel of port connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Run rescans ports until ctx is done, then closes every port
// (blocking - run in goroutine). Call it at most once.
func (dm *DeviceManager) Run(ctx context.Context) {
	defer close(dm.done)
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dm.Close()
			return
		case <-ticker.C:
			dm.Scan()
		}
	}
}

// Wait blocks until Run has returned. The MIDI driver must not be closed
// before that.
func (dm *DeviceManager) Wait() {
	<-dm.done
}

// Scan opens new ports and closes vanished ones
func (dm *DeviceManager) Scan() {
	// Get current MIDI ports with timeout (CoreMIDI can hang)
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	var result portsResult
	select {
	case result = <-ch:
	case <-time.After(3 * time.Second):
		debug.Log("scan", "port enumeration timed out")
		return
	}

	seenIn := make(map[string]bool)
	for _, p := range result.inPorts {
		name := p.String()
		if dm.ignored(name) {
			continue
		}
		seenIn[name] = true
		if dm.hasInput(name) {
			continue
		}
		if err := dm.openInput(p); err != nil {
			debug.Log("scan", "open input %s: %v", name, err)
			continue
		}
		dm.notify(DeviceEvent{Type: DeviceConnected, ID: name})
	}

	seenOut := make(map[string]bool)
	for _, p := range result.outPorts {
		name := p.String()
		if dm.ignored(name) {
			continue
		}
		seenOut[name] = true
		if dm.hasOutput(name) {
			continue
		}
		if err := dm.openOutput(p); err != nil {
			debug.Log("scan", "open output %s: %v", name, err)
			continue
		}
		dm.notify(DeviceEvent{Type: DeviceConnected, ID: name, Output: true})
	}

	dm.removeMissing(seenIn, seenOut)
}

func (dm *DeviceManager) openInput(p drivers.In) error {
	name := p.String()
	stop, err := gomidi.ListenTo(p, func(msg gomidi.Message, timestampms int32) {
		dm.Deliver(name, msg)
	})
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	dm.mu.Lock()
	dm.inputs[name] = &inPort{port: p, stop: stop}
	dm.mu.Unlock()
	debug.Log("scan", "input %s opened", name)
	return nil
}

func (dm *DeviceManager) openOutput(p drivers.Out) error {
	send, err := gomidi.SendTo(p)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	dm.mu.Lock()
	dm.outputs[p.String()] = &outPort{port: p, send: send}
	dm.mu.Unlock()
	debug.Log("scan", "output %s opened", p.String())
	return nil
}

// AddOutput registers a send function under a port name
func (dm *DeviceManager) AddOutput(name string, send func(gomidi.Message) error) {
	dm.mu.Lock()
	dm.outputs[name] = &outPort{send: send}
	dm.mu.Unlock()
}

func (dm *DeviceManager) removeMissing(seenIn, seenOut map[string]bool) {
	var gone []DeviceEvent

	dm.mu.Lock()
	for name, in := range dm.inputs {
		if !seenIn[name] {
			in.stop()
			delete(dm.inputs, name)
			gone = append(gone, DeviceEvent{Type: DeviceDisconnected, ID: name})
		}
	}
	for name, out := range dm.outputs {
		if out.port != nil && !seenOut[name] {
			out.port.Close()
			delete(dm.outputs, name)
			gone = append(gone, DeviceEvent{Type: DeviceDisconnected, ID: name, Output: true})
		}
	}
	dm.mu.Unlock()

	for _, ev := range gone {
		debug.Log("scan", "%s %s", ev.ID, ev.Type)
		dm.notify(ev)
	}
}

// Deliver queues a raw message from the named port. Housekeeping messages
// are dropped; when the queue is full the message is dropped too.
func (dm *DeviceManager) Deliver(source string, msg gomidi.Message) {
	if IsHousekeeping(msg) {
		return
	}
	if dm.echo != nil {
		fmt.Fprintf(dm.echo, "\t\t\t\t\t\t\t\t -----> %s: %s\n", source, msg)
	}
	select {
	case dm.feed <- engine.InputEvent{Source: source, Message: msg}:
	default:
		debug.LogEvery(10, "feed", "queue full, dropping input from %s", source)
	}
}

// Send implements engine.Sender
func (dm *DeviceManager) Send(cmd engine.OutputCommand) error {
	out := dm.lookupOutput(cmd.Device)
	if out == nil {
		return fmt.Errorf("%w: %s", engine.ErrUnknownOutputDevice, cmd.Device)
	}
	msg, err := cmd.Message()
	if err != nil {
		return err
	}
	return out.send(msg)
}

// lookupOutput finds a port by alias, exact name, then case-insensitive prefix
func (dm *DeviceManager) lookupOutput(device string) *outPort {
	if device == "" {
		return nil
	}
	name := device
	if dm.portFor != nil {
		name = dm.portFor(device)
	}

	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if out, ok := dm.outputs[name]; ok {
		return out
	}

	lower := strings.ToLower(name)
	var candidates []string
	for portName := range dm.outputs {
		if strings.HasPrefix(strings.ToLower(portName), lower) {
			candidates = append(candidates, portName)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Strings(candidates)
	return dm.outputs[candidates[0]]
}

// Inputs returns the names of the open input ports, sorted
func (dm *DeviceManager) Inputs() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	names := make([]string, 0, len(dm.inputs))
	for name := range dm.inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Outputs returns the names of the open output ports, sorted
func (dm *DeviceManager) Outputs() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	names := make([]string, 0, len(dm.outputs))
	for name := range dm.outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops all listeners and closes all ports
func (dm *DeviceManager) Close() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, in := range dm.inputs {
		in.stop()
	}
	for _, out := range dm.outputs {
		if out.port != nil {
			out.port.Close()
		}
	}
	dm.inputs = make(map[string]*inPort)
	dm.outputs = make(map[string]*outPort)
}

func (dm *DeviceManager) hasInput(name string) bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	_, ok := dm.inputs[name]
	return ok
}

func (dm *DeviceManager) hasOutput(name string) bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	_, ok := dm.outputs[name]
	return ok
}

func (dm *DeviceManager) ignored(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range dm.ignore {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// notify never blocks the scanner when nobody is listening
func (dm *DeviceManager) notify(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
	}
}
