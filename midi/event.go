package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// System real-time status bytes start here (clock, start, stop, ...)
const realtimeStatus = 0xF8

// IsHousekeeping reports whether msg is transport housekeeping (clock,
// start, stop, continue, active sense, reset) that never enters the mapper
func IsHousekeeping(msg gomidi.Message) bool {
	return len(msg) > 0 && msg[0] >= realtimeStatus
}

// DeviceEvent is emitted when ports appear or disappear
type DeviceEvent struct {
	Type   DeviceEventType
	ID     string
	Output bool // false: input port
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}
