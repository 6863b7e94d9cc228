package engine

import (
	"fmt"

	"midi-mapper/mapping"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// OutputCommand is one wire message for one output device.
// Channel is the 0-based wire channel.
type OutputCommand struct {
	Device  string
	Channel int
	Status  mapping.MessageType
	Control int
	Level   int
}

// Message builds the MIDI message for the command
func (c OutputCommand) Message() (gomidi.Message, error) {
	if c.Channel < 0 || c.Channel > 15 {
		return nil, fmt.Errorf("channel %d out of range", c.Channel)
	}
	ch, ctl, lvl := uint8(c.Channel), clamp7(c.Control), clamp7(c.Level)
	switch c.Status {
	case mapping.NoteOn:
		return gomidi.NoteOn(ch, ctl, lvl), nil
	case mapping.NoteOff:
		return gomidi.NoteOff(ch, ctl), nil
	case mapping.ControlChange:
		return gomidi.ControlChange(ch, ctl, lvl), nil
	case mapping.ProgramChange:
		return gomidi.ProgramChange(ch, ctl), nil
	}
	return nil, fmt.Errorf("%s is not a wire message", c.Status)
}

func (c OutputCommand) String() string {
	return fmt.Sprintf("%s: %s ch%d #%d =%d", c.Device, c.Status, c.Channel+1, c.Control, c.Level)
}

func clamp7(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
