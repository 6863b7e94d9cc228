// Package engine translates incoming MIDI events through the mapping table:
// classify, resolve against the active bank, switch banks or encode the
// output, and dispatch the resulting commands.
package engine

import (
	"errors"
	"fmt"

	"midi-mapper/mapping"

	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	ErrUnrecognizedEventType = errors.New("unrecognized event type")
	ErrInvalidBankTarget     = errors.New("invalid bank target")
	ErrInvalidOutputControl  = errors.New("invalid output control")
	ErrUnknownOutputDevice   = errors.New("unknown output device")
)

// CanonicalEvent is a device independent view of one input message.
// Channel is 1-16, matching the mapping table.
type CanonicalEvent struct {
	Source  string // input port the event arrived on
	Channel int
	Status  mapping.MessageType
	Control int // note, controller or program number
	Level   int // velocity or value, 0 for program changes
}

func (e CanonicalEvent) String() string {
	return fmt.Sprintf("%s ch%d #%d =%d", e.Status, e.Channel, e.Control, e.Level)
}

// Classify converts a raw message into a CanonicalEvent.
// Anything other than note on/off, control change and program change
// returns ErrUnrecognizedEventType.
func Classify(source string, msg gomidi.Message) (CanonicalEvent, error) {
	var channel, a, b uint8

	ev := CanonicalEvent{Source: source}
	switch {
	case msg.GetNoteOn(&channel, &a, &b):
		ev.Status = mapping.NoteOn
	case msg.GetNoteOff(&channel, &a, &b):
		ev.Status = mapping.NoteOff
	case msg.GetControlChange(&channel, &a, &b):
		ev.Status = mapping.ControlChange
	case msg.GetProgramChange(&channel, &a):
		ev.Status = mapping.ProgramChange
		b = 0
	default:
		return CanonicalEvent{}, fmt.Errorf("%w: %s", ErrUnrecognizedEventType, msg.Type())
	}

	ev.Channel = int(channel) + 1
	ev.Control = int(a)
	ev.Level = int(b)
	return ev, nil
}
