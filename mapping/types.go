package mapping

import (
	"fmt"
	"strings"
)

// MessageType identifies the kind of message a mapping matches or produces
type MessageType int

const (
	TypeUnknown MessageType = iota
	NoteOn
	NoteOff
	ControlChange
	ProgramChange
	BankChange // output only: switches the active bank
)

// BankDevice is the output device name that marks a record as a bank indicator lamp
const BankDevice = "Bank"

// CompoundSeparator splits an extended parameter address "A:B"
const CompoundSeparator = ":"

var typeNames = map[MessageType]string{
	NoteOn:        "note_on",
	NoteOff:       "note_off",
	ControlChange: "control_change",
	ProgramChange: "program_change",
	BankChange:    "bank_change",
}

// aliases accepted in mapping files (lower-cased before lookup)
var typeAliases = map[string]MessageType{
	"note_on":        NoteOn,
	"on":             NoteOn,
	"note_off":       NoteOff,
	"off":            NoteOff,
	"control_change": ControlChange,
	"cc":             ControlChange,
	"program_change": ProgramChange,
	"pg":             ProgramChange,
	"bank_change":    BankChange,
	"bank":           BankChange,
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// IsWire reports whether the type is a real MIDI message (not BankChange)
func (t MessageType) IsWire() bool {
	switch t {
	case NoteOn, NoteOff, ControlChange, ProgramChange:
		return true
	}
	return false
}

// ParseMessageType converts a mapping file spelling into a MessageType
func ParseMessageType(s string) (MessageType, error) {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return TypeUnknown, fmt.Errorf("unknown message type %q", s)
}

// MarshalYAML writes the canonical spelling
func (t MessageType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML accepts any alias
func (t *MessageType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Record binds one input (bank, type, channel, control) to one output.
// Channels are 1-16 as written in the mapping file.
type Record struct {
	Bank              int         `yaml:"bank"` // 0 = every bank
	InputType         MessageType `yaml:"type"`
	InputChannel      int         `yaml:"channel"`
	InputControl      int         `yaml:"control"`
	InputDevice       string      `yaml:"input-device"`
	Description       string      `yaml:"description"`
	OutputDevice      string      `yaml:"output-device"`
	OutputType        MessageType `yaml:"o-type"`
	OutputChannel     int         `yaml:"o-channel"`
	OutputControl     string      `yaml:"o-control"`
	OutputDescription string      `yaml:"o-description"`
}

// IsBankChange reports whether firing this record switches banks
func (r Record) IsBankChange() bool {
	return r.OutputType == BankChange
}

// IsIndicator reports whether this record drives a bank indicator lamp
func (r Record) IsIndicator() bool {
	return r.OutputDevice == BankDevice
}

// IsCompound reports whether the output control is an extended "A:B" address
func (r Record) IsCompound() bool {
	return strings.Contains(r.OutputControl, CompoundSeparator)
}

func (r Record) String() string {
	return fmt.Sprintf("[%d] %s ch%d #%d -> %s %s ch%d %s",
		r.Bank, r.InputType, r.InputChannel, r.InputControl,
		r.OutputDevice, r.OutputType, r.OutputChannel, r.OutputControl)
}
