package engine

import (
	"fmt"
	"strconv"
	"strings"

	"midi-mapper/mapping"
)

// NRPN controller numbers used for extended parameters
const (
	ccNRPNMSB      = 99
	ccNRPNLSB      = 98
	ccDataEntryMSB = 6
	ccDataEntryLSB = 38
)

// lampOnVelocity is sent to relight the indicator, whatever the trigger's level
const lampOnVelocity = 64

// Resolve returns the records that fire for ev in the given bank, in table order
func Resolve(ev CanonicalEvent, table *mapping.Table, bank int) []mapping.Record {
	return table.Match(ev.Status, ev.Channel, ev.Control, bank)
}

// ParseBankTarget validates a bank change target: a positive integer
func ParseBankTarget(control string) (int, error) {
	bank, err := strconv.Atoi(strings.TrimSpace(control))
	if err != nil || bank < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBankTarget, control)
	}
	return bank, nil
}

// Transition applies a bank change record. On success the bank state holds
// the target and the returned commands switch off every indicator lamp
// before lighting the one that triggered the change.
// On error the bank state is left untouched and no commands are returned.
func Transition(ev CanonicalEvent, rec mapping.Record, table *mapping.Table, state *BankState) ([]OutputCommand, error) {
	bank, err := ParseBankTarget(rec.OutputControl)
	if err != nil {
		return nil, err
	}
	state.Set(bank)

	wireChannel := ev.Channel - 1
	var cmds []OutputCommand
	for _, ind := range table.Indicators() {
		cmds = append(cmds, OutputCommand{
			Device:  deviceFor(ind, ev),
			Channel: wireChannel,
			Status:  mapping.NoteOff,
			Control: ind.InputControl,
		})
	}

	cmds = append(cmds, OutputCommand{
		Device:  deviceFor(rec, ev),
		Channel: wireChannel,
		Status:  mapping.NoteOn,
		Control: ev.Control,
		Level:   lampOnVelocity,
	})
	return cmds, nil
}

// deviceFor picks the controller carrying a record's lamp
func deviceFor(rec mapping.Record, ev CanonicalEvent) string {
	if rec.InputDevice != "" {
		return rec.InputDevice
	}
	return ev.Source
}

// Encode builds the wire commands for a normal (non bank change) record.
// A compound "A:B" control becomes the four message NRPN sequence.
func Encode(ev CanonicalEvent, rec mapping.Record) ([]OutputCommand, error) {
	channel := rec.OutputChannel - 1

	if rec.IsCompound() {
		msb, lsb, err := parseCompound(rec.OutputControl)
		if err != nil {
			return nil, err
		}
		cc := func(control, level int) OutputCommand {
			return OutputCommand{
				Device:  rec.OutputDevice,
				Channel: channel,
				Status:  mapping.ControlChange,
				Control: control,
				Level:   level,
			}
		}
		return []OutputCommand{
			cc(ccNRPNMSB, msb),
			cc(ccNRPNLSB, lsb),
			cc(ccDataEntryMSB, ev.Level),
			cc(ccDataEntryLSB, 0),
		}, nil
	}

	if !rec.OutputType.IsWire() {
		return nil, fmt.Errorf("%w: output type %s", ErrInvalidOutputControl, rec.OutputType)
	}
	control, err := parse7(rec.OutputControl)
	if err != nil {
		return nil, err
	}
	return []OutputCommand{{
		Device:  rec.OutputDevice,
		Channel: channel,
		Status:  rec.OutputType,
		Control: control,
		Level:   ev.Level,
	}}, nil
}

func parseCompound(control string) (int, int, error) {
	parts := strings.Split(control, mapping.CompoundSeparator)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidOutputControl, control)
	}
	msb, err := parse7(parts[0])
	if err != nil {
		return 0, 0, err
	}
	lsb, err := parse7(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return msb, lsb, nil
}

func parse7(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 || v > 127 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutputControl, s)
	}
	return v, nil
}
