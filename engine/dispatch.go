package engine

import (
	"errors"
	"fmt"
	"io"

	"midi-mapper/debug"
	"midi-mapper/mapping"

	"github.com/mattn/go-runewidth"
	"github.com/retroenv/retrogolib/log"
)

// descriptionWidth is the column the output description is padded to
const descriptionWidth = 25

// Sender delivers one command to its output device. It returns an error
// wrapping ErrUnknownOutputDevice when no port carries that name.
type Sender interface {
	Send(cmd OutputCommand) error
}

// Activity describes one dispatched mapping, for monitors
type Activity struct {
	Bank     int
	Event    CanonicalEvent
	Record   mapping.Record
	Commands []OutputCommand
	Sent     int
	Line     string // empty for bank changes
}

// Dispatcher sends commands and writes one console line per translated mapping
type Dispatcher struct {
	sender Sender
	out    io.Writer
	logger *log.Logger

	// OnActivity, if set, is called after every dispatch
	OnActivity func(Activity)
}

// NewDispatcher creates a dispatcher writing translation lines to out.
// A nil out suppresses the lines.
func NewDispatcher(sender Sender, out io.Writer, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		out:    out,
		logger: logger,
	}
}

// Dispatch sends the commands produced by rec and returns how many were sent.
// Commands for unknown devices are dropped; the rest still go out.
func (d *Dispatcher) Dispatch(bank int, ev CanonicalEvent, rec mapping.Record, cmds []OutputCommand) int {
	sent := 0
	for _, cmd := range cmds {
		if err := d.sender.Send(cmd); err != nil {
			if errors.Is(err, ErrUnknownOutputDevice) {
				d.logger.Warn("Dropping command for unknown output device",
					log.String("device", cmd.Device),
					log.String("mapping", rec.Description))
			} else {
				d.logger.Warn("Sending command failed",
					log.String("command", cmd.String()),
					log.Err(err))
			}
			continue
		}
		debug.Log("send", "%s", cmd)
		sent++
	}

	activity := Activity{
		Bank:     bank,
		Event:    ev,
		Record:   rec,
		Commands: cmds,
		Sent:     sent,
	}
	if !rec.IsBankChange() {
		activity.Line = LogLine(bank, rec, ev.Level)
		if d.out != nil {
			fmt.Fprintln(d.out, activity.Line)
		}
	}
	if d.OnActivity != nil {
		d.OnActivity(activity)
	}
	return sent
}

// LogLine formats the console line for a translated mapping
func LogLine(bank int, rec mapping.Record, level int) string {
	return fmt.Sprintf("[%d] %s__%s => %s__%s %d",
		bank,
		rec.InputDevice,
		rec.Description,
		rec.OutputDevice,
		runewidth.FillRight(rec.OutputDescription, descriptionWidth),
		level,
	)
}
