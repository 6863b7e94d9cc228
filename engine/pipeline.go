package engine

import (
	"context"

	"midi-mapper/debug"
	"midi-mapper/mapping"

	"github.com/retroenv/retrogolib/log"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// InputEvent is a raw message tagged with the port it arrived on
type InputEvent struct {
	Source  string
	Message gomidi.Message
}

// Pipeline runs events through classify -> resolve -> transition/encode -> dispatch.
// It is not safe for concurrent use: feed it from a single goroutine (Run).
type Pipeline struct {
	table      *mapping.Table
	bank       *BankState
	dispatcher *Dispatcher
	logger     *log.Logger
}

// NewPipeline wires the stages together
func NewPipeline(table *mapping.Table, bank *BankState, dispatcher *Dispatcher, logger *log.Logger) *Pipeline {
	return &Pipeline{
		table:      table,
		bank:       bank,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Bank returns the pipeline's bank state
func (p *Pipeline) Bank() *BankState {
	return p.bank
}

// Process translates one event and returns every command it produced,
// including ones the transport later dropped.
func (p *Pipeline) Process(in InputEvent) []OutputCommand {
	ev, err := Classify(in.Source, in.Message)
	if err != nil {
		debug.Log("classify", "%s: %v", in.Source, err)
		return nil
	}

	// all matches see the bank that was active when the event arrived
	bank := p.bank.Active()
	matches := Resolve(ev, p.table, bank)
	if len(matches) == 0 {
		debug.Log("resolve", "%s: %s no match in bank %d", in.Source, ev, bank)
		return nil
	}

	var produced []OutputCommand
	for _, rec := range matches {
		var cmds []OutputCommand
		if rec.IsBankChange() {
			cmds, err = Transition(ev, rec, p.table, p.bank)
			if err != nil {
				p.logger.Warn("Ignoring bank change",
					log.String("mapping", rec.Description),
					log.Err(err))
				continue
			}
			p.logger.Info("Bank changed",
				log.Int("from", bank),
				log.Int("to", p.bank.Active()))
		} else {
			cmds, err = Encode(ev, rec)
			if err != nil {
				p.logger.Warn("Ignoring mapping",
					log.String("mapping", rec.Description),
					log.Err(err))
				continue
			}
		}

		p.dispatcher.Dispatch(bank, ev, rec, cmds)
		produced = append(produced, cmds...)
	}
	return produced
}

// Run processes events until the feed is closed or ctx is done
func (p *Pipeline) Run(ctx context.Context, events <-chan InputEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-events:
			if !ok {
				return nil
			}
			p.Process(in)
		}
	}
}

// Prime pushes a synthetic note on through the pipeline, as if pressed on
// source. Used at startup so the controller's bank lamps match the bank.
func (p *Pipeline) Prime(source string, channel, note int) []OutputCommand {
	if channel < 1 || channel > 16 || note < 0 || note > 127 {
		p.logger.Warn("Invalid initial trigger",
			log.Int("channel", channel),
			log.Int("note", note))
		return nil
	}
	return p.Process(InputEvent{
		Source:  source,
		Message: gomidi.NoteOn(uint8(channel-1), uint8(note), 127),
	})
}
