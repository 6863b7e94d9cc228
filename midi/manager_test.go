package midi

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"midi-mapper/config"
	"midi-mapper/engine"
	"midi-mapper/mapping"

	"github.com/retroenv/retrogolib/assert"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func recorder(into *[]gomidi.Message) func(gomidi.Message) error {
	return func(msg gomidi.Message) error {
		*into = append(*into, msg)
		return nil
	}
}

func TestSendLooksUpPorts(t *testing.T) {
	cfg := &config.Config{Aliases: map[string]string{"Pads": "Akai MPD 0"}}
	dm := NewDeviceManager(Options{PortFor: cfg.PortFor})

	var synth, pads []gomidi.Message
	dm.AddOutput("SynthA MIDI 1", recorder(&synth))
	dm.AddOutput("Akai MPD 0", recorder(&pads))

	cmd := engine.OutputCommand{Device: "synthA", Channel: 1, Status: mapping.ControlChange, Control: 20, Level: 64}
	assert.NoError(t, dm.Send(cmd))
	assert.Equal(t, 1, len(synth))
	assert.True(t, bytes.Equal(gomidi.ControlChange(1, 20, 64), synth[0]))

	cmd = engine.OutputCommand{Device: "Pads", Channel: 0, Status: mapping.NoteOff, Control: 5}
	assert.NoError(t, dm.Send(cmd))
	assert.Equal(t, 1, len(pads))
}

func TestSendUnknownDevice(t *testing.T) {
	dm := NewDeviceManager(Options{})
	err := dm.Send(engine.OutputCommand{Device: "Nowhere", Status: mapping.NoteOn})
	assert.True(t, errors.Is(err, engine.ErrUnknownOutputDevice))

	err = dm.Send(engine.OutputCommand{Device: "", Status: mapping.NoteOn})
	assert.True(t, errors.Is(err, engine.ErrUnknownOutputDevice))
}

func TestDeliverFiltersHousekeeping(t *testing.T) {
	var echo bytes.Buffer
	dm := NewDeviceManager(Options{Echo: &echo})

	dm.Deliver("Pads", gomidi.Message{0xF8}) // clock
	dm.Deliver("Pads", gomidi.Message{0xFA}) // start
	dm.Deliver("Pads", gomidi.Message{0xFC}) // stop
	dm.Deliver("Pads", gomidi.NoteOn(0, 36, 100))

	assert.Equal(t, 1, len(dm.Feed()))
	in := <-dm.Feed()
	assert.Equal(t, "Pads", in.Source)
	assert.True(t, bytes.Equal(gomidi.NoteOn(0, 36, 100), in.Message))
	assert.Contains(t, echo.String(), "-----> Pads")
}

func TestDeliverDropsWhenFull(t *testing.T) {
	dm := NewDeviceManager(Options{})
	for i := 0; i < feedSize+10; i++ {
		dm.Deliver("Pads", gomidi.ControlChange(0, 1, uint8(i%128)))
	}
	assert.Equal(t, feedSize, len(dm.Feed()))
}

func TestIgnored(t *testing.T) {
	dm := NewDeviceManager(Options{Ignore: []string{"midi through", ""}})
	assert.True(t, dm.ignored("Midi Through Port-0"))
	assert.False(t, dm.ignored("SynthA"))
}

func TestIsHousekeeping(t *testing.T) {
	assert.True(t, IsHousekeeping(gomidi.Message{0xFE}))
	assert.False(t, IsHousekeeping(gomidi.ProgramChange(0, 3)))
	assert.False(t, IsHousekeeping(nil))
}

func TestWaitReturnsAfterPortsClosed(t *testing.T) {
	dm := NewDeviceManager(Options{})
	var sent []gomidi.Message
	dm.AddOutput("SynthA", recorder(&sent))

	ctx, cancel := context.WithCancel(context.Background())
	go dm.Run(ctx)
	cancel()
	dm.Wait()

	assert.Equal(t, 0, len(dm.Outputs()))
	err := dm.Send(engine.OutputCommand{Device: "SynthA", Status: mapping.NoteOn})
	assert.True(t, errors.Is(err, engine.ErrUnknownOutputDevice))
}

func TestOutputsListsPortNamesSorted(t *testing.T) {
	dm := NewDeviceManager(Options{})
	var sent []gomidi.Message
	dm.AddOutput("SynthB", recorder(&sent))
	dm.AddOutput("Akai MPD 0", recorder(&sent))

	outputs := dm.Outputs()
	assert.Equal(t, 2, len(outputs))
	assert.Equal(t, "Akai MPD 0", outputs[0])
	assert.Equal(t, "SynthB", outputs[1])
	assert.Equal(t, 0, len(dm.Inputs()))
}
