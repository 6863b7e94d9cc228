package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"midi-mapper/engine"
	"midi-mapper/mapping"
	"midi-mapper/midi"

	"github.com/retroenv/retrogolib/app"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer gomidi.CloseDriver()

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "echo":
		err = echoInputs(app.Context())
	case "send":
		err = sendOne(os.Args[2:])
	case "poll":
		pollDevices(app.Context())
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI port diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                                      - List all MIDI ports")
	fmt.Println("  echo                                      - Print classified events from every input")
	fmt.Println("  send <port> <type> <ch> <control> <level> - Send one message (ch 1-16)")
	fmt.Println("  poll                                      - Watch for device changes")
}

type portList struct {
	ins  []drivers.In
	outs []drivers.Out
}

// ports enumerates with a timeout (CoreMIDI can hang)
func ports() (portList, error) {
	ch := make(chan portList, 1)
	go func() {
		ch <- portList{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r, nil
	case <-time.After(3 * time.Second):
		return portList{}, fmt.Errorf("port enumeration timed out, try: sudo killall coreaudiod midiserver")
	}
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	r, err := ports()
	if err != nil {
		return err
	}

	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range r.ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range r.outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	return nil
}

func echoInputs(ctx context.Context) error {
	r, err := ports()
	if err != nil {
		return err
	}
	if len(r.ins) == 0 {
		return fmt.Errorf("no input ports")
	}

	for _, p := range r.ins {
		name := p.String()
		stop, err := gomidi.ListenTo(p, func(msg gomidi.Message, timestampms int32) {
			if midi.IsHousekeeping(msg) {
				return
			}
			ev, err := engine.Classify(name, msg)
			if err != nil {
				fmt.Printf("%-30s %s (%v)\n", name, msg, err)
				return
			}
			fmt.Printf("%-30s %s\n", name, ev)
		})
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", name, err)
			continue
		}
		defer stop()
		fmt.Printf("Listening on %s\n", name)
	}

	fmt.Println("Ctrl+C to exit.")
	<-ctx.Done()
	return nil
}

func sendOne(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: send <port> <type> <channel> <control> <level>")
	}

	typ, err := mapping.ParseMessageType(args[1])
	if err != nil {
		return err
	}
	nums := make([]int, 3)
	for i, s := range args[2:] {
		if nums[i], err = strconv.Atoi(s); err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
	}

	cmd := engine.OutputCommand{
		Device:  args[0],
		Channel: nums[0] - 1,
		Status:  typ,
		Control: nums[1],
		Level:   nums[2],
	}
	msg, err := cmd.Message()
	if err != nil {
		return err
	}

	r, err := ports()
	if err != nil {
		return err
	}
	var out drivers.Out
	for _, p := range r.outs {
		if strings.HasPrefix(strings.ToLower(p.String()), strings.ToLower(args[0])) {
			out = p
			break
		}
	}
	if out == nil {
		return fmt.Errorf("%w: %s", engine.ErrUnknownOutputDevice, args[0])
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if err := send(msg); err != nil {
		return err
	}
	fmt.Printf("Sent %s to %s\n", msg, out.String())
	return nil
}

func pollDevices(ctx context.Context) {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect devices to test. Ctrl+C to exit.")

	dm := midi.NewDeviceManager(midi.Options{PollRate: 2 * time.Second})
	go dm.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-dm.Events():
			kind := "input"
			if ev.Output {
				kind = "output"
			}
			fmt.Printf("[%s] %s %s %s\n", time.Now().Format("15:04:05"), kind, ev.ID, ev.Type)
		}
	}
}
