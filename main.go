// Package main implements a live MIDI mapper: events from every connected
// controller are translated through a bank-switched mapping table and sent
// to the configured output devices.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"midi-mapper/config"
	"midi-mapper/debug"
	"midi-mapper/engine"
	"midi-mapper/mapping"
	"midi-mapper/midi"
	"midi-mapper/theme"
	"midi-mapper/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	gomidi "gitlab.com/gomidi/midi/v2"
)

type options struct {
	Config     string
	Mappings   string
	Bank       int
	Verbose    bool
	Debug      bool
	Quiet      bool
	TUI        bool
	SaveConfig bool
}

func parseFlags() options {
	var opts options
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flags.StringVar(&opts.Config, "config", "", "config file (default ~/.config/midi-mapper/config.yaml)")
	flags.StringVar(&opts.Mappings, "mappings", "", "mapping table, CSV or YAML (overrides config)")
	flags.IntVar(&opts.Bank, "bank", 0, "initial bank (overrides config)")
	flags.BoolVar(&opts.Verbose, "v", false, "echo every incoming MIDI message")
	flags.BoolVar(&opts.Debug, "debug", false, "debug output and trace file")
	flags.BoolVar(&opts.Quiet, "quiet", false, "only log errors")
	flags.BoolVar(&opts.TUI, "tui", false, "show the terminal monitor")
	flags.BoolVar(&opts.SaveConfig, "save-config", false, "write the effective config and exit")
	_ = flags.Parse(os.Args[1:])
	return opts
}

func main() {
	ctx := app.Context()
	opts := parseFlags()

	logger := config.CreateLogger(opts.Debug, opts.Quiet || opts.TUI)

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Fatal("Loading config failed", log.Err(err))
	}

	if opts.SaveConfig {
		if err := cfg.Save(opts.Config); err != nil {
			logger.Fatal("Saving config failed", log.Err(err))
		}
		logger.Info("Config saved")
		return
	}

	if opts.Debug {
		err := debug.Enable(debug.Options{
			Path:       cfg.DebugLog.Path,
			MaxSizeMB:  cfg.DebugLog.MaxSizeMB,
			MaxBackups: cfg.DebugLog.MaxBackups,
		})
		if err != nil {
			logger.Error("Enabling trace log failed", log.Err(err))
		}
		if debug.Enabled() {
			path := cfg.DebugLog.Path
			if path == "" {
				path = debug.DefaultPath()
			}
			logger.Info("Trace log enabled", log.String("file", path))
		}
		defer debug.Disable()
	}

	table, err := mapping.Load(cfg.Mappings)
	if err != nil {
		logger.Fatal("Loading mappings failed", log.String("file", cfg.Mappings), log.Err(err))
	}
	logger.Info("Mappings loaded",
		log.String("file", cfg.Mappings),
		log.Int("records", table.Len()),
		log.Int("indicators", len(table.Indicators())),
		log.Object("banks", table.Banks()))

	if opts.TUI && !isatty.IsTerminal(os.Stdout.Fd()) {
		logger.Fatal("The monitor needs a terminal on stdout")
	}

	if err := run(ctx, logger, cfg, table, opts); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Mapper stopped", log.Err(err))
	}
	gomidi.CloseDriver()
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.Config != "" {
		cfg, err = config.LoadFile(opts.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.Mappings != "" {
		cfg.Mappings = opts.Mappings
	}
	if opts.Bank != 0 {
		cfg.DefaultBank = opts.Bank
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, table *mapping.Table, opts options) error {
	var echo io.Writer
	if opts.Verbose && !opts.TUI {
		echo = os.Stdout
	}

	dm := midi.NewDeviceManager(midi.Options{
		PollRate: cfg.PollInterval,
		Ignore:   cfg.IgnorePorts,
		PortFor:  cfg.PortFor,
		Echo:     echo,
	})
	dm.Scan()
	logger.Info("Ports opened",
		log.Strings("inputs", dm.Inputs()),
		log.Strings("outputs", dm.Outputs()))

	var out io.Writer = os.Stdout
	if opts.TUI {
		out = nil
	}
	bank := engine.NewBankState(cfg.DefaultBank)
	dispatcher := engine.NewDispatcher(dm, out, logger)

	var activity chan engine.Activity
	if opts.TUI {
		activity = make(chan engine.Activity, 64)
		dispatcher.OnActivity = func(a engine.Activity) {
			select {
			case activity <- a:
			default:
			}
		}
	}

	pipeline := engine.NewPipeline(table, bank, dispatcher, logger)

	if t := cfg.InitialTrigger; t.Channel != 0 {
		source := t.Port
		if source == "" {
			if inputs := dm.Inputs(); len(inputs) > 0 {
				source = inputs[0]
			}
		}
		pipeline.Prime(source, t.Channel, t.Note)
	}

	ctx, cancel := context.WithCancel(ctx)
	go dm.Run(ctx)
	defer func() {
		cancel()
		dm.Wait()
	}()

	if !opts.TUI {
		fmt.Printf("midi-mapper running in bank %d, press Ctrl+C to stop\n", bank.Active())
		return pipeline.Run(ctx, dm.Feed())
	}

	errs := make(chan error, 1)
	go func() {
		errs <- pipeline.Run(ctx, dm.Feed())
	}()

	th, err := theme.Load(cfg.Palette)
	if err != nil {
		logger.Warn("Using built-in palette", log.Err(err))
		th = theme.New(nil)
	}

	p := tea.NewProgram(tui.NewModel(dm, bank, table.Banks(), activity, th), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	cancel()
	return <-errs
}
