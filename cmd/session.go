package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-groove/beat"
	"go-groove/config"
	"go-groove/midi"
	"go-groove/trainer"
)

// sessionFlags are shared by the commands that run a live session
type sessionFlags struct {
	pattern string
	tempo   float64
	kit     string
	inputs  []string
	output  string
	echo    bool
}

func (f *sessionFlags) apply(c config.Config) config.Config {
	if f.tempo > 0 {
		c.Practice.Tempo = f.tempo
	}
	if f.kit != "" {
		c.MIDI.Kit = f.kit
	}
	if len(f.inputs) > 0 {
		c.MIDI.InputPorts = f.inputs
	}
	if f.output != "" {
		c.MIDI.OutputPort = f.output
	}
	if f.echo {
		c.MIDI.Echo = true
	}
	return c
}

// newManager builds a session from run and opens the configured output port
func newManager(run config.Config, extra ...trainer.Option) (*trainer.Manager, error) {
	kit, err := lookupKit(run.MIDI.Kit)
	if err != nil {
		return nil, err
	}
	opts := []trainer.Option{
		trainer.WithLogger(logger),
		trainer.WithKit(kit),
		trainer.WithTempo(run.Practice.Tempo),
		trainer.WithPPQN(run.Practice.PPQN),
		trainer.WithTempoWindow(run.Practice.TempoWindow),
		trainer.WithEcho(run.MIDI.Echo),
	}
	if path, err := run.EventsPath(); err == nil {
		opts = append(opts, trainer.WithAutosave(path, time.Second))
	}
	if run.MIDI.OutputPort != "" {
		out, err := midi.NewOutput(run.MIDI.OutputPort, kit, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, trainer.WithOutput(out, run.MIDI.OutChannel))
	}
	return trainer.NewManager(append(opts, extra...)...), nil
}

func kitUsage() string {
	return "drum kit note map: " + strings.Join(midi.KitNames(), ", ")
}

// lookupKit rejects names that GetKit would quietly swap for the default
func lookupKit(name string) (midi.Kit, error) {
	if name == "" {
		name = midi.DefaultKit
	}
	if _, ok := midi.Kits[name]; !ok {
		return midi.Kit{}, fmt.Errorf("unknown kit %q, want one of %s", name, strings.Join(midi.KitNames(), ", "))
	}
	return midi.GetKit(name), nil
}

// loadSource reads a pattern file, or looks ref up in the store
func loadSource(ctx context.Context, patternFile, ref string) (beat.Source, string, error) {
	if patternFile != "" {
		src, err := readSource(patternFile)
		return src, patternFile, err
	}
	if ref == "" {
		return beat.Source{}, "", fmt.Errorf("no beat given: pass a beat name or --pattern")
	}
	st, err := openStore()
	if err != nil {
		return beat.Source{}, "", err
	}
	b, err := resolveBeat(ctx, st, ref)
	if err != nil {
		return beat.Source{}, "", fmt.Errorf("beat %q: %w", ref, err)
	}
	return b.Pattern, b.Name, nil
}

// attachPads watches for drum pads until ctx is done
func attachPads(ctx context.Context, mgr *trainer.Manager, run config.Config) *midi.DeviceManager {
	dm := midi.NewDeviceManager(run.MIDI.InputPorts, run.MIDI.InChannel, logger)
	go dm.Run(ctx)
	mgr.Attach(ctx, dm)
	return dm
}
