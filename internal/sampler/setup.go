package sampler

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Dicklesworthstone/i2cirqmon/internal/config"
	"github.com/Dicklesworthstone/i2cirqmon/internal/interrupts"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
	"github.com/Dicklesworthstone/i2cirqmon/internal/registry"
	"github.com/Dicklesworthstone/i2cirqmon/internal/topology"
)

// Probe is the result of the startup read and bus discovery.
type Probe struct {
	Reader   *interrupts.Reader
	Table    interrupts.Table
	Topology *topology.Topology
}

// Discover reads the interrupt table once and enumerates the i2c bus with
// the discovery settings from cfg. An unreadable interrupt table or bus is
// returned as *interrupts.AccessError or *topology.DiscoveryError.
func Discover(fsys afero.Fs, cfg config.Config, log logrus.FieldLogger) (*Probe, error) {
	reader := interrupts.NewReader(interrupts.NewFileProvider(fsys, cfg.ProcRoot), log)
	tbl, err := reader.Read()
	if err != nil {
		return nil, err
	}

	opts, err := discoveryOptions(cfg)
	if err != nil {
		return nil, err
	}
	topo, err := topology.NewDiscoverer(fsys, opts, log).Discover(tbl)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"controllers": len(topo.Controllers),
		"sources":     topo.Len(),
		"skipped":     len(topo.Skipped),
	}).Info("topology discovered")
	return &Probe{Reader: reader, Table: tbl, Topology: topo}, nil
}

// Engine builds the tick engine for a probed system.
func (p *Probe) Engine(cfg config.Config, host model.Host, log logrus.FieldLogger) *Engine {
	reg := registry.New(p.Topology, registry.Options{
		HistoryCapacity: cfg.HistoryCapacity,
		Palette:         cfg.File.Palette,
	}, log)
	return NewEngine(p.Reader, reg, EngineOptions{
		Interval:        cfg.Interval,
		Threshold:       cfg.Threshold,
		HistoryCapacity: cfg.HistoryCapacity,
		Host:            host,
	}, log)
}

func discoveryOptions(cfg config.Config) (topology.Options, error) {
	pattern, err := cfg.CompilePattern()
	if err != nil {
		return topology.Options{}, fmt.Errorf("controller_pattern: %w", err)
	}
	opts := topology.Options{
		SysRoot:           cfg.SysRoot,
		HIDDriver:         cfg.File.HIDDriver,
		ControllerPattern: pattern,
		GPIOChips:         cfg.File.GPIOChips,
	}
	if len(cfg.File.Classes) == 0 {
		return opts, nil
	}
	rules := make([]topology.Rule, 0, len(cfg.File.Classes))
	for i, c := range cfg.File.Classes {
		r, err := topology.ParseRule(c.InputName, c.Driver, c.Vendor, c.Class)
		if err != nil {
			return topology.Options{}, fmt.Errorf("classes[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	opts.Classifier = topology.RuleClassifier{Rules: rules}
	return opts, nil
}
