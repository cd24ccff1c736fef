package topology

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Dicklesworthstone/i2cirqmon/internal/interrupts"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// DiscoveryError reports that the i2c bus hierarchy could not be enumerated.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("cannot enumerate i2c bus at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// I2C HID devices show up on the hid bus with this bus type prefix.
const hidBusI2C = "0018:"

// Options tune where and how discovery looks.
type Options struct {
	SysRoot           string
	HIDDriver         string
	ControllerPattern *regexp.Regexp
	GPIOChips         []string
	Classifier        Classifier
}

// DefaultOptions match a stock Linux laptop with DesignWare i2c controllers.
func DefaultOptions() Options {
	return Options{
		SysRoot:           "/sys",
		HIDDriver:         "i2c_hid_acpi",
		ControllerPattern: regexp.MustCompile(`i2c_designware\.\d+`),
		GPIOChips:         []string{"intel-gpio", "pinctrl", "amd_gpio"},
		Classifier:        DefaultClassifier(),
	}
}

// Discoverer walks sysfs through an afero filesystem.
type Discoverer struct {
	fs   afero.Fs
	opts Options
	log  logrus.FieldLogger
}

func NewDiscoverer(fsys afero.Fs, opts Options, log logrus.FieldLogger) *Discoverer {
	def := DefaultOptions()
	if opts.SysRoot == "" {
		opts.SysRoot = def.SysRoot
	}
	if opts.HIDDriver == "" {
		opts.HIDDriver = def.HIDDriver
	}
	if opts.ControllerPattern == nil {
		opts.ControllerPattern = def.ControllerPattern
	}
	if opts.GPIOChips == nil {
		opts.GPIOChips = def.GPIOChips
	}
	if opts.Classifier == nil {
		opts.Classifier = def.Classifier
	}
	return &Discoverer{fs: fsys, opts: opts, log: log}
}

type pendingDevice struct {
	source model.Source
	ctrl   string
	bus    int
}

// Discover enumerates the bus once. Controller and GPIO interrupt numbers
// are taken from the labels in tbl.
func (d *Discoverer) Discover(tbl interrupts.Table) (*Topology, error) {
	busDir := filepath.Join(d.opts.SysRoot, "bus", "i2c")
	ok, err := afero.DirExists(d.fs, busDir)
	if err != nil {
		return nil, &DiscoveryError{Path: busDir, Err: err}
	}
	if !ok {
		return nil, &DiscoveryError{Path: busDir, Err: fs.ErrNotExist}
	}

	ctrlIRQs, gpioIRQs := d.labelIRQs(tbl)

	driverDir := filepath.Join(busDir, "drivers", d.opts.HIDDriver)
	entries, err := afero.ReadDir(d.fs, driverDir)
	if err != nil {
		d.log.WithField("path", driverDir).Infof("no %s driver bound: %v", d.opts.HIDDriver, err)
		return New(nil, nil)
	}

	var (
		skipped []Skipped
		pending []pendingDevice
	)
	skip := func(name, reason string) {
		d.log.WithFields(logrus.Fields{"device": name, "reason": reason}).Debug("skipping")
		skipped = append(skipped, Skipped{Name: name, Reason: reason})
	}

	for _, entry := range entries {
		name := entry.Name()
		acpi, ok := strings.CutPrefix(name, "i2c-")
		if !ok {
			continue
		}
		target, err := d.readlink(filepath.Join(driverDir, name))
		if err != nil {
			skip(acpi, "unresolvable device link")
			continue
		}
		ctrl := controllerName(target, d.opts.ControllerPattern)
		if ctrl == "" {
			skip(acpi, "no controller in device path")
			continue
		}
		irq, ok := gpioIRQs[acpi]
		if !ok {
			skip(acpi, "no interrupt binding")
			continue
		}
		identity, ok := d.identity(acpi)
		if !ok {
			skip(acpi, "no hid identity")
			continue
		}
		pending = append(pending, pendingDevice{
			source: model.Source{
				ID:       irq,
				Kind:     model.KindHIDDevice,
				Label:    acpi,
				IRQ:      irq,
				Identity: &identity,
			},
			ctrl: ctrl,
			bus:  busNumber(target),
		})
	}

	byName := make(map[string]*Controller)
	var names []string
	for _, p := range pending {
		c, ok := byName[p.ctrl]
		if !ok {
			irq, hasIRQ := ctrlIRQs[p.ctrl]
			c = &Controller{Source: model.Source{
				ID:         irq,
				Kind:       model.KindController,
				Label:      p.ctrl,
				IRQ:        irq,
				Parent:     model.NoParent,
				Controller: p.ctrl,
				Bus:        p.bus,
			}}
			if !hasIRQ {
				c.Source.ID = -1
			}
			byName[p.ctrl] = c
			names = append(names, p.ctrl)
		}
		c.Devices = append(c.Devices, p.source)
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := byName[names[i]], byName[names[j]]
		if a.Source.Bus != b.Source.Bus {
			return a.Source.Bus < b.Source.Bus
		}
		return names[i] < names[j]
	})

	seen := make(map[int]string)
	var controllers []Controller
	for _, n := range names {
		c := byName[n]
		if c.Source.ID < 0 {
			skip(n, "controller has no interrupt line")
			for _, dev := range c.Devices {
				skip(dev.Label, "orphaned: controller "+n+" has no interrupt line")
			}
			continue
		}
		if owner, dup := seen[c.Source.ID]; dup {
			skip(n, fmt.Sprintf("irq %d already used by %s", c.Source.ID, owner))
			for _, dev := range c.Devices {
				skip(dev.Label, "orphaned: controller "+n+" skipped")
			}
			continue
		}
		seen[c.Source.ID] = n
		kept := c.Devices[:0]
		for _, dev := range c.Devices {
			if owner, dup := seen[dev.ID]; dup {
				skip(dev.Label, fmt.Sprintf("irq %d already used by %s", dev.ID, owner))
				continue
			}
			seen[dev.ID] = dev.Label
			kept = append(kept, dev)
		}
		c.Devices = kept
		controllers = append(controllers, *c)
	}
	return New(controllers, skipped)
}

// labelIRQs scans interrupt labels for controller instance names and for
// GPIO lines that carry an ACPI device name.
func (d *Discoverer) labelIRQs(tbl interrupts.Table) (ctrl map[string]int, gpio map[string]int) {
	ctrl = make(map[string]int)
	gpio = make(map[string]int)
	for _, irq := range tbl.IRQs() {
		e := tbl.Entries[irq]
		for _, tok := range e.Tokens() {
			if m := d.opts.ControllerPattern.FindString(tok); m != "" && m == tok {
				if _, ok := ctrl[tok]; !ok {
					ctrl[tok] = irq
				}
			}
		}
		if d.isGPIO(e.Label) {
			if name := acpiName(e.Label); name != "" {
				if _, ok := gpio[name]; !ok {
					gpio[name] = irq
				}
			}
		}
	}
	return ctrl, gpio
}

func (d *Discoverer) isGPIO(label string) bool {
	for _, chip := range d.opts.GPIOChips {
		if strings.Contains(label, chip) {
			return true
		}
	}
	return false
}

func (d *Discoverer) readlink(name string) (string, error) {
	lr, ok := d.fs.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("filesystem %s cannot read links", d.fs.Name())
	}
	return lr.ReadlinkIfPossible(name)
}

// identity finds the hid bus entry whose uevent mentions acpi.
func (d *Discoverer) identity(acpi string) (model.Identity, bool) {
	hidDir := filepath.Join(d.opts.SysRoot, "bus", "hid", "devices")
	entries, err := afero.ReadDir(d.fs, hidDir)
	if err != nil {
		return model.Identity{}, false
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, hidBusI2C) {
			continue
		}
		dir := filepath.Join(hidDir, name)
		raw, err := afero.ReadFile(d.fs, filepath.Join(dir, "uevent"))
		if err != nil {
			continue
		}
		uevent := parseUevent(string(raw))
		if !ueventMentions(uevent, acpi) {
			continue
		}

		id := model.Identity{HIDName: name, Driver: uevent["DRIVER"]}
		vid, pid, ok := parseHIDName(name)
		if !ok {
			vid, pid, ok = parseHIDID(uevent["HID_ID"])
		}
		if !ok {
			d.log.WithField("device", acpi).Debugf("cannot parse vendor/product from %s", name)
			return model.Identity{}, false
		}
		id.VendorID, id.ProductID = vid, pid
		if id.Driver == "" {
			d.log.WithField("device", acpi).Debug("no driver bound")
		}
		id.InputNames = d.inputNames(dir)
		id.Class = d.opts.Classifier.Classify(id)
		return id, true
	}
	return model.Identity{}, false
}

func (d *Discoverer) inputNames(hidDir string) []string {
	inputDir := filepath.Join(hidDir, "input")
	entries, err := afero.ReadDir(d.fs, inputDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		raw, err := afero.ReadFile(d.fs, filepath.Join(inputDir, entry.Name(), "name"))
		if err != nil {
			continue
		}
		if n := strings.TrimSpace(string(raw)); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func parseUevent(s string) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok {
			kv[k] = v
		}
	}
	return kv
}

func ueventMentions(uevent map[string]string, acpi string) bool {
	for _, v := range uevent {
		if strings.Contains(v, acpi) {
			return true
		}
	}
	return false
}

// parseHIDName splits "0018:093A:0274.0001".
func parseHIDName(name string) (vid, pid uint16, ok bool) {
	parts := strings.Split(name, ":")
	if len(parts) < 3 {
		return 0, 0, false
	}
	pidPart, _, _ := strings.Cut(parts[2], ".")
	return parseHexPair(parts[1], pidPart)
}

// parseHIDID splits the uevent form "0018:0000093A:00000274".
func parseHIDID(s string) (vid, pid uint16, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, false
	}
	return parseHexPair(parts[1], parts[2])
}

func parseHexPair(a, b string) (uint16, uint16, bool) {
	va, err := strconv.ParseUint(a, 16, 32)
	if err != nil || va > 0xFFFF {
		return 0, 0, false
	}
	vb, err := strconv.ParseUint(b, 16, 32)
	if err != nil || vb > 0xFFFF {
		return 0, 0, false
	}
	return uint16(va), uint16(vb), true
}

// acpiName picks the trailing ACPI device name out of a GPIO interrupt
// label, e.g. "intel-gpio 18 PIXA3854:00".
func acpiName(label string) string {
	fields := strings.Fields(label)
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		if !strings.Contains(f, ":") || f[0] < 'A' || f[0] > 'Z' {
			continue
		}
		if strings.Contains(f, "IR-") || strings.Contains(f, "PCI-") {
			continue
		}
		return f
	}
	return ""
}

// controllerName returns the path element of a device link that names the
// controller instance.
func controllerName(target string, pattern *regexp.Regexp) string {
	for _, part := range strings.Split(path.Clean(filepath.ToSlash(target)), "/") {
		if m := pattern.FindString(part); m != "" && m == part {
			return part
		}
	}
	return ""
}

// busNumber extracts N from the "i2c-N" element of a device link.
func busNumber(target string) int {
	for _, part := range strings.Split(filepath.ToSlash(target), "/") {
		if rest, ok := strings.CutPrefix(part, "i2c-"); ok {
			if n, err := strconv.Atoi(rest); err == nil {
				return n
			}
		}
	}
	return 0
}
