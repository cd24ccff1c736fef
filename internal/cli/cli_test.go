package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Dicklesworthstone/i2cirqmon/internal/interrupts"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
	"github.com/Dicklesworthstone/i2cirqmon/internal/topology"
	"github.com/Dicklesworthstone/i2cirqmon/internal/ui"
)

const interruptsText = `           CPU0       CPU1
 20:        100          0   IR-IO-APIC   20-fasteoi   idma64.1, i2c_designware.1
200:         50          0   intel-gpio   33  FRMW0005:00
203:          0      21323   intel-gpio   18  PIXA3854:00
NMI:          0          0   Non-maskable interrupts
`

// fakeSystem lays out a minimal /proc and /sys under a temp dir with real
// symlinks, and returns the two roots.
func fakeSystem(t *testing.T, withDevice bool) (proc, sys string) {
	t.Helper()
	root := t.TempDir()
	proc = filepath.Join(root, "proc")
	sys = filepath.Join(root, "sys")
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.MkdirAll(proc, 0o755))
	must(os.WriteFile(filepath.Join(proc, "interrupts"), []byte(interruptsText), 0o644))

	driver := filepath.Join(sys, "bus", "i2c", "drivers", "i2c_hid_acpi")
	must(os.MkdirAll(driver, 0o755))
	if !withDevice {
		return proc, sys
	}
	must(os.Symlink("../../../../devices/pci0000:00/0000:00:15.1/i2c_designware.1/i2c-1/i2c-PIXA3854:00",
		filepath.Join(driver, "i2c-PIXA3854:00")))

	hid := filepath.Join(sys, "bus", "hid", "devices", "0018:093A:0274.0001")
	must(os.MkdirAll(filepath.Join(hid, "input", "input7"), 0o755))
	must(os.WriteFile(filepath.Join(hid, "uevent"),
		[]byte("DRIVER=hid-multitouch\nHID_PHYS=i2c-PIXA3854:00\n"), 0o644))
	must(os.WriteFile(filepath.Join(hid, "input", "input7", "name"),
		[]byte("PIXA3854:00 093A:0274 Touchpad\n"), 0o644))
	return proc, sys
}

func newApp() (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &App{
		Stdout:     &stdout,
		Stderr:     &stderr,
		Fs:         afero.NewOsFs(),
		IsTerminal: func() bool { return false },
	}, &stdout, &stderr
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app, stdout, _ := newApp()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := app.Run(ctx, args)
	return stdout.String(), err
}

func TestListText(t *testing.T) {
	proc, sys := fakeSystem(t, true)
	out, err := run(t, "list", "--proc", proc, "--sys", sys)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{
		"=== I2C HID Device Topology ===",
		"i2c_designware.1 [bus 1] (IRQ 20)",
		"PIXA3854:00 - Touchpad [093A:0274] (IRQ 203)",
		"- PIXA3854:00 093A:0274 Touchpad",
		"driver: hid-multitouch",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListJSON(t *testing.T) {
	proc, sys := fakeSystem(t, true)
	out, err := run(t, "list", "--json", "--proc", proc, "--sys", sys)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got struct {
		Controllers []struct {
			Label   string         `json:"label"`
			IRQ     int            `json:"irq"`
			Kind    model.Kind     `json:"kind"`
			Devices []model.Source `json:"devices"`
		} `json:"controllers"`
		Skipped []topology.Skipped `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(got.Controllers) != 1 || got.Controllers[0].IRQ != 20 || got.Controllers[0].Kind != model.KindController {
		t.Fatalf("controllers = %+v", got.Controllers)
	}
	devs := got.Controllers[0].Devices
	if len(devs) != 1 || devs[0].Label != "PIXA3854:00" || devs[0].Parent != 20 || devs[0].Identity == nil {
		t.Fatalf("devices = %+v", devs)
	}
	if devs[0].Identity.VendorID != 0x093A {
		t.Errorf("vendor = %#x", devs[0].Identity.VendorID)
	}
}

func TestListEmptyTopology(t *testing.T) {
	proc, sys := fakeSystem(t, false)
	out, err := run(t, "list", "--proc", proc, "--sys", sys)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No I2C controllers with HID devices found.") ||
		!strings.Contains(out, "different driver (PS/2, USB)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestStartupErrors(t *testing.T) {
	proc, sys := fakeSystem(t, true)
	empty := t.TempDir()

	_, err := run(t, "list", "--proc", empty, "--sys", sys)
	var access *interrupts.AccessError
	if !errors.As(err, &access) {
		t.Errorf("missing interrupts: err = %v, want AccessError", err)
	}

	_, err = run(t, "list", "--proc", proc, "--sys", empty)
	var disc *topology.DiscoveryError
	if !errors.As(err, &disc) {
		t.Errorf("missing bus: err = %v, want DiscoveryError", err)
	}
}

func TestMonitorText(t *testing.T) {
	proc, sys := fakeSystem(t, true)
	out, err := run(t, "monitor", "-i", "10ms", "-n", "2", "-t", "5", "--proc", proc, "--sys", sys)
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	if !strings.Contains(out, "Interval: 10ms | Threshold: 5 irqs/s | Sources: 2") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "  └─ IRQ 203: PIXA3854:00 (Touchpad)") {
		t.Errorf("missing source list:\n%s", out)
	}
	var rows []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) == 4 && (f[0] == "1" || f[0] == "2") {
			rows = append(rows, sc.Text())
		}
	}
	if len(rows) != 2 {
		t.Fatalf("got %d sample rows, want 2:\n%s", len(rows), out)
	}
	for _, r := range rows {
		if !strings.HasSuffix(r, "ok") || !strings.Contains(r, "0.0/s") {
			t.Errorf("row %q: want idle counters reported ok", r)
		}
	}
}

func TestMonitorJSONStream(t *testing.T) {
	proc, sys := fakeSystem(t, true)
	out, err := run(t, "monitor", "--json-stream", "-i", "10ms", "-n", "3", "--proc", proc, "--sys", sys)
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	for i, line := range lines {
		var snap model.Snapshot
		if err := json.Unmarshal([]byte(line), &snap); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if snap.Seq != uint64(i+2) || len(snap.Sources) != 2 {
			t.Errorf("line %d: seq=%d sources=%d", i, snap.Seq, len(snap.Sources))
		}
		for _, v := range snap.Sources {
			if len(v.Series) != 0 {
				t.Errorf("line %d: series should be stripped", i)
			}
			if !v.RateKnown || v.Rate != 0 {
				t.Errorf("line %d irq %d: rate=%v known=%v", i, v.ID, v.Rate, v.RateKnown)
			}
		}
	}
}

func TestMonitorWithoutSources(t *testing.T) {
	proc, sys := fakeSystem(t, false)
	if _, err := run(t, "monitor", "-n", "1", "--proc", proc, "--sys", sys); !errors.Is(err, ErrNoSources) {
		t.Fatalf("err = %v, want ErrNoSources", err)
	}
}

func TestTUIRequiresTerminal(t *testing.T) {
	proc, sys := fakeSystem(t, true)
	_, err := run(t, "tui", "--proc", proc, "--sys", sys)
	if err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Fatalf("err = %v", err)
	}
}

func TestDispatch(t *testing.T) {
	out, err := run(t, "version")
	if err != nil || !strings.Contains(out, Version) {
		t.Errorf("version: %q, %v", out, err)
	}
	if _, err := run(t); err == nil {
		t.Error("missing command should fail")
	}
	if _, err := run(t, "frobnicate"); err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("unknown command: %v", err)
	}
	if _, err := run(t, "list", "extra"); err == nil {
		t.Error("stray argument should fail")
	}
	if _, err := run(t, "monitor", "-i", "0"); err == nil {
		t.Error("zero interval should fail validation")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, ui.Result{})
	if buf.Len() != 0 {
		t.Fatalf("summary printed without samples: %q", buf.String())
	}

	start := time.Unix(1000, 0)
	printSummary(&buf, ui.Result{
		Samples: 10,
		Final: model.Snapshot{
			Started:   start,
			Timestamp: start.Add(10 * time.Second),
			Sources: []model.SourceView{
				{Source: model.Source{Kind: model.KindController, Label: "i2c_designware.1"}, Avg: 12.5, Max: 40},
				{Source: model.Source{Kind: model.KindHIDDevice, Label: "PIXA3854:00",
					Identity: &model.Identity{Class: model.ClassTouchpad}}, Avg: 6, Max: 20},
			},
			Total: model.TotalView{Avg: 18.5, Max: 60},
		},
	})
	out := buf.String()
	for _, want := range []string{
		"=== Interrupt Rate Summary ===",
		"i2c_designware.1",
		"12.5/s",
		"└─ PIXA3854:00",
		"Touchpad",
		"TOTAL",
		"60.0/s",
		"Samples: 10 over 10.0s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
