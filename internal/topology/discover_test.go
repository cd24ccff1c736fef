package topology

import (
	"errors"
	"io"
	"os"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Dicklesworthstone/i2cirqmon/internal/interrupts"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// linkFs gives MemMapFs the symlink lookups sysfs driver directories need.
type linkFs struct {
	afero.Fs
	links map[string]string
}

func (l *linkFs) ReadlinkIfPossible(name string) (string, error) {
	if t, ok := l.links[name]; ok {
		return t, nil
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: os.ErrInvalid}
}

const fixtureTable = `           CPU0       CPU1
 20:        100          0   IR-IO-APIC   20-fasteoi   idma64.1, i2c_designware.1
 21:         10          0   IR-IO-APIC   21-fasteoi   idma64.5, i2c_designware.5
200:         50          0   intel-gpio   33  FRMW0005:00
203:          0      21323   intel-gpio   18  PIXA3854:00
`

type fixtureDevice struct {
	acpi    string
	ctrl    string
	bus     string
	hidName string
	uevent  string
	inputs  []string
}

func writeFixture(t *testing.T, devices []fixtureDevice) *linkFs {
	t.Helper()
	fsys := &linkFs{Fs: afero.NewMemMapFs(), links: map[string]string{}}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(fsys.MkdirAll("/sys/bus/i2c/drivers/i2c_hid_acpi", 0o755))
	must(fsys.MkdirAll("/sys/bus/hid/devices", 0o755))
	must(afero.WriteFile(fsys, "/sys/bus/i2c/drivers/i2c_hid_acpi/uevent", nil, 0o644))
	for _, d := range devices {
		link := "/sys/bus/i2c/drivers/i2c_hid_acpi/i2c-" + d.acpi
		must(fsys.MkdirAll(link, 0o755))
		fsys.links[link] = "../../../../devices/pci0000:00/0000:00:19.1/" + d.ctrl + "/" + d.bus + "/i2c-" + d.acpi
		if d.hidName == "" {
			continue
		}
		dir := "/sys/bus/hid/devices/" + d.hidName
		must(fsys.MkdirAll(dir, 0o755))
		must(afero.WriteFile(fsys, dir+"/uevent", []byte(d.uevent), 0o644))
		for i, in := range d.inputs {
			idir := dir + "/input/input" + string(rune('0'+i))
			must(fsys.MkdirAll(idir, 0o755))
			must(afero.WriteFile(fsys, idir+"/name", []byte(in+"\n"), 0o644))
		}
	}
	return fsys
}

var standardDevices = []fixtureDevice{
	{
		acpi:    "PIXA3854:00",
		ctrl:    "i2c_designware.1",
		bus:     "i2c-1",
		hidName: "0018:093A:0274.0001",
		uevent:  "DRIVER=hid-multitouch\nHID_ID=0018:0000093A:00000274\nHID_NAME=PIXA3854:00 093A:0274\nHID_PHYS=i2c-PIXA3854:00\n",
		inputs:  []string{"PIXA3854:00 093A:0274 Mouse", "PIXA3854:00 093A:0274 Touchpad"},
	},
	{
		acpi:    "FRMW0005:00",
		ctrl:    "i2c_designware.1",
		bus:     "i2c-1",
		hidName: "0018:32AC:001B.0002",
		uevent:  "DRIVER=hid-sensor-hub\nHID_PHYS=i2c-FRMW0005:00\n",
	},
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func discover(t *testing.T, fsys afero.Fs) *Topology {
	t.Helper()
	d := NewDiscoverer(fsys, DefaultOptions(), quiet())
	topo, err := d.Discover(interrupts.Parse(fixtureTable))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	return topo
}

func TestDiscoverBuildsTree(t *testing.T) {
	topo := discover(t, writeFixture(t, standardDevices))

	if len(topo.Controllers) != 1 {
		t.Fatalf("controllers = %d, want 1", len(topo.Controllers))
	}
	ctrl := topo.Controllers[0]
	if ctrl.Source.Label != "i2c_designware.1" || ctrl.Source.IRQ != 20 || ctrl.Source.Bus != 1 {
		t.Errorf("controller = %+v", ctrl.Source)
	}
	if len(ctrl.Devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(ctrl.Devices))
	}

	// ReadDir sorts by name, so FRMW comes before PIXA.
	sensor, touchpad := ctrl.Devices[0], ctrl.Devices[1]
	if sensor.Label != "FRMW0005:00" || sensor.IRQ != 200 {
		t.Errorf("first device = %+v", sensor)
	}
	if sensor.Identity.Class != model.ClassSensorHub {
		t.Errorf("sensor class = %s", sensor.Identity.Class)
	}
	if touchpad.IRQ != 203 || touchpad.Identity.VendorID != 0x093A || touchpad.Identity.ProductID != 0x0274 {
		t.Errorf("touchpad = %+v / %+v", touchpad, touchpad.Identity)
	}
	if touchpad.Identity.Class != model.ClassTouchpad {
		t.Errorf("touchpad class = %s", touchpad.Identity.Class)
	}
	if len(touchpad.Identity.InputNames) != 2 {
		t.Errorf("input names = %q", touchpad.Identity.InputNames)
	}

	for _, dev := range ctrl.Devices {
		parent, ok := topo.Parent(dev)
		if !ok || parent.ID != ctrl.Source.ID {
			t.Errorf("%s parent = %+v, %v", dev.Label, parent, ok)
		}
	}

	wantOrder := []int{20, 200, 203}
	var gotOrder []int
	for _, s := range topo.Sources() {
		gotOrder = append(gotOrder, s.ID)
	}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("order = %v, want %v", gotOrder, wantOrder)
	}
}

func TestDiscoverIsRepeatable(t *testing.T) {
	fsys := writeFixture(t, standardDevices)
	first := discover(t, fsys)
	second := discover(t, fsys)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("topologies differ:\n%+v\n%+v", first, second)
	}
}

func TestDiscoverSkipsIncompleteDevices(t *testing.T) {
	devices := append([]fixtureDevice(nil), standardDevices...)
	// ELAN0001:00 has no gpio line in the interrupt table.
	devices = append(devices, fixtureDevice{
		acpi:    "ELAN0001:00",
		ctrl:    "i2c_designware.1",
		bus:     "i2c-1",
		hidName: "0018:04F3:3000.0003",
		uevent:  "DRIVER=hid-multitouch\nHID_PHYS=i2c-ELAN0001:00\n",
	})

	topo := discover(t, writeFixture(t, devices))
	if topo.Len() != 3 {
		t.Fatalf("Len = %d, want 3", topo.Len())
	}
	found := false
	for _, s := range topo.Skipped {
		if s.Name == "ELAN0001:00" && s.Reason == "no interrupt binding" {
			found = true
		}
	}
	if !found {
		t.Errorf("ELAN device not reported as skipped: %+v", topo.Skipped)
	}
}

func TestDiscoverDropsOrphans(t *testing.T) {
	// i2c_designware.7 has no line in the interrupt table.
	devices := []fixtureDevice{{
		acpi:    "PIXA3854:00",
		ctrl:    "i2c_designware.7",
		bus:     "i2c-7",
		hidName: "0018:093A:0274.0001",
		uevent:  "DRIVER=hid-multitouch\nHID_PHYS=i2c-PIXA3854:00\n",
	}}
	topo := discover(t, writeFixture(t, devices))
	if !topo.Empty() || topo.Len() != 0 {
		t.Fatalf("expected empty topology, got %+v", topo.Controllers)
	}
	if len(topo.Skipped) != 2 {
		t.Errorf("skipped = %+v", topo.Skipped)
	}
}

func TestDiscoverMissingHIDIdentity(t *testing.T) {
	devices := []fixtureDevice{{acpi: "PIXA3854:00", ctrl: "i2c_designware.1", bus: "i2c-1"}}
	topo := discover(t, writeFixture(t, devices))
	if topo.Len() != 0 {
		t.Fatalf("Len = %d, want 0", topo.Len())
	}
	if len(topo.Skipped) != 1 || topo.Skipped[0].Reason != "no hid identity" {
		t.Errorf("skipped = %+v", topo.Skipped)
	}
}

func TestDiscoverNoBus(t *testing.T) {
	d := NewDiscoverer(afero.NewMemMapFs(), DefaultOptions(), quiet())
	_, err := d.Discover(interrupts.Parse(fixtureTable))
	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err should wrap ErrNotExist: %v", err)
	}
}

func TestDiscoverNoHIDDriver(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("/sys/bus/i2c/devices", 0o755); err != nil {
		t.Fatal(err)
	}
	d := NewDiscoverer(fsys, DefaultOptions(), quiet())
	topo, err := d.Discover(interrupts.Parse(fixtureTable))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !topo.Empty() {
		t.Errorf("expected empty topology")
	}
}

func TestAcpiName(t *testing.T) {
	tests := []struct {
		label, want string
	}{
		{"intel-gpio 18 PIXA3854:00", "PIXA3854:00"},
		{"intel-gpio 33 FRMW0005:00", "FRMW0005:00"},
		{"IR-IO-APIC 20-fasteoi idma64.1", ""},
		{"amd_gpio 8 ELAN0001:00", "ELAN0001:00"},
	}
	for _, tt := range tests {
		if got := acpiName(tt.label); got != tt.want {
			t.Errorf("acpiName(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestControllerNameAndBus(t *testing.T) {
	path := "../../../../devices/pci0000:00/0000:00:19.1/i2c_designware.5/i2c-5/i2c-PIXA3854:00"
	if got := controllerName(path, DefaultOptions().ControllerPattern); got != "i2c_designware.5" {
		t.Errorf("controllerName = %q", got)
	}
	if got := busNumber(path); got != 5 {
		t.Errorf("busNumber = %d", got)
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]Controller{{
		Source:  model.Source{ID: 20, Label: "i2c_designware.1"},
		Devices: []model.Source{{ID: 20, Label: "PIXA3854:00"}},
	}}, nil)
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}
