package model

import (
	"fmt"
	"strings"
)

// Kind distinguishes I2C controllers from the HID devices wired behind them.
type Kind int

const (
	KindController Kind = iota
	KindHIDDevice
)

func (k Kind) String() string {
	switch k {
	case KindController:
		return "Controller"
	case KindHIDDevice:
		return "HID Device"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind as "controller" or "hid_device" for JSON
// output.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindController:
		return []byte("controller"), nil
	case KindHIDDevice:
		return []byte("hid_device"), nil
	}
	return nil, fmt.Errorf("unknown kind %d", int(k))
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "controller":
		*k = KindController
	case "hid_device":
		*k = KindHIDDevice
	default:
		return fmt.Errorf("unknown kind %q", b)
	}
	return nil
}

// DeviceClass is the human-readable classification of a HID device.
type DeviceClass string

const (
	ClassTouchpad    DeviceClass = "Touchpad"
	ClassTouchscreen DeviceClass = "Touchscreen"
	ClassSensorHub   DeviceClass = "Sensor Hub"
	ClassStylus      DeviceClass = "Stylus"
	ClassKeyboard    DeviceClass = "Keyboard"
	ClassOther       DeviceClass = "Other"
)

var deviceClasses = []DeviceClass{
	ClassTouchpad, ClassTouchscreen, ClassSensorHub, ClassStylus, ClassKeyboard, ClassOther,
}

// ParseDeviceClass accepts a class name in any case, with or without
// separators ("sensor-hub", "SensorHub", "Sensor Hub").
func ParseDeviceClass(s string) (DeviceClass, error) {
	want := foldClass(s)
	for _, c := range deviceClasses {
		if foldClass(string(c)) == want {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown device class %q", s)
}

func foldClass(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// NoParent is the Parent value of controller sources.
const NoParent = -1

// Identity describes a HID device as reported by the hid bus.
type Identity struct {
	VendorID   uint16      `json:"vendor_id"`
	ProductID  uint16      `json:"product_id"`
	Driver     string      `json:"driver"`
	Class      DeviceClass `json:"class"`
	HIDName    string      `json:"hid_name"`
	InputNames []string    `json:"input_names,omitempty"`
}

// VIDPID formats the vendor/product pair the way lsusb and dmesg do.
func (i Identity) VIDPID() string {
	return fmt.Sprintf("%04X:%04X", i.VendorID, i.ProductID)
}

// Source is one monitored interrupt line. ID equals the IRQ number, which the
// kernel does not hand out again while the owning device is still bound.
type Source struct {
	ID    int    `json:"id"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	IRQ   int    `json:"irq"`

	// Parent is the ID of the controller a HID device hangs off, or NoParent.
	Parent int `json:"parent"`

	// Controller and Bus locate the source on the i2c bus.
	Controller string `json:"controller"`
	Bus        int    `json:"bus"`

	// Identity is nil for controllers.
	Identity *Identity `json:"identity,omitempty"`

	// Color is assigned by the registry on first observation.
	Color string `json:"color,omitempty"`
}

// TypeName is the short type column shown next to a source.
func (s Source) TypeName() string {
	if s.Kind == KindController || s.Identity == nil {
		return "Controller"
	}
	return string(s.Identity.Class)
}
