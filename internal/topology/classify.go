package topology

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// Classifier maps a HID identity to a device class.
type Classifier interface {
	Classify(id model.Identity) model.DeviceClass
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(model.Identity) model.DeviceClass

func (f ClassifierFunc) Classify(id model.Identity) model.DeviceClass { return f(id) }

// Rule matches when every non-empty criterion matches. InputName is a
// case-insensitive substring of any input device name; Vendor 0 matches any.
type Rule struct {
	InputName string
	Driver    string
	Vendor    uint16
	Class     model.DeviceClass
}

func (r Rule) matches(id model.Identity) bool {
	if r.Driver != "" && r.Driver != id.Driver {
		return false
	}
	if r.Vendor != 0 && r.Vendor != id.VendorID {
		return false
	}
	if r.InputName == "" {
		return true
	}
	want := strings.ToLower(r.InputName)
	for _, name := range id.InputNames {
		if strings.Contains(strings.ToLower(name), want) {
			return true
		}
	}
	return false
}

// ParseRule builds a Rule from its textual form. vendor is hexadecimal with
// or without a 0x prefix.
func ParseRule(inputName, driver, vendor, class string) (Rule, error) {
	c, err := model.ParseDeviceClass(class)
	if err != nil {
		return Rule{}, err
	}
	r := Rule{InputName: inputName, Driver: driver, Class: c}
	if vendor != "" {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(vendor), "0x"), 16, 16)
		if err != nil {
			return Rule{}, fmt.Errorf("vendor %q: %w", vendor, err)
		}
		r.Vendor = uint16(v)
	}
	if r.InputName == "" && r.Driver == "" && r.Vendor == 0 {
		return Rule{}, fmt.Errorf("rule for %s has no criteria", c)
	}
	return r, nil
}

// RuleClassifier evaluates rules in order; the first match wins.
type RuleClassifier struct {
	Rules []Rule
}

func (c RuleClassifier) Classify(id model.Identity) model.DeviceClass {
	for _, r := range c.Rules {
		if r.matches(id) {
			return r.Class
		}
	}
	return model.ClassOther
}

// DefaultRules prefer input device names, then fall back to the bound driver.
// PixArt (093A) multitouch parts are touchpads.
var DefaultRules = []Rule{
	{InputName: "touchpad", Class: model.ClassTouchpad},
	{InputName: "touchscreen", Class: model.ClassTouchscreen},
	{InputName: "stylus", Class: model.ClassStylus},
	{InputName: "pen", Class: model.ClassStylus},
	{InputName: "keyboard", Class: model.ClassKeyboard},
	{Driver: "hid-multitouch", Vendor: 0x093A, Class: model.ClassTouchpad},
	{Driver: "hid-multitouch", Class: model.ClassTouchscreen},
	{Driver: "hid-sensor-hub", Class: model.ClassSensorHub},
	{Driver: "hid-generic", InputName: "consumer", Class: model.ClassKeyboard},
	{Driver: "hid-generic", InputName: "radio", Class: model.ClassKeyboard},
}

// DefaultClassifier uses DefaultRules.
func DefaultClassifier() Classifier { return RuleClassifier{Rules: DefaultRules} }
