package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration. Omitted keys keep their defaults.
//
//	palette: ["39", "170", "#ff8800"]
//	controller_pattern: 'i2c_designware\.\d+'
//	gpio_chips: [intel-gpio, pinctrl, amd_gpio]
//	hid_driver: i2c_hid_acpi
//	classes:
//	  - {input_name: touchpad, class: touchpad}
//	  - {driver: hid-multitouch, vendor: "0x04f3", class: touchscreen}
type File struct {
	Palette           []string    `yaml:"palette"`
	ControllerPattern string      `yaml:"controller_pattern"`
	GPIOChips         []string    `yaml:"gpio_chips"`
	HIDDriver         string      `yaml:"hid_driver"`
	Classes           []ClassRule `yaml:"classes"`
}

// ClassRule is the textual form of a device classification rule. When a file
// lists any rules they replace the built-in set.
type ClassRule struct {
	InputName string `yaml:"input_name"`
	Driver    string `yaml:"driver"`
	Vendor    string `yaml:"vendor"`
	Class     string `yaml:"class"`
}

func DefaultFile() File {
	return File{
		ControllerPattern: `i2c_designware\.\d+`,
		GPIOChips:         []string{"intel-gpio", "pinctrl", "amd_gpio"},
		HIDDriver:         "i2c_hid_acpi",
	}
}

// LoadFile reads path on top of DefaultFile. Unknown keys are an error.
func LoadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	return decodeFile(f, path)
}

func decodeFile(r io.Reader, name string) (File, error) {
	file := DefaultFile()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parsing config %s: %w", name, err)
	}
	if err := file.Validate(); err != nil {
		return File{}, fmt.Errorf("config %s: %w", name, err)
	}
	return file, nil
}

// Validate checks the pattern compiles, palette entries are set and rules
// name a class.
func (f File) Validate() error {
	if f.ControllerPattern == "" {
		return errors.New("controller_pattern must not be empty")
	}
	if _, err := regexp.Compile(f.ControllerPattern); err != nil {
		return fmt.Errorf("controller_pattern: %w", err)
	}
	if f.HIDDriver == "" {
		return errors.New("hid_driver must not be empty")
	}
	for i, c := range f.Palette {
		if c == "" {
			return fmt.Errorf("palette[%d]: empty color", i)
		}
	}
	for i, r := range f.Classes {
		if r.Class == "" {
			return fmt.Errorf("classes[%d]: class is required", i)
		}
	}
	return nil
}
