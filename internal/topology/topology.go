// Package topology discovers the static tree of I2C controllers and the HID
// devices attached to them.
package topology

import (
	"fmt"

	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// Controller owns the HID devices discovered below it.
type Controller struct {
	Source  model.Source
	Devices []model.Source
}

// Skipped records a controller or device left out of the topology.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Topology is immutable after construction. Controllers appear in discovery
// order, each with its devices in discovery order.
type Topology struct {
	Controllers []Controller
	Skipped     []Skipped

	order []model.Source
	index map[int]int
}

// New builds a Topology from controllers, filling in each device's parent
// linkage. Every id must be unique.
func New(controllers []Controller, skipped []Skipped) (*Topology, error) {
	t := &Topology{
		Controllers: make([]Controller, 0, len(controllers)),
		Skipped:     append([]Skipped(nil), skipped...),
		index:       make(map[int]int),
	}
	add := func(s model.Source) error {
		if _, dup := t.index[s.ID]; dup {
			return fmt.Errorf("duplicate source id %d (%s)", s.ID, s.Label)
		}
		t.index[s.ID] = len(t.order)
		t.order = append(t.order, s)
		return nil
	}
	for _, c := range controllers {
		ctrl := c.Source
		ctrl.Kind = model.KindController
		ctrl.Parent = model.NoParent
		ctrl.Identity = nil
		if err := add(ctrl); err != nil {
			return nil, err
		}
		devices := make([]model.Source, 0, len(c.Devices))
		for _, d := range c.Devices {
			d.Kind = model.KindHIDDevice
			d.Parent = ctrl.ID
			d.Controller = ctrl.Label
			d.Bus = ctrl.Bus
			if d.Identity != nil {
				id := *d.Identity
				id.InputNames = append([]string(nil), id.InputNames...)
				d.Identity = &id
			}
			if err := add(d); err != nil {
				return nil, err
			}
			devices = append(devices, d)
		}
		t.Controllers = append(t.Controllers, Controller{Source: ctrl, Devices: devices})
	}
	return t, nil
}

// Len is the number of sources (controllers plus devices).
func (t *Topology) Len() int { return len(t.order) }

// Sources returns every source in enumeration order: each controller
// followed by its devices.
func (t *Topology) Sources() []model.Source {
	return append([]model.Source(nil), t.order...)
}

// Lookup finds a source by id.
func (t *Topology) Lookup(id int) (model.Source, bool) {
	i, ok := t.index[id]
	if !ok {
		return model.Source{}, false
	}
	return t.order[i], true
}

// Position is the index of id in enumeration order.
func (t *Topology) Position(id int) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Parent resolves a device's controller.
func (t *Topology) Parent(s model.Source) (model.Source, bool) {
	if s.Kind != model.KindHIDDevice {
		return model.Source{}, false
	}
	return t.Lookup(s.Parent)
}

// Empty reports whether no controller with an interrupt line was found.
func (t *Topology) Empty() bool { return len(t.Controllers) == 0 }
