package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/i2cirqmon/internal/config"
	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
	"github.com/Dicklesworthstone/i2cirqmon/internal/sampler"
	"github.com/Dicklesworthstone/i2cirqmon/internal/topology"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	ctrlStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	highStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type controllerJSON struct {
	model.Source
	Devices []model.Source `json:"devices"`
}

type listingJSON struct {
	Host        model.Host         `json:"host"`
	Controllers []controllerJSON   `json:"controllers"`
	Skipped     []topology.Skipped `json:"skipped"`
}

func (a *App) list(cfg config.Config, log logrus.FieldLogger) error {
	probe, err := a.probe(cfg, log)
	if err != nil {
		return err
	}
	host := sampler.HostInfo(log)
	topo := probe.Topology

	if cfg.JSON {
		out := listingJSON{
			Host:        host,
			Controllers: make([]controllerJSON, 0, len(topo.Controllers)),
			Skipped:     append([]topology.Skipped{}, topo.Skipped...),
		}
		for _, c := range topo.Controllers {
			out.Controllers = append(out.Controllers, controllerJSON{Source: c.Source, Devices: c.Devices})
		}
		enc := json.NewEncoder(a.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := a.Stdout
	if topo.Empty() {
		fmt.Fprintln(w, "No I2C controllers with HID devices found.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "This may mean:")
		fmt.Fprintln(w, "  - No I2C HID device is present")
		fmt.Fprintln(w, "  - The touchpad uses a different driver (PS/2, USB)")
		fmt.Fprintln(w, "  - The I2C controller uses a different driver")
		a.listSkipped(topo.Skipped)
		return nil
	}

	fmt.Fprintln(w, a.paint(headingStyle, "=== I2C HID Device Topology ==="))
	if host.Kernel != "" {
		fmt.Fprintln(w, a.paint(dimStyle, fmt.Sprintf("kernel %s, %d cpus", host.Kernel, host.CPUs)))
	}
	fmt.Fprintln(w)
	for _, c := range topo.Controllers {
		fmt.Fprintf(w, "%s [bus %d] (IRQ %d)\n", a.paint(ctrlStyle, c.Source.Label), c.Source.Bus, c.Source.IRQ)
		for _, d := range c.Devices {
			id := d.Identity
			fmt.Fprintf(w, "  %s - %s [%s] (IRQ %d)\n", d.Label, id.Class, id.VIDPID(), d.IRQ)
			for _, name := range id.InputNames {
				fmt.Fprintf(w, "    - %s\n", name)
			}
			if id.Driver != "" {
				fmt.Fprintf(w, "    driver: %s\n", id.Driver)
			}
		}
		fmt.Fprintln(w)
	}
	a.listSkipped(topo.Skipped)
	fmt.Fprintln(w, "Use 'i2cirqmon tui' for real-time monitoring.")
	return nil
}

func (a *App) listSkipped(skipped []topology.Skipped) {
	if len(skipped) == 0 {
		return
	}
	w := a.Stdout
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Skipped:")
	width := 0
	for _, s := range skipped {
		width = max(width, len(s.Name))
	}
	for _, s := range skipped {
		fmt.Fprintf(w, "  %-*s  %s\n", width, s.Name, a.paint(dimStyle, s.Reason))
	}
	fmt.Fprintln(w)
}

// sourceLine is the one-line description used by monitor's header and the
// summary.
func sourceLine(s model.Source) string {
	prefix := ""
	if s.Kind == model.KindHIDDevice {
		prefix = "  └─ "
	}
	return fmt.Sprintf("%sIRQ %3d: %s (%s)", prefix, s.IRQ, s.Label, s.TypeName())
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
