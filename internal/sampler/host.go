package sampler

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/sirupsen/logrus"

	"github.com/Dicklesworthstone/i2cirqmon/internal/model"
)

// HostInfo collects the kernel release and logical CPU count. Either may be
// zero when the platform does not expose it.
func HostInfo(log logrus.FieldLogger) model.Host {
	var h model.Host
	if v, err := host.KernelVersion(); err == nil {
		h.Kernel = v
	} else {
		log.WithError(err).Debug("kernel version unavailable")
	}
	if n, err := cpu.Counts(true); err == nil {
		h.CPUs = n
	} else {
		log.WithError(err).Debug("cpu count unavailable")
	}
	return h
}
