// Package gpu reads NVIDIA GPU temperatures directly through NVML, without
// spawning nvidia-smi.
package gpu

import (
	"sync"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVMLReader initializes NVML on first use. If the library or driver is
// missing every read fails and the caller falls back to other sources.
type NVMLReader struct {
	nvml     nvmlController
	logger   logger.Logger
	mu       sync.Mutex
	detected bool
}

var _ TemperatureReader = (*NVMLReader)(nil)

func NewNVMLReader(log logger.Logger) *NVMLReader {
	return newReader(&nvmlWrapper{}, log)
}

func newReader(ctrl nvmlController, log logger.Logger) *NVMLReader {
	if log == nil {
		log = logger.Default()
	}

	return &NVMLReader{nvml: ctrl, logger: log}
}

// Temperatures returns one reading per device that answered. Devices that
// fail are skipped; an error is returned only when none answered.
func (r *NVMLReader) Temperatures() ([]int, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.nvml.Initialize(); err != nil {
		return nil, err
	}

	count, err := r.nvml.GetDeviceCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errFactory.New(ErrNoDevices)
	}

	temps := make([]int, 0, count)
	var lastErr error
	for i := 0; i < count; i++ {
		device, err := r.nvml.GetDevice(i)
		if err != nil {
			lastErr = err
			continue
		}
		r.logDetected(i, device)

		temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU)
		if !IsNVMLSuccess(ret) {
			lastErr = errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
			r.logger.Debug().Int("device", i).Err(lastErr).Msg("Failed to read GPU temperature")
			continue
		}
		temps = append(temps, int(temp))
	}
	r.detected = true

	if len(temps) == 0 {
		return nil, lastErr
	}

	return temps, nil
}

func (r *NVMLReader) logDetected(index int, device nvml.Device) {
	if r.detected {
		return
	}

	if name, ret := device.GetName(); IsNVMLSuccess(ret) {
		r.logger.Debug().Int("device", index).Str("name", name).Msg("Detected GPU")
	}
}

// Close shuts NVML down if it was initialized
func (r *NVMLReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.nvml.Shutdown()
}
