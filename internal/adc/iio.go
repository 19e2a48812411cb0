package adc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOReader reads a voltage channel through the Linux IIO sysfs interface
// (/sys/bus/iio/devices/<dev>/in_voltageN_raw scaled by in_voltageN_scale).
type IIOReader struct {
	rawPath string
	scale   float64 // mV per raw count
}

// NewIIOReader opens the given IIO device/channel. The channel scale is read
// once at open; IIO drivers report it in millivolts per count.
func NewIIOReader(device string, channel int) (*IIOReader, error) {
	base := filepath.Join("/sys/bus/iio/devices", device)
	rawPath := filepath.Join(base, fmt.Sprintf("in_voltage%d_raw", channel))
	if _, err := os.Stat(rawPath); err != nil {
		return nil, fmt.Errorf("open adc channel: %w", err)
	}

	scale := 1.0
	scalePath := filepath.Join(base, fmt.Sprintf("in_voltage%d_scale", channel))
	b, err := os.ReadFile(scalePath)
	if err != nil {
		// Some drivers expose a shared scale for all channels.
		b, err = os.ReadFile(filepath.Join(base, "in_voltage_scale"))
	}
	if err == nil {
		if s, perr := strconv.ParseFloat(strings.TrimSpace(string(b)), 64); perr == nil && s > 0 {
			scale = s
		}
	}

	return &IIOReader{rawPath: rawPath, scale: scale}, nil
}

// ReadMillivolts reads and scales one raw sample.
func (r *IIOReader) ReadMillivolts() (int, error) {
	b, err := os.ReadFile(r.rawPath)
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse adc value: %w", err)
	}
	return int(float64(raw)*r.scale + 0.5), nil
}

// Close releases ADC resources. Sysfs handles are opened per read, so there
// is nothing to release.
func (r *IIOReader) Close() error { return nil }
