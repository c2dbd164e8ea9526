// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"

	"tuner/internal/config"
	"tuner/internal/log"
)

// ProbeRates are tried in order when no sample rate is configured.
var ProbeRates = []int{48000, 44100, 22050, 16000, 11025, 8000}

// ErrNoSupportedRate is returned when a device accepts none of ProbeRates.
var ErrNoSupportedRate = errors.New("no supported sample rate")

// PortAudio entry points, replaced in tests.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice
	paLibIsFormatSupported      = func(p portaudio.StreamParameters) error {
		return portaudio.IsFormatSupported(p, make([]int16, 0))
	}
	paDevicesFunc = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default input device.
// Returns an error if the device ID is invalid, the device has no input
// channels, or no such device exists.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		device, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, err
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, device.Name)
	}
	return device, nil
}

// ProbeSampleRate returns the first of ProbeRates the device accepts for a
// 16-bit input stream with the given channel count.
func ProbeSampleRate(device *portaudio.DeviceInfo, channels int, lowLatency bool) (int, error) {
	latency := device.DefaultHighInputLatency
	if lowLatency {
		latency = device.DefaultLowInputLatency
	}
	return probeRates(ProbeRates, func(rate int) error {
		return paLibIsFormatSupported(portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   device,
				Channels: channels,
				Latency:  latency,
			},
			SampleRate: float64(rate),
		})
	})
}

func probeRates(candidates []int, supported func(rate int) error) (int, error) {
	var errs []error
	for _, rate := range candidates {
		err := supported(rate)
		if err == nil {
			log.Debugf("Audio: Device accepts %d Hz", rate)
			return rate, nil
		}
		errs = append(errs, fmt.Errorf("%d Hz: %w", rate, err))
	}
	if len(errs) == 0 {
		return 0, ErrNoSupportedRate
	}
	return 0, fmt.Errorf("%w: %w", ErrNoSupportedRate, errors.Join(errs...))
}

// ResolveSampleRate returns the configured rate, or probes the configured
// input device when the configuration leaves it at 0. PortAudio must be
// initialized.
func ResolveSampleRate(cfg *config.Config) (int, error) {
	if rate := cfg.SampleRate(); rate > 0 {
		return rate, nil
	}
	device, err := InputDevice(cfg.DeviceID())
	if err != nil {
		return 0, err
	}
	rate, err := ProbeSampleRate(device, cfg.Channels(), cfg.LowLatency())
	if err != nil {
		return 0, fmt.Errorf("device %q: %w", device.Name, err)
	}
	log.Infof("Audio: Using probed sample rate %d Hz on %q", rate, device.Name)
	return rate, nil
}

// ListDevices writes information about all available audio devices to w.
// For each device, it shows:
// - Device ID and name
// - Device type (Input/Output/Input+Output)
// - Channel count
// - Default sample rate
// - Latency ranges
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}
	writeDevices(w, devices)
	return nil
}

func writeDevices(w io.Writer, devices []Device) {
	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, device := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", device.ID, device.Name, device.Type())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.LowInputLatency.Seconds()*1000,
			device.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}
}

// paDevices returns all available PortAudio devices, never a nil slice on success.
// This is a helper function used internally by InputDevice and HostDevices.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
