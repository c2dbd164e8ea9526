// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuner/internal/config"
)

// setupPortAudio initializes the real library, skipping on hosts without it.
func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Errorf("Failed to terminate PortAudio: %v", err)
		}
	})
}

// fakeDevices replaces the device lookups with a fixed host.
func fakeDevices(t *testing.T, devices ...*portaudio.DeviceInfo) {
	t.Helper()
	origDevices, origDefault := paLibDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc, paLibDefaultInputDeviceFunc = origDevices, origDefault
	})
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return devices, nil
	}
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		for _, d := range devices {
			if d.MaxInputChannels > 0 {
				return d, nil
			}
		}
		return nil, errors.New("no default input")
	}
}

var (
	fakeMic = &portaudio.DeviceInfo{
		Name:                    "USB Mic",
		MaxInputChannels:        2,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  5 * time.Millisecond,
		DefaultHighInputLatency: 40 * time.Millisecond,
	}
	fakeSpeaker = &portaudio.DeviceInfo{
		Name:              "Speakers",
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
	}
)

func TestHostDevices(t *testing.T) {
	setupPortAudio(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) == 0 {
		t.Skip("No audio devices found on system")
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
		if d.DefaultSampleRate <= 0 {
			t.Errorf("Device %d has invalid sample rate: %f", i, d.DefaultSampleRate)
		}
	}
}

func TestHostDevices_Fake(t *testing.T) {
	fakeDevices(t, fakeSpeaker, fakeMic)

	devices, err := HostDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, Device{
		ID:                1,
		Name:              "USB Mic",
		MaxInputChannels:  2,
		DefaultSampleRate: 48000,
		LowInputLatency:   5 * time.Millisecond,
		HighInputLatency:  40 * time.Millisecond,
	}, devices[1])
	assert.Equal(t, "Output", devices[0].Type())
	assert.Equal(t, "Input", devices[1].Type())

	inputs := InputDevices(devices)
	require.Len(t, inputs, 1)
	assert.Equal(t, 1, inputs[0].ID)
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{2, 2, "Input/Output"},
		{1, 0, "Input"},
		{0, 8, "Output"},
		{0, 0, "None"},
	}
	for _, tt := range tests {
		d := Device{MaxInputChannels: tt.in, MaxOutputChannels: tt.out}
		assert.Equal(t, tt.want, d.Type())
		assert.Equal(t, tt.in > 0, d.IsInput())
	}
}

func TestInputDevice(t *testing.T) {
	fakeDevices(t, fakeSpeaker, fakeMic)

	t.Run("Default input device", func(t *testing.T) {
		dev, err := InputDevice(config.MinDeviceID)
		require.NoError(t, err)
		assert.Equal(t, "USB Mic", dev.Name)
	})

	t.Run("Valid input device", func(t *testing.T) {
		dev, err := InputDevice(1)
		require.NoError(t, err)
		assert.Equal(t, "USB Mic", dev.Name)
	})

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 12, "invalid device ID"},
		{"Non-input device", 0, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDevice_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	fakeDevices(t)
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default input error")
	}

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock default input error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, nil
	}

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}

func TestProbeRates(t *testing.T) {
	tests := []struct {
		name      string
		supported map[int]bool
		want      int
	}{
		{"Prefers 48 kHz", map[int]bool{48000: true, 44100: true}, 48000},
		{"Falls back to 44.1 kHz", map[int]bool{44100: true, 8000: true}, 44100},
		{"Only telephone rate", map[int]bool{8000: true}, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tried []int
			got, err := probeRates(ProbeRates, func(rate int) error {
				tried = append(tried, rate)
				if tt.supported[rate] {
					return nil
				}
				return errors.New("unsupported")
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, tried[len(tried)-1], "probing must stop at the first hit")
		})
	}
}

func TestProbeRates_NoneSupported(t *testing.T) {
	_, err := probeRates(ProbeRates, func(int) error { return errors.New("invalid sample rate") })
	assert.ErrorIs(t, err, ErrNoSupportedRate)
	assert.Contains(t, err.Error(), "22050 Hz: invalid sample rate")

	_, err = probeRates(nil, nil)
	assert.ErrorIs(t, err, ErrNoSupportedRate)
}

func TestProbeSampleRate_Parameters(t *testing.T) {
	orig := paLibIsFormatSupported
	defer func() { paLibIsFormatSupported = orig }()

	var seen []portaudio.StreamParameters
	paLibIsFormatSupported = func(p portaudio.StreamParameters) error {
		seen = append(seen, p)
		if p.SampleRate == 22050 {
			return nil
		}
		return errors.New("unsupported")
	}

	rate, err := ProbeSampleRate(fakeMic, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 22050, rate)
	require.Len(t, seen, 3)
	for _, p := range seen {
		assert.Same(t, fakeMic, p.Input.Device)
		assert.Equal(t, 1, p.Input.Channels)
		assert.Equal(t, fakeMic.DefaultLowInputLatency, p.Input.Latency)
	}
}

func TestResolveSampleRate(t *testing.T) {
	fakeDevices(t, fakeMic)
	orig := paLibIsFormatSupported
	defer func() { paLibIsFormatSupported = orig }()
	paLibIsFormatSupported = func(p portaudio.StreamParameters) error {
		if p.SampleRate == 44100 {
			return nil
		}
		return errors.New("unsupported")
	}

	cfg := config.Default()
	rate, err := ResolveSampleRate(cfg)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)

	cfg.Audio.SampleRate = 16000
	rate, err = ResolveSampleRate(cfg)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate, "configured rate is used without probing")

	paLibIsFormatSupported = func(portaudio.StreamParameters) error { return errors.New("unsupported") }
	cfg.Audio.SampleRate = 0
	_, err = ResolveSampleRate(cfg)
	assert.ErrorIs(t, err, ErrNoSupportedRate)
	assert.Contains(t, err.Error(), "USB Mic")
}

func TestNewEngine_Fake(t *testing.T) {
	fakeDevices(t, fakeMic)
	capture := &captureProcessor{}

	cfg := config.Default()
	cfg.Audio.LowLatency = true
	engine, err := NewEngine(cfg, 44100, capture)
	require.NoError(t, err)
	assert.Same(t, fakeMic, engine.inputDevice)
	assert.Equal(t, fakeMic.DefaultLowInputLatency, engine.inputLatency)
	assert.Equal(t, 44100, engine.SampleRate())

	cfg.Audio.InputChannels = 2
	cfg.Audio.InputDevice = 0
	fakeDevices(t, &portaudio.DeviceInfo{Name: "Mono", MaxInputChannels: 1})
	_, err = NewEngine(cfg, 44100)
	assert.ErrorContains(t, err, "1 input channels, 2 requested")
}

func TestWriteDevices(t *testing.T) {
	var buf bytes.Buffer
	writeDevices(&buf, []Device{{
		ID:                3,
		Name:              "USB Mic",
		MaxInputChannels:  2,
		DefaultSampleRate: 48000,
		LowInputLatency:   5 * time.Millisecond,
		HighInputLatency:  40 * time.Millisecond,
	}})

	out := buf.String()
	assert.Contains(t, out, "[3] USB Mic (Input)")
	assert.Contains(t, out, "Input channels: 2, Output channels: 0")
	assert.Contains(t, out, "Default sample rate: 48000 Hz")
	assert.Contains(t, out, "Latency: Low=5.00ms, High=40.00ms")
}

func TestListDevices_Fake(t *testing.T) {
	fakeDevices(t, fakeMic)
	var buf bytes.Buffer
	require.NoError(t, ListDevices(&buf))
	assert.Contains(t, buf.String(), "[0] USB Mic (Input)")
}
