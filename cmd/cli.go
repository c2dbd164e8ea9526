// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tuner/internal/config"
	"tuner/pkg/build"
)

// Commands selected on the command line.
const (
	CommandTuner   = "tuner"
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// Options is the parsed command line: the merged configuration plus the
// command to run.
type Options struct {
	Config      *config.Config
	Command     string
	File        string // analyze input
	Interactive bool   // list with the device picker
}

// flagValues receives raw flag values; only flags the user set are copied
// over the loaded configuration.
type flagValues struct {
	configPath      string
	device          int
	sampleRate      int
	framesPerBuffer int
	channels        int
	lowLatency      bool
	fftSize         int
	sensitivity     float64
	baseFrequency   float64
	rate            int
	notation        string
	record          bool
	output          string
	udp             bool
	udpTarget       string
	websocket       bool
	websocketAddr   string
	verbose         bool
}

// ParseArgs parses args (without the program name). A nil error with an
// empty Command means help or version output was printed.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}
	var f flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(f.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &f, cfg)
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}
			options.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandTuner
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&options.Interactive, "interactive", "i", false,
		"Pick a device and sample rate interactively")
	rootCmd.AddCommand(listCmd)

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE.wav",
		Short: "Analyze a WAV file offline, one line per analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandAnalyze
			options.File = args[0]
			return nil
		},
	}
	rootCmd.AddCommand(analyzeCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml when present)")

	// Audio Device Configuration
	pf.IntVarP(&f.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&f.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo), mixed down for analysis")
	pf.IntVarP(&f.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hz, 0 probes the device")
	pf.IntVarP(&f.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&f.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Tuner Configuration
	pf.IntVar(&f.fftSize, "fft-size", config.DefaultFFTSize,
		"Transform size, a power of 2")
	pf.Float64Var(&f.sensitivity, "sensitivity", config.DefaultSensitivity,
		"Noise gate multiplier; higher needs a louder tone")
	pf.Float64VarP(&f.baseFrequency, "base-frequency", "a", config.DefaultBaseFrequency,
		"Frequency of the reference A in Hz")
	pf.IntVar(&f.rate, "rate", config.DefaultAnalysisRate,
		"Analyses per second")
	pf.StringVar(&f.notation, "notation", config.DefaultNotation,
		"Note names: english or french")

	// Recording Configuration
	pf.BoolVarP(&f.record, "record", "r", false,
		"Record audio from the input device")
	pf.StringVarP(&f.output, "output", "o", "",
		"Output file name. Default is <recording dir>/tuner_YYYYMMDD_HHMMSS.wav")

	// Transport Configuration
	pf.BoolVar(&f.udp, "udp", false, "Publish readings as UDP packets")
	pf.StringVar(&f.udpTarget, "udp-target", config.DefaultUDPTargetAddress,
		"host:port receiving UDP packets")
	pf.BoolVar(&f.websocket, "websocket", false, "Serve readings over WebSocket")
	pf.StringVar(&f.websocketAddr, "websocket-addr", config.DefaultWebSocketAddress,
		"Listen address of the WebSocket server")

	// Debug Configuration
	pf.BoolVarP(&f.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// applyFlags copies every flag the user set over the file and env values.
func applyFlags(cmd *cobra.Command, f *flagValues, cfg *config.Config) {
	set := cmd.Flags().Changed

	if set("device") {
		cfg.Audio.InputDevice = f.device
	}
	if set("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if set("fft-size") {
		cfg.Tuner.FFTSize = f.fftSize
	}
	if set("sensitivity") {
		cfg.Tuner.Sensitivity = f.sensitivity
	}
	if set("base-frequency") {
		cfg.Tuner.BaseFrequency = f.baseFrequency
	}
	if set("rate") {
		cfg.Tuner.AnalysisRate = f.rate
	}
	if set("notation") {
		cfg.Tuner.Notation = f.notation
	}
	if set("record") {
		cfg.Recording.Enabled = f.record
	}
	if set("output") {
		cfg.Recording.OutputFile = f.output
		cfg.Recording.Enabled = true
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = f.udp
	}
	if set("udp-target") {
		cfg.Transport.UDPTargetAddress = f.udpTarget
	}
	if set("websocket") {
		cfg.Transport.WebSocketEnabled = f.websocket
	}
	if set("websocket-addr") {
		cfg.Transport.WebSocketAddress = f.websocketAddr
	}
	if set("verbose") && f.verbose {
		cfg.Debug = true
	}
}
