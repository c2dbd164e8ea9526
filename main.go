// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tuner/cmd"
	"tuner/internal/analysis"
	"tuner/internal/audio"
	"tuner/internal/config"
	"tuner/internal/log"
	"tuner/internal/transport"
	"tuner/internal/transport/udp"
	"tuner/internal/tui"
	"tuner/pkg/build"
)

// readingBuffer is how many readings the TUI may lag behind before they drop.
const readingBuffer = 8

// main is the entry point for the tuner.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Build the pitch processor and transports
//   - Start the audio engine input stream
//   - Start recording if enabled
//   - Run the tuner UI
//
// 3. Shutdown Phase (Cold Path):
//   - Stop the input stream, then recording
//   - Stop publishers and close transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if opts.Command == "" {
		return // help or version
	}
	log.SetLevel(opts.Config.Level())

	// Offline analysis does not touch the audio hardware.
	if opts.Command == cmd.CommandAnalyze {
		if err := cmd.RunAnalyze(opts, os.Stdout); err != nil {
			log.Fatalf("Analyze: %v", err)
		}
		return
	}

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		log.Fatalf("Audio: %v", err)
	}
	defer audio.Terminate()

	// Handle one-off commands (e.g., device listing) that don't require
	// the audio engine to be running
	if opts.Command == cmd.CommandList {
		if err := cmd.RunList(opts, os.Stdout); err != nil {
			log.Fatalf("List: %v", err)
		}
		return
	}

	if err := runTuner(opts.Config); err != nil {
		log.Errorf("Tuner: %v", err)
		audio.Terminate()
		os.Exit(1)
	}
}

// runTuner owns the live session from processor construction to shutdown.
func runTuner(cfg *config.Config) error {
	// ==================== CONCURRENT PHASE (Hot Path) ====================

	sampleRate, err := audio.ResolveSampleRate(cfg)
	if err != nil {
		return err
	}

	// Readings fan out to the UI, debug log and optional WebSocket clients.
	ui := transport.NewChannelTransport(readingBuffer)
	outputs := []transport.Transport{ui}
	if log.Enabled(log.LevelDebug) {
		outputs = append(outputs, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			return err
		}
		outputs = append(outputs, ws)
	}
	readings := transport.NewMulti(outputs...)

	processor, err := analysis.NewPitchProcessor(cfg.PitchConfig(sampleRate), readings)
	if err != nil {
		readings.Close()
		return err
	}

	engine, err := audio.NewEngine(cfg, sampleRate, processor)
	if err != nil {
		processor.Close()
		readings.Close()
		return err
	}

	var publisher *udp.UDPPublisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			engine.Close()
			readings.Close()
			return err
		}
		defer sender.Close()
		publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, processor)
		if err != nil {
			engine.Close()
			readings.Close()
			return err
		}
		publisher.Start()
		log.Infof("UDP: Streaming readings to %s every %s", sender.Target(), cfg.Transport.UDPSendInterval)
	}

	// CRITICAL: Start of real-time audio processing
	// The first call to StartInputStream triggers PortAudio to begin
	// calling the callback function, marking the start of the hot path
	if err := engine.StartInputStream(); err != nil {
		engine.Close()
		readings.Close()
		return err
	}

	recording := ""
	if cfg.Recording.Enabled {
		recording = cfg.Recording.OutputFile
		if recording == "" {
			recording = audio.RecordingName(cfg.Recording.OutputDir, time.Now())
		}
		if err := engine.StartRecording(recording); err != nil {
			log.Errorf("Audio: Recording disabled: %v", err)
			recording = ""
		}
	}

	// The UI owns the terminal; logs would tear the screen.
	restoreLogs := quietLogs()

	// A signal closes the reading channel, which ends the UI.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-signals; ok {
			ui.Close()
		}
	}()

	source := fmt.Sprintf("%d Hz, %s", sampleRate, cfg.Tuner.Notation)
	uiErr := tui.RunTuner(ui.C(), engine, source)

	signal.Stop(signals)
	close(signals)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// Close stops recording and the stream, then disposes the processor.
	if err := engine.Close(); err != nil {
		log.Errorf("Audio: Error closing engine: %v", err)
	}
	restoreLogs()
	if recording != "" {
		fmt.Printf("Recording saved to: %s\n", recording)
	}
	if publisher != nil {
		publisher.Stop()
	}
	if err := readings.Close(); err != nil {
		log.Warnf("Transport: %v", err)
	}
	if n := ui.Dropped(); n > 0 {
		log.Debugf("Tuner: UI dropped %d readings", n)
	}

	return uiErr
}

// quietLogs sends log output to tuner.log while the UI runs.
func quietLogs() (restore func()) {
	f, err := os.OpenFile("tuner.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return func() {}
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}
}
