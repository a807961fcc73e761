package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/joho/godotenv"

	"github.com/Aayushyaash/Rag-chatbot/internal/capture"
	"github.com/Aayushyaash/Rag-chatbot/internal/config"
	"github.com/Aayushyaash/Rag-chatbot/internal/conversation"
	"github.com/Aayushyaash/Rag-chatbot/internal/gateway"
	"github.com/Aayushyaash/Rag-chatbot/internal/history"
	"github.com/Aayushyaash/Rag-chatbot/internal/metrics"
	"github.com/Aayushyaash/Rag-chatbot/internal/monitor"
	"github.com/Aayushyaash/Rag-chatbot/internal/playback"
	"github.com/Aayushyaash/Rag-chatbot/internal/visualizer"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "rag-voice-client"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load .env before the config reads environment overrides
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Client starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)
	logger.Info("Configuration loaded",
		slog.String("backend_url", cfg.Backend.URL),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("frame_size", cfg.Audio.FrameSize),
		slog.Bool("visualizer", cfg.Visualizer.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics(nil)

	// Initialize components
	device := capture.NewPortAudioDevice(logger)
	controller := capture.NewController(device, logger)

	client, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
	}, logger)
	if err != nil {
		logger.Error("Failed to create backend client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	player := playback.NewBeepPlayer(logger)
	store := history.NewStore()
	view := newTerminalView(os.Stdout)

	// Capability probes: without working capture and playback the voice
	// entry point is disabled, but the rest of the client stays up
	voiceEnabled := true
	if err := device.Probe(); err != nil {
		logger.Error("Audio capture unavailable", slog.String("error", err.Error()))
		voiceEnabled = false
	}
	if voiceEnabled {
		if err := player.Probe(); err != nil {
			logger.Error("Audio playback unavailable", slog.String("error", err.Error()))
			voiceEnabled = false
		}
	}

	// Visualizer factory: one visualizer per capture session
	var visFactory conversation.VisualizerFactory
	if cfg.Visualizer.Enabled {
		renderer := visualizer.NewBarRenderer(os.Stdout)
		visFactory = func(source conversation.CaptureSession) conversation.Visualizer {
			return visualizer.New(source, renderer, visualizer.Config{
				Bands:      cfg.Visualizer.Bands,
				RefreshHz:  cfg.Visualizer.RefreshHz,
				WindowSize: cfg.Visualizer.WindowSize,
				SampleRate: cfg.Audio.SampleRate,
			}, logger)
		}
	}

	machine, err := conversation.NewMachine(conversation.Deps{
		Capturer:      conversation.NewCapturer(controller),
		Gateway:       client,
		Player:        player,
		Store:         store,
		View:          view,
		Observer:      appMetrics,
		NewVisualizer: visFactory,
		Constraints: capture.Constraints{
			SampleRate:       cfg.Audio.SampleRate,
			Channels:         cfg.Audio.Channels,
			FrameSize:        cfg.Audio.FrameSize,
			EchoCancellation: cfg.Capture.EchoCancellation,
			NoiseSuppression: cfg.Capture.NoiseSuppression,
			AutoGainControl:  cfg.Capture.AutoGainControl,
			CodecPreference:  cfg.Capture.CodecPreference,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("Failed to create conversation machine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize monitor HTTP server (if enabled)
	var monitorServer *monitor.HTTPServer
	if cfg.Monitor.Enabled {
		monitorServer = monitor.NewHTTPServer(cfg.Monitor, logger, cfg, monitor.Sources{
			Machine:  machine,
			Capture:  controller,
			Gateway:  client,
			Playback: player,
			Store:    store,
		}, appMetrics, nil)
		if err := monitorServer.Start(); err != nil {
			logger.Error("Failed to start monitor server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Warn early when the backend is unreachable; the client still starts
	if err := client.Health(context.Background()); err != nil {
		logger.Warn("Backend health check failed", slog.String("error", err.Error()))
		view.Notify(conversation.NoticeError, "Backend is not reachable yet. Exchanges will fail until it is.")
	}

	printBanner(voiceEnabled)
	if !voiceEnabled {
		_, message := conversation.ClassifyFailure(capture.ErrDeviceUnavailable)
		view.Notify(conversation.NoticeError, "Voice is unavailable in this environment: "+message)
	}

	// Keyboard events feed the main loop
	keyEvents, err := openKeyboard()
	if err != nil {
		logger.Error("Failed to open keyboard", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer keyboard.Close()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Client started successfully")

	running := true
	for running {
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			running = false

		case event, ok := <-keyEvents:
			if !ok {
				running = false
				break
			}
			switch {
			case event.Key == keyboard.KeyEsc || event.Rune == 'q':
				running = false
			case event.Key == keyboard.KeySpace || event.Key == keyboard.KeyEnter:
				if !voiceEnabled {
					view.Notify(conversation.NoticeError, "Voice is unavailable in this environment.")
					continue
				}
				toggleListening(machine, logger)
			case event.Rune == 'c':
				machine.ClearHistory()
			}
		}
	}

	logger.Info("Starting graceful shutdown...")

	// Stop monitor first (stop accepting new requests)
	if monitorServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := monitorServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitor server", slog.String("error", err.Error()))
		}
	}

	// Close the machine: cancels in-flight exchanges and releases capture
	if err := machine.Close(); err != nil {
		logger.Error("Error closing conversation machine", slog.String("error", err.Error()))
	}

	// Final statistics
	machineStats := machine.GetStats()
	gatewayStats := client.GetStats()
	logger.Info("Final client statistics",
		slog.Uint64("exchanges_started", machineStats.ExchangesStarted),
		slog.Uint64("exchanges_completed", machineStats.ExchangesCompleted),
		slog.Uint64("exchanges_failed", machineStats.ExchangesFailed),
		slog.Float64("gateway_success_rate", gatewayStats.SuccessRate),
	)

	logger.Info("Client stopped")
}

// keyEvent is one key press from the terminal
type keyEvent struct {
	Rune rune
	Key  keyboard.Key
}

// openKeyboard starts the key reader goroutine
func openKeyboard() (<-chan keyEvent, error) {
	if err := keyboard.Open(); err != nil {
		return nil, err
	}

	events := make(chan keyEvent)
	go func() {
		defer close(events)
		for {
			r, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			events <- keyEvent{Rune: r, Key: key}
		}
	}()
	return events, nil
}

// toggleListening flips between listening and idle on the toggle key.
// Machine failures reach the user through its View; here the error only
// feeds the log.
func toggleListening(machine *conversation.Machine, logger *slog.Logger) {
	var err error
	if machine.State() == conversation.StateListening {
		err = machine.StopListening()
	} else {
		err = machine.StartListening()
	}

	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrNotReady), errors.Is(err, conversation.ErrNotListening):
		// Mid-exchange presses race the state check and land on the guards
		logger.Debug("Toggle ignored", slog.String("reason", err.Error()))
	default:
		logger.Warn("Toggle failed", slog.String("error", err.Error()))
	}
}

func printBanner(voiceEnabled bool) {
	fmt.Println("RAG Voice Client")
	if voiceEnabled {
		fmt.Println("  space/enter  start or stop listening")
	}
	fmt.Println("  c            clear conversation")
	fmt.Println("  q/esc        quit")
	fmt.Println()
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
