// Mystery Host: countdown and spoken announcements for a murder mystery
// game night.
//
// Usage:
//
//	mysteryhost [-config host.yaml] [-provider gemini|openai] [-http :8080] [-no-audio] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/mysteryhost/internal/config"
	"github.com/hammamikhairi/mysteryhost/internal/conversation"
	"github.com/hammamikhairi/mysteryhost/internal/display"
	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/engine"
	"github.com/hammamikhairi/mysteryhost/internal/httpapi"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
	"github.com/hammamikhairi/mysteryhost/internal/observability"
	"github.com/hammamikhairi/mysteryhost/internal/speech"
	"github.com/hammamikhairi/mysteryhost/internal/storage"
)

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".mysteryhost-logs/host.log", "file to write logs to (use \"stderr\" to log to console)")
	configPath := flag.String("config", "", "optional YAML settings file")
	provider := flag.String("provider", speech.ProviderGemini, "speech backend: gemini or openai")
	voice := flag.String("voice", "", "voice name (default depends on provider)")
	httpAddr := flag.String("http", "", "serve the control API on this address, e.g. :8080")
	noAudio := flag.Bool("no-audio", false, "log what would play instead of opening the sound card")
	diskCache := flag.Bool("disk-cache", true, "persist synthesized audio to disk")
	cacheDir := flag.String("cache-dir", ".mysteryhost-cache", "directory for the persistent audio cache")
	duration := flag.Int("duration", engine.DefaultDuration, "initial countdown in seconds")
	speed := flag.Float64("speed", domain.DefaultSpeed, "initial playback speed")
	flag.Parse()

	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// oto and net/http log through the stdlib logger.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly win over the file and env.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "provider":
			cfg.Provider = *provider
		case "voice":
			cfg.Voice = *voice
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "disk-cache":
			cfg.DiskCache = *diskCache
		case "cache-dir":
			cfg.CacheDir = *cacheDir
		case "duration":
			cfg.DurationSeconds = *duration
		case "speed":
			cfg.Speed = *speed
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synth, err := newSynthesizer(cfg, log.Named("tts"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	opener := speech.OpenOto(log.Named("audio"))
	if *noAudio {
		opener = speech.OpenDiscard(log.Named("audio"), false)
	}
	player := speech.NewPlayer(opener, log.Named("player"))

	metrics := observability.NewMetrics("mysteryhost")
	history := storage.NewMemoryHistory(cfg.HistorySize, log.Named("history"))
	var cacheOpts []speech.CacheOption
	if k, ok := synth.(interface{ CacheKey() string }); ok {
		cacheOpts = append(cacheOpts, speech.WithCacheNamespace(k.CacheKey()))
	}
	cache := speech.NewAudioCache(cfg.CacheDir, cfg.DiskCache, log.Named("cache"), cacheOpts...)

	speaker := speech.NewSpeaker(synth, player, log.Named("speaker"),
		speech.WithVoice(cfg.Voice),
		speech.WithTone(cfg.Tone),
		speech.WithSynthesisTimeout(cfg.SynthesisTimeout),
		speech.WithCache(cache),
		speech.WithHistory(history),
		speech.WithMetrics(metrics),
	)

	ui := display.NewUI()
	notifier := conversation.NewCLINotifier(log.Named("notify"), ui)

	eng, err := engine.New(speaker, notifier, log.Named("engine"),
		engine.WithDuration(cfg.DurationSeconds),
		engine.WithSpeed(cfg.Speed),
		engine.WithPresets(cfg.PresetSeconds()),
		engine.WithLines(cfg.Lines),
		engine.WithPlayer(player),
		engine.WithMetrics(metrics),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	// Warm the cache with the fixed lines so alerts start without a
	// network round trip.
	lines := cfg.Lines
	go speaker.Prefetch(ctx, lines.OneMinute, lines.TimeUp, lines.Discussion, lines.Vote)

	var srv *http.Server
	var api *httpapi.Server
	if cfg.HTTPAddr != "" {
		api = httpapi.New(eng, history, log.Named("http"),
			httpapi.WithAllowedOrigins(cfg.AllowedOrigins),
			httpapi.WithMetrics(metrics),
		)
		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("control API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("control API: %v", err)
			}
		}()
	}

	app := &cliApp{
		engine: eng,
		parser: conversation.NewKeywordParser(log.Named("parser")),
		log:    log,
		ui:     ui,
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit. Space starts or pauses the timer."))
	fmt.Println(display.BannerStyle.Render("  Sound may need a key press on some systems before the first line plays."))
	if cfg.HTTPAddr != "" {
		fmt.Println(display.BannerStyle.Render("  Remote control on " + cfg.HTTPAddr))
	}
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	if err := ui.Run(eng); err != nil {
		log.Error("display: %v", err)
	}
	cancel()

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("control API shutdown: %v", err)
		}
		stop()
		api.Close()
	}

	hits, misses := cache.Stats()
	log.Info("exiting (announcements=%d, cache hits=%d misses=%d)", history.Len(), hits, misses)
}

// newSynthesizer picks the speech backend named in cfg.
func newSynthesizer(cfg config.Config, log *logger.Logger) (domain.Synthesizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case speech.ProviderGemini:
		key := os.Getenv(speech.EnvGeminiKey)
		if key == "" {
			return nil, fmt.Errorf("set %s to use the gemini backend", speech.EnvGeminiKey)
		}
		var opts []speech.GeminiOption
		if cfg.Voice != "" {
			opts = append(opts, speech.WithGeminiVoice(cfg.Voice))
		}
		if cfg.Model != "" {
			opts = append(opts, speech.WithGeminiModel(cfg.Model))
		}
		c := speech.NewGeminiClient(key, log, opts...)
		log.Info("speech backend: gemini (voice=%s)", c.Voice())
		return c, nil

	case speech.ProviderOpenAI:
		key := os.Getenv(speech.EnvOpenAIKey)
		if key == "" {
			return nil, fmt.Errorf("set %s to use the openai backend", speech.EnvOpenAIKey)
		}
		var opts []speech.OpenAIOption
		if cfg.Voice != "" {
			opts = append(opts, speech.WithOpenAIVoice(cfg.Voice))
		}
		if cfg.Model != "" {
			opts = append(opts, speech.WithOpenAIModel(cfg.Model))
		}
		c := speech.NewOpenAIClient(key, log, opts...)
		log.Info("speech backend: openai (voice=%s)", c.Voice())
		return c, nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
