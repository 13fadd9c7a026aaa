package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"cv_backend/core"
	"cv_backend/docprocessor"
	"cv_backend/extraction"
	"cv_backend/logging"
	"cv_backend/metrics"
	"cv_backend/ocrprocessor"
	"cv_backend/pdfprocessor"
	"cv_backend/shutdown"
	"cv_backend/textcleaner"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds everything a command needs. setup fills it in once flags are parsed.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	envFile string
	verbose bool
	noColor bool

	cfg          *core.Config
	logger       *logging.Logger
	manager      *shutdown.Manager
	store        *metrics.Store
	orchestrator *extraction.Orchestrator

	code int
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cv_backend",
		Short: "Extract plain text from CV uploads",
		Long: `cv_backend turns PDF, Word and image CVs into plain text.

Digital PDFs are read from their text layer; scanned pages and images go
through OCR with several preprocessing variants, and the best-scoring
result is kept.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load configuration from this .env file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(newExtractCmd(a), newScoreCmd(a), newVersionCmd(a))
	return root
}

// setup loads configuration and wires the pipeline. Commands that need it call
// it from PreRunE.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := core.LoadConfig(a.envFile)
	if err != nil {
		a.code = core.ExitCodeError
		return fmt.Errorf("configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := newLogger(cfg, a.verbose)
	if err != nil {
		a.code = core.ExitCodeError
		return err
	}
	a.logger = logger

	a.manager = shutdown.NewManager(logger)
	a.manager.Start()
	a.manager.Register("logger sync", shutdown.PriorityFinal, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	a.store = metrics.NewStore(metrics.StoreConfig{
		HistoryCapacity: cfg.MetricsHistory,
		Version:         core.Version,
	}, time.Now())

	orch, err := a.buildOrchestrator()
	if err != nil {
		a.code = core.ExitCodeError
		return err
	}
	a.orchestrator = orch

	logger.Debug("Configuration loaded",
		zap.String("ocr_backend", cfg.OCRBackend),
		zap.String("ocr_language", cfg.OCRLanguage),
		zap.Int("max_attempts", cfg.MaxAttempts),
		zap.Int("early_stop_score", cfg.EarlyStopScore),
		zap.Int("fallback_score", cfg.FallbackScore),
		zap.Int("parallelism", cfg.Parallelism),
		zap.Duration("timeout", cfg.Timeout),
		zap.Float64("pdf_render_dpi", cfg.PDFRenderDPI),
		zap.String("rules_file", cfg.RulesFile),
		zap.Bool("dev_mode", cfg.DevMode),
	)
	return nil
}

func newLogger(cfg *core.Config, verbose bool) (*logging.Logger, error) {
	opts := logging.Options{
		Development: cfg.DevMode,
		FilePath:    cfg.LogFile,
		File:        logging.DefaultFileWriterConfig(),
	}
	if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
		opts.Level = &level
	}
	if verbose {
		level := zapcore.DebugLevel
		opts.Level = &level
	}
	logger, err := logging.NewLogger(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func (a *app) buildOrchestrator() (*extraction.Orchestrator, error) {
	cfg := a.cfg

	normalizer := textcleaner.NewDefaultNormalizer()
	if cfg.RulesFile != "" {
		extra, err := textcleaner.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("normalizer rules: %w", err)
		}
		normalizer = textcleaner.NewNormalizer(extra...)
		a.logger.Info("Loaded normalizer rules", zap.String("file", cfg.RulesFile), zap.Int("rules", len(extra)))
	}

	runner, err := a.buildRunner()
	if err != nil {
		return nil, err
	}

	pdfConfig := pdfprocessor.DefaultExtractorConfig()
	pdfConfig.MaxOCRPages = cfg.PDFMaxOCRPages
	pdf := pdfprocessor.NewExtractor(pdfConfig,
		pdfprocessor.LedongTextLayer{},
		pdfprocessor.NewFitzRasterizer(cfg.PDFRenderDPI),
		a.logger,
	)

	return extraction.New(extraction.ConfigFromCore(cfg), extraction.Dependencies{
		Runner:     runner,
		Normalizer: normalizer,
		PDF:        pdf,
		Word:       docprocessor.NewExtractor(a.logger),
		Metrics:    a.store,
		Logger:     a.logger,
	}), nil
}

// buildRunner selects the OCR engine. A Tesseract build without the engine
// compiled in still runs; every OCR attempt then fails as an engine failure.
func (a *app) buildRunner() (ocrprocessor.Runner, error) {
	cfg := a.cfg
	switch cfg.OCRBackend {
	case core.BackendVision:
		transport := http.DefaultTransport.(*http.Transport).Clone()
		a.manager.Register("vision transport", shutdown.PriorityEngines, func(context.Context) error {
			transport.CloseIdleConnections()
			return nil
		})

		visionConfig := ocrprocessor.DefaultVisionConfig()
		if cfg.VisionEndpoint != "" {
			visionConfig.Endpoint = cfg.VisionEndpoint
		}
		runner, err := ocrprocessor.NewVisionRunner(cfg.GoogleVisionKey, &http.Client{Transport: transport}, a.logger, visionConfig)
		if err != nil {
			return nil, fmt.Errorf("vision backend: %w", err)
		}
		a.logger.Debug("Using Google Vision", zap.String("key", ocrprocessor.MaskAPIKey(cfg.GoogleVisionKey)))
		return runner, nil
	default:
		runner := ocrprocessor.NewTesseractRunner(cfg.OCRLanguage, a.logger)
		if !runner.Available() {
			a.logger.Warn("Tesseract is not compiled into this binary; images and scanned pages cannot be read",
				zap.String("hint", "rebuild with -tags tesseract or set OCR_BACKEND=vision"),
			)
		}
		return runner, nil
	}
}

// fail records a worse exit code.
func (a *app) fail(code int) {
	a.code = core.WorseExitCode(a.code, code)
}

func (a *app) exitCode() int {
	if a.manager != nil && a.manager.Interrupted() {
		return a.manager.ExitCode()
	}
	return a.code
}

func (a *app) close() error {
	if a.manager == nil {
		return nil
	}
	return a.manager.Shutdown()
}
