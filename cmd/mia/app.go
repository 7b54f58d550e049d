package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atinylittleshell/mia/internal/appupdate"
	"github.com/atinylittleshell/mia/internal/batch"
	"github.com/atinylittleshell/mia/internal/config"
	"github.com/atinylittleshell/mia/internal/console"
	"github.com/atinylittleshell/mia/internal/core"
	"github.com/atinylittleshell/mia/internal/health"
	"github.com/atinylittleshell/mia/internal/history"
	"github.com/atinylittleshell/mia/internal/interpreter"
	"github.com/atinylittleshell/mia/internal/render"
	"github.com/atinylittleshell/mia/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// cli holds what the commands share. Init builds it lazily so commands that
// only touch local files never open the history database.
type cli struct {
	configPath string
	serverURL  string

	cfg        config.Config
	logger     *zap.Logger
	client     *interpreter.Client
	history    *history.HistoryManager
	controller *session.Controller
	ready      bool
}

// LoadConfig reads the config file and applies the --server override.
func (c *cli) LoadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		path = core.ConfigFile()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if c.serverURL != "" {
		cfg.ServerURL = c.serverURL
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// Init loads the configuration and connects the logger, client, history and controller.
func (c *cli) Init(ctx context.Context) error {
	if c.ready {
		return nil
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := initializeLogger(cfg)
	if err != nil {
		return err
	}
	c.logger = logger
	logger.Info("-------- new mia session --------", zap.Any("args", os.Args), zap.String("server", cfg.ServerURL))

	client, err := interpreter.NewClient(interpreter.ClientConfig{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	c.client = client

	opts := session.Options{
		Interpreter: client,
		Resolver: session.Resolver{
			Command: cfg.Confirm.Command,
			Flag:    cfg.Confirm.Flag,
			Marker:  cfg.Confirm.Marker,
		},
		Logger: logger,
	}
	if cfg.History.Enabled {
		historyManager, err := history.NewHistoryManager(core.HistoryFile(), cfg.History.Limit)
		if err != nil {
			// history is a convenience; the console works without it
			logger.Warn("failed to open history", zap.Error(err))
		} else {
			c.history = historyManager
			opts.Recorder = historyManager
		}
	}

	controller, err := session.NewController(opts)
	if err != nil {
		return err
	}
	c.controller = controller
	c.ready = true
	return nil
}

// Close releases the history database and flushes the log.
func (c *cli) Close() {
	if c.history != nil {
		if err := c.history.Close(); err != nil && c.logger != nil {
			c.logger.Warn("failed to close history", zap.Error(err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func initializeLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logLevel := zap.NewAtomicLevelAt(level)
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Logs only go to file to avoid interfering with the Bubble Tea UI.
	// Use `tail -f ~/.mia/mia.log` to monitor logs in real-time.
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{core.LogFile()}
	loggerConfig.ErrorOutputPaths = []string{core.LogFile()}

	return loggerConfig.Build()
}

// RunConsole starts the interactive console and blocks until it exits.
func (c *cli) RunConsole(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prober, err := health.NewProber(health.Options{
		Checker:          c.client,
		Interval:         c.cfg.HealthInterval,
		MinServerVersion: c.cfg.MinServerVersion,
		Logger:           c.logger,
	})
	if err != nil {
		return err
	}
	prober.Start(ctx)
	defer prober.Stop()

	if c.cfg.UpdateCheck {
		appupdate.HandleSelfUpdate(BUILD_VERSION, c.logger, appupdate.DefaultUpdater{})
	}

	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width, height = 80, 24
	}

	cfg := console.Config{
		Controller: c.controller,
		Backend:    c.client,
		Prober:     prober,
		Welcome:    c.welcome(width),
		Context:    ctx,
		Width:      width,
		Height:     height,
		Logger:     c.logger,
	}
	if c.history != nil {
		cfg.History = c.history
	}

	model, err := console.New(cfg)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func (c *cli) welcome(width int) string {
	text := render.Welcome(render.WelcomeInfo{
		Version:       BUILD_VERSION,
		ServerURL:     c.cfg.ServerURL,
		LatestVersion: appupdate.PendingUpdate(BUILD_VERSION),
	}, width, time.Now())

	if appupdate.ShouldShowWhatsNew(BUILD_VERSION) {
		text += "\n" + appupdate.WhatsNewMessage(BUILD_VERSION)
	}
	if BUILD_VERSION != "dev" {
		if err := appupdate.UpdateVersionMarker(BUILD_VERSION); err != nil {
			c.logger.Debug("failed to update version marker", zap.Error(err))
		}
	}
	return text
}

type batchFlags struct {
	policy string
	step   bool
	// in answers prompts; nil when stdin is not a terminal.
	in io.Reader
}

// RunBatch runs script to completion without the console.
func (c *cli) RunBatch(ctx context.Context, out io.Writer, script string, flags batchFlags) error {
	policy, err := resolvePolicy(flags.policy, flags.in != nil)
	if err != nil {
		return err
	}
	if flags.step && flags.in == nil {
		return fmt.Errorf("--step needs a terminal on stdin")
	}

	opts := batch.Options{
		Controller: c.controller,
		Out:        out,
		In:         flags.in,
		Policy:     policy,
		Step:       flags.step,
		Width:      terminalWidth(os.Stdout),
		Logger:     c.logger,
	}
	if isTerminal(os.Stderr) {
		opts.Spinner = render.NewSpinner(os.Stderr)
	}

	runner, err := batch.NewRunner(opts)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, script)
	c.logger.Info("batch run finished",
		zap.Int("rounds", result.Rounds),
		zap.Int("approved", result.Approved),
		zap.Int("denied", result.Denied),
		zap.Error(err),
	)
	return err
}

// resolvePolicy defaults to asking when someone can answer and to denying otherwise.
func resolvePolicy(name string, interactive bool) (batch.ConfirmPolicy, error) {
	if name == "" {
		if interactive {
			return batch.PolicyAsk, nil
		}
		return batch.PolicyDeny, nil
	}

	policy, err := batch.ParsePolicy(name)
	if err != nil {
		return "", err
	}
	if policy == batch.PolicyAsk && !interactive {
		return "", fmt.Errorf("policy ask needs a terminal on stdin; use --policy approve or deny")
	}
	return policy, nil
}

// readScript reads the script at path, or from stdin when path is "-".
func readScript(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read script from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script file: %w", err)
	}
	return string(data), nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of f, or zero when it is not a terminal.
func terminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
