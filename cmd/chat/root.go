package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/omochice/relay-chat/internal/config"
	"github.com/omochice/relay-chat/internal/logging"
	"github.com/omochice/relay-chat/internal/render"
	"github.com/omochice/relay-chat/internal/session"
	"github.com/omochice/relay-chat/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNeverOpened = errors.New("connection never opened")

// flagValues holds command-line overrides. Only flags the user set are applied.
type flagValues struct {
	configFile string
	envFile    string
	url        string
	host       string
	port       int
	name       string
	transport  string
	logLevel   string
	logFile    string
	plain      bool
}

func newRootCmd() *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "relay-chat",
		Short: "Chat with everyone connected to a WebSocket relay",
		Long: `relay-chat keeps one WebSocket connection to a message relay and
broadcasts what you type to every other connected client.

Messages travel as "<name>: <content>" text frames. Frames without the
": " separator are shown as coming from Anonymous.

Settings are read from defaults, a YAML file (--config), a .env file
(--env-file), CHAT_* environment variables, and finally flags.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, fv)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	bindFlags(cmd, &fv)
	return cmd
}

func bindFlags(cmd *cobra.Command, fv *flagValues) {
	flags := cmd.Flags()
	flags.StringVarP(&fv.configFile, "config", "c", "", "YAML config file")
	flags.StringVar(&fv.envFile, "env-file", ".env", "dotenv file, ignored when missing")
	flags.StringVar(&fv.url, "url", "", "relay URL, overrides --host and --port")
	flags.StringVar(&fv.host, "host", "", "relay host")
	flags.IntVarP(&fv.port, "port", "p", 0, "relay port")
	flags.StringVarP(&fv.name, "name", "n", "", "display name, asked for when empty")
	flags.StringVar(&fv.transport, "transport", "", "WebSocket library: gorilla, gobwas, or nhooyr")
	flags.StringVar(&fv.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&fv.logFile, "log-file", "", "log output path")
	flags.BoolVar(&fv.plain, "plain", false, "line mode instead of the terminal UI")
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(cmd *cobra.Command, fv flagValues) (config.Config, error) {
	flags := cmd.Flags()
	cfg, err := config.Loader{ConfigFile: fv.configFile, EnvFile: fv.envFile}.Load()
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("url") {
		cfg.URL = fv.url
	}
	if flags.Changed("host") {
		cfg.Host = fv.host
	}
	if flags.Changed("port") {
		cfg.Port = fv.port
	}
	if flags.Changed("name") {
		cfg.Name = fv.name
	}
	if flags.Changed("transport") {
		cfg.Transport = fv.transport
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = fv.logFile
	}
	if flags.Changed("plain") {
		cfg.Plain = fv.plain
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger discards logs bound for the terminal while the TUI owns it.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	if !cfg.Plain && (cfg.LogFile == "stderr" || cfg.LogFile == "stdout") {
		return zap.NewNop(), nil
	}
	return logging.New(cfg.LogLevel, cfg.LogFile)
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	dialer, err := newDialer(cfg.Transport)
	if err != nil {
		return err
	}

	endpoint := cfg.Endpoint()
	log.Info("Starting chat client",
		zap.String("endpoint", endpoint), zap.String("transport", cfg.Transport))

	s := session.Start(ctx, dialer, endpoint,
		session.WithLogger(log),
		session.WithLimits(session.Limits{
			MaxNameLength:    cfg.MaxNameLength,
			MaxContentLength: cfg.MaxContentLength,
		}),
		session.WithSendBuffer(cfg.SendBuffer),
	)
	defer func() { _ = s.Close() }()

	if cfg.Name != "" {
		if err := s.SetIdentity(cfg.Name); err != nil {
			return fmt.Errorf("cannot use name %q: %w", cfg.Name, err)
		}
	}

	if cfg.Plain {
		err = runPlain(ctx, s, in, out)
	} else {
		err = runTUI(ctx, s, cfg, in, out)
	}
	if err != nil {
		return err
	}

	if !s.Opened() {
		cause := s.Err()
		if cause == nil {
			cause = errNeverOpened
		}
		return fmt.Errorf("could not connect to %s: %w", endpoint, cause)
	}
	return nil
}

func runTUI(ctx context.Context, s *session.Session, cfg config.Config, in io.Reader, out io.Writer) error {
	model := tui.New(s, render.New(out, 80), cfg.MaxNameLength, cfg.MaxContentLength)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
