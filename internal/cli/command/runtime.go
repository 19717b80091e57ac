package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/yndnr/jobdesk-go/internal/cli/config"
	"github.com/yndnr/jobdesk-go/internal/cli/connection"
	"github.com/yndnr/jobdesk-go/internal/cli/navigation"
	"github.com/yndnr/jobdesk-go/internal/cli/output"
	"github.com/yndnr/jobdesk-go/internal/core/guard"
	"github.com/yndnr/jobdesk-go/internal/core/service"
	"github.com/yndnr/jobdesk-go/internal/core/session"
	"github.com/yndnr/jobdesk-go/internal/infra/confloader"
	"github.com/yndnr/jobdesk-go/internal/infra/shutdown"
	"github.com/yndnr/jobdesk-go/internal/infra/tlsroots"
	"github.com/yndnr/jobdesk-go/internal/server/portal"
	"github.com/yndnr/jobdesk-go/internal/storage"
	"github.com/yndnr/jobdesk-go/internal/telemetry/logger"
	"github.com/yndnr/jobdesk-go/internal/telemetry/metric"
	"github.com/yndnr/jobdesk-go/pkg/crypto/adaptive"
)

// shutdownTimeout bounds all cleanup hooks together.
const shutdownTimeout = 5 * time.Second

// RuntimeOptions configures NewRuntime.
type RuntimeOptions struct {
	Config     *config.CLIConfig
	ConfigPath string
	Stdout     io.Writer
	Stderr     io.Writer

	// KV replaces the engine selected by the config (tests).
	KV storage.KVEngine
}

// Runtime holds the wired components of one client process.
type Runtime struct {
	Config     *config.CLIConfig
	ConfigPath string
	Logger     *slog.Logger

	KV       storage.KVEngine
	Store    *session.Store
	Nav      *navigation.Navigator
	Router   *guard.Router
	Client   *connection.HTTPClient
	Manager  *service.AuthManager
	Metrics  *metric.Registry
	Flash    *portal.Flash
	ClientID string

	Shutdown *shutdown.Handler

	stdout io.Writer
	stderr io.Writer
	format output.Format
}

// NewRuntime wires every component and restores the saved session.
//
// Order:
//  1. Logger
//  2. Local storage and the session store (sealed when a secret is set)
//  3. Navigation, metrics and the HTTP client (with any extra CA roots)
//  4. Auth manager, hooked to the client's 401 signal
//  5. Restore
func NewRuntime(ctx context.Context, opts RuntimeOptions) (*Runtime, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	// 1. Logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: opts.ConfigPath,
		Logger:     log,
		Router:     guard.DefaultRouter(),
		Flash:      &portal.Flash{},
		Shutdown:   shutdown.NewHandler(shutdownTimeout, log),
		stdout:     stdout,
		stderr:     stderr,
		format:     format,
	}

	// 2. Local storage
	kv := opts.KV
	if kv == nil {
		kv, err = storage.Open(cfg.KVConfig(), log)
		if err != nil {
			return nil, fmt.Errorf("open local storage: %w", err)
		}
	}
	rt.KV = kv
	rt.Shutdown.OnShutdown("kv", func(context.Context) error { return kv.Close() })

	storeOpts := []session.Option{session.WithLogger(log)}
	if cfg.Auth.SealSecret != "" {
		c, err := adaptive.FromSecret([]byte(cfg.Auth.SealSecret), session.SealInfo)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("init token seal: %w", err)
		}
		storeOpts = append(storeOpts, session.WithCipher(c))
	}
	rt.Store = session.NewStore(kv, storeOpts...)

	// 3. Navigation, metrics, network
	rt.Nav = navigation.New(kv, log)
	rt.Nav.OnMove(func(from, to string) {
		log.Debug("navigated", "from", from, "to", to)
	})

	rt.Metrics = metric.NewRegistry()
	if err := rt.Metrics.Register(metric.NewKVCollector(kv)); err != nil {
		log.Warn("kv metrics unavailable", "error", err)
	}

	if id, err := connection.InstallationID(ctx, kv); err != nil {
		log.Warn("installation id unavailable", "error", err)
	} else {
		rt.ClientID = id
	}

	clientOpts := connection.ClientOptions{
		Timeout:   cfg.Auth.RequestTimeout,
		RateLimit: cfg.Auth.RateLimit,
		Burst:     int(cfg.Auth.RateLimit) + 1,
		ClientID:  rt.ClientID,
		Metrics:   rt.Metrics,
		Logger:    log,
	}
	if cfg.TLS.CAFile != "" {
		tr, err := tlsroots.Transport(cfg.TLS.CAFile)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("load tls.ca_file: %w", err)
		}
		clientOpts.Transport = tr
	}
	rt.Client = connection.NewHTTPClient(cfg.Server, clientOpts)

	// 4. Auth manager
	notifier := service.NotifierFunc(func(message string) {
		fmt.Fprintf(rt.stderr, "notice: %s\n", message)
		rt.Flash.Notify(message)
	})
	rt.Manager = service.NewAuthManager(
		rt.Store,
		connection.NewAuthBackend(rt.Client),
		rt.Nav,
		rt.Router,
		&service.AuthManagerConfig{
			GracePeriod: cfg.Auth.LogoutGrace,
			Logger:      log,
			Notifier:    notifier,
			Metrics:     rt.Metrics,
		},
	)
	rt.Client.SetTokenSource(rt.Manager.Token)
	rt.Client.OnUnauthorized(rt.Manager.HandleAuthExpired)

	if path := cfg.Metrics.Textfile; path != "" {
		rt.Shutdown.OnShutdown("metrics-textfile", func(context.Context) error {
			return rt.Metrics.WriteTextfile(path)
		})
	}

	// 5. Restore
	if err := rt.Manager.Restore(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return rt, nil
}

// Close runs the shutdown hooks once.
func (rt *Runtime) Close() error {
	return rt.Shutdown.Shutdown()
}

// Print renders data in the configured output format.
func (rt *Runtime) Print(data any) error {
	return output.NewFormatter(rt.format).Format(rt.stdout, data)
}

// Printf writes a plain status line to stdout, only in table mode so
// machine formats stay parseable.
func (rt *Runtime) Printf(format string, args ...any) {
	if rt.format == output.FormatTable {
		fmt.Fprintf(rt.stdout, format, args...)
	}
}

// WatchConfig reloads the log level when the config file changes. Used by
// the long-running shell and portal modes.
func (rt *Runtime) WatchConfig() {
	if rt.ConfigPath == "" {
		return
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.Logger))
	if err != nil {
		rt.Logger.Warn("config watcher unavailable", "error", err)
		return
	}
	if err := w.Watch(rt.ConfigPath); err != nil {
		_ = w.Stop()
		return
	}
	w.OnChange(func(path string) {
		cfg, err := config.Load(path, nil)
		if err != nil {
			rt.Logger.Warn("ignoring invalid config change", "path", path, "error", err)
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			rt.Logger.Warn("ignoring invalid log level", "level", cfg.Log.Level, "error", err)
			return
		}
		rt.Logger.Info("log level reloaded", "level", cfg.Log.Level)
	})
	w.StartAsync()
	rt.Shutdown.OnShutdown("config-watcher", func(context.Context) error { return w.Stop() })
}
