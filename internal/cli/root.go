// Package cli implements the glucostore command tree: opening the configured
// store, inspecting and editing collections, and recording readings.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"glucotrack/internal/config"
	"glucotrack/internal/core"
	"glucotrack/internal/observability"
)

type globalOptions struct {
	ConfigPath string
	Driver     string
	Verbose    bool
	Metrics    string
	Trace      bool
}

// app carries the flags and the per-invocation service.
type app struct {
	opts     globalOptions
	cfg      *config.Config
	cfgPath  string
	logger   *zap.Logger
	svc      *core.Service
	expvar   *observability.ExpvarMetricsRecorder
	registry *prometheus.Registry
}

// Execute runs the command line in args against a fresh command tree and
// closes the store afterwards, whether or not the command succeeded.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRoot()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if ferr := a.finish(stderr); err == nil {
		err = ferr
	}
	return err
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "glucostore",
		Short: "Inspect and edit the glucose tracker's data store",
		Long: `glucostore opens the configured storage backend (memory, fs, sqlite,
postgres or s3) and works on the collections kept in it: users, glucose
readings, runs, A1C estimates, lab results and preferences.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", "", "Path to config file (or set "+config.EnvConfigPath+")")
	flags.StringVar(&a.opts.Driver, "driver", "", "Storage driver override (memory|fs|sqlite|postgres|s3)")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Log at debug level")
	flags.StringVar(&a.opts.Metrics, "metrics", "", "Dump operation metrics to stderr (none|expvar|prometheus)")
	flags.BoolVar(&a.opts.Trace, "trace", false, "Write one JSON span per repository operation to stderr")

	root.AddCommand(
		newInitCmd(a),
		newCollectionsCmd(a),
		newFindCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newSummaryCmd(a),
		newUserCmd(a),
		newReadingCmd(a),
		newRunCmd(a),
		newLabCmd(a),
		newPrefsCmd(a),
		newConfigCmd(a),
	)
	return root, a
}

// loadConfig resolves the config file and applies flag overrides.
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, path, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		return err
	}
	if a.opts.Driver != "" {
		cfg.Storage.Driver = a.opts.Driver
	}
	if a.opts.Metrics != "" {
		cfg.Metrics = a.opts.Metrics
	}
	if a.opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg, a.cfgPath = cfg, path
	return nil
}

// service opens the store and builds the repositories on first use.
func (a *app) service(cmd *cobra.Command) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if err := a.loadConfig(); err != nil {
		return nil, err
	}
	zl, err := observability.NewWriterLogger(cmd.ErrOrStderr(), a.cfg.Logging.Level, a.cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	a.logger = zl
	logger := observability.NewZapLogger(zl)

	opts := []core.Option{core.WithLogger(logger)}
	switch a.cfg.Metrics {
	case config.MetricsExpvar:
		a.expvar = observability.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetricsRecorder(a.expvar))
	case config.MetricsPrometheus:
		a.registry = prometheus.NewRegistry()
		rec, err := observability.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(rec))
	}
	if a.opts.Trace {
		opts = append(opts, core.WithTracer(observability.NewJSONTracer(cmd.ErrOrStderr())))
	}

	ctx := commandContext(cmd)
	backend, err := core.OpenStore(ctx, a.cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	svc, err := core.NewService(ctx, backend, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

// finish dumps metrics and closes the store.
func (a *app) finish(w io.Writer) error {
	if a.svc == nil {
		return nil
	}
	defer func() {
		if a.logger != nil {
			_ = a.logger.Sync()
		}
	}()
	switch {
	case a.expvar != nil:
		if err := writeJSON(w, a.expvar.Snapshot()); err != nil {
			return err
		}
	case a.registry != nil:
		if err := observability.WriteText(w, a.registry); err != nil {
			return err
		}
	}
	err := a.svc.Close()
	a.svc = nil
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
