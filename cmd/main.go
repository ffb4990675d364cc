package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/config"
	"github.com/kubescape/sysflow-agent/pkg/events"
	eventsv1 "github.com/kubescape/sysflow-agent/pkg/events/v1"
	"github.com/kubescape/sysflow-agent/pkg/exporters"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	metricprometheus "github.com/kubescape/sysflow-agent/pkg/metricsmanager/prometheus"
	"github.com/kubescape/sysflow-agent/pkg/sfprocessor"
	"github.com/kubescape/sysflow-agent/pkg/utils"
	"github.com/kubescape/sysflow-agent/pkg/writer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
)

// exitError carries the process exit code out of the command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

var (
	configDir string

	// flag name -> config key
	flagKeys = map[string]string{
		"input":             "source.path",
		"ordered":           "source.ordered",
		"output-dir":        "exporters.fileExporterConfig.dir",
		"file-prefix":       "exporters.fileExporterConfig.prefix",
		"file-duration":     "fileDuration",
		"exporter-id":       "exporterID",
		"filter-containers": "filterContainers",
		"log-level":         "logLevel",
	}

	rootCmd = &cobra.Command{
		Use:           "sysflow-agent",
		Short:         "Turns system call events into SysFlow process, event and flow records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindChangedFlags(cmd.Flags())
			return run(cmd.Context())
		},
	}
)

func init() {
	defaultConfigDir := "/etc/config"
	if envPath := os.Getenv("CONFIG_DIR"); envPath != "" {
		defaultConfigDir = envPath
	}
	flags := rootCmd.Flags()
	flags.StringVar(&configDir, "config-dir", defaultConfigDir, "Directory holding config.json")
	flags.StringP("input", "r", "-", "Event capture to replay, - for stdin")
	flags.Bool("ordered", false, "Reorder events by timestamp before processing")
	flags.StringP("output-dir", "w", "", "Directory for SysFlow output files")
	flags.StringP("file-prefix", "p", "", "Output file prefix")
	flags.DurationP("file-duration", "G", 0, "Rotate output files at this interval, 0 disables rotation")
	flags.StringP("exporter-id", "e", "local", "Exporter id stamped on every segment header")
	flags.BoolP("filter-containers", "c", false, "Drop events from outside containers")
	flags.String("log-level", "info", "Log level (debug, info, warning, error)")
}

// bindChangedFlags binds only the flags given on the command line so flag
// defaults never shadow the config file.
func bindChangedFlags(flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = viper.BindPFlag(key, f)
		}
	})
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return &exitError{code: utils.ExitCodeConfig, err: err}
	}
	if err := logger.L().SetLevel(cfg.LogLevel); err != nil {
		logger.L().Warning("invalid log level", helpers.String("level", cfg.LogLevel), helpers.Error(err))
	}
	logger.L().Info("starting sysflow agent",
		helpers.String("exporterID", cfg.ExporterID),
		helpers.String("input", cfg.Source.Path),
		helpers.String("fileDuration", cfg.FileDuration.String()))

	var metrics metricsmanager.MetricsManager
	if cfg.EnablePrometheusExporter {
		metrics = metricprometheus.NewPrometheusMetric(cfg.PrometheusAddress)
	} else {
		metrics = metricsmanager.NewMetricsNoop()
	}
	metrics.Start()
	defer metrics.Destroy()

	fs := afero.NewOsFs()
	bus, err := exporters.InitExporters(cfg.Exporters, fs, cfg.ExporterID, cfg.FileDuration > 0)
	if err != nil {
		return &exitError{code: utils.ExitCodeConfig, err: err}
	}
	w := writer.NewSysFlowWriter(bus, cfg.ExporterID, cfg.FileDuration, metrics)

	source, err := openSource(ctx, fs, cfg)
	if err != nil {
		_ = w.Close()
		return &exitError{code: utils.ExitCodeEventSource, err: err}
	}
	defer source.Close()

	processor := sfprocessor.NewSysFlowProcessor(cfg, source, w, metrics)
	runErr := processor.Run(ctx)
	if err := w.Close(); err != nil {
		logger.L().Error("closing writer", helpers.Error(err))
	}
	if runErr != nil {
		return &exitError{code: utils.ExitCodeEventSource, err: runErr}
	}
	return nil
}

// openSource replays the configured capture, through the ordering buffer when asked to.
func openSource(ctx context.Context, fs afero.Fs, cfg config.Config) (events.Source, error) {
	replay, err := eventsv1.NewReplaySource(fs, cfg.Source.Path)
	if err != nil {
		return nil, err
	}
	if !cfg.Source.Ordered {
		return replay, nil
	}
	queue := eventsv1.NewOrderedQueueSource(cfg.Source.CollectionInterval, cfg.IdleTimeout, cfg.Source.MaxBufferSize)
	if err := queue.Start(ctx); err != nil {
		_ = replay.Close()
		return nil, err
	}
	go func() {
		defer replay.Close()
		queue.Feed(ctx, replay)
	}()
	return queue, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		os.Exit(utils.ExitCodeSuccess)
	}

	logger.L().Error("sysflow agent failed", helpers.Error(err))
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	os.Exit(utils.ExitCodeError)
}
