package exporters

import (
	"fmt"
	"os"
	"time"

	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

type ExportersConfig struct {
	StdoutExporter     *bool               `mapstructure:"stdoutExporter"`
	HTTPExporterConfig *HTTPExporterConfig `mapstructure:"httpExporterConfig"`
	SyslogExporter     string              `mapstructure:"syslogExporterURL"`
	FileExporterConfig *FileExporterConfig `mapstructure:"fileExporterConfig"`
	CsvProcessPath     string              `mapstructure:"csvProcessExporterPath"`
}

// This file will contain the single point of contact for all exporters,
// the writer hands every record to the bus which fans it out.
type ExporterBus struct {
	// Exporters is a list of all exporters.
	exporters []Exporter
}

// InitExporters initializes all exporters. rotating tells the file exporter
// whether segments are time-bounded.
func InitExporters(exportersConfig ExportersConfig, fs afero.Fs, exporterID string, rotating bool) (*ExporterBus, error) {
	var exporters []Exporter
	if exportersConfig.FileExporterConfig != nil {
		fileExp, err := InitFileExporter(*exportersConfig.FileExporterConfig, fs, rotating, time.Now())
		if err != nil {
			return nil, fmt.Errorf("initializing file exporter: %w", err)
		}
		exporters = append(exporters, fileExp)
	}
	stdoutExp := InitStdoutExporter(exportersConfig.StdoutExporter)
	if stdoutExp != nil {
		exporters = append(exporters, stdoutExp)
	}
	syslogExp := InitSyslogExporter(exportersConfig.SyslogExporter, exporterID)
	if syslogExp != nil {
		exporters = append(exporters, syslogExp)
	}
	csvExp := InitCsvExporter(exportersConfig.CsvProcessPath, fs)
	if csvExp != nil {
		exporters = append(exporters, csvExp)
	}
	if exportersConfig.HTTPExporterConfig == nil {
		if httpURL := os.Getenv("HTTP_ENDPOINT_URL"); httpURL != "" {
			exportersConfig.HTTPExporterConfig = &HTTPExporterConfig{}
			exportersConfig.HTTPExporterConfig.URL = httpURL
		}
	}
	if exportersConfig.HTTPExporterConfig != nil {
		httpExp, err := InitHTTPExporter(*exportersConfig.HTTPExporterConfig, exporterID)
		if err != nil {
			logger.L().Error("failed to initialize http exporter", helpers.Error(err))
		} else {
			exporters = append(exporters, httpExp)
		}
	}

	if len(exporters) == 0 {
		return nil, fmt.Errorf("no exporters were initialized")
	}
	logger.L().Info("exporters initialized", helpers.Int("count", len(exporters)))

	return NewExporterBus(exporters...), nil
}

func NewExporterBus(exporters ...Exporter) *ExporterBus {
	return &ExporterBus{exporters: exporters}
}

// Export hands rec to every exporter. A failing exporter does not stop the
// others; the returned error names each one that failed.
func (e *ExporterBus) Export(rec sysflow.Record) error {
	var err error
	for _, exporter := range e.exporters {
		if exportErr := exporter.Export(rec); exportErr != nil {
			err = multierr.Append(err, &ExportError{Exporter: exporter.Name(), Err: exportErr})
		}
	}
	return err
}

func (e *ExporterBus) Rotate(now time.Time) error {
	var err error
	for _, exporter := range e.exporters {
		err = multierr.Append(err, exporter.Rotate(now))
	}
	return err
}

func (e *ExporterBus) Flush() error {
	var err error
	for _, exporter := range e.exporters {
		err = multierr.Append(err, exporter.Flush())
	}
	return err
}

func (e *ExporterBus) Close() error {
	var err error
	for _, exporter := range e.exporters {
		err = multierr.Append(err, exporter.Close())
	}
	return err
}

// ExportError ties an exporter failure to the exporter name.
type ExportError struct {
	Exporter string
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporter %s: %v", e.Exporter, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
