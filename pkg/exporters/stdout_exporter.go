package exporters

import (
	"os"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	log "github.com/sirupsen/logrus"
)

type StdoutExporter struct {
	logger *log.Logger
}

func InitStdoutExporter(useStdout *bool) *StdoutExporter {
	if useStdout == nil {
		useStdout = new(bool)
		*useStdout = os.Getenv("STDOUT_ENABLED") != "false"
	}
	if !*useStdout {
		return nil
	}

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	return &StdoutExporter{
		logger: logger,
	}
}

func (exporter *StdoutExporter) Name() string {
	return "stdout"
}

func (exporter *StdoutExporter) Export(rec sysflow.Record) error {
	fields := log.Fields{"type": rec.Type}
	switch rec.Type {
	case sysflow.HeaderRecord:
		fields["header"] = rec.Header
	case sysflow.ContainerRecord:
		fields["container"] = rec.Container
	case sysflow.ProcessRecord:
		fields["process"] = rec.Process
	case sysflow.FileRecord:
		fields["file"] = rec.File
	case sysflow.ProcessEventRecord:
		fields["processEvent"] = rec.ProcessEvent
		fields["opFlags"] = rec.ProcessEvent.OpFlags.String()
	case sysflow.NetworkFlowRecord:
		fields["networkFlow"] = rec.NetworkFlow
		fields["opFlags"] = rec.NetworkFlow.OpFlags.String()
	case sysflow.FileFlowRecord:
		fields["fileFlow"] = rec.FileFlow
		fields["opFlags"] = rec.FileFlow.OpFlags.String()
	}
	exporter.logger.WithFields(fields).Info(string(rec.Type))
	return nil
}

func (exporter *StdoutExporter) Rotate(_ time.Time) error {
	return nil
}

func (exporter *StdoutExporter) Flush() error {
	return nil
}

func (exporter *StdoutExporter) Close() error {
	return nil
}
