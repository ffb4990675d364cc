package exporters

import (
	"encoding/json"
	"fmt"
	"log/syslog"
	"os"
	"strconv"
	"time"

	"github.com/aquilax/truncate"
	"github.com/crewjam/rfc5424"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	log "github.com/sirupsen/logrus"
)

// maxParamLen caps structured data values; the full record is in the message body.
const maxParamLen = 128

// SyslogExporter is an exporter that sends records to syslog
type SyslogExporter struct {
	writer     *syslog.Writer
	exporterID string
	hostname   string
}

// InitSyslogExporter initializes a new SyslogExporter
func InitSyslogExporter(syslogHost, exporterID string) *SyslogExporter {
	if syslogHost == "" {
		syslogHost = os.Getenv("SYSLOG_HOST")
		if syslogHost == "" {
			return nil
		}
	}

	// Set default protocol to UDP
	if os.Getenv("SYSLOG_PROTOCOL") == "" {
		os.Setenv("SYSLOG_PROTOCOL", "udp")
	}

	writer, err := syslog.Dial(os.Getenv("SYSLOG_PROTOCOL"), syslogHost, syslog.LOG_INFO, "sysflow")
	if err != nil {
		log.Printf("failed to initialize syslog exporter: %v", err)
		return nil
	}

	hostname, _ := os.Hostname()
	return &SyslogExporter{
		writer:     writer,
		exporterID: exporterID,
		hostname:   hostname,
	}
}

func (se *SyslogExporter) Name() string {
	return "syslog"
}

// Export sends a record to syslog (RFC 5424) - https://tools.ietf.org/html/rfc5424
func (se *SyslogExporter) Export(rec sysflow.Record) error {
	if rec.Type == sysflow.HeaderRecord {
		return nil
	}
	message, err := se.message(rec)
	if err != nil {
		return err
	}
	if _, err := message.WriteTo(se.writer); err != nil {
		return fmt.Errorf("failed to send record to syslog: %w", err)
	}
	return nil
}

func (se *SyslogExporter) message(rec sysflow.Record) (rfc5424.Message, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return rfc5424.Message{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	return rfc5424.Message{
		Priority:  rfc5424.Info,
		Timestamp: time.Now(),
		Hostname:  se.hostname,
		AppName:   "sysflow",
		ProcessID: strconv.Itoa(os.Getpid()),
		MessageID: string(rec.Type),
		StructuredData: []rfc5424.StructuredData{
			{
				ID:         fmt.Sprintf("sysflow@%d", os.Getpid()),
				Parameters: syslogParams(se.exporterID, rec),
			},
		},
		Message: body,
	}, nil
}

func syslogParams(exporterID string, rec sysflow.Record) []rfc5424.SDParam {
	params := []rfc5424.SDParam{
		{Name: "exporter", Value: exporterID},
		{Name: "type", Value: string(rec.Type)},
	}
	var oid *sysflow.OID
	var flags *sysflow.OpFlags
	switch rec.Type {
	case sysflow.ProcessRecord:
		oid = &rec.Process.OID
		params = append(params, rfc5424.SDParam{Name: "exe", Value: truncateParam(rec.Process.Exe)})
	case sysflow.ProcessEventRecord:
		oid = &rec.ProcessEvent.ProcOID
		flags = &rec.ProcessEvent.OpFlags
	case sysflow.NetworkFlowRecord:
		oid = &rec.NetworkFlow.ProcOID
		flags = &rec.NetworkFlow.OpFlags
	case sysflow.FileFlowRecord:
		oid = &rec.FileFlow.ProcOID
		flags = &rec.FileFlow.OpFlags
	case sysflow.ContainerRecord:
		params = append(params, rfc5424.SDParam{Name: "container_id", Value: rec.Container.ID})
	case sysflow.FileRecord:
		params = append(params, rfc5424.SDParam{Name: "path", Value: truncateParam(rec.File.Path)})
	}
	if oid != nil {
		params = append(params, rfc5424.SDParam{Name: "oid", Value: oid.String()})
	}
	if flags != nil {
		params = append(params, rfc5424.SDParam{Name: "op_flags", Value: flags.String()})
	}
	return params
}

func truncateParam(v string) string {
	return truncate.Truncate(v, maxParamLen, "...", truncate.PositionMiddle)
}

func (se *SyslogExporter) Rotate(_ time.Time) error {
	return nil
}

func (se *SyslogExporter) Flush() error {
	return nil
}

func (se *SyslogExporter) Close() error {
	return se.writer.Close()
}
