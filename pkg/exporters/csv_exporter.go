package exporters

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var csvProcessHeaders = []string{"Type", "OpFlags", "TS", "PID", "CreateTS", "ParentPID", "ParentCreateTS", "TID", "Ret", "Exe", "ExeArgs", "UID", "UserName", "GID", "GroupName", "ContainerID", "Args"}

// CsvExporter is an exporter that appends process records and process events to csv
type CsvExporter struct {
	CsvProcessPath string
	file           afero.File
	writer         *csv.Writer
}

// InitCsvExporter initializes a new CsvExporter
func InitCsvExporter(csvProcessPath string, fs afero.Fs) *CsvExporter {
	if csvProcessPath == "" {
		csvProcessPath = os.Getenv("EXPORTER_CSV_PROCESS_PATH")
		if csvProcessPath == "" {
			logrus.Debugf("csv process path not provided, process records will not be exported to csv")
			return nil
		}
	}

	_, statErr := fs.Stat(csvProcessPath)
	file, err := fs.OpenFile(csvProcessPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logrus.Errorf("failed to initialize csv exporter: %v", err)
		return nil
	}
	writer := csv.NewWriter(file)
	if os.IsNotExist(statErr) {
		if err := writer.Write(csvProcessHeaders); err != nil {
			logrus.Errorf("failed to write csv headers: %v", err)
		}
		writer.Flush()
	}

	return &CsvExporter{
		CsvProcessPath: csvProcessPath,
		file:           file,
		writer:         writer,
	}
}

func (ce *CsvExporter) Name() string {
	return "csv"
}

func (ce *CsvExporter) Export(rec sysflow.Record) error {
	var row []string
	switch rec.Type {
	case sysflow.ProcessRecord:
		p := rec.Process
		parentPID, parentTS := "", ""
		if p.POID != nil {
			parentPID = strconv.FormatInt(p.POID.Hpid, 10)
			parentTS = strconv.FormatInt(p.POID.CreateTS, 10)
		}
		containerID := ""
		if p.ContainerID != nil {
			containerID = *p.ContainerID
		}
		row = []string{
			string(rec.Type), string(p.State), strconv.FormatInt(p.TS, 10),
			strconv.FormatInt(p.OID.Hpid, 10), strconv.FormatInt(p.OID.CreateTS, 10), parentPID, parentTS,
			"", "", p.Exe, p.ExeArgs,
			fmt.Sprintf("%d", p.UID), p.UserName, fmt.Sprintf("%d", p.GID), p.GroupName, containerID, "",
		}
	case sysflow.ProcessEventRecord:
		e := rec.ProcessEvent
		row = []string{
			string(rec.Type), e.OpFlags.String(), strconv.FormatInt(e.TS, 10),
			strconv.FormatInt(e.ProcOID.Hpid, 10), strconv.FormatInt(e.ProcOID.CreateTS, 10), "", "",
			strconv.FormatInt(e.TID, 10), strconv.FormatInt(e.Ret, 10), "", "",
			"", "", "", "", "", strings.Join(e.Args, " "),
		}
	default:
		return nil
	}
	return ce.writer.Write(row)
}

func (ce *CsvExporter) Rotate(_ time.Time) error {
	return ce.Flush()
}

func (ce *CsvExporter) Flush() error {
	ce.writer.Flush()
	return ce.writer.Error()
}

func (ce *CsvExporter) Close() error {
	if err := ce.Flush(); err != nil {
		return err
	}
	return ce.file.Close()
}
