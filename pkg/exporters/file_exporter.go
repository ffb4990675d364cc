package exporters

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

type FileExporterConfig struct {
	// Dir is the directory segments are written to.
	Dir string `mapstructure:"dir"`
	// Prefix names the segment files. Required when rotation is disabled.
	Prefix string `mapstructure:"prefix"`
}

// FileName returns the segment path for a segment starting at now. The
// result always stays inside Dir, whatever the prefix contains.
func (config FileExporterConfig) FileName(now time.Time, rotating bool) (string, error) {
	ts := strconv.FormatInt(now.Unix(), 10)
	name := config.Prefix
	switch {
	case rotating && name != "":
		name += "." + ts
	case rotating:
		name = ts
	case name == "":
		return "", fmt.Errorf("a file prefix must be set when segment rotation is disabled")
	}
	return securejoin.SecureJoin(config.Dir, name)
}

// FileExporter writes records as JSON lines, one file per segment.
type FileExporter struct {
	config   FileExporterConfig
	fs       afero.Fs
	rotating bool

	path    string
	file    afero.File
	buf     *bufio.Writer
	encoder *json.Encoder
}

func InitFileExporter(config FileExporterConfig, fs afero.Fs, rotating bool, now time.Time) (*FileExporter, error) {
	if config.Dir == "" {
		config.Dir = "."
	}
	if err := fs.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", config.Dir, err)
	}
	exporter := &FileExporter{config: config, fs: fs, rotating: rotating}
	if err := exporter.open(now); err != nil {
		return nil, err
	}
	return exporter, nil
}

func (exporter *FileExporter) Name() string {
	return "file"
}

// Path returns the current segment path.
func (exporter *FileExporter) Path() string {
	return exporter.path
}

func (exporter *FileExporter) open(now time.Time) error {
	path, err := exporter.config.FileName(now, exporter.rotating)
	if err != nil {
		return err
	}
	if exporter.rotating {
		if path, err = exporter.unusedPath(path); err != nil {
			return err
		}
	}
	file, err := exporter.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("opening segment %s: %w", path, err)
	}
	exporter.path = path
	exporter.file = file
	exporter.buf = bufio.NewWriter(file)
	exporter.encoder = json.NewEncoder(exporter.buf)
	logger.L().Debug("FileExporter - opened segment", helpers.String("path", path))
	return nil
}

// unusedPath suffixes path with a counter while it names an existing segment,
// so two rotations within the same second never share a file.
func (exporter *FileExporter) unusedPath(path string) (string, error) {
	candidate := path
	for i := 1; ; i++ {
		exists, err := afero.Exists(exporter.fs, candidate)
		if err != nil {
			return "", fmt.Errorf("checking segment %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = path + "." + strconv.Itoa(i)
	}
}

func (exporter *FileExporter) Export(rec sysflow.Record) error {
	if exporter.encoder == nil {
		return fmt.Errorf("file exporter is closed")
	}
	return exporter.encoder.Encode(rec)
}

func (exporter *FileExporter) Rotate(now time.Time) error {
	if !exporter.rotating {
		return exporter.Flush()
	}
	if err := exporter.Close(); err != nil {
		return err
	}
	return exporter.open(now)
}

func (exporter *FileExporter) Flush() error {
	if exporter.buf == nil {
		return nil
	}
	return exporter.buf.Flush()
}

func (exporter *FileExporter) Close() error {
	if exporter.file == nil {
		return nil
	}
	err := multierr.Append(exporter.buf.Flush(), exporter.file.Close())
	exporter.file = nil
	exporter.buf = nil
	exporter.encoder = nil
	return err
}
