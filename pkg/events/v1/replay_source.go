package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/spf13/afero"
)

const maxLineSize = 4 * 1024 * 1024

var _ events.Source = (*ReplaySource)(nil)

// ReplaySource decodes one JSON event per line from a capture file or stdin.
type ReplaySource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// NewReplaySource opens path on fs. "-" reads from stdin.
func NewReplaySource(fs afero.Fs, path string) (*ReplaySource, error) {
	if path == "-" {
		return NewReplaySourceFromReader(os.Stdin), nil
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event capture %s: %w", path, err)
	}
	s := NewReplaySourceFromReader(f)
	s.closer = f
	logger.L().Info("replaying events", helpers.String("path", path))
	return s, nil
}

func NewReplaySourceFromReader(r io.Reader) *ReplaySource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &ReplaySource{scanner: scanner}
}

func (s *ReplaySource) Next(ctx context.Context) (*events.SysFlowEvent, error) {
	if ctx.Err() != nil {
		return nil, events.ErrTimeout
	}
	for s.scanner.Scan() {
		s.line++
		data := s.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var ev events.SysFlowEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decoding event at line %d: %w", s.line, err)
		}
		if ev.Thread == nil {
			return nil, fmt.Errorf("event at line %d has no thread", s.line)
		}
		return &ev, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	return nil, io.EOF
}

func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
