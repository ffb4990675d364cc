package writer

import (
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
)

// Writer is the record sink used by the registries and processors. Write
// methods copy their argument; callers may keep mutating their own values.
type Writer interface {
	Initialize(now time.Time) error
	WriteContainer(c *sysflow.Container)
	WriteProcess(p *sysflow.Process)
	WriteFile(f *sysflow.File)
	WriteProcessEvent(e *sysflow.ProcessEvent)
	WriteNetworkFlow(f *sysflow.NetworkFlow)
	WriteFileFlow(f *sysflow.FileFlow)
	// IsExpired reports whether the current segment has outlived the rotation interval.
	IsExpired(now time.Time) bool
	// Reset closes the current segment and starts a new one with a fresh header.
	Reset(now time.Time) error
	// NumRecords is the number of records written to the current segment.
	NumRecords() int64
	Close() error
}
