package dataflow

import (
	"time"

	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/processregistry"
)

const (
	DefaultFlowIdleTimeout = 60 * time.Second
)

type Config struct {
	// FlowIdleTimeout closes flows that saw no traffic for this long.
	FlowIdleTimeout time.Duration `mapstructure:"flowIdleTimeout"`
	// FlowInterval emits an interim record for long-lived flows. Zero emits on close only.
	FlowInterval time.Duration `mapstructure:"flowInterval"`
}

func (c Config) WithDefaults() Config {
	if c.FlowIdleTimeout <= 0 {
		c.FlowIdleTimeout = DefaultFlowIdleTimeout
	}
	return c
}

// DataFlowProcessor aggregates network and file operations into per-thread flows
// stored on the owning process record.
type DataFlowProcessor interface {
	HandleNetworkEvent(ev *events.SysFlowEvent)
	HandleFileEvent(ev *events.SysFlowEvent)
	// RemoveAndWriteFlowsForThread writes and releases the flows of tid, or of
	// every thread when tid is -1, truncated at endTS.
	RemoveAndWriteFlowsForThread(rec *processregistry.ProcessRecord, tid int64, endTS int64) int
	// CheckExpired writes idle flows and, with a flow interval, interim records.
	CheckExpired(nowTS int64) int
}
