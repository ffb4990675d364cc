package sfprocessor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/config"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/kubescape/sysflow-agent/pkg/utils"
	"github.com/kubescape/sysflow-agent/pkg/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource replays a fixed script. A nil event with a nil error is an idle tick.
type sliceSource struct {
	events []*events.SysFlowEvent
	err    error
	pos    int
}

func (s *sliceSource) Next(_ context.Context) (*events.SysFlowEvent, error) {
	if s.pos >= len(s.events) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	if ev == nil {
		return nil, events.ErrTimeout
	}
	return ev, nil
}

func (s *sliceSource) Close() error {
	return nil
}

type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func testConfig() config.Config {
	return config.Config{
		IdleTimeout:          time.Second,
		MaintenanceInterval:  time.Second,
		FlowExpireInterval:   30 * time.Second,
		FlowIdleTimeout:      time.Minute,
		MaxAncestorDepth:     64,
		ProcessTableWarnSize: 1000,
	}
}

func newProcessor(cfg config.Config, src events.Source, step time.Duration) (*SysFlowProcessor, *writer.WriterMock, *metricsmanager.MetricsMock) {
	w := writer.NewWriterMock()
	metrics := metricsmanager.NewMetricsMock()
	clock := &fakeClock{now: time.Unix(1700000000, 0), step: step}
	p := NewSysFlowProcessor(cfg, src, w, metrics,
		WithClock(clock.Now),
		WithNameResolver(utils.NewStaticNameResolver(map[uint32]string{0: "root"}, nil)))
	return p, w, metrics
}

var (
	shell = &events.Thread{PID: 10, TID: 10, CloneTS: 100, Exe: "bash"}
	child = &events.Thread{PID: 11, TID: 11, CloneTS: 200, Exe: "bash", Parent: shell}
)

func ev(typ events.EventType, ts int64, t *events.Thread) *events.SysFlowEvent {
	return &events.SysFlowEvent{Type: typ, TS: ts, TID: t.PID, Thread: t}
}

func connect(ts int64, t *events.Thread) *events.SysFlowEvent {
	e := ev(events.ConnectEventType, ts, t)
	e.Net = &events.NetInfo{FD: 3, SIP: "10.0.0.1", SPort: 5000, DIP: "10.0.0.2", DPort: 80, Proto: 6}
	return e
}

func TestRunProcessesScript(t *testing.T) {
	execd := &events.Thread{PID: 11, TID: 11, CloneTS: 200, ExePath: "/usr/bin/curl", Parent: shell}
	src := &sliceSource{events: []*events.SysFlowEvent{
		ev(events.CloneEventType, 100, shell),
		ev(events.CloneEventType, 200, child),
		ev(events.ExecveEventType, 210, execd),
		connect(220, execd),
		ev(events.ExitEventType, 300, execd),
	}}
	p, w, metrics := newProcessor(testConfig(), src, 0)

	require.NoError(t, p.Run(context.Background()))

	require.NotEmpty(t, w.Records)
	assert.Equal(t, sysflow.HeaderRecord, w.Records[0].Type)
	procs := w.Processes()
	require.Len(t, procs, 3)
	assert.Equal(t, sysflow.StateModified, procs[2].State)

	var ops []sysflow.OpFlags
	for _, pe := range w.ProcessEvents() {
		ops = append(ops, pe.OpFlags)
	}
	assert.Equal(t, []sysflow.OpFlags{sysflow.OpClone, sysflow.OpClone, sysflow.OpExec, sysflow.OpExit}, ops)

	flows := w.OfType(sysflow.NetworkFlowRecord)
	require.Len(t, flows, 1)
	assert.True(t, flows[0].NetworkFlow.OpFlags.Has(sysflow.OpConnect|sysflow.OpTruncate))
	assert.Equal(t, int64(300), flows[0].NetworkFlow.EndTS)

	assert.Zero(t, p.processes.Size())
	assert.Equal(t, 2, metrics.EventCounter.Get(events.CloneEventType))
}

func TestRunRotatesAndReexports(t *testing.T) {
	src := &sliceSource{events: []*events.SysFlowEvent{
		ev(events.CloneEventType, 100, shell),
		connect(150, shell),
		nil,
		ev(events.CloneEventType, 200, child),
	}}
	p, w, _ := newProcessor(testConfig(), src, 0)
	w.Expired = true

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 1, w.Resets)
	procs := w.Processes()
	require.Len(t, procs, 3)
	assert.Equal(t, int64(10), procs[0].OID.Hpid)
	assert.Equal(t, int64(10), procs[1].OID.Hpid)
	assert.Equal(t, sysflow.StateReup, procs[1].State)
	assert.Equal(t, int64(11), procs[2].OID.Hpid)
}

func TestRunFailedRotationKeepsSegment(t *testing.T) {
	src := &sliceSource{events: []*events.SysFlowEvent{
		ev(events.CloneEventType, 100, shell),
		connect(150, shell),
		nil,
		nil,
		ev(events.CloneEventType, 200, child),
	}}
	p, w, _ := newProcessor(testConfig(), src, 0)
	w.Expired = true
	w.ResetErr = errors.New("disk full")

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 2, w.Resets)
	procs := w.Processes()
	require.Len(t, procs, 2)
	assert.Equal(t, int64(10), procs[0].OID.Hpid)
	assert.Equal(t, int64(11), procs[1].OID.Hpid)
}

func TestRunRejectsInvalidProcessIdentity(t *testing.T) {
	src := &sliceSource{events: []*events.SysFlowEvent{
		ev(events.CloneEventType, 100, &events.Thread{PID: 12, TID: 12, CloneTS: -1}),
		ev(events.CloneEventType, 110, shell),
	}}
	p, w, metrics := newProcessor(testConfig(), src, 0)

	require.NoError(t, p.Run(context.Background()))

	require.Len(t, w.Processes(), 1)
	assert.Equal(t, int64(10), w.Processes()[0].OID.Hpid)
	assert.Equal(t, int32(1), metrics.FailedEventCounter.Load())
}

func TestRunReclaimsExitedProcessesUnderLoad(t *testing.T) {
	src := &sliceSource{events: []*events.SysFlowEvent{
		ev(events.CloneEventType, 100, shell),
		ev(events.ExitEventType, 150, shell),
		ev(events.CloneEventType, 300, &events.Thread{PID: 30, TID: 30, CloneTS: 300}),
	}}
	p, _, metrics := newProcessor(testConfig(), src, 2*time.Second)

	require.NoError(t, p.Run(context.Background()))

	assert.Zero(t, metrics.ProcessTableSize.Load())
}

func TestRunFiltersHostEvents(t *testing.T) {
	inContainer := ev(events.CloneEventType, 200, child)
	inContainer.Container = &events.ContainerInfo{ID: "c1", Name: "web"}
	src := &sliceSource{events: []*events.SysFlowEvent{
		ev(events.CloneEventType, 100, shell),
		inContainer,
	}}
	cfg := testConfig()
	cfg.FilterContainers = true
	p, w, _ := newProcessor(cfg, src, 0)

	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, w.OfType(sysflow.ContainerRecord), 1)
	require.Len(t, w.ProcessEvents(), 1)
	assert.Equal(t, int64(11), w.ProcessEvents()[0].ProcOID.Hpid)
}

func TestRunSourceFailureDrainsThenFails(t *testing.T) {
	broken := errors.New("ring buffer lost")
	src := &sliceSource{
		events: []*events.SysFlowEvent{connect(100, shell)},
		err:    broken,
	}
	p, w, _ := newProcessor(testConfig(), src, 0)

	err := p.Run(context.Background())
	require.ErrorIs(t, err, broken)

	flows := w.OfType(sysflow.NetworkFlowRecord)
	require.Len(t, flows, 1)
	assert.True(t, flows[0].NetworkFlow.OpFlags.Has(sysflow.OpTruncate))
	assert.Zero(t, p.processes.Size())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &sliceSource{events: []*events.SysFlowEvent{ev(events.CloneEventType, 100, shell)}}
	p, w, _ := newProcessor(testConfig(), src, 0)

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, w.Processes())
	assert.Equal(t, 0, src.pos)
}

func TestRunReportsTableOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.ProcessTableWarnSize = 1
	src := &sliceSource{events: []*events.SysFlowEvent{
		connect(100, child),
		nil,
	}}
	p, _, metrics := newProcessor(cfg, src, 0)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, int32(1), metrics.TableOverflowCounter.Load())
}

func TestRunRejectsUnknownEvents(t *testing.T) {
	src := &sliceSource{events: []*events.SysFlowEvent{
		ev("mmap", 100, shell),
		{Type: events.CloneEventType, TS: 110},
	}}
	p, w, metrics := newProcessor(testConfig(), src, 0)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, int32(2), metrics.FailedEventCounter.Load())
	assert.Empty(t, w.Processes())
}
