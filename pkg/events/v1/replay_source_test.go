package events

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capture = `{"type":"clone","ts":100,"tid":10,"thread":{"pid":10,"cloneTs":100,"exe":"bash","args":["-c","ls"]}}

{"type":"execve","ts":200,"tid":11,"thread":{"pid":11,"cloneTs":150,"exePath":"/bin/ls","parent":{"pid":10,"cloneTs":100}}}
`

func TestReplaySourceDecodesLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/capture.jsonl", []byte(capture), 0644))

	src, err := NewReplaySource(fs, "/capture.jsonl")
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()
	ev, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, events.CloneEventType, ev.Type)
	assert.Equal(t, []string{"-c", "ls"}, ev.Thread.Args)

	ev, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, events.ExecveEventType, ev.Type)
	require.NotNil(t, ev.Thread.Parent)
	assert.Equal(t, int64(10), ev.Thread.Parent.PID)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplaySourceRejectsGarbage(t *testing.T) {
	src := NewReplaySourceFromReader(strings.NewReader("{not json}\n"))
	_, err := src.Next(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
	assert.False(t, errors.Is(err, events.ErrTimeout))
}

func TestReplaySourceMissingThread(t *testing.T) {
	src := NewReplaySourceFromReader(strings.NewReader(`{"type":"clone","ts":1}` + "\n"))
	_, err := src.Next(context.Background())
	assert.ErrorContains(t, err, "no thread")
}

func TestReplaySourceCancelledContextTicks(t *testing.T) {
	src := NewReplaySourceFromReader(strings.NewReader(capture))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, events.ErrTimeout)
}

func TestReplaySourceMissingFile(t *testing.T) {
	_, err := NewReplaySource(afero.NewMemMapFs(), "/nope")
	assert.Error(t, err)
}
