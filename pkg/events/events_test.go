package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvedExe(t *testing.T) {
	assert.Equal(t, "/usr/bin/bash", (&Thread{Exe: "bash", ExePath: "/usr/bin/bash"}).ResolvedExe())
	assert.Equal(t, "bash", (&Thread{Exe: "bash"}).ResolvedExe())
}

func TestIsMainThread(t *testing.T) {
	ev := &SysFlowEvent{TID: 10, Thread: &Thread{PID: 10}}
	assert.True(t, ev.IsMainThread())
	ev.TID = 11
	assert.False(t, ev.IsMainThread())
	assert.False(t, (&SysFlowEvent{TID: 1}).IsMainThread())
}

func TestRouting(t *testing.T) {
	tests := []struct {
		name    string
		event   SysFlowEvent
		network bool
		file    bool
	}{
		{name: "connect", event: SysFlowEvent{Type: ConnectEventType}, network: true},
		{name: "open", event: SysFlowEvent{Type: OpenEventType}, file: true},
		{name: "socket read", event: SysFlowEvent{Type: ReadEventType, Net: &NetInfo{}}, network: true},
		{name: "file write", event: SysFlowEvent{Type: WriteEventType, File: &FileInfo{}}, file: true},
		{name: "bare close", event: SysFlowEvent{Type: CloseEventType}},
		{name: "clone", event: SysFlowEvent{Type: CloneEventType}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.network, tt.event.IsNetwork())
			assert.Equal(t, tt.file, tt.event.IsFile())
		})
	}
}
