package events

type EventType string

const (
	CloneEventType       EventType = "clone"
	ExecveEventType      EventType = "execve"
	ExitEventType        EventType = "exit"
	SetUIDEnterEventType EventType = "setuid_enter"
	SetUIDEventType      EventType = "setuid"
	AcceptEventType      EventType = "accept"
	ConnectEventType     EventType = "connect"
	SendEventType        EventType = "send"
	RecvEventType        EventType = "recv"
	OpenEventType        EventType = "open"
	ReadEventType        EventType = "read"
	WriteEventType       EventType = "write"
	CloseEventType       EventType = "close"
)

// Thread is the kernel view of a thread at the time of an event. For the
// subject of an event it describes the main thread of the process.
type Thread struct {
	PID         int64    `json:"pid"`
	TID         int64    `json:"tid"`
	CloneTS     int64    `json:"cloneTs"`
	Exe         string   `json:"exe"`
	ExePath     string   `json:"exePath"`
	Args        []string `json:"args"`
	UID         uint32   `json:"uid"`
	GID         uint32   `json:"gid"`
	TTY         bool     `json:"tty"`
	ContainerID string   `json:"containerId,omitempty"`
	Parent      *Thread  `json:"parent,omitempty"`
}

// ResolvedExe prefers the absolute exe path over the raw exe name.
func (t *Thread) ResolvedExe() string {
	if t.ExePath != "" {
		return t.ExePath
	}
	return t.Exe
}

// IsZero reports the degenerate identity of kernel idle threads.
func (t *Thread) IsZero() bool {
	return t.PID == 0 && t.CloneTS == 0
}

type ContainerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Image      string `json:"image"`
	ImageID    string `json:"imageId"`
	Type       string `json:"type"`
	Privileged bool   `json:"privileged"`
}

type NetInfo struct {
	FD    int64  `json:"fd"`
	SIP   string `json:"sip"`
	SPort uint16 `json:"sport"`
	DIP   string `json:"dip"`
	DPort uint16 `json:"dport"`
	Proto uint8  `json:"proto"`
	Bytes int64  `json:"bytes"`
}

type FileInfo struct {
	FD        int64  `json:"fd"`
	Path      string `json:"path"`
	Type      string `json:"type"`
	OpenFlags int64  `json:"openFlags"`
	Bytes     int64  `json:"bytes"`
}

// SysFlowEvent is a decoded system call event.
type SysFlowEvent struct {
	Type      EventType      `json:"type"`
	TS        int64          `json:"ts"`
	TID       int64          `json:"tid"`
	Ret       int64          `json:"ret"`
	Thread    *Thread        `json:"thread"`
	Container *ContainerInfo `json:"container,omitempty"`
	UID       *uint32        `json:"uid,omitempty"`
	Net       *NetInfo       `json:"net,omitempty"`
	File      *FileInfo      `json:"file,omitempty"`
}

// MainThread returns the main thread of the subject process.
func (e *SysFlowEvent) MainThread() *Thread {
	return e.Thread
}

func (e *SysFlowEvent) IsMainThread() bool {
	return e.Thread != nil && e.TID == e.Thread.PID
}

func (e *SysFlowEvent) InContainer() bool {
	return e.Container != nil && e.Container.ID != ""
}

// IsNetwork reports whether the event belongs to the network flow engine.
// Close events are routed by their payload.
func (e *SysFlowEvent) IsNetwork() bool {
	switch e.Type {
	case AcceptEventType, ConnectEventType, SendEventType, RecvEventType:
		return true
	case ReadEventType, WriteEventType, CloseEventType:
		return e.Net != nil
	}
	return false
}

func (e *SysFlowEvent) IsFile() bool {
	switch e.Type {
	case OpenEventType:
		return true
	case ReadEventType, WriteEventType, CloseEventType:
		return e.File != nil && e.Net == nil
	}
	return false
}
