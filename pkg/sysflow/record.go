package sysflow

type RecordType string

const (
	HeaderRecord       RecordType = "header"
	ContainerRecord    RecordType = "container"
	ProcessRecord      RecordType = "process"
	FileRecord         RecordType = "file"
	ProcessEventRecord RecordType = "processEvent"
	NetworkFlowRecord  RecordType = "networkFlow"
	FileFlowRecord     RecordType = "fileFlow"
)

// Record is the envelope handed to exporters. Exporters own the value they
// receive; nothing in it aliases collector state.
type Record struct {
	Type         RecordType    `json:"type"`
	Header       *Header       `json:"header,omitempty"`
	Container    *Container    `json:"container,omitempty"`
	Process      *Process      `json:"process,omitempty"`
	File         *File         `json:"file,omitempty"`
	ProcessEvent *ProcessEvent `json:"processEvent,omitempty"`
	NetworkFlow  *NetworkFlow  `json:"networkFlow,omitempty"`
	FileFlow     *FileFlow     `json:"fileFlow,omitempty"`
}

func NewHeaderRecord(h Header) Record {
	return Record{Type: HeaderRecord, Header: &h}
}

func NewContainerRecord(c Container) Record {
	return Record{Type: ContainerRecord, Container: &c}
}

func NewProcessRecord(p Process) Record {
	p.POID = cloneOID(p.POID)
	p.ContainerID = cloneString(p.ContainerID)
	return Record{Type: ProcessRecord, Process: &p}
}

func NewFileRecord(f File) Record {
	f.ContainerID = cloneString(f.ContainerID)
	return Record{Type: FileRecord, File: &f}
}

func NewProcessEventRecord(e ProcessEvent) Record {
	if e.Args != nil {
		e.Args = append([]string(nil), e.Args...)
	}
	return Record{Type: ProcessEventRecord, ProcessEvent: &e}
}

func NewNetworkFlowRecord(f NetworkFlow) Record {
	return Record{Type: NetworkFlowRecord, NetworkFlow: &f}
}

func NewFileFlowRecord(f FileFlow) Record {
	return Record{Type: FileFlowRecord, FileFlow: &f}
}

func cloneOID(o *OID) *OID {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
