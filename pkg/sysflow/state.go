package sysflow

// ObjectState is the lifecycle state carried by exported entity records.
type ObjectState string

const (
	StateCreated  ObjectState = "CREATED"
	StateModified ObjectState = "MODIFIED"
	StateReup     ObjectState = "REUP"
	StateExited   ObjectState = "EXITED"
)
