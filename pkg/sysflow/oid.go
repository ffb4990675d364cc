package sysflow

import (
	"cmp"
	"fmt"
)

// OID identifies a process instance. The creation timestamp disambiguates
// pid reuse by the kernel.
type OID struct {
	Hpid     int64 `json:"hpid"`
	CreateTS int64 `json:"createTS"`
}

// Sentinel keys reserved for open-addressing tables. No real process can carry
// them: pids are never negative and a negative clone timestamp is rejected.
var (
	EmptyOID   = OID{Hpid: -1, CreateTS: -1}
	DeletedOID = OID{Hpid: -2, CreateTS: -2}
)

// NewOID builds an OID, refusing values that collide with a sentinel.
func NewOID(pid, createTS int64) (OID, bool) {
	oid := OID{Hpid: pid, CreateTS: createTS}
	if oid.IsSentinel() || pid < 0 || createTS < 0 {
		return OID{}, false
	}
	return oid, true
}

// IsZero reports the degenerate identity used by the kernel for idle/swapper threads.
func (o OID) IsZero() bool {
	return o.Hpid == 0 && o.CreateTS == 0
}

func (o OID) IsSentinel() bool {
	return o == EmptyOID || o == DeletedOID
}

func (o OID) String() string {
	return fmt.Sprintf("%d:%d", o.Hpid, o.CreateTS)
}

// Compare orders by creation time, then pid. Used for deterministic iteration.
func (o OID) Compare(other OID) int {
	if c := cmp.Compare(o.CreateTS, other.CreateTS); c != 0 {
		return c
	}
	return cmp.Compare(o.Hpid, other.Hpid)
}
