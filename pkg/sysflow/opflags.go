package sysflow

import "strings"

// OpFlags is the operation bitset attached to events and flows.
type OpFlags uint32

const (
	OpClone OpFlags = 1 << iota
	OpExec
	OpExit
	OpSetUID
	OpSetNS
	OpAccept
	OpConnect
	OpOpen
	OpRead
	OpWrite
	OpClose
	OpTruncate
)

var opFlagNames = []struct {
	flag OpFlags
	name string
}{
	{OpClone, "CLONE"},
	{OpExec, "EXEC"},
	{OpExit, "EXIT"},
	{OpSetUID, "SETUID"},
	{OpSetNS, "SETNS"},
	{OpAccept, "ACCEPT"},
	{OpConnect, "CONNECT"},
	{OpOpen, "OPEN"},
	{OpRead, "READ"},
	{OpWrite, "WRITE"},
	{OpClose, "CLOSE"},
	{OpTruncate, "TRUNCATE"},
}

func (f OpFlags) Has(flag OpFlags) bool {
	return f&flag == flag
}

func (f OpFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for _, n := range opFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}
