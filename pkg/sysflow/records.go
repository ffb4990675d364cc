package sysflow

import (
	"crypto/md5"
	"encoding/hex"
)

const HeaderVersion = 1000

type Header struct {
	Version   int64  `json:"version"`
	Exporter  string `json:"exporter"`
	SegmentID string `json:"segmentId"`
	StartTS   int64  `json:"startTs"`
}

type Container struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Image      string `json:"image"`
	ImageID    string `json:"imageId"`
	Type       string `json:"type"`
	Privileged bool   `json:"privileged"`
}

type Process struct {
	State       ObjectState `json:"state"`
	OID         OID         `json:"oid"`
	POID        *OID        `json:"poid,omitempty"`
	TS          int64       `json:"ts"`
	Exe         string      `json:"exe"`
	ExeArgs     string      `json:"exeArgs"`
	UID         uint32      `json:"uid"`
	UserName    string      `json:"userName"`
	GID         uint32      `json:"gid"`
	GroupName   string      `json:"groupName"`
	TTY         bool        `json:"tty"`
	ContainerID *string     `json:"containerId,omitempty"`
}

type ProcessEvent struct {
	OpFlags OpFlags  `json:"opFlags"`
	TS      int64    `json:"ts"`
	ProcOID OID      `json:"procOID"`
	TID     int64    `json:"tid"`
	Ret     int64    `json:"ret"`
	Args    []string `json:"args"`
}

type NetworkFlow struct {
	ProcOID       OID     `json:"procOID"`
	TS            int64   `json:"ts"`
	TID           int64   `json:"tid"`
	OpFlags       OpFlags `json:"opFlags"`
	EndTS         int64   `json:"endTs"`
	SIP           string  `json:"sip"`
	SPort         uint16  `json:"sport"`
	DIP           string  `json:"dip"`
	DPort         uint16  `json:"dport"`
	Proto         uint8   `json:"proto"`
	FD            int64   `json:"fd"`
	NumRRecvOps   int64   `json:"numRRecvOps"`
	NumWSendOps   int64   `json:"numWSendOps"`
	NumRRecvBytes int64   `json:"numRRecvBytes"`
	NumWSendBytes int64   `json:"numWSendBytes"`
}

type FileFlow struct {
	ProcOID       OID     `json:"procOID"`
	TS            int64   `json:"ts"`
	TID           int64   `json:"tid"`
	OpFlags       OpFlags `json:"opFlags"`
	OpenFlags     int64   `json:"openFlags"`
	EndTS         int64   `json:"endTs"`
	FileOID       FileOID `json:"fileOID"`
	FD            int64   `json:"fd"`
	NumRRecvOps   int64   `json:"numRRecvOps"`
	NumWSendOps   int64   `json:"numWSendOps"`
	NumRRecvBytes int64   `json:"numRRecvBytes"`
	NumWSendBytes int64   `json:"numWSendBytes"`
}

// FileOID is a content address for a file object: md5 over container id and path.
type FileOID string

func NewFileOID(containerID, path string) FileOID {
	sum := md5.Sum([]byte(containerID + "|" + path))
	return FileOID(hex.EncodeToString(sum[:]))
}

type File struct {
	State          ObjectState `json:"state"`
	OID            FileOID     `json:"oid"`
	TS             int64       `json:"ts"`
	RestrictedType string      `json:"restype"`
	Path           string      `json:"path"`
	ContainerID    *string     `json:"containerId,omitempty"`
}
