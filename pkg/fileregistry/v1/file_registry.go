package fileregistry

import (
	"github.com/hashicorp/golang-lru/v2"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/fileregistry"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/kubescape/sysflow-agent/pkg/writer"
)

// maxIdleFiles bounds how many unreferenced files are kept between rotations.
const maxIdleFiles = 1024

var _ fileregistry.FileRegistry = (*FileRegistry)(nil)

type FileRegistry struct {
	files map[sysflow.FileOID]*fileregistry.FileObj
	// idle holds the files without open flows, least recently released first.
	idle    *lru.Cache[sysflow.FileOID, struct{}]
	writer  writer.Writer
	metrics metricsmanager.MetricsManager
}

func NewFileRegistry(w writer.Writer, metrics metricsmanager.MetricsManager) *FileRegistry {
	return newFileRegistry(w, metrics, maxIdleFiles)
}

func newFileRegistry(w writer.Writer, metrics metricsmanager.MetricsManager, idleSize int) *FileRegistry {
	f := &FileRegistry{
		files:   make(map[sysflow.FileOID]*fileregistry.FileObj),
		writer:  w,
		metrics: metrics,
	}
	f.idle, _ = lru.NewWithEvict[sysflow.FileOID, struct{}](idleSize, f.evict)
	return f
}

// evict drops a file that left the idle set, unless a flow took it back.
func (f *FileRegistry) evict(key sysflow.FileOID, _ struct{}) {
	if obj, ok := f.files[key]; ok && obj.Refs <= 0 {
		delete(f.files, key)
	}
}

func (f *FileRegistry) GetFile(ev *events.SysFlowEvent) *fileregistry.FileObj {
	if ev.File == nil || ev.File.Path == "" {
		return nil
	}
	cid := ""
	var containerID *string
	if ev.InContainer() {
		cid = ev.Container.ID
		containerID = &cid
	}
	key := sysflow.NewFileOID(cid, ev.File.Path)
	if obj, ok := f.files[key]; ok {
		return obj
	}
	obj := &fileregistry.FileObj{
		File: sysflow.File{
			State:          sysflow.StateCreated,
			OID:            key,
			TS:             ev.TS,
			RestrictedType: restrictedType(ev.File.Type),
			Path:           ev.File.Path,
			ContainerID:    containerID,
		},
	}
	f.files[key] = obj
	f.idle.Add(key, struct{}{})
	return obj
}

// restrictedType maps the resource type to the single-letter code used in
// file records: f(ile), d(ir), u(nix socket), p(ipe), ?(unknown).
func restrictedType(t string) string {
	switch t {
	case "", "file", "f":
		return "f"
	case "dir", "directory", "d":
		return "d"
	case "unix", "u":
		return "u"
	case "pipe", "fifo", "p":
		return "p"
	}
	return "?"
}

func (f *FileRegistry) ExportFile(key sysflow.FileOID) bool {
	obj, ok := f.files[key]
	if !ok {
		f.missing("ExportFile", key)
		return false
	}
	if obj.Written {
		return false
	}
	f.writer.WriteFile(&obj.File)
	obj.Written = true
	return true
}

func (f *FileRegistry) Ref(key sysflow.FileOID) {
	obj, ok := f.files[key]
	if !ok {
		f.missing("Ref", key)
		return
	}
	obj.Refs++
	f.idle.Remove(key)
}

func (f *FileRegistry) Deref(key sysflow.FileOID) {
	obj, ok := f.files[key]
	if !ok {
		f.missing("Deref", key)
		return
	}
	if obj.Refs > 0 {
		obj.Refs--
	}
	if obj.Refs == 0 {
		f.idle.Add(key, struct{}{})
	}
}

func (f *FileRegistry) SweepIdle() {
	f.idle.Purge()
	for key, obj := range f.files {
		if obj.Refs <= 0 {
			delete(f.files, key)
			continue
		}
		obj.Written = false
	}
}

func (f *FileRegistry) Size() int {
	return len(f.files)
}

func (f *FileRegistry) missing(op string, key sysflow.FileOID) {
	logger.L().Warning("FileRegistry."+op+" - file not found", helpers.String("fileOID", string(key)))
	f.metrics.ReportInconsistentReference("file")
}
