package exporters

import (
	"encoding/csv"
	"testing"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvExporter(t *testing.T) {
	fs := afero.NewMemMapFs()
	exporter := InitCsvExporter("/process.csv", fs)
	require.NotNil(t, exporter)

	poid := sysflow.OID{Hpid: 1, CreateTS: 10}
	require.NoError(t, exporter.Export(sysflow.NewProcessRecord(sysflow.Process{
		State:   sysflow.StateCreated,
		OID:     sysflow.OID{Hpid: 2, CreateTS: 20},
		POID:    &poid,
		Exe:     "/bin/ls",
		ExeArgs: "-la",
	})))
	require.NoError(t, exporter.Export(sysflow.NewProcessEventRecord(sysflow.ProcessEvent{
		OpFlags: sysflow.OpSetUID,
		ProcOID: sysflow.OID{Hpid: 2, CreateTS: 20},
		TID:     2,
		Args:    []string{"1000"},
	})))
	// flows are not part of the csv
	require.NoError(t, exporter.Export(sysflow.NewNetworkFlowRecord(sysflow.NetworkFlow{})))
	require.NoError(t, exporter.Close())

	f, err := fs.Open("/process.csv")
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvProcessHeaders, rows[0])
	assert.Equal(t, "process", rows[1][0])
	assert.Equal(t, "1", rows[1][5])
	assert.Equal(t, "/bin/ls", rows[1][9])
	assert.Equal(t, "SETUID", rows[2][1])
	assert.Equal(t, "1000", rows[2][16])
}

func TestInitCsvExporterDisabled(t *testing.T) {
	t.Setenv("EXPORTER_CSV_PROCESS_PATH", "")
	assert.Nil(t, InitCsvExporter("", afero.NewMemMapFs()))
}
