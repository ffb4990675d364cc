package exporters

import (
	"strings"
	"testing"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mcuadros/go-syslog.v2"
)

func setupServer(t *testing.T, address string) (*syslog.Server, syslog.LogPartsChannel) {
	channel := make(syslog.LogPartsChannel, 100)
	handler := syslog.NewChannelHandler(channel)

	server := syslog.NewServer()
	server.SetFormat(syslog.Automatic)
	server.SetHandler(handler)
	// Due to permission issues, we can't listen on port 514 on the CI.
	require.NoError(t, server.ListenUDP(address))
	require.NoError(t, server.Boot())
	go server.Wait()

	return server, channel
}

func TestSyslogExporter(t *testing.T) {
	server, channel := setupServer(t, "127.0.0.1:40001")
	defer server.Kill()

	t.Setenv("SYSLOG_PROTOCOL", "udp")
	exporter := InitSyslogExporter("127.0.0.1:40001", "node-1")
	require.NotNil(t, exporter)
	defer exporter.Close()

	// headers are not sent
	require.NoError(t, exporter.Export(sysflow.NewHeaderRecord(sysflow.Header{})))
	require.NoError(t, exporter.Export(sysflow.NewProcessEventRecord(sysflow.ProcessEvent{
		OpFlags: sysflow.OpExec,
		ProcOID: sysflow.OID{Hpid: 12, CreateTS: 300},
	})))

	select {
	case logParts := <-channel:
		assert.NotNil(t, logParts["content"])
		assert.NotEmpty(t, logParts["content"])
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for syslog message")
	}
}

func TestInitSyslogExporterDisabled(t *testing.T) {
	t.Setenv("SYSLOG_HOST", "")
	assert.Nil(t, InitSyslogExporter("", "node-1"))
}

func TestSyslogParams(t *testing.T) {
	params := syslogParams("node-1", sysflow.NewNetworkFlowRecord(sysflow.NetworkFlow{
		ProcOID: sysflow.OID{Hpid: 5, CreateTS: 6},
		OpFlags: sysflow.OpConnect | sysflow.OpClose,
	}))
	values := map[string]string{}
	for _, p := range params {
		values[p.Name] = p.Value
	}
	assert.Equal(t, "node-1", values["exporter"])
	assert.Equal(t, "networkFlow", values["type"])
	assert.Equal(t, "5:6", values["oid"])
	assert.Equal(t, "CONNECT|CLOSE", values["op_flags"])
}

func TestSyslogParamsTruncateLongValues(t *testing.T) {
	long := "/" + strings.Repeat("a", 300)
	params := syslogParams("node-1", sysflow.NewFileRecord(sysflow.File{Path: long}))
	for _, p := range params {
		if p.Name == "path" {
			assert.LessOrEqual(t, len(p.Value), maxParamLen)
			assert.Contains(t, p.Value, "...")
			return
		}
	}
	t.Fatal("path parameter missing")
}
