package exporters

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPExporterBatches(t *testing.T) {
	bodyChan := make(chan []byte, 10)
	// Create a mock HTTP server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sysflow", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		bodyChan <- body
	}))
	defer server.Close()

	exporter, err := InitHTTPExporter(HTTPExporterConfig{URL: server.URL, BatchSize: 2}, "node-1")
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, exporter.Export(sysflow.NewProcessRecord(sysflow.Process{OID: sysflow.OID{Hpid: i, CreateTS: i}})))
	}
	require.NoError(t, exporter.Close())

	var lists []HTTPRecordsList
	for len(lists) < 2 {
		select {
		case body := <-bodyChan:
			var list HTTPRecordsList
			require.NoError(t, json.Unmarshal(body, &list))
			lists = append(lists, list)
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for request body")
		}
	}
	assert.Equal(t, "SysFlowRecords", lists[0].Kind)
	assert.Equal(t, "node-1", lists[0].Spec.Exporter)
	require.Len(t, lists[0].Spec.Records, 2)
	require.Len(t, lists[1].Spec.Records, 1)
	assert.Equal(t, int64(1), lists[0].Spec.Records[0].Process.OID.Hpid)
	assert.Equal(t, int64(3), lists[1].Spec.Records[0].Process.OID.Hpid)
}

func TestHTTPExporterReportsClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	exporter, err := InitHTTPExporter(HTTPExporterConfig{URL: server.URL, BatchSize: 1}, "node-1")
	require.NoError(t, err)

	_ = exporter.Export(sysflow.NewHeaderRecord(sysflow.Header{}))
	assert.Error(t, exporter.Close())
}

func TestHTTPExporterConfigValidate(t *testing.T) {
	config := HTTPExporterConfig{URL: "http://localhost"}
	require.NoError(t, config.Validate())
	assert.Equal(t, "POST", config.Method)
	assert.Equal(t, 5, config.TimeoutSeconds)
	assert.Equal(t, 500, config.BatchSize)
	assert.NotNil(t, config.Headers)

	assert.Error(t, (&HTTPExporterConfig{}).Validate())
	assert.Error(t, (&HTTPExporterConfig{URL: "http://localhost", Method: "GET"}).Validate())
}
