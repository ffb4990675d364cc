package exporters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/panjf2000/ants/v2"
)

type HTTPExporterConfig struct {
	// URL is the URL to send the HTTP request to
	URL string `json:"url" mapstructure:"url"`
	// Headers is a map of headers to send in the HTTP request
	Headers map[string]string `json:"headers" mapstructure:"headers"`
	// Timeout is the timeout for the HTTP request
	TimeoutSeconds int `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	// Method is the HTTP method to use for the HTTP request
	Method string `json:"method" mapstructure:"method"`
	// BatchSize is the number of records sent per request
	BatchSize int `json:"batchSize" mapstructure:"batchSize"`
	// MaxRetries bounds delivery attempts per batch
	MaxRetries uint `json:"maxRetries" mapstructure:"maxRetries"`
}

// HTTPExporter posts batches of records. Batches are built on the processing
// goroutine and handed, complete, to a single background sender so delivery
// order is preserved and the processing loop never waits on the network.
type HTTPExporter struct {
	config     HTTPExporterConfig
	exporterID string
	httpClient *http.Client
	pool       *ants.Pool

	batch   []sysflow.Record
	segment int

	errMu   sync.Mutex
	sendErr error
}

// HTTPRecordsList is the body of one POST: a batch of records for one exporter.
type HTTPRecordsList struct {
	Kind       string              `json:"kind"`
	ApiVersion string              `json:"apiVersion"`
	Spec       HTTPRecordsListSpec `json:"spec"`
}

type HTTPRecordsListSpec struct {
	Exporter string           `json:"exporter"`
	Segment  int              `json:"segment"`
	Records  []sysflow.Record `json:"records"`
}

func (config *HTTPExporterConfig) Validate() error {
	if config.Method == "" {
		config.Method = "POST"
	} else if config.Method != "POST" && config.Method != "PUT" {
		return fmt.Errorf("method must be POST or PUT")
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 5
	}
	if config.BatchSize == 0 {
		config.BatchSize = 500
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}
	if config.URL == "" {
		return fmt.Errorf("URL is required")
	}
	return nil
}

// InitHTTPExporter initializes an HTTPExporter with the given URL, headers, timeout, and method
func InitHTTPExporter(config HTTPExporterConfig, exporterID string) (*HTTPExporter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, fmt.Errorf("creating http sender pool: %w", err)
	}

	return &HTTPExporter{
		config:     config,
		exporterID: exporterID,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		pool:  pool,
		batch: make([]sysflow.Record, 0, config.BatchSize),
	}, nil
}

func (exporter *HTTPExporter) Name() string {
	return "http"
}

func (exporter *HTTPExporter) Export(rec sysflow.Record) error {
	exporter.batch = append(exporter.batch, rec)
	if len(exporter.batch) >= exporter.config.BatchSize {
		return exporter.Flush()
	}
	return exporter.lastError()
}

func (exporter *HTTPExporter) Rotate(_ time.Time) error {
	err := exporter.Flush()
	exporter.segment++
	return err
}

// Flush submits the pending batch to the sender. Delivery errors surface on
// a later call.
func (exporter *HTTPExporter) Flush() error {
	if len(exporter.batch) == 0 {
		return exporter.lastError()
	}
	list := HTTPRecordsList{
		Kind:       "SysFlowRecords",
		ApiVersion: "sysflow.kubescape.io/v1",
		Spec: HTTPRecordsListSpec{
			Exporter: exporter.exporterID,
			Segment:  exporter.segment,
			Records:  exporter.batch,
		},
	}
	exporter.batch = make([]sysflow.Record, 0, exporter.config.BatchSize)

	if err := exporter.pool.Submit(func() {
		if err := exporter.send(list); err != nil {
			logger.L().Error("HTTPExporter - failed to deliver records", helpers.Error(err),
				helpers.Int("records", len(list.Spec.Records)))
			exporter.setError(err)
		}
	}); err != nil {
		return fmt.Errorf("submitting http batch: %w", err)
	}
	return exporter.lastError()
}

func (exporter *HTTPExporter) Close() error {
	err := exporter.Flush()
	if releaseErr := exporter.pool.ReleaseTimeout(time.Duration(exporter.config.TimeoutSeconds) * time.Second * time.Duration(exporter.config.MaxRetries+1)); releaseErr != nil {
		logger.L().Warning("HTTPExporter - sender did not drain in time", helpers.Error(releaseErr))
	}
	if err == nil {
		err = exporter.lastError()
	}
	return err
}

func (exporter *HTTPExporter) send(list HTTPRecordsList) error {
	// create the JSON representation of the HTTPRecordsList struct
	bodyBytes, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal HTTPRecordsList: %w", err)
	}

	_, err = backoff.Retry(context.Background(), func() (struct{}, error) {
		return struct{}{}, exporter.post(bodyBytes)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(exporter.config.MaxRetries))
	return err
}

func (exporter *HTTPExporter) post(bodyBytes []byte) error {
	req, err := http.NewRequest(exporter.config.Method,
		exporter.config.URL+"/v1/sysflow", bytes.NewReader(bodyBytes))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range exporter.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := exporter.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	// discard the body
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.L().Debug("HTTPExporter - failed to clear response body", helpers.Error(err))
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("received status code %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received status code %d", resp.StatusCode)
	}
	return nil
}

func (exporter *HTTPExporter) setError(err error) {
	exporter.errMu.Lock()
	defer exporter.errMu.Unlock()
	exporter.sendErr = err
}

// lastError reports and clears the most recent delivery failure.
func (exporter *HTTPExporter) lastError() error {
	exporter.errMu.Lock()
	defer exporter.errMu.Unlock()
	err := exporter.sendErr
	exporter.sendErr = nil
	return err
}
