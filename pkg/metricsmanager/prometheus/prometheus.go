package metricsmanager

import (
	"net/http"

	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/kubescape/sysflow-agent/pkg/metricsmanager"
	"github.com/kubescape/sysflow-agent/pkg/sysflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	eventTypeLabel  = "event_type"
	recordTypeLabel = "record_type"
	kindLabel       = "kind"
	exporterLabel   = "exporter"
	tableLabel      = "table"
)

var _ metricsmanager.MetricsManager = (*PrometheusMetric)(nil)

type PrometheusMetric struct {
	address string

	eventCounter                 *prometheus.CounterVec
	failedEventCounter           prometheus.Counter
	recordCounter                *prometheus.CounterVec
	inconsistentReferenceCounter *prometheus.CounterVec
	tableSizeGauge               *prometheus.GaugeVec
	tableOverflowCounter         prometheus.Counter
	fileRotationCounter          prometheus.Counter
	exportErrorCounter           *prometheus.CounterVec
}

func NewPrometheusMetric(address string) *PrometheusMetric {
	return &PrometheusMetric{
		address: address,
		eventCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sysflow_agent_event_counter",
			Help: "The total number of events received from the event source",
		}, []string{eventTypeLabel}),
		failedEventCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sysflow_agent_event_failure_counter",
			Help: "The total number of events that could not be processed",
		}),
		recordCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sysflow_agent_record_counter",
			Help: "The total number of records written",
		}, []string{recordTypeLabel}),
		inconsistentReferenceCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sysflow_agent_inconsistent_reference_counter",
			Help: "The total number of references to objects missing from the registries",
		}, []string{kindLabel}),
		tableSizeGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sysflow_agent_table_size",
			Help: "Number of live entries per object table",
		}, []string{tableLabel}),
		tableOverflowCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sysflow_agent_process_table_overflow_counter",
			Help: "Number of maintenance ticks that found the process table above its warning size",
		}),
		fileRotationCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sysflow_agent_file_rotation_counter",
			Help: "The total number of output segment rotations",
		}),
		exportErrorCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sysflow_agent_export_error_counter",
			Help: "The total number of records an exporter failed to deliver",
		}, []string{exporterLabel}),
	}
}

func (p *PrometheusMetric) Start() {
	// Start prometheus metrics server
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		logger.L().Info("prometheus metrics server started", helpers.String("address", p.address), helpers.String("path", "/metrics"))
		logger.L().Fatal(http.ListenAndServe(p.address, nil).Error())
	}()
}

func (p *PrometheusMetric) Destroy() {
	prometheus.Unregister(p.eventCounter)
	prometheus.Unregister(p.failedEventCounter)
	prometheus.Unregister(p.recordCounter)
	prometheus.Unregister(p.inconsistentReferenceCounter)
	prometheus.Unregister(p.tableSizeGauge)
	prometheus.Unregister(p.tableOverflowCounter)
	prometheus.Unregister(p.fileRotationCounter)
	prometheus.Unregister(p.exportErrorCounter)
}

func (p *PrometheusMetric) ReportEvent(eventType events.EventType) {
	p.eventCounter.WithLabelValues(string(eventType)).Inc()
}

func (p *PrometheusMetric) ReportFailedEvent() {
	p.failedEventCounter.Inc()
}

func (p *PrometheusMetric) ReportRecordWritten(recordType sysflow.RecordType) {
	p.recordCounter.WithLabelValues(string(recordType)).Inc()
}

func (p *PrometheusMetric) ReportInconsistentReference(kind string) {
	p.inconsistentReferenceCounter.WithLabelValues(kind).Inc()
}

func (p *PrometheusMetric) ReportTableSizes(processes, containers, files int) {
	p.tableSizeGauge.WithLabelValues("process").Set(float64(processes))
	p.tableSizeGauge.WithLabelValues("container").Set(float64(containers))
	p.tableSizeGauge.WithLabelValues("file").Set(float64(files))
}

func (p *PrometheusMetric) ReportTableOverflow() {
	p.tableOverflowCounter.Inc()
}

func (p *PrometheusMetric) ReportFileRotation() {
	p.fileRotationCounter.Inc()
}

func (p *PrometheusMetric) ReportExportError(exporter string) {
	p.exportErrorCounter.WithLabelValues(exporter).Inc()
}
