package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Agent lifecycle metrics
	AgentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_agent_transitions_total",
			Help: "Total number of agent status transitions",
		},
		[]string{"agent", "status"}, // status: loading|active|inactive|error
	)

	ActiveAgents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conductor_active_agents",
			Help: "Current number of active agents per tenant",
		},
		[]string{"tenant"},
	)

	// Document processing metrics
	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_documents_processed_total",
			Help: "Total number of document processing runs",
		},
		[]string{"tenant", "status"}, // status: success|error
	)

	DocumentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conductor_document_duration_seconds",
			Help:    "End-to-end document processing duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"agent"},
	)

	Questions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_questions_total",
			Help: "Total number of question-answering runs",
		},
		[]string{"tenant", "status"}, // status: success|error
	)

	// Credential metrics
	CredentialChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_credential_checks_total",
			Help: "Total number of provider key verifications",
		},
		[]string{"provider", "status"}, // status: valid|invalid
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conductor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conductor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Agent lifecycle metrics
	prometheus.MustRegister(AgentTransitions)
	prometheus.MustRegister(ActiveAgents)

	// Document processing metrics
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(DocumentDuration)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(Questions)

	// Credential metrics
	prometheus.MustRegister(CredentialChecks)

	// HTTP metrics
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTransition records one agent status transition
func RecordTransition(agent, status string) {
	AgentTransitions.WithLabelValues(agent, status).Inc()
}

// SetActiveAgents records the current active-agent count for a tenant
func SetActiveAgents(tenant string, n int) {
	ActiveAgents.WithLabelValues(tenant).Set(float64(n))
}

// RecordDocument records one document processing run
func RecordDocument(tenant string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DocumentsProcessed.WithLabelValues(tenant, status).Inc()
	DocumentDuration.Observe(duration.Seconds())
}

// RecordStage records one pipeline stage execution
func RecordStage(agent string, duration time.Duration) {
	StageDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordQuestion records one question-answering run
func RecordQuestion(tenant string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	Questions.WithLabelValues(tenant, status).Inc()
}

// RecordCredentialCheck records one provider key verification
func RecordCredentialCheck(provider string, valid bool) {
	status := "valid"
	if !valid {
		status = "invalid"
	}

	CredentialChecks.WithLabelValues(provider, status).Inc()
}

// RecordHTTPRequest records one handled HTTP request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
