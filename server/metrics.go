package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitalvas/dciauth/dcisig"
)

const namespace = "dciauth"

type metrics struct {
	verifications *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Signature verifications by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	for _, c := range []prometheus.Collector{m.verifications, m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *metrics) observeRequest(method string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// verificationReasons maps rejection causes to metric labels. Order matters:
// the first match wins.
var verificationReasons = []struct {
	err    error
	reason string
}{
	{dcisig.ErrMissingAuthorization, "missing_authorization"},
	{dcisig.ErrMalformedCredential, "malformed_credential"},
	{dcisig.ErrMalformedAuthorization, "malformed_authorization"},
	{dcisig.ErrUnsupportedAlgorithm, "unsupported_algorithm"},
	{dcisig.ErrUnknownAccessKey, "unknown_access_key"},
	{dcisig.ErrMissingDate, "missing_date"},
	{dcisig.ErrMalformedDate, "malformed_date"},
	{dcisig.ErrMissingSignedHeader, "missing_signed_header"},
	{dcisig.ErrInvalidHeader, "invalid_header"},
	{dcisig.ErrInvalidMethod, "invalid_method"},
	{dcisig.ErrSignatureMismatch, "signature_mismatch"},
	{dcisig.ErrExpired, "expired"},
}

// Reason returns the short label for a verification error, "ok" for nil.
func Reason(err error) string {
	if err == nil {
		return "ok"
	}

	for _, r := range verificationReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}

	return "error"
}
