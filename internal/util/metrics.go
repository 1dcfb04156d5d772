package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_updated_total",
		Help: "Total number of orders updated",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order writes",
	}, []string{"reason"})

	OrderWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_write_latency_seconds",
		Help:    "Latency of order create/update transactions",
		Buckets: prometheus.DefBuckets,
	})

	OrderListLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_list_latency_seconds",
		Help:    "Latency of the order listing aggregation",
		Buckets: prometheus.DefBuckets,
	})

	SequenceAllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sequence_allocations_total",
		Help: "Total number of sequence values handed out",
	}, []string{"counter"})

	SequenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sequence_failures_total",
		Help: "Total number of failed sequence increments",
	}, []string{"counter"})

	CollectionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_collections_created_total",
		Help: "Total number of per-tenant collections created",
	}, []string{"kind"})

	AuditRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_audit_records_total",
		Help: "Total number of audit-trail records written",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
