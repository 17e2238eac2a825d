package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iap_purchases_verified_total",
		Help: "Total number of successfully verified purchases",
	}, []string{"product_id"})

	PurchasesDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iap_purchases_duplicate_total",
		Help: "Total number of purchase submissions recovered as duplicate tokens",
	})

	PurchasesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iap_purchases_failed_total",
		Help: "Total number of failed purchase verifications",
	}, []string{"reason"})

	RoleUpgradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iap_role_upgrades_total",
		Help: "Total number of profile role upgrades applied",
	}, []string{"role"})

	CreditsGrantedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iap_credits_granted_total",
		Help: "Total number of credits granted to profiles",
	})

	VerifyPurchaseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iap_verify_purchase_latency_seconds",
		Help:    "Latency of the purchase verification flow",
		Buckets: prometheus.DefBuckets,
	})

	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iap_auth_failures_total",
		Help: "Total number of rejected authentication attempts",
	})

	AuditEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iap_audit_events_total",
		Help: "Total number of purchase events seen by the audit worker",
	}, []string{"outcome"})

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
