// Package observability provides structured-logging context, OpenTelemetry metrics
// (Prometheus exporter) and tracing for the query API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount        = "http.server.request_count"
	MetricNameRequestDuration     = "http.server.duration"
	MetricNameRequestBodyTooLarge = "http_request_body_too_large_total"
	MetricNameQueries             = "nlsql_queries_total"
	MetricNameQueryDuration       = "nlsql_query_duration_seconds"
	MetricNameFallthroughs        = "nlsql_strategy_fallthroughs_total"
	MetricNameRetrievalFailures   = "nlsql_retrieval_failures_total"
	MetricNameWriteBacks          = "nlsql_knowledge_write_backs_total"
	MetricNameCacheHits           = "nlsql_cache_hits_total"
	MetricNameCacheMisses         = "nlsql_cache_misses_total"
)

// Attribute keys.
const (
	AttrStrategy = "strategy"
	AttrOutcome  = "outcome"
	AttrCache    = "cache"
)

var allowedStrategies = map[string]bool{
	"exact_retrieval":  true,
	"llm_with_context": true,
	"llm_alone":        true,
	"pattern_fallback": true,
	"none":             true,
}

var allowedQueryOutcomes = map[string]bool{
	"success":          true,
	"generation_error": true,
	"execution_error":  true,
}

var allowedWriteBackOutcomes = map[string]bool{
	"stored": true,
	"failed": true,
}

var allowedCacheNames = map[string]bool{
	"question_embedding": true,
}

// normalize returns v if allowed, otherwise "other", keeping label cardinality bounded.
func normalize(v string, allowed map[string]bool) string {
	if allowed[v] {
		return v
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return normalize(name, allowedCacheNames)
}
