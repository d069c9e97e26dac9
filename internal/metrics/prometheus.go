package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// FormatPrometheus formats metrics in Prometheus text format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func FormatPrometheus(snap Snapshot) string {
	var sb strings.Builder

	// Process uptime
	sb.WriteString("# HELP assist_uptime_seconds Time since the delivery service started\n")
	sb.WriteString("# TYPE assist_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("assist_uptime_seconds %d\n", snap.Uptime))
	sb.WriteString("\n")

	// Deliveries by transport
	sb.WriteString("# HELP assist_deliveries_total Completed deliveries by transport\n")
	sb.WriteString("# TYPE assist_deliveries_total counter\n")
	for _, transport := range sortedKeys(snap.Deliveries) {
		count := snap.Deliveries[transport]
		sb.WriteString(fmt.Sprintf("assist_deliveries_total{transport=\"%s\"} %d\n", transport, count))
	}
	sb.WriteString("\n")

	// Delivery duration by transport
	sb.WriteString("# HELP assist_delivery_duration_ms_total Total delivery duration in milliseconds\n")
	sb.WriteString("# TYPE assist_delivery_duration_ms_total counter\n")
	for _, transport := range sortedKeys(snap.DeliveryDur) {
		duration := snap.DeliveryDur[transport]
		sb.WriteString(fmt.Sprintf("assist_delivery_duration_ms_total{transport=\"%s\"} %d\n", transport, duration))
	}
	sb.WriteString("\n")

	// Delivery errors by kind
	sb.WriteString("# HELP assist_delivery_errors_total Failed deliveries by error kind\n")
	sb.WriteString("# TYPE assist_delivery_errors_total counter\n")
	for _, kind := range sortedKeys(snap.DeliveryErrors) {
		count := snap.DeliveryErrors[kind]
		sb.WriteString(fmt.Sprintf("assist_delivery_errors_total{kind=\"%s\"} %d\n", kind, count))
	}
	sb.WriteString("\n")

	// Streams in progress
	sb.WriteString("# HELP assist_streams_in_progress Current number of open push streams\n")
	sb.WriteString("# TYPE assist_streams_in_progress gauge\n")
	sb.WriteString(fmt.Sprintf("assist_streams_in_progress %d\n", snap.StreamsInProgress))
	sb.WriteString("\n")

	// Rate limit hits
	sb.WriteString("# HELP assist_rate_limit_hits_total Total number of rate limit rejections\n")
	sb.WriteString("# TYPE assist_rate_limit_hits_total counter\n")
	sb.WriteString(fmt.Sprintf("assist_rate_limit_hits_total %d\n", snap.RateLimitHits))
	sb.WriteString("\n")

	// Chunk volume
	sb.WriteString("# HELP assist_chunks_total Total response chunks delivered\n")
	sb.WriteString("# TYPE assist_chunks_total counter\n")
	sb.WriteString(fmt.Sprintf("assist_chunks_total %d\n", snap.TotalChunks))
	sb.WriteString("\n")

	// Token usage
	sb.WriteString("# HELP assist_tokens_total Total generator tokens consumed\n")
	sb.WriteString("# TYPE assist_tokens_total counter\n")
	sb.WriteString(fmt.Sprintf("assist_tokens_total %d\n", snap.TotalTokens))
	sb.WriteString("\n")

	// Tokens by model
	sb.WriteString("# HELP assist_tokens_by_model_total Total tokens by model\n")
	sb.WriteString("# TYPE assist_tokens_by_model_total counter\n")
	for _, model := range sortedKeys(snap.TokensByModel) {
		count := snap.TokensByModel[model]
		sb.WriteString(fmt.Sprintf("assist_tokens_by_model_total{model=\"%s\"} %d\n", model, count))
	}
	sb.WriteString("\n")

	return sb.String()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
