package internaldefs

import (
	goInvite "github.com/MrEthical07/goInvite"
)

// CounterDef binds one engine counter to its exported metric name.
type CounterDef struct {
	ID   goInvite.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported metric name.
type HistogramDef struct {
	ID   goInvite.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goInvite.MetricConsumeSuccess, Name: "goinvite_consume_success_total", Help: "Successful token consumptions."},
	{ID: goInvite.MetricConsumeNotFound, Name: "goinvite_consume_not_found_total", Help: "Consume attempts against unknown tokens."},
	{ID: goInvite.MetricConsumeInactive, Name: "goinvite_consume_inactive_total", Help: "Consume attempts against deactivated tokens."},
	{ID: goInvite.MetricConsumeExhausted, Name: "goinvite_consume_exhausted_total", Help: "Consume attempts against spent tokens."},
	{ID: goInvite.MetricTokenCreated, Name: "goinvite_token_created_total", Help: "Token creations."},
	{ID: goInvite.MetricTokenUpdated, Name: "goinvite_token_updated_total", Help: "Token updates."},
	{ID: goInvite.MetricTokenActivated, Name: "goinvite_token_activated_total", Help: "Token reactivations."},
	{ID: goInvite.MetricTokenDeactivated, Name: "goinvite_token_deactivated_total", Help: "Token deactivations."},
	{ID: goInvite.MetricTokenDeleted, Name: "goinvite_token_deleted_total", Help: "Token hard deletions."},
	{ID: goInvite.MetricIdentityCreated, Name: "goinvite_identity_created_total", Help: "Identities materialized on first consumption."},
	{ID: goInvite.MetricSessionCreated, Name: "goinvite_session_created_total", Help: "Sessions opened by consumptions."},
	{ID: goInvite.MetricSessionRevoked, Name: "goinvite_session_revoked_total", Help: "Single-session revocations."},
	{ID: goInvite.MetricSessionRevokedAll, Name: "goinvite_session_revoked_all_total", Help: "Bulk session revocations."},
	{ID: goInvite.MetricAuthorizeSuccess, Name: "goinvite_authorize_success_total", Help: "Accepted credentials."},
	{ID: goInvite.MetricAuthorizeRejected, Name: "goinvite_authorize_rejected_total", Help: "Rejected credentials, any reason."},
	{ID: goInvite.MetricCredentialExpired, Name: "goinvite_credential_expired_total", Help: "Rejections due to credential expiry."},
	{ID: goInvite.MetricCredentialInvalid, Name: "goinvite_credential_invalid_total", Help: "Rejections due to bad signatures or framing."},
	{ID: goInvite.MetricOperatorGranted, Name: "goinvite_operator_granted_total", Help: "Successful operator secret checks."},
	{ID: goInvite.MetricOperatorDenied, Name: "goinvite_operator_denied_total", Help: "Failed operator secret checks."},
}

// HistogramDefs lists every exported histogram in a stable order.
var HistogramDefs = []HistogramDef{
	{ID: goInvite.MetricAuthorizeLatency, Name: "goinvite_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus style.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the same bounds as metric-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed bucket
// count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form both
// exporters emit.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
