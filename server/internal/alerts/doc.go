// Package alerts evaluates threshold rules against periodic samples of the
// tracker's health and statistics, and delivers fire/resolve notifications to
// Slack, Teams or generic HTTP webhooks.
//
// A rule condition is "field op value", for example:
//
//	queue_depth > 400
//	cycle_p95_ms >= 40
//	active_targets == 0
//	status == unhealthy
//
// Conditions are parsed when the Engine is built; an unknown field or
// operator is a configuration error.
package alerts
