// Package shipper delivers simulated observations to radartrack-server.
//
// Two Senders are provided:
//
//   - UDP writes one JSON datagram per observation, paced by a token-bucket
//     limiter (golang.org/x/time/rate). Ship blocks only on the limiter.
//   - GRPC buffers packets in a bounded channel (oldest evicted when full) and
//     Run drains it in batches over ObservationService.SubmitBatch,
//     reconnecting with truncated exponential backoff (1s→60s, ±25% jitter).
//     Sends go through a circuit breaker (github.com/sony/gobreaker) that
//     opens after consecutive transport failures. InvalidArgument replies
//     discard the batch without counting against the breaker.
//
// Both stamp the station id; the gRPC sender also sends it as request metadata.
// The dialFn field is injectable for testing.
package shipper
