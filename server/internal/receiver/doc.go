// Package receiver turns feed traffic into Submit calls on the tracking core.
//
// UDP decodes one JSON packet per datagram (see package wire). GRPC implements
// wire.ObservationServiceServer: an empty or unreadable batch is rejected with
// codes.InvalidArgument, individual bad entries are skipped. Neither receiver
// ever blocks on the core; admission and capacity drops happen in the ingest
// queue.
//
// The interceptors in this package recover handler panics and tag requests
// with the sending station taken from gRPC metadata.
package receiver
