// Package types defines the Observation record shared by the server core, the
// feed receivers, and the simulator agent. These are the canonical in-memory
// representations, separate from the datagram and gRPC wire formats in
// package wire.
package types
