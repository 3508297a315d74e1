// Package wire defines the feed formats shared by the server receivers and the
// simulator agent.
//
// Datagram feed: one JSON Packet per UDP datagram, camelCase keys:
//
//	{"targetId":4001,"x":1200.5,"y":-300,"velocity":250,"heading":87.5,
//	 "targetType":1,"timestamp":"2026-01-01T12:00:00Z",
//	 "signalStrength":81.2,"radarStationId":"RADAR_001"}
//
// targetType is the numeric classification code (0 unknown, 1 aircraft,
// 2 ship, 3 vehicle, 4 missile).
//
// gRPC feed: radartrack.v1.ObservationService/SubmitBatch takes a
// google.protobuf.Struct of the form {"observations": [Packet, ...]} and
// returns a google.protobuf.UInt32Value with the number of observations the
// server queued. The service descriptor is written by hand against the
// well-known types, so no generated code is needed.
package wire
