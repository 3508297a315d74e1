// Package ws implements the WebSocket stream for radartrack-server.
//
// Hub pushes the tracker snapshot to every connected viewer each interval
// (server.stream_interval, 1s by default). A viewer gets the current snapshot
// on connect. One whose backlog of 16 frames is full is dropped. On shutdown
// every viewer receives a close frame.
//
// Frame format:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The upgrader accepts all origins. The server mounts the hub at /ws/stream.
package ws
