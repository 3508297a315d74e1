package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/radartrack/radartrack/pkg/types"
)

// ErrNoObservations is returned by DecodeBatch when the batch carries no
// observations list.
var ErrNoObservations = errors.New("wire: batch has no observations")

// Packet is one observation as it travels on the feed.
type Packet struct {
	TargetID       int       `json:"targetId"`
	X              float64   `json:"x"`
	Y              float64   `json:"y"`
	Velocity       float64   `json:"velocity"`
	Heading        float64   `json:"heading"`
	TargetType     int       `json:"targetType"`
	Timestamp      time.Time `json:"timestamp"`
	SignalStrength float64   `json:"signalStrength"`
	RadarStationID string    `json:"radarStationId"`
}

// Decode parses one datagram.
func Decode(data []byte) (Packet, error) {
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return Packet{}, fmt.Errorf("wire: decode packet: %w", err)
	}
	return p, nil
}

// Encode serialises p for a single datagram.
func Encode(p Packet) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("wire: encode packet: %w", err)
	}
	return b, nil
}

// Observation converts p and validates the result.
func (p Packet) Observation() (types.Observation, error) {
	obs := types.Observation{
		ID:             p.TargetID,
		X:              p.X,
		Y:              p.Y,
		Velocity:       p.Velocity,
		Heading:        p.Heading,
		Class:          types.Classification(p.TargetType),
		ObservedAt:     p.Timestamp,
		SignalStrength: p.SignalStrength,
		StationID:      p.RadarStationID,
	}
	if err := obs.Validate(); err != nil {
		return types.Observation{}, err
	}
	return obs, nil
}

// FromObservation builds the packet a producer sends for obs.
func FromObservation(obs types.Observation) Packet {
	return Packet{
		TargetID:       obs.ID,
		X:              obs.X,
		Y:              obs.Y,
		Velocity:       obs.Velocity,
		Heading:        obs.Heading,
		TargetType:     int(obs.Class),
		Timestamp:      obs.ObservedAt,
		SignalStrength: obs.SignalStrength,
		RadarStationID: obs.StationID,
	}
}

type batch struct {
	Observations []json.RawMessage `json:"observations"`
}

// EncodeBatch packs packets into the Struct carried by SubmitBatch.
func EncodeBatch(packets []Packet) (*structpb.Struct, error) {
	b, err := json.Marshal(struct {
		Observations []Packet `json:"observations"`
	}{packets})
	if err != nil {
		return nil, fmt.Errorf("wire: encode batch: %w", err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("wire: encode batch: %w", err)
	}
	return st, nil
}

// DecodeBatch unpacks a SubmitBatch request. Entries that fail to decode are
// skipped and counted in invalid.
func DecodeBatch(st *structpb.Struct) (packets []Packet, invalid int, err error) {
	if st == nil || st.GetFields()["observations"].GetListValue() == nil {
		return nil, 0, ErrNoObservations
	}
	b, err := protojson.Marshal(st)
	if err != nil {
		return nil, 0, fmt.Errorf("wire: decode batch: %w", err)
	}
	var raw batch
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, 0, fmt.Errorf("wire: decode batch: %w", err)
	}
	packets = make([]Packet, 0, len(raw.Observations))
	for _, r := range raw.Observations {
		p, err := Decode(r)
		if err != nil {
			invalid++
			continue
		}
		packets = append(packets, p)
	}
	return packets, invalid, nil
}
