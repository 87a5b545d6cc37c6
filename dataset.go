package mirrorplot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// The input file is a JSON array of records written by the simulator:
//
//	[[t0, t1, {"agentId": {"x": 1, "y": 0, ...}, ...}], ...]
//
// Only x and y are read from each sample. Any other keys the simulator
// writes (time, timeStep, vx, vy) are ignored.

// A single observation of one agent. A coordinate missing from the input is
// NaN. A sample that is a scalar or an array has no coordinates at all and
// decodes to a NaN point; a null sample is an error.
type Sample struct {
	X float64
	Y float64
}

func (s *Sample) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		return errors.New("sample must not be null")
	}

	s.X, s.Y = math.NaN(), math.NaN()
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var raw struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}

	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	if raw.X != nil {
		s.X = *raw.X
	}

	if raw.Y != nil {
		s.Y = *raw.Y
	}

	return nil
}

type AgentSample struct {
	AgentID string
	Sample  Sample
}

// Frame holds every agent's sample at one time step. The order of the
// entries is the key order of the JSON object it was decoded from. Keys that
// look like integers are not moved ahead of the others the way a browser
// orders object properties, so {"1":..., "0":...} yields agent "1" first.
type Frame []AgentSample

func (f *Frame) UnmarshalJSON(b []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(b))

	tok, err := decoder.Token()
	if err != nil {
		return err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("frame must be a JSON object, got %v", tok)
	}

	frame := Frame{}
	seen := make(map[string]int)

	for decoder.More() {
		tok, err = decoder.Token()
		if err != nil {
			return err
		}

		agentID, ok := tok.(string)
		if !ok {
			return fmt.Errorf("frame key must be a string, got %v", tok)
		}

		var sample Sample
		if err := decoder.Decode(&sample); err != nil {
			return fmt.Errorf("agent %q: %w", agentID, err)
		}

		// A repeated key keeps its first position and takes the last value,
		// the same as a JSON object parsed in the browser.
		if i, ok := seen[agentID]; ok {
			frame[i].Sample = sample
			continue
		}

		seen[agentID] = len(frame)
		frame = append(frame, AgentSample{AgentID: agentID, Sample: sample})
	}

	if _, err := decoder.Token(); err != nil {
		return err
	}

	*f = frame
	return nil
}

// TimeRecord is one [t0, t1, frame] entry. T0 and T1 are kept but nothing
// plots them.
type TimeRecord struct {
	T0    float64
	T1    float64
	Frame Frame
}

func (r *TimeRecord) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}

	if len(parts) < 3 {
		return fmt.Errorf("time record needs 3 elements, got %d", len(parts))
	}

	r.T0 = decodeLooseNumber(parts[0])
	r.T1 = decodeLooseNumber(parts[1])

	return json.Unmarshal(parts[2], &r.Frame)
}

func decodeLooseNumber(raw json.RawMessage) float64 {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return math.NaN()
	}

	return v
}

// Dataset is the full time series, in simulation order.
type Dataset []TimeRecord

// Decodes a Dataset from r. The document must be a JSON array; nothing about
// the samples is validated beyond their shape.
func DecodeDataset(r io.Reader) (Dataset, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("dataset must be a JSON array, got null")
	}

	var dataset Dataset
	if err := json.Unmarshal(raw, &dataset); err != nil {
		return nil, err
	}

	return dataset, nil
}
