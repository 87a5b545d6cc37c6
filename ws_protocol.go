package mirrorplot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Binary messages sent on /ws. Every message is an 8 byte envelope header
// followed by the payload. All integers and floats are little endian.
const (
	ProtocolVersion byte = 1

	MessageTypeLayout  byte = 0x01
	MessageTypeSeries  byte = 0x02
	MessageTypeLoadEnd byte = 0x03

	EnvelopeHeaderSize = 8
)

type EnvelopeHeader struct {
	Version  byte
	Reserved [2]byte
	Type     byte
	Length   uint32 // Payload length in bytes
}

// SeriesStyle is everything about a Series except its points.
type SeriesStyle struct {
	Mode   string `json:"mode"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Marker Style  `json:"marker"`
	Line   Style  `json:"line"`
}

// Payload of a SERIES message:
//
//	index u32 | n u32 | x f64*n | y f64*n | styleLen u32 | style JSON
type SeriesMessage struct {
	Index uint32
	X     []float64
	Y     []float64
	Style SeriesStyle
}

// Payload of a LOAD_END message. Sent last, after all series.
type LoadEndMessage struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg"`
}

type WSMessage struct {
	Header  EnvelopeHeader
	Payload interface{} // One of: Layout, SeriesMessage, LoadEndMessage
}

func NewSeriesMessage(index int, s Series) SeriesMessage {
	return SeriesMessage{
		Index: uint32(index),
		X:     s.X,
		Y:     s.Y,
		Style: SeriesStyle{
			Mode:   s.Mode,
			Type:   s.Type,
			Name:   s.Name,
			Marker: s.Marker,
			Line:   s.Line,
		},
	}
}

func (m SeriesMessage) Series() Series {
	return Series{
		X:      m.X,
		Y:      m.Y,
		Mode:   m.Style.Mode,
		Type:   m.Style.Type,
		Name:   m.Style.Name,
		Marker: m.Style.Marker,
		Line:   m.Style.Line,
	}
}

func NewLoadEndMessage(err error) LoadEndMessage {
	if err == nil {
		return LoadEndMessage{}
	}

	return LoadEndMessage{Error: true, Msg: err.Error()}
}

func EncodeEnvelopeHeader(header EnvelopeHeader) []byte {
	var buf bytes.Buffer
	buf.Grow(EnvelopeHeaderSize)
	binary.Write(&buf, binary.LittleEndian, header) // fixed size struct, writes to a buffer cannot fail
	return buf.Bytes()
}

func DecodeEnvelopeHeader(buf []byte) (EnvelopeHeader, error) {
	if len(buf) < EnvelopeHeaderSize {
		return EnvelopeHeader{}, fmt.Errorf("buffer too short: expected at least %d bytes, got %d", EnvelopeHeaderSize, len(buf))
	}

	var header EnvelopeHeader
	if err := binary.Read(bytes.NewReader(buf[:EnvelopeHeaderSize]), binary.LittleEndian, &header); err != nil {
		return EnvelopeHeader{}, err
	}

	return header, nil
}

func EncodeSeriesMessage(msg SeriesMessage) ([]byte, error) {
	if len(msg.X) != len(msg.Y) {
		return nil, fmt.Errorf("x and y must have the same length: x=%d, y=%d", len(msg.X), len(msg.Y))
	}

	style, err := json.Marshal(msg.Style)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal series style: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(8 + 16*len(msg.X) + 4 + len(style))

	binary.Write(&buf, binary.LittleEndian, msg.Index)
	binary.Write(&buf, binary.LittleEndian, uint32(len(msg.X)))
	binary.Write(&buf, binary.LittleEndian, msg.X)
	binary.Write(&buf, binary.LittleEndian, msg.Y)
	writeJSONBlock(&buf, style)

	return buf.Bytes(), nil
}

func DecodeSeriesMessage(buf []byte) (SeriesMessage, error) {
	if len(buf) < 8 {
		return SeriesMessage{}, fmt.Errorf("buffer too short for SERIES message: expected at least 8 bytes, got %d", len(buf))
	}

	msg := SeriesMessage{Index: binary.LittleEndian.Uint32(buf[0:4])}
	n := binary.LittleEndian.Uint32(buf[4:8])

	pointsEnd := 8 + uint64(n)*16
	if uint64(len(buf)) < pointsEnd+4 {
		return SeriesMessage{}, fmt.Errorf("buffer too short for %d points: got %d bytes", n, len(buf))
	}

	r := bytes.NewReader(buf[8:pointsEnd])
	msg.X = make([]float64, n)
	msg.Y = make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, msg.X); err != nil {
		return SeriesMessage{}, fmt.Errorf("failed to read x values: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, msg.Y); err != nil {
		return SeriesMessage{}, fmt.Errorf("failed to read y values: %w", err)
	}

	style, err := decodeJSONBlock[SeriesStyle](buf[pointsEnd:], "series style")
	if err != nil {
		return SeriesMessage{}, err
	}
	msg.Style = style

	return msg, nil
}

func EncodeLayoutMessage(layout Layout) ([]byte, error) {
	return encodeJSONBlock(layout, "layout")
}

func DecodeLayoutMessage(buf []byte) (Layout, error) {
	return decodeJSONBlock[Layout](buf, "layout")
}

func EncodeLoadEndMessage(msg LoadEndMessage) ([]byte, error) {
	return encodeJSONBlock(msg, "load end message")
}

func DecodeLoadEndMessage(buf []byte) (LoadEndMessage, error) {
	return decodeJSONBlock[LoadEndMessage](buf, "load end message")
}

// A JSON block is a u32 length followed by that many bytes of JSON. It must
// fill the buffer exactly.
func encodeJSONBlock(v interface{}, what string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", what, err)
	}

	var buf bytes.Buffer
	writeJSONBlock(&buf, data)
	return buf.Bytes(), nil
}

func writeJSONBlock(buf *bytes.Buffer, data []byte) {
	binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
}

func decodeJSONBlock[T any](buf []byte, what string) (T, error) {
	var v T
	if len(buf) < 4 {
		return v, fmt.Errorf("buffer too short for %s: expected at least 4 bytes, got %d", what, len(buf))
	}

	length := binary.LittleEndian.Uint32(buf[0:4])
	if uint64(len(buf)) != 4+uint64(length) {
		return v, fmt.Errorf("buffer size mismatch for %s: expected %d bytes, got %d", what, 4+uint64(length), len(buf))
	}

	if err := json.Unmarshal(buf[4:], &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %s: %w", what, err)
	}

	return v, nil
}

func EncodeWSMessage(msg WSMessage) ([]byte, error) {
	var payload []byte
	var err error

	switch msg.Header.Type {
	case MessageTypeLayout:
		layout, ok := msg.Payload.(Layout)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected Layout for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeLayoutMessage(layout)
	case MessageTypeSeries:
		series, ok := msg.Payload.(SeriesMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected SeriesMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeSeriesMessage(series)
	case MessageTypeLoadEnd:
		loadEnd, ok := msg.Payload.(LoadEndMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected LoadEndMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodeLoadEndMessage(loadEnd)
	default:
		return nil, fmt.Errorf("unknown message type: 0x%02x", msg.Header.Type)
	}

	if err != nil {
		return nil, err
	}

	msg.Header.Length = uint32(len(payload))
	return append(EncodeEnvelopeHeader(msg.Header), payload...), nil
}

func DecodeWSMessage(buf []byte) (WSMessage, error) {
	header, err := DecodeEnvelopeHeader(buf)
	if err != nil {
		return WSMessage{}, err
	}

	if header.Version != ProtocolVersion {
		return WSMessage{}, fmt.Errorf("unsupported protocol version %d", header.Version)
	}

	end := uint64(EnvelopeHeaderSize) + uint64(header.Length)
	if uint64(len(buf)) < end {
		return WSMessage{}, fmt.Errorf("buffer too short: expected %d bytes (header + payload), got %d", end, len(buf))
	}
	payloadBytes := buf[EnvelopeHeaderSize:end]

	var payload interface{}
	switch header.Type {
	case MessageTypeLayout:
		payload, err = DecodeLayoutMessage(payloadBytes)
	case MessageTypeSeries:
		payload, err = DecodeSeriesMessage(payloadBytes)
	case MessageTypeLoadEnd:
		payload, err = DecodeLoadEndMessage(payloadBytes)
	default:
		return WSMessage{}, fmt.Errorf("unknown message type: 0x%02x", header.Type)
	}

	if err != nil {
		return WSMessage{}, err
	}

	return WSMessage{Header: header, Payload: payload}, nil
}

// Encodes a whole snapshot as the message sequence sent on /ws: LAYOUT, one
// SERIES per series in order, then LOAD_END.
func EncodeSnapshot(snapshot PlotSnapshot) ([][]byte, error) {
	msgs := make([]WSMessage, 0, len(snapshot.Series)+2)
	msgs = append(msgs, WSMessage{
		Header:  EnvelopeHeader{Version: ProtocolVersion, Type: MessageTypeLayout},
		Payload: snapshot.Layout,
	})

	for i, s := range snapshot.Series {
		msgs = append(msgs, WSMessage{
			Header:  EnvelopeHeader{Version: ProtocolVersion, Type: MessageTypeSeries},
			Payload: NewSeriesMessage(i, s),
		})
	}

	msgs = append(msgs, WSMessage{
		Header:  EnvelopeHeader{Version: ProtocolVersion, Type: MessageTypeLoadEnd},
		Payload: NewLoadEndMessage(snapshot.Err),
	})

	encoded := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		buf, err := EncodeWSMessage(msg)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, buf)
	}

	return encoded, nil
}
