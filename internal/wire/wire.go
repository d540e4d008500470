// Package wire is the message-framing layer between a coldb client and
// server (§6.4): a fixed header (payload length, payload type, status)
// followed by the payload itself, chunked into frames of at most
// MaxFrameSize bytes so neither side has to buffer an unbounded message
// before it knows how much more is coming.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"coldb/internal/session"
)

// MaxFrameSize bounds a single read/write under ReadMessage/WriteMessage;
// a payload longer than this is sent as ⌈length / MaxFrameSize⌉ frames.
const MaxFrameSize = 4096

// PayloadType tags how Payload should be interpreted (§6.4).
type PayloadType uint8

const (
	PayloadText PayloadType = iota
	PayloadIntArray
	PayloadLongArray
	PayloadDoubleArray
	PayloadColumnCount
)

// Header precedes every message: how many payload bytes follow, what kind
// of payload they are, and the operation's outcome status.
type Header struct {
	Length      uint32
	PayloadType PayloadType
	Status      session.Status
}

// Message is one framed request or reply: a header plus the raw payload
// bytes it describes.
type Message struct {
	Header  Header
	Payload []byte
}

// WriteMessage frames payload behind a header and writes it to w in
// ≤MaxFrameSize chunks.
func WriteMessage(w io.Writer, status session.Status, pt PayloadType, payload []byte) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(payload))); err != nil {
		return fmt.Errorf("write header length: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(pt)); err != nil {
		return fmt.Errorf("write header payload type: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(status)); err != nil {
		return fmt.Errorf("write header status: %w", err)
	}
	for off := 0; off < len(payload); off += MaxFrameSize {
		end := off + MaxFrameSize
		if end > len(payload) {
			end = len(payload)
		}
		if _, err := bw.Write(payload[off:end]); err != nil {
			return fmt.Errorf("write payload frame: %w", err)
		}
	}
	return bw.Flush()
}

// ReadMessage reads one header and the ⌈length / MaxFrameSize⌉ frames
// that carry its payload.
func ReadMessage(r io.Reader) (Message, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return Message{}, fmt.Errorf("read header length: %w", err)
	}
	var ptRaw, statusRaw uint8
	if err := binary.Read(r, binary.LittleEndian, &ptRaw); err != nil {
		return Message{}, fmt.Errorf("read header payload type: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &statusRaw); err != nil {
		return Message{}, fmt.Errorf("read header status: %w", err)
	}

	payload := make([]byte, length)
	numFrames := (int(length) + MaxFrameSize - 1) / MaxFrameSize
	for i := 0; i < numFrames; i++ {
		off := i * MaxFrameSize
		end := off + MaxFrameSize
		if end > int(length) {
			end = int(length)
		}
		if _, err := io.ReadFull(r, payload[off:end]); err != nil {
			return Message{}, fmt.Errorf("read payload frame %d/%d: %w", i+1, numFrames, err)
		}
	}

	return Message{
		Header: Header{
			Length:      length,
			PayloadType: PayloadType(ptRaw),
			Status:      session.Status(statusRaw),
		},
		Payload: payload,
	}, nil
}

// EncodeText packs a line-oriented query-language command (or a single
// text reply line) as a text payload.
func EncodeText(s string) []byte { return []byte(s) }

// DecodeText unpacks a text payload back into a string.
func DecodeText(payload []byte) string { return string(payload) }

// EncodeIntArray packs a []int32 as a payload of little-endian int32s.
func EncodeIntArray(values []int32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

// DecodeIntArray unpacks a payload written by EncodeIntArray.
func DecodeIntArray(payload []byte) ([]int32, error) {
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("int array payload length %d not a multiple of 4", len(payload))
	}
	out := make([]int32, len(payload)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return out, nil
}

// EncodeLongArray packs a []int64 as a payload of little-endian int64s.
func EncodeLongArray(values []int64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

// DecodeLongArray unpacks a payload written by EncodeLongArray.
func DecodeLongArray(payload []byte) ([]int64, error) {
	if len(payload)%8 != 0 {
		return nil, fmt.Errorf("long array payload length %d not a multiple of 8", len(payload))
	}
	out := make([]int64, len(payload)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(payload[i*8:]))
	}
	return out, nil
}

// EncodeDoubleArray packs a []float64 as a payload of little-endian
// IEEE-754 doubles.
func EncodeDoubleArray(values []float64) []byte {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeDoubleArray unpacks a payload written by EncodeDoubleArray.
func DecodeDoubleArray(payload []byte) ([]float64, error) {
	if len(payload)%8 != 0 {
		return nil, fmt.Errorf("double array payload length %d not a multiple of 8", len(payload))
	}
	out := make([]float64, len(payload)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
	}
	return out, nil
}

// EncodeColumnCount packs print's column-width hint: how many comma-
// separated fields each line of a multi-handle print carries.
func EncodeColumnCount(n int) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(n))
	return buf
}

// DecodeColumnCount unpacks a payload written by EncodeColumnCount.
func DecodeColumnCount(payload []byte) (int, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("column count payload must be 4 bytes, got %d", len(payload))
	}
	return int(binary.LittleEndian.Uint32(payload)), nil
}
