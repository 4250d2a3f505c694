package inference

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

// dataParallelPrefix is added to every parameter name by multi-GPU training.
const dataParallelPrefix = "module."

const maxHeaderSize = 100 << 20

// Checkpoint is a set of named parameter tensors.
type Checkpoint map[string]Tensor

// Names returns the parameter names in sorted order.
func (c Checkpoint) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int64 `json:"shape"`
	DataOffsets [2]int  `json:"data_offsets"`
}

// LoadCheckpoint reads a safetensors state dict and strips the data-parallel
// "module." prefix from every name.
func LoadCheckpoint(path string) (Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer file.Close()
	ckpt, err := ReadCheckpoint(file)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	return ckpt, nil
}

// ReadCheckpoint parses safetensors data from r.
func ReadCheckpoint(r io.Reader) (Checkpoint, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	if headerLen == 0 || headerLen > maxHeaderSize {
		return nil, fmt.Errorf("invalid header length %d", headerLen)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tensor data: %w", err)
	}

	ckpt := make(Checkpoint, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var header tensorHeader
		if err := json.Unmarshal(msg, &header); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		start, end := header.DataOffsets[0], header.DataOffsets[1]
		if start < 0 || end < start || end > len(payload) {
			return nil, fmt.Errorf("tensor %s: offsets %v outside data of %d bytes", name, header.DataOffsets, len(payload))
		}
		data, err := decodeValues(header.DType, payload[start:end])
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		tensor := Tensor{Shape: header.Shape, Data: data}
		if len(tensor.Shape) == 0 {
			tensor.Shape = []int64{1}
		}
		if len(data) != tensor.Len() {
			return nil, fmt.Errorf("tensor %s: shape %v wants %d values, have %d", name, header.Shape, tensor.Len(), len(data))
		}
		key := strings.TrimPrefix(name, dataParallelPrefix)
		if _, dup := ckpt[key]; dup {
			return nil, fmt.Errorf("tensor %s: duplicate after prefix strip", name)
		}
		ckpt[key] = tensor
	}
	if len(ckpt) == 0 {
		return nil, errors.New("no tensors")
	}
	return ckpt, nil
}

func decodeValues(dtype string, raw []byte) ([]float32, error) {
	switch dtype {
	case "F32":
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("F32 data length %d not a multiple of 4", len(raw))
		}
		out := make([]float32, len(raw)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case "F16":
		if len(raw)%2 != 0 {
			return nil, fmt.Errorf("F16 data length %d not a multiple of 2", len(raw))
		}
		out := make([]float32, len(raw)/2)
		for i := range out {
			out[i] = halfToFloat(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out, nil
	case "BF16":
		if len(raw)%2 != 0 {
			return nil, fmt.Errorf("BF16 data length %d not a multiple of 2", len(raw))
		}
		out := make([]float32, len(raw)/2)
		for i := range out {
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(raw[i*2:])) << 16)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %q", dtype)
	}
}

// halfToFloat converts an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff
	switch {
	case exp == 0 && frac == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// subnormal: normalize the mantissa
		exp = 1
		for frac&0x400 == 0 {
			frac <<= 1
			exp--
		}
		frac &= 0x3ff
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | frac<<13)
	}
	return math.Float32frombits(sign | uint32(exp+112)<<23 | frac<<13)
}
