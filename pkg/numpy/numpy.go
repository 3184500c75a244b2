// Package numpy reconstructs typed arrays from the (bytes, dtype, shape)
// triples the terminal sends for rate and tick history (spec.md §4.9, §9
// "Re-architecture strategy for numeric arrays"). It is the one place in
// the client that knows the server's binary layout; everything upstream
// of it (pkg/connection, pkg/queue, pkg/retry, pkg/txn) stays opaque to
// payload shape, per §4.9's "decoded at the façade boundary" rule.
package numpy

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rate is one OHLCV bar, matching the terminal's rates_dtype field order:
// time, open, high, low, close, tick_volume, spread, real_volume.
type Rate struct {
	Time       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	TickVolume int64
	Spread     int32
	RealVolume int64
}

// Tick is one price tick, matching the terminal's ticks_dtype field
// order: time, bid, ask, last, volume, time_msc, flags, volume_real.
type Tick struct {
	Time       time.Time
	Bid        float64
	Ask        float64
	Last       float64
	Volume     int64
	TimeMsc    int64
	Flags      int32
	VolumeReal float64
}

// Field is one element of a structured dtype: a name and a NumPy type
// code like "<i8" (little-endian int64) or "<f4" (little-endian float32).
type Field struct {
	Name string
	Code string
	Size int
}

var structFieldRe = regexp.MustCompile(`\(\s*'([^']+)'\s*,\s*'([^']+)'\s*\)`)

// ParseDtype parses either a simple dtype name ("float64", "int64", ...)
// or a structured dtype literal ("[('time','<i8'),('open','<f8')]") into
// an ordered field list. A simple dtype is returned as a single unnamed
// field.
func ParseDtype(dtype string) ([]Field, error) {
	dtype = strings.TrimSpace(dtype)
	if !strings.HasPrefix(dtype, "[") {
		size, err := dtypeSize(dtype)
		if err != nil {
			return nil, err
		}
		return []Field{{Name: "", Code: normalizeSimple(dtype), Size: size}}, nil
	}

	matches := structFieldRe.FindAllStringSubmatch(dtype, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("numpy: no fields found in structured dtype %q", dtype)
	}

	fields := make([]Field, 0, len(matches))
	for _, m := range matches {
		name, code := m[1], m[2]
		size, err := dtypeSize(code)
		if err != nil {
			return nil, fmt.Errorf("numpy: field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Code: code, Size: size})
	}
	return fields, nil
}

func normalizeSimple(name string) string {
	switch name {
	case "float64", "f8", "<f8":
		return "<f8"
	case "float32", "f4", "<f4":
		return "<f4"
	case "int64", "i8", "<i8":
		return "<i8"
	case "int32", "i4", "<i4":
		return "<i4"
	default:
		return name
	}
}

func dtypeSize(code string) (int, error) {
	switch code {
	case "float64", "int64":
		return 8, nil
	case "float32", "int32":
		return 4, nil
	}
	c := strings.TrimPrefix(strings.TrimPrefix(code, "<"), ">")
	c = strings.TrimPrefix(c, "=")
	switch {
	case len(c) >= 2 && (c[0] == 'i' || c[0] == 'u' || c[0] == 'f'):
		n, err := strconv.Atoi(c[1:])
		if err != nil {
			return 0, fmt.Errorf("invalid dtype code %q", code)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported dtype code %q", code)
	}
}

func recordSize(fields []Field) int {
	total := 0
	for _, f := range fields {
		total += f.Size
	}
	return total
}

// count returns the number of elements implied by shape, or a buffer-size
// derived count when shape is empty (a single flat dimension).
func count(shape []int32, bufLen, elemSize int) (int, error) {
	if len(shape) == 0 {
		if elemSize == 0 {
			return 0, fmt.Errorf("numpy: zero-size element")
		}
		if bufLen%elemSize != 0 {
			return 0, fmt.Errorf("numpy: buffer length %d is not a multiple of element size %d", bufLen, elemSize)
		}
		return bufLen / elemSize, nil
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n, nil
}

// DecodeRecords decodes data into one map[string]any per record, keyed by
// the structured dtype's field names. Used directly by tests and by
// DecodeRates/DecodeTicks, which translate the maps into named structs.
func DecodeRecords(data []byte, dtype string, shape []int32) ([]map[string]any, error) {
	fields, err := ParseDtype(dtype)
	if err != nil {
		return nil, err
	}
	elemSize := recordSize(fields)
	n, err := count(shape, len(data), elemSize)
	if err != nil {
		return nil, err
	}
	if n*elemSize > len(data) {
		return nil, fmt.Errorf("numpy: buffer too short: need %d bytes for %d records, have %d", n*elemSize, n, len(data))
	}

	records := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		base := i * elemSize
		rec := make(map[string]any, len(fields))
		off := base
		for _, f := range fields {
			v, err := decodeScalar(data[off:off+f.Size], f.Code)
			if err != nil {
				return nil, fmt.Errorf("numpy: record %d field %q: %w", i, f.Name, err)
			}
			rec[f.Name] = v
			off += f.Size
		}
		records[i] = rec
	}
	return records, nil
}

func decodeScalar(b []byte, code string) (any, error) {
	le := !strings.HasPrefix(code, ">")
	c := strings.TrimPrefix(strings.TrimPrefix(code, "<"), ">")
	c = strings.TrimPrefix(c, "=")
	if len(c) < 2 {
		return nil, fmt.Errorf("invalid dtype code %q", code)
	}
	kind := c[0]
	size, err := strconv.Atoi(c[1:])
	if err != nil {
		return nil, fmt.Errorf("invalid dtype code %q", code)
	}

	readUint := func() uint64 {
		switch size {
		case 1:
			return uint64(b[0])
		case 2:
			if le {
				return uint64(binary.LittleEndian.Uint16(b))
			}
			return uint64(binary.BigEndian.Uint16(b))
		case 4:
			if le {
				return uint64(binary.LittleEndian.Uint32(b))
			}
			return uint64(binary.BigEndian.Uint32(b))
		case 8:
			if le {
				return binary.LittleEndian.Uint64(b)
			}
			return binary.BigEndian.Uint64(b)
		}
		return 0
	}

	switch kind {
	case 'i':
		u := readUint()
		switch size {
		case 1:
			return int64(int8(u)), nil
		case 2:
			return int64(int16(u)), nil
		case 4:
			return int64(int32(u)), nil
		case 8:
			return int64(u), nil
		}
	case 'u':
		return readUint(), nil
	case 'f':
		u := readUint()
		switch size {
		case 4:
			return float64(math.Float32frombits(uint32(u))), nil
		case 8:
			return math.Float64frombits(u), nil
		}
	}
	return nil, fmt.Errorf("unsupported dtype kind %q size %d", string(kind), size)
}

func asInt64(rec map[string]any, name string) int64 {
	switch v := rec[name].(type) {
	case int64:
		return v
	case uint64:
		return int64(v)
	default:
		return 0
	}
}

func asFloat64(rec map[string]any, name string) float64 {
	if v, ok := rec[name].(float64); ok {
		return v
	}
	return 0
}

func asInt32(rec map[string]any, name string) int32 {
	return int32(asInt64(rec, name))
}

// DecodeRates reconstructs OHLCV bars from a NumpyArray's raw payload.
func DecodeRates(data []byte, dtype string, shape []int32) ([]Rate, error) {
	records, err := DecodeRecords(data, dtype, shape)
	if err != nil {
		return nil, err
	}
	rates := make([]Rate, len(records))
	for i, rec := range records {
		rates[i] = Rate{
			Time:       time.Unix(asInt64(rec, "time"), 0).UTC(),
			Open:       asFloat64(rec, "open"),
			High:       asFloat64(rec, "high"),
			Low:        asFloat64(rec, "low"),
			Close:      asFloat64(rec, "close"),
			TickVolume: asInt64(rec, "tick_volume"),
			Spread:     asInt32(rec, "spread"),
			RealVolume: asInt64(rec, "real_volume"),
		}
	}
	return rates, nil
}

// DecodeTicks reconstructs price ticks from a NumpyArray's raw payload.
func DecodeTicks(data []byte, dtype string, shape []int32) ([]Tick, error) {
	records, err := DecodeRecords(data, dtype, shape)
	if err != nil {
		return nil, err
	}
	ticks := make([]Tick, len(records))
	for i, rec := range records {
		ticks[i] = Tick{
			Time:       time.Unix(asInt64(rec, "time"), 0).UTC(),
			Bid:        asFloat64(rec, "bid"),
			Ask:        asFloat64(rec, "ask"),
			Last:       asFloat64(rec, "last"),
			Volume:     asInt64(rec, "volume"),
			TimeMsc:    asInt64(rec, "time_msc"),
			Flags:      asInt32(rec, "flags"),
			VolumeReal: asFloat64(rec, "volume_real"),
		}
	}
	return ticks, nil
}

// DecodeFloat64 reconstructs a flat, unstructured float64 array (used by
// the few RPCs that return a plain numeric series rather than records).
func DecodeFloat64(data []byte, dtype string, shape []int32) ([]float64, error) {
	fields, err := ParseDtype(dtype)
	if err != nil {
		return nil, err
	}
	if len(fields) != 1 || fields[0].Name != "" {
		return nil, fmt.Errorf("numpy: DecodeFloat64 requires a simple (non-structured) dtype, got %q", dtype)
	}
	f := fields[0]
	n, err := count(shape, len(data), f.Size)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		off := i * f.Size
		v, err := decodeScalar(data[off:off+f.Size], f.Code)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case float64:
			out[i] = x
		case int64:
			out[i] = float64(x)
		case uint64:
			out[i] = float64(x)
		}
	}
	return out, nil
}
