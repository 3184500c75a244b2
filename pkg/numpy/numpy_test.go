package numpy

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestParseDtypeSimple(t *testing.T) {
	fields, err := ParseDtype("float64")
	if err != nil {
		t.Fatalf("ParseDtype() error = %v", err)
	}
	if len(fields) != 1 || fields[0].Size != 8 || fields[0].Name != "" {
		t.Errorf("got %+v, want a single unnamed 8-byte field", fields)
	}
}

func TestParseDtypeStructured(t *testing.T) {
	dtype := "[('time','<i8'), ('open','<f8'), ('high','<f8'), ('low','<f8'), ('close','<f8'), ('tick_volume','<i8'), ('spread','<i4'), ('real_volume','<i8')]"
	fields, err := ParseDtype(dtype)
	if err != nil {
		t.Fatalf("ParseDtype() error = %v", err)
	}
	if len(fields) != 8 {
		t.Fatalf("got %d fields, want 8", len(fields))
	}
	if fields[0].Name != "time" || fields[0].Size != 8 {
		t.Errorf("first field = %+v", fields[0])
	}
	if fields[6].Name != "spread" || fields[6].Size != 4 {
		t.Errorf("spread field = %+v", fields[6])
	}
}

func TestParseDtypeRejectsMalformedStructured(t *testing.T) {
	if _, err := ParseDtype("[]"); err == nil {
		t.Error("expected an error for an empty structured dtype")
	}
}

func putInt64(buf []byte, off int, v int64) {
	binary.LittleEndian.PutUint64(buf[off:], uint64(v))
}

func putFloat64(buf []byte, off int, v float64) {
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
}

func putInt32(buf []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(buf[off:], uint32(v))
}

func encodeRate(r Rate) []byte {
	buf := make([]byte, 8+8*4+8+4+8)
	off := 0
	putInt64(buf, off, r.Time.Unix())
	off += 8
	putFloat64(buf, off, r.Open)
	off += 8
	putFloat64(buf, off, r.High)
	off += 8
	putFloat64(buf, off, r.Low)
	off += 8
	putFloat64(buf, off, r.Close)
	off += 8
	putInt64(buf, off, r.TickVolume)
	off += 8
	putInt32(buf, off, r.Spread)
	off += 4
	putInt64(buf, off, r.RealVolume)
	return buf
}

const rateDtype = "[('time','<i8'),('open','<f8'),('high','<f8'),('low','<f8'),('close','<f8'),('tick_volume','<i8'),('spread','<i4'),('real_volume','<i8')]"

func TestDecodeRatesSingleRecord(t *testing.T) {
	want := Rate{
		Open: 1.2345, High: 1.236, Low: 1.23, Close: 1.234,
		TickVolume: 120, Spread: 2, RealVolume: 0,
	}
	buf := encodeRate(want)

	got, err := DecodeRates(buf, rateDtype, nil)
	if err != nil {
		t.Fatalf("DecodeRates() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rates, want 1", len(got))
	}
	r := got[0]
	if r.Open != want.Open || r.High != want.High || r.Low != want.Low || r.Close != want.Close {
		t.Errorf("OHLC mismatch: got %+v, want %+v", r, want)
	}
	if r.TickVolume != want.TickVolume || r.Spread != want.Spread {
		t.Errorf("volume/spread mismatch: got %+v", r)
	}
}

func TestDecodeRatesMultipleRecordsFromShape(t *testing.T) {
	one := encodeRate(Rate{Open: 1.0})
	two := encodeRate(Rate{Open: 2.0})
	buf := append(append([]byte{}, one...), two...)

	got, err := DecodeRates(buf, rateDtype, []int32{2})
	if err != nil {
		t.Fatalf("DecodeRates() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rates, want 2", len(got))
	}
	if got[0].Open != 1.0 || got[1].Open != 2.0 {
		t.Errorf("got opens %v, %v; want 1.0, 2.0", got[0].Open, got[1].Open)
	}
}

func TestDecodeRatesRejectsTruncatedBuffer(t *testing.T) {
	buf := encodeRate(Rate{})
	if _, err := DecodeRates(buf[:len(buf)-1], rateDtype, nil); err == nil {
		t.Error("expected an error decoding a truncated buffer")
	}
}

const tickDtype = "[('time','<i8'),('bid','<f8'),('ask','<f8'),('last','<f8'),('volume','<i8'),('time_msc','<i8'),('flags','<i4'),('volume_real','<f8')]"

func encodeTick(bid, ask float64) []byte {
	buf := make([]byte, 8+8*3+8+8+4+8)
	off := 8 // time
	putFloat64(buf, off, bid)
	off += 8
	putFloat64(buf, off, ask)
	return buf
}

func TestDecodeTicks(t *testing.T) {
	buf := encodeTick(1.1000, 1.1002)
	got, err := DecodeTicks(buf, tickDtype, nil)
	if err != nil {
		t.Fatalf("DecodeTicks() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d ticks, want 1", len(got))
	}
	if got[0].Bid != 1.1000 || got[0].Ask != 1.1002 {
		t.Errorf("bid/ask = %v/%v, want 1.1000/1.1002", got[0].Bid, got[0].Ask)
	}
}

func TestDecodeFloat64Simple(t *testing.T) {
	buf := make([]byte, 24)
	putFloat64(buf, 0, 1.5)
	putFloat64(buf, 8, 2.5)
	putFloat64(buf, 16, 3.5)

	got, err := DecodeFloat64(buf, "float64", nil)
	if err != nil {
		t.Fatalf("DecodeFloat64() error = %v", err)
	}
	want := []float64{1.5, 2.5, 3.5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeFloat64RejectsStructuredDtype(t *testing.T) {
	if _, err := DecodeFloat64([]byte{}, rateDtype, nil); err == nil {
		t.Error("expected DecodeFloat64 to reject a structured dtype")
	}
}
