package mt5gen

import (
	"context"
	"testing"

	"google.golang.org/grpc"
)

func TestJSONCodecRoundtrip(t *testing.T) {
	codec := jsonCodec{}
	in := &NumpyArray{Data: []byte{1, 2, 3}, Dtype: "float64", Shape: []int32{3}}

	data, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	out := new(NumpyArray)
	if err := codec.Unmarshal(data, out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Dtype != in.Dtype || len(out.Shape) != 1 || out.Shape[0] != 3 {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestCodecNameMatchesRegisteredSubtype(t *testing.T) {
	if (jsonCodec{}).Name() != "json" {
		t.Errorf("codec name = %q, want %q", (jsonCodec{}).Name(), "json")
	}
}

// fakeConn records the full method name and request passed to Invoke, and
// plays back a canned response or error.
type fakeConn struct {
	gotMethod string
	gotReq    any
	resp      any
	err       error
}

func (f *fakeConn) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	f.gotMethod = method
	f.gotReq = args
	if f.err != nil {
		return f.err
	}
	if br, ok := reply.(*BoolResponse); ok {
		if src, ok := f.resp.(*BoolResponse); ok {
			*br = *src
		}
	}
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	panic("not used by MT5Service: it is entirely unary RPCs")
}

func TestClientRoutesToExpectedFullMethod(t *testing.T) {
	fc := &fakeConn{resp: &BoolResponse{Result: true}}
	c := NewClient(fc)

	out, err := c.SymbolSelect(context.Background(), &SymbolSelectRequest{Symbol: "EURUSD", Enable: true})
	if err != nil {
		t.Fatalf("SymbolSelect() error = %v", err)
	}
	if !out.Result {
		t.Error("expected Result = true")
	}
	if fc.gotMethod != "/mt5.MT5Service/SymbolSelect" {
		t.Errorf("method = %q, want /mt5.MT5Service/SymbolSelect", fc.gotMethod)
	}
	req, ok := fc.gotReq.(*SymbolSelectRequest)
	if !ok || req.Symbol != "EURUSD" {
		t.Errorf("request not forwarded correctly: %+v", fc.gotReq)
	}
}

func TestClientPropagatesInvokeError(t *testing.T) {
	fc := &fakeConn{err: context.DeadlineExceeded}
	c := NewClient(fc)

	if _, err := c.AccountInfo(context.Background(), &Empty{}); err == nil {
		t.Error("expected AccountInfo() to propagate the Invoke error")
	}
}
