package encoding

import "testing"

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]int32, 0, 200)
	in = append(in, -2, -2, -1, -1, -1, 0, 0, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, -1, 1<<20, 1<<20)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_Limit(t *testing.T) {
	in := make([]int32, 100)
	if _, err := DecodeRLE(EncodeRLE(in), 99); err == nil {
		t.Fatalf("expected limit error")
	}
	if _, err := DecodeRLE("!!notbase64", 0); err == nil {
		t.Fatalf("expected base64 error")
	}
}

func TestRLE_SentinelsCompress(t *testing.T) {
	in := make([]int32, 4096)
	for i := range in {
		in[i] = -1
	}
	if enc := EncodeRLE(in); len(enc) > 8 {
		t.Fatalf("uniform grid encoded to %d bytes", len(enc))
	}
}

func TestQuantize01(t *testing.T) {
	got := Quantize01([]float32{-1, 0, 0.5, 1, 2})
	want := []int32{0, 0, 128, 255, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Quantize01[%d]=%d want=%d", i, got[i], want[i])
		}
	}
}
