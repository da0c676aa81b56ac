package comparator

import "testing"

func TestKey8FromInt64PreservesOrder(t *testing.T) {
	values := []int64{-100, -1, 0, 1, 42, 1000, -1000, 9223372036854775807, -9223372036854775808}
	for i := range values {
		for j := range values {
			a, b := values[i], values[j]
			ka, kb := NewKey8FromInt64(a), NewKey8FromInt64(b)
			got := ka.Compare(kb)
			want := 0
			if a < b {
				want = -1
			} else if a > b {
				want = 1
			}
			if sign(got) != want {
				t.Errorf("Compare(%d, %d) = %d, want sign %d", a, b, got, want)
			}
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestKey4FromUint32PreservesOrder(t *testing.T) {
	values := []uint32{0, 1, 255, 256, 65535, 4294967295}
	for i := range values {
		for j := range values {
			a, b := values[i], values[j]
			got := NewKey4FromUint32(a).Compare(NewKey4FromUint32(b))
			want := 0
			if a < b {
				want = -1
			} else if a > b {
				want = 1
			}
			if sign(got) != want {
				t.Errorf("Compare(%d, %d) = %d, want sign %d", a, b, got, want)
			}
		}
	}
}

func TestBytesMatchesLexicographicOrder(t *testing.T) {
	if Bytes([]byte("abc"), []byte("abd")) >= 0 {
		t.Errorf("Bytes(abc, abd) should be negative")
	}
	if Bytes([]byte("abc"), []byte("abc")) != 0 {
		t.Errorf("Bytes(abc, abc) should be zero")
	}
}

func TestKey8RoundTripsThroughBytes(t *testing.T) {
	k := NewKey8FromInt64(-42)
	if len(k.Bytes()) != 8 {
		t.Fatalf("Bytes() length = %d, want 8", len(k.Bytes()))
	}
	if string(k.HashBytes()) != string(k.Bytes()) {
		t.Fatalf("HashBytes() should match Bytes()")
	}
	if got := (Key8Codec{}).Decode(k.Bytes()); got != k {
		t.Fatalf("Decode(Bytes()) = %v, want %v", got, k)
	}
}
