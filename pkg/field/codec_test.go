package field

import "testing"

func TestParseMicroUSDC(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10.00", 10_000_000, false},
		{"10", 10_000_000, false},
		{"0.01", 10_000, false},
		{"10.123456", 10_123_456, false},
		{"10.1234567", 0, true},
		{"-5.00", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMicroUSDC(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMicroUSDC(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMicroUSDC(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMicroUSDC(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatMicroUSDCRoundTrip(t *testing.T) {
	for _, in := range []string{"10.00", "0.01", "123.45678", "1000000.000001"} {
		micros, err := ParseMicroUSDC(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		out := FormatMicroUSDC(micros)
		micros2, err := ParseMicroUSDC(out)
		if err != nil {
			t.Fatalf("reparse %q: %v", out, err)
		}
		if micros != micros2 {
			t.Errorf("round trip mismatch for %q: %d != %d (via %q)", in, micros, micros2, out)
		}
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("yes"); err != nil || s != SideYes {
		t.Errorf("ParseSide(yes) = %v, %v", s, err)
	}
	if s, err := ParseSide("NO"); err != nil || s != SideNo {
		t.Errorf("ParseSide(NO) = %v, %v", s, err)
	}
	if _, err := ParseSide("maybe"); err == nil {
		t.Error("expected error for invalid side")
	}
}

func TestTickerFieldDeterministic(t *testing.T) {
	a, err := TickerField("MKT-A")
	if err != nil {
		t.Fatal(err)
	}
	b, err := TickerField("MKT-A")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(&b) {
		t.Error("TickerField not deterministic")
	}
	c, _ := TickerField("MKT-B")
	if a.Equal(&c) {
		t.Error("distinct tickers collided")
	}
}

func TestTickerFieldRejectsEmpty(t *testing.T) {
	if _, err := TickerField(""); err == nil {
		t.Error("expected BadInput for empty ticker")
	}
}

// TestTickerFieldFixedVector pins TickerField's byte-packing to a literal
// output, so a reordering of bytes within the conversion would be caught
// even though it would leave determinism and distinctness unaffected.
func TestTickerFieldFixedVector(t *testing.T) {
	got, err := TickerField("MKT-A")
	if err != nil {
		t.Fatal(err)
	}
	want := new(Element).SetUint64(331976289601)
	if !got.Equal(want) {
		t.Errorf("TickerField(MKT-A) = %s, want %s", got.String(), want.String())
	}
}

// TestCiphertextFieldFixedVector pins CiphertextField's chunk-and-fold
// output for an input spanning three 31-byte chunks, so a change to the
// chunk size or fold order would be caught here even though it would
// preserve every relational property CiphertextField is otherwise tested
// against.
func TestCiphertextFieldFixedVector(t *testing.T) {
	ciphertext := "this-is-a-fixed-ciphertext-fixture-that-is-longer-than-thirty-one-bytes"
	got, err := CiphertextField(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	want, ok := new(Element).SetString("17585277015865984940602181011831419658372607838009404579686987328848034767028")
	if !ok {
		t.Fatal("bad fixed-vector constant")
	}
	if !got.Equal(want) {
		t.Errorf("CiphertextField(...) = %s, want %s", got.String(), want.String())
	}
}

func TestCiphertextFieldDeterministicAndSensitive(t *testing.T) {
	a, err := CiphertextField("ciphertext-one")
	if err != nil {
		t.Fatal(err)
	}
	b, err := CiphertextField("ciphertext-one")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(&b) {
		t.Error("CiphertextField not deterministic")
	}
	c, err := CiphertextField("ciphertext-two")
	if err != nil {
		t.Fatal(err)
	}
	if a.Equal(&c) {
		t.Error("distinct ciphertexts collided")
	}
	if _, err := CiphertextField(""); err == nil {
		t.Error("expected BadInput for empty ciphertext")
	}
}

func TestAddressFieldValidation(t *testing.T) {
	valid := "11111111111111111111111111111111" // 32 zero bytes, base58
	if !ValidAddress(valid) {
		t.Errorf("expected %q to be a valid address", valid)
	}
	if ValidAddress("not-base58!!!") {
		t.Error("expected invalid base58 to be rejected")
	}
	if ValidAddress("abc") {
		t.Error("expected short decode to be rejected")
	}
	if _, err := AddressField(valid); err != nil {
		t.Errorf("AddressField(%q): unexpected error: %v", valid, err)
	}
}

func TestSaltFieldDecimalAndHex(t *testing.T) {
	a, err := SaltField("12345")
	if err != nil {
		t.Fatal(err)
	}
	b, err := SaltField("0x3039")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(&b) {
		t.Error("decimal and hex salt encodings diverged")
	}
}

func TestRandomSaltIsUsable(t *testing.T) {
	s, err := RandomSalt()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := SaltField(s); err != nil {
		t.Errorf("generated salt %q failed to parse: %v", s, err)
	}
}
