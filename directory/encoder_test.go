package directory

import (
	"bytes"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func TestADEncoderQuotedUTF16LE(t *testing.T) {
	enc, err := EncoderFor(FlavorActiveDirectory)
	if err != nil {
		t.Fatalf("EncoderFor AD failed: %v", err)
	}
	if enc.Attribute() != "unicodePwd" {
		t.Fatalf("expected unicodePwd attribute, got %q", enc.Attribute())
	}

	const password = "Str0ngPass!"
	got, err := enc.Encode(password)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// For ASCII input the UTF-16LE bytes are each character followed by a
	// zero byte, quotes included, no BOM, no trailing null.
	quoted := `"` + password + `"`
	want := make([]byte, 0, len(quoted)*2)
	for i := 0; i < len(quoted); i++ {
		want = append(want, quoted[i], 0)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("AD encoding mismatch:\n got %x\nwant %x", got, want)
	}
	if len(got) != len(quoted)*2 {
		t.Fatalf("expected %d bytes, got %d", len(quoted)*2, len(got))
	}
}

func TestADEncoderRoundTrip(t *testing.T) {
	enc, err := EncoderFor(FlavorActiveDirectory)
	if err != nil {
		t.Fatalf("EncoderFor AD failed: %v", err)
	}

	const password = "pässwörd-Ω"
	encoded, err := enc.Encode(password)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	decoded, err := dec.Bytes(encoded)
	if err != nil {
		t.Fatalf("UTF-16LE decode failed: %v", err)
	}
	if string(decoded) != `"`+password+`"` {
		t.Fatalf("round trip mismatch: got %q", decoded)
	}
}

func TestGenericEncoderPlainString(t *testing.T) {
	enc, err := EncoderFor(FlavorGeneric)
	if err != nil {
		t.Fatalf("EncoderFor generic failed: %v", err)
	}
	if enc.Attribute() != "userPassword" {
		t.Fatalf("expected userPassword attribute, got %q", enc.Attribute())
	}

	got, err := enc.Encode("plain-secret")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(got) != "plain-secret" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestEncoderForUnknownFlavor(t *testing.T) {
	if _, err := EncoderFor(Flavor(42)); err != ErrUnknownFlavor {
		t.Fatalf("expected ErrUnknownFlavor, got %v", err)
	}
}
