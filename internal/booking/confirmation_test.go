package booking

import (
	"strings"
	"testing"
)

func TestConfirmationCodeGenerator(t *testing.T) {
	gen, err := NewConfirmationCodeGenerator("test-secret")
	if err != nil {
		t.Fatalf("NewConfirmationCodeGenerator() error = %v", err)
	}

	code := gen.Generate(42)
	if !strings.HasPrefix(code, "VB-") {
		t.Errorf("code %q missing VB- prefix", code)
	}
	if code != strings.ToUpper(code) {
		t.Errorf("code %q should be upper case", code)
	}

	// The uuid nonce makes consecutive codes for the same booking distinct.
	if other := gen.Generate(42); other == code {
		t.Errorf("consecutive codes collided: %q", code)
	}
}
