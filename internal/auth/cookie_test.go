package auth

import "testing"

func TestSignSessionID_RoundTrip(t *testing.T) {
	value := SignSessionID("abc123", "test-secret")

	id, ok := VerifySignedValue(value, "test-secret")
	if !ok {
		t.Fatal("valid signature rejected")
	}
	if id != "abc123" {
		t.Errorf("session ID = %q, want abc123", id)
	}
}

func TestVerifySignedValue_TamperedID(t *testing.T) {
	value := SignSessionID("abc123", "test-secret")
	tampered := "xyz" + value[3:]

	if _, ok := VerifySignedValue(tampered, "test-secret"); ok {
		t.Error("tampered value accepted")
	}
}

func TestVerifySignedValue_WrongSecret(t *testing.T) {
	value := SignSessionID("abc123", "test-secret")

	if _, ok := VerifySignedValue(value, "other-secret"); ok {
		t.Error("signature from another secret accepted")
	}
}

func TestVerifySignedValue_Malformed(t *testing.T) {
	for _, value := range []string{"", "no-separator", ".signature-only"} {
		if _, ok := VerifySignedValue(value, "test-secret"); ok {
			t.Errorf("malformed value %q accepted", value)
		}
	}
}
