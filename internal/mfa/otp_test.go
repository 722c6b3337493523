package mfa

import "testing"

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(code) != otpDigits {
			t.Fatalf("len = %d, want %d", len(code), otpDigits)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit %q in code %q", c, code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("20 generated codes were all identical")
	}
}

func TestOTPEqual(t *testing.T) {
	digest := HashOTP("123456")
	tests := []struct {
		name   string
		code   string
		digest string
		want   bool
	}{
		{"match", "123456", digest, true},
		{"wrong code", "654321", digest, false},
		{"empty code", "", digest, false},
		{"empty digest", "123456", "", false},
		{"both empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OTPEqual(tt.code, tt.digest); got != tt.want {
				t.Errorf("OTPEqual(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestHashOTP_Deterministic(t *testing.T) {
	if HashOTP("123456") != HashOTP("123456") {
		t.Error("digest not deterministic")
	}
	if HashOTP("123456") == HashOTP("123457") {
		t.Error("distinct codes share a digest")
	}
}
