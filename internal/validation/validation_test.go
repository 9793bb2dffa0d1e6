package validation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		addr  string
		valid bool
	}{
		{"0x1234567890123456789012345678901234567890", true},
		{"0xabcdefABCDEF1234567890123456789012345678", true},
		{"1234567890123456789012345678901234567890", true}, // no 0x prefix is accepted by hex check
		{"0x12345", false},
		{"", false},
		{"0xZZ34567890123456789012345678901234567890", false},
	}

	for _, tt := range tests {
		if got := IsValidAddress(tt.addr); got != tt.valid {
			t.Errorf("IsValidAddress(%q) = %v, want %v", tt.addr, got, tt.valid)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	if got := NormalizeAddress("  0xABCDEF1234567890123456789012345678901234  "); got != "0xabcdef1234567890123456789012345678901234" {
		t.Errorf("NormalizeAddress = %q", got)
	}
	if got := NormalizeAddress("abcdef1234567890123456789012345678901234"); got != "0xabcdef1234567890123456789012345678901234" {
		t.Errorf("NormalizeAddress without prefix = %q", got)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	errs := Validate(
		Required("seller", ""),
		ValidAddress("seller", "not-an-address"),
		ValidAmount("amount", "-5"),
	)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	if errs.Error() == "" {
		t.Error("Error() should describe the first failure")
	}
}

func TestValidAmount(t *testing.T) {
	if errs := Validate(ValidAmount("amount", "10.50")); len(errs) != 0 {
		t.Errorf("valid amount rejected: %v", errs)
	}
	if errs := Validate(ValidAmount("amount", "0")); len(errs) == 0 {
		t.Error("zero amount should be rejected")
	}
	if errs := Validate(ValidAmount("amount", "1.2.3")); len(errs) == 0 {
		t.Error("malformed amount should be rejected")
	}
	// Empty passes; Required covers presence.
	if errs := Validate(ValidAmount("amount", "")); len(errs) != 0 {
		t.Errorf("empty amount should pass ValidAmount: %v", errs)
	}
}

func TestAddressParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/agents/:address", AddressParamMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/agents/0x1234567890123456789012345678901234567890", nil))
	if w.Code != http.StatusOK {
		t.Errorf("valid address rejected: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/agents/bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid address accepted: %d", w.Code)
	}
}
