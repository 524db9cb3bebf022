package tfl

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestRedact(t *testing.T) {
	ue := &url.Error{
		Op:  "Get",
		URL: "https://api.tfl.gov.uk/Line?app_id=tb8&app_key=a%2Bb",
		Err: errors.New("dial tcp: connection refused"),
	}
	got := redact(ue, "a+b").Error()
	if strings.Contains(got, "a%2Bb") || strings.Contains(got, "a+b") {
		t.Errorf("redact() = %s, still contains key", got)
	}
	if !strings.Contains(got, "app_key="+redacted) {
		t.Errorf("redact() = %s, want placeholder", got)
	}

	plain := errors.New("read tcp: key=abc reset")
	if got := redact(plain, "abc").Error(); strings.Contains(got, "abc") {
		t.Errorf("redact() = %s, still contains key", got)
	}

	if redact(nil, "abc") != nil {
		t.Error("redact(nil) should be nil")
	}
}
