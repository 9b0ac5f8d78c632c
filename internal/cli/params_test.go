package cli

import "testing"

func TestParseParam_SplitsKeyAndCoercesValue(t *testing.T) {
	cases := []struct {
		tok   string
		key   string
		value any
	}{
		{"x=5", "x", int64(5)},
		{"ratio=1.5", "ratio", 1.5},
		{"flag=true", "flag", true},
		{"flag=false", "flag", false},
		{"name=hello", "name", "hello"},
	}
	for _, c := range cases {
		key, value, ok := parseParam(c.tok)
		if !ok {
			t.Fatalf("parseParam(%q) returned ok=false", c.tok)
		}
		if key != c.key {
			t.Errorf("parseParam(%q) key = %q, want %q", c.tok, key, c.key)
		}
		if value != c.value {
			t.Errorf("parseParam(%q) value = %v (%T), want %v (%T)", c.tok, value, value, c.value, c.value)
		}
	}
}

func TestParseParam_NoEqualsSignReturnsNotOK(t *testing.T) {
	_, _, ok := parseParam("--flag")
	if ok {
		t.Fatalf("expected ok=false for a token with no '='")
	}
}

func TestIsFlagToken(t *testing.T) {
	if !isFlagToken("--force-root") {
		t.Errorf("expected --force-root to be a flag token")
	}
	if isFlagToken("x=5") {
		t.Errorf("expected x=5 not to be a flag token")
	}
}
