package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	SetMaxBodyBytes(1234)
	defer SetMaxBodyBytes(0)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetContextSizeRange(t *testing.T) {
	SetContextSizeRange(1024, 0)
	defer SetContextSizeRange(0, 0)
	if contextSizeMin != 1024 || contextSizeMax != 262144 {
		t.Fatalf("unexpected range %d..%d", contextSizeMin, contextSizeMax)
	}
}

func TestParseWait(t *testing.T) {
	SetMaxWait(time.Minute)
	defer SetMaxWait(0)

	cases := []struct {
		q       string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"?wait=15s", 15 * time.Second, false},
		{"?wait=1h", time.Minute, false},
		{"?wait=-1s", 0, true},
		{"?wait=10", 0, true},
	}
	for _, tc := range cases {
		got, err := parseWait(httptest.NewRequest("GET", "/model"+tc.q, nil))
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("%q: got %v, %v", tc.q, got, err)
		}
	}
}
