package cache

import (
	"strings"
	"testing"
	"time"
)

type stringerID string

func (s stringerID) String() string { return "id-" + string(s) }

func TestSerializeKey(t *testing.T) {
	s := NewDefaultKeySerializer()

	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{name: "no args", method: "GetByID", want: "GetByID"},
		{name: "string arg", method: "GetByID", args: []any{"abc"}, want: "GetByID::abc"},
		{name: "mixed basic args", method: "List", args: []any{10, true, 1.5}, want: "List::10::true::1.5"},
		{name: "nil arg", method: "List", args: []any{nil}, want: "List::nil"},
		{name: "string slice", method: "Tags", args: []any{[]string{"a", "b"}}, want: "Tags::[a,b]"},
		{name: "stringer", method: "GetByID", args: []any{stringerID("7")}, want: "GetByID::id-7"},
		{name: "duration uses stringer", method: "TTL", args: []any{time.Minute}, want: "TTL::1m0s"},
		{
			name:   "struct falls back to json",
			method: "Search",
			args:   []any{struct{ Status string }{Status: "approved"}},
			want:   `Search::json:{"Status":"approved"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerializeKey_Prefix(t *testing.T) {
	s := NewDefaultKeySerializer("invoice")
	if got := s.SerializeKey("GetByID", "x"); got != "invoice::GetByID::x" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestSerializeKey_LongKeysAreDigested(t *testing.T) {
	s := NewDefaultKeySerializer()
	long := strings.Repeat("x", MaxKeyLength)

	a := s.SerializeKey("Search", long)
	b := s.SerializeKey("Search", long)
	c := s.SerializeKey("Search", long+"y")

	if len(a) > MaxKeyLength {
		t.Errorf("expected digested key, got length %d", len(a))
	}
	if !strings.HasPrefix(a, "Search::h:") {
		t.Errorf("expected digest marker, got %q", a)
	}
	if a != b {
		t.Error("expected stable digest")
	}
	if a == c {
		t.Error("expected different digests for different args")
	}
}
