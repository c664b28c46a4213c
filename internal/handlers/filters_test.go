package handlers

import (
	"reflect"
	"testing"
)

func TestParseIDList(t *testing.T) {
	cases := []struct {
		raw      string
		expected []int64
		wantErr  bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"1", []int64{1}, false},
		{"1,2,3", []int64{1, 2, 3}, false},
		{" 4 , 5 ", []int64{4, 5}, false},
		{"1,abc", nil, true},
		{"1,,2", nil, true},
		{"1.5", nil, true},
	}

	for _, tc := range cases {
		ids, err := parseIDList(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseIDList(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseIDList(%q): unexpected error %v", tc.raw, err)
		}
		if !reflect.DeepEqual(ids, tc.expected) {
			t.Fatalf("parseIDList(%q) = %v, expected %v", tc.raw, ids, tc.expected)
		}
	}
}

func TestParseBoolFlag(t *testing.T) {
	truthy := []string{"1", "true", "True", "yes", "anything"}
	for _, raw := range truthy {
		if !parseBoolFlag(raw) {
			t.Fatalf("parseBoolFlag(%q): expected true", raw)
		}
	}

	falsy := []string{"", "  ", "0", "false", "FALSE"}
	for _, raw := range falsy {
		if parseBoolFlag(raw) {
			t.Fatalf("parseBoolFlag(%q): expected false", raw)
		}
	}
}
