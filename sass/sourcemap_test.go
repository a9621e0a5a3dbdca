package sass

import (
	"strings"
	"testing"
)

func TestWriteVLQ(t *testing.T) {
	tests := []struct {
		v    int
		want string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{123, "2H"},
		{-123, "3H"},
	}
	for _, tt := range tests {
		var b strings.Builder
		writeVLQ(&b, tt.v)
		if b.String() != tt.want {
			t.Errorf("writeVLQ(%d) = %q, want %q", tt.v, b.String(), tt.want)
		}
	}
}

func TestMapBuilder_Mappings(t *testing.T) {
	var m mapBuilder
	m.add(0, 0, 0, 0, 0)
	m.add(1, 0, 0, 1, 0)
	m.add(1, 4, 1, 0, 0)
	m.add(3, 0, 0, 2, 0)

	if got, want := m.mappings(), "AAAA;AACA,ICDA;;ADEA"; got != want {
		t.Errorf("mappings() = %q, want %q", got, want)
	}
}

func TestSourceMap_RoundTrip(t *testing.T) {
	sm := &SourceMap{Version: 3, File: "main.css", Sources: []string{"a.scss", "b.scss"}, Names: []string{}, Mappings: "AAAA"}
	data, err := sm.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "sourcesContent") {
		t.Errorf("empty sourcesContent must be omitted: %s", data)
	}
	back, err := ParseSourceMap(data)
	if err != nil {
		t.Fatalf("ParseSourceMap() error = %v", err)
	}
	if back.File != "main.css" || len(back.Sources) != 2 || back.Sources[1] != "b.scss" {
		t.Errorf("ParseSourceMap() = %+v", back)
	}
	if _, err := ParseSourceMap([]byte("{not json")); err == nil {
		t.Error("expected error for malformed map")
	}
}
