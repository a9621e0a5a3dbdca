package sass

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// SourceMap is revision 3 source map.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseSourceMap decodes JSON source map.
func ParseSourceMap(data []byte) (*SourceMap, error) {
	sm := &SourceMap{}
	if err := json.Unmarshal(data, sm); err != nil {
		return nil, err
	}
	return sm, nil
}

// Marshal encodes source map to JSON.
func (sm *SourceMap) Marshal() ([]byte, error) {
	return json.Marshal(sm)
}

type segment struct {
	genCol, src, line, col int
}

// mapBuilder accumulates per line mapping segments.
type mapBuilder struct {
	lines [][]segment
}

func (m *mapBuilder) add(genLine, genCol, src, line, col int) {
	for len(m.lines) <= genLine {
		m.lines = append(m.lines, nil)
	}
	m.lines[genLine] = append(m.lines[genLine], segment{genCol: genCol, src: src, line: line, col: col})
}

// mappings encodes segments with base64 VLQ, fields relative to the previous
// segment (generated column restarts on every line).
func (m *mapBuilder) mappings() string {
	var b strings.Builder
	prevSrc, prevLine, prevCol := 0, 0, 0
	for i, segs := range m.lines {
		if i > 0 {
			b.WriteByte(';')
		}
		prevGenCol := 0
		for j, s := range segs {
			if j > 0 {
				b.WriteByte(',')
			}
			writeVLQ(&b, s.genCol-prevGenCol)
			writeVLQ(&b, s.src-prevSrc)
			writeVLQ(&b, s.line-prevLine)
			writeVLQ(&b, s.col-prevCol)
			prevGenCol, prevSrc, prevLine, prevCol = s.genCol, s.src, s.line, s.col
		}
	}
	return b.String()
}

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func writeVLQ(b *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		digit := u & 0x1f
		u >>= 5
		if u > 0 {
			digit |= 0x20
		}
		b.WriteByte(base64Digits[digit])
		if u == 0 {
			return
		}
	}
}
