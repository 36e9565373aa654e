package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitQuotedText(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{}},
		{"disk error", []string{"disk", "error"}},
		{`"disk full" now`, []string{"disk full", "now"}},
		{`  spaced   out  `, []string{"spaced", "out"}},
		{`"" empty`, []string{"", "empty"}},
		{`"unterminated phrase`, []string{`"unterminated`, "phrase"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitQuotedText(tt.input))
		})
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		input string
		want  [][]string
	}{
		{"", nil},
		{"   ", nil},
		{"|", nil},
		{"error|warn", [][]string{{"error"}, {"warn"}}},
		{"Disk Error", [][]string{{"disk", "error"}}},
		{`"Disk Full" | | timeout`, [][]string{{"disk full"}, {"timeout"}}},
		{`"" | x`, [][]string{{""}, {"x"}}},
		{`"" disk`, [][]string{{"", "disk"}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := ParseQuery(tt.input)
			assert.Equal(t, tt.want, q.Groups())
			assert.Equal(t, len(tt.want) == 0, q.Empty())
		})
	}
}

func TestQuery_Match(t *testing.T) {
	tests := []struct {
		name     string
		criteria string
		message  string
		want     bool
	}{
		{"empty matches all", "", "anything", true},
		{"blank matches all", "  ", "anything", true},
		{"or first", "error|warn", "An ERROR occurred", true},
		{"or second", "error|warn", "warning: low memory", true},
		{"or neither", "error|warn", "all good", false},
		{"and both", "disk error", "error reading disk 0", true},
		{"and one missing", "disk error", "disk is fine", false},
		{"phrase exact", `"disk full"`, "the disk full alert fired", true},
		{"phrase split", `"disk full"`, "disk is full", false},
		{"phrase case", `"Disk Full"`, "DISK FULL", true},
		{"mixed", `"access denied" user|timeout`, "Access denied for user bob", true},
		{"mixed miss", `"access denied" user|timeout`, "access denied for service", false},
		{"substring", "conn", "connection reset", true},
		{"empty quoted group matches all", `"" | x`, "disk full", true},
		{"empty quoted token is ignored by and", `"" disk`, "disk full", true},
		{"empty quoted token and miss", `"" disk`, "all good", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuery(tt.criteria).Match(tt.message))
		})
	}
}
