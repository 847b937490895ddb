package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Name", "Best", "Intervals"}
	rows := [][]string{
		{"Léa", "0:42.0", "2"},
		{"Maximilien", "1:05.3", "10"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Name         Best Intervals" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Léa        0:42.0         2" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Maximilien 1:05.3        10" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableTrimsTrailingPadding(t *testing.T) {
	lines := formatTable([]string{"A", "B"}, [][]string{{"long value", ""}}, nil)
	if lines[1] != "long value" {
		t.Fatalf("expected trailing padding trimmed, got %q", lines[1])
	}
}

func TestTruncateCell(t *testing.T) {
	if got := truncateCell("abcdefgh", 5); got != "abcd…" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateCell("abc", 5); got != "abc" {
		t.Fatalf("short value must be unchanged: %q", got)
	}
}
