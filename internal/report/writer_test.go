package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nsflow/internal/sample"
)

func TestWriteChainProducesExpectedHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	samples := []sample.Sample{
		{X: []float64{0.1, 0.2}, LogL: -1, LogP: 0, LogW: -2, It: 0},
		{X: []float64{0.3, 0.4}, LogL: -0.5, LogP: 0, LogW: -1, It: 1},
	}
	if err := WriteChain(dir, 50, []string{"x", "y"}, samples); err != nil {
		t.Fatalf("WriteChain: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "chain_50.txt"))
	if err != nil {
		t.Fatalf("reading chain file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 1 header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "# iteration x y logL logP logW") {
		t.Errorf("unexpected header: %q", lines[0])
	}
}

func TestWriteEvidenceSummaryFormat(t *testing.T) {
	dir := t.TempDir()
	if err := WriteEvidenceSummary(dir, 100, -12.5, 3.2); err != nil {
		t.Fatalf("WriteEvidenceSummary: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "100_evidence.txt"))
	if err != nil {
		t.Fatalf("reading evidence file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "log_z -12.5") {
		t.Errorf("evidence file missing log_z line: %q", content)
	}
	if !strings.Contains(content, "information 3.2") {
		t.Errorf("evidence file missing information line: %q", content)
	}
}
