package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"nsflow/internal/sample"
)

// WriteChain persists the nested-sample archive to <output>/chain_<nlive>.txt,
// one row per sample: iteration, coordinates, logL, logP, logW.
func WriteChain(output string, nlive int, names []string, samples []sample.Sample) error {
	path := filepath.Join(output, fmt.Sprintf("chain_%d.txt", nlive))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create chain file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "# iteration")
	for _, n := range names {
		fmt.Fprintf(w, " %s", n)
	}
	fmt.Fprintf(w, " logL logP logW\n")

	for _, s := range samples {
		fmt.Fprintf(w, "%d", s.It)
		for _, x := range s.X {
			fmt.Fprintf(w, " %.17g", x)
		}
		fmt.Fprintf(w, " %.17g %.17g %.17g\n", s.LogL, s.LogP, s.LogW)
	}

	return w.Flush()
}

// WriteEvidenceSummary persists the final evidence and information
// estimate to <output>/<nlive>_evidence.txt.
func WriteEvidenceSummary(output string, nlive int, logZ, info float64) error {
	path := filepath.Join(output, fmt.Sprintf("%d_evidence.txt", nlive))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create evidence file: %w", err)
	}
	defer file.Close()

	_, err = fmt.Fprintf(file, "log_z %.17g\ninformation %.17g\n", logZ, info)
	return err
}
