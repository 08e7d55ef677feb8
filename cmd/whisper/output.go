package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/ahrav/whisper/internal/app/scanning"
	"github.com/ahrav/whisper/internal/domain/detection"
)

// sortFindings orders findings by file then line so output is stable across
// runs with different worker counts.
func sortFindings(findings []detection.Finding) []detection.Finding {
	out := slices.Clone(findings)
	slices.SortStableFunc(out, func(a, b detection.Finding) int {
		if c := cmp.Compare(a.File(), b.File()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Line(), b.Line()); c != 0 {
			return c
		}
		return cmp.Compare(a.Detector(), b.Detector())
	})
	return out
}

func writeReport(w io.Writer, format string, report *scanning.Report) error {
	findings := sortFindings(report.Findings)

	if format == formatJSON {
		if findings == nil {
			findings = []detection.Finding{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(findings)
	}

	if len(findings) == 0 {
		_, err := fmt.Fprintf(w, "No secrets found (%d files scanned).\n", report.FilesScanned)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINE\tDETECTOR\tCONFIDENCE\tSECRET\tREASON")
	for _, f := range findings {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\t%s\t%s\n",
			f.File(), f.Line(), f.Detector(), f.Confidence(), redact(f.SecretValue()), f.Reason())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d secrets found (%d files scanned, scan %s).\n",
		len(findings), report.FilesScanned, report.ScanID)
	return err
}

type dryRunSummary struct {
	Root      string   `json:"root"`
	Detectors []string `json:"detectors"`
	Files     int      `json:"files"`
}

func writeDryRun(w io.Writer, format, root string, detectors []string, files []string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dryRunSummary{Root: root, Detectors: detectors, Files: len(files)})
	}
	_, err := fmt.Fprintf(w, "Dry run: %d files would be scanned under %s\nDetectors: %s\n",
		len(files), root, strings.Join(detectors, ", "))
	return err
}

// redact keeps the first four characters of a secret.
func redact(s string) string {
	const keep = 4
	r := []rune(s)
	if len(r) <= keep {
		return strings.Repeat("*", len(r))
	}
	return string(r[:keep]) + strings.Repeat("*", min(len(r)-keep, 8))
}
