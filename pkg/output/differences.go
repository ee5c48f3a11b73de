package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// DifferenceEntry is one classified path in a differences report
type DifferenceEntry struct {
	Path     string `json:"path"`
	DestPath string `json:"dest_path,omitempty"`
	Reason   string `json:"reason"`
	Primary  *bool  `json:"primary,omitempty"`
	HeadType string `json:"head_type,omitempty"`
}

// WriteDifferencesReport writes the differences report to a file, or to
// stdout when path is empty. Format can be "human" or "json".
func WriteDifferencesReport(report *models.Report, path string, format string) error {
	if report.Classification == nil || !report.Classification.HasDifference() {
		// No differences - don't create empty file
		return nil
	}
	if path == "" {
		return WriteDifferences(os.Stdout, report, format)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create differences file: %w", err)
	}
	if err := WriteDifferences(file, report, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteDifferences writes the differences of report to w
func WriteDifferences(w io.Writer, report *models.Report, format string) error {
	switch format {
	case "json":
		return writeDifferencesJSON(report, w)
	default: // "human"
		return writeDifferencesHuman(report, w)
	}
}

// differenceGroups lists every classification set in report order
func differenceGroups(c *models.Classification) []struct {
	label   string
	entries []DifferenceEntry
} {
	type group = struct {
		label   string
		entries []DifferenceEntry
	}
	var sourceOnly, destOnly, caseMismatch, changed []DifferenceEntry

	for _, f := range c.SourceOnly {
		primary := f.Primary
		sourceOnly = append(sourceOnly, DifferenceEntry{Path: f.Path, Reason: "source_only", Primary: &primary})
	}
	for _, f := range c.DestOnly {
		destOnly = append(destOnly, DifferenceEntry{Path: f.Path, Reason: "dest_only", HeadType: f.HeadType})
	}
	for _, p := range c.CaseMismatch {
		caseMismatch = append(caseMismatch, DifferenceEntry{Path: p.Source.Path, DestPath: p.Dest.Path, Reason: "case_mismatch"})
	}
	for _, p := range c.Changed {
		changed = append(changed, DifferenceEntry{Path: p.Source.Path, Reason: "changed", HeadType: p.Dest.HeadType})
	}

	return []group{
		{"Only in Source", sourceOnly},
		{"Only in Destination", destOnly},
		{"Case Mismatches", caseMismatch},
		{"Content Differences", changed},
	}
}

// writeDifferencesHuman writes differences in human-readable format
func writeDifferencesHuman(report *models.Report, w io.Writer) error {
	c := report.Classification

	fmt.Fprintf(w, "Differences Report\n")
	fmt.Fprintf(w, "==================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Source: %s\n", report.SourceRoot)
	fmt.Fprintf(w, "Stream: %s\n", report.Stream)
	fmt.Fprintf(w, "Dry Run: %v\n\n", report.DryRun)

	total := len(c.SourceOnly) + len(c.DestOnly) + len(c.CaseMismatch) + len(c.Changed)
	fmt.Fprintf(w, "Total Differences: %d\n\n", total)

	for _, g := range differenceGroups(c) {
		if len(g.entries) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d files)", g.label, len(g.entries))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		for _, e := range g.entries {
			switch {
			case e.DestPath != "":
				fmt.Fprintf(w, "  %s (destination: %s)\n", e.Path, e.DestPath)
			case e.Primary != nil && !*e.Primary:
				fmt.Fprintf(w, "  %s (dependency)\n", e.Path)
			default:
				fmt.Fprintf(w, "  %s\n", e.Path)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// writeDifferencesJSON writes differences in JSON format
func writeDifferencesJSON(report *models.Report, w io.Writer) error {
	var differences []DifferenceEntry
	for _, g := range differenceGroups(report.Classification) {
		differences = append(differences, g.entries...)
	}

	output := struct {
		Generated   string            `json:"generated"`
		OperationID string            `json:"operation_id"`
		Source      string            `json:"source"`
		Stream      string            `json:"stream"`
		DryRun      bool              `json:"dry_run"`
		TotalCount  int               `json:"total_count"`
		Differences []DifferenceEntry `json:"differences"`
	}{
		Generated:   time.Now().Format(time.RFC3339),
		OperationID: report.OperationID,
		Source:      report.SourceRoot,
		Stream:      report.Stream,
		DryRun:      report.DryRun,
		TotalCount:  len(differences),
		Differences: differences,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
