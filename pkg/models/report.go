package models

import (
	"time"
)

// Report represents the results of a reconciliation run
type Report struct {
	OperationID string
	SourceRoot  string
	Stream      string
	DryRun      bool

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Stats Statistics

	// Classification is nil if the run failed before comparing
	Classification *Classification

	// Plan is nil if there was nothing to do
	Plan *Plan

	Warnings []string

	Status Status
}

// Statistics holds run metrics
type Statistics struct {
	SourceFiles     int   `json:"source_files"`
	SourceDeps      int   `json:"source_deps"` // non-primary source files
	SourceIgnored   int   `json:"source_ignored"`
	DestFiles       int   `json:"dest_files"`
	DestIgnored     int   `json:"dest_ignored"`
	SourceOnly      int   `json:"source_only"`
	DestOnly        int   `json:"dest_only"`
	CaseMismatch    int   `json:"case_mismatch"`
	Changed         int   `json:"changed"`
	Unchanged       int   `json:"unchanged"`
	DigestsComputed int64 `json:"digests_computed"`

	Added       int   `json:"added"`
	Edited      int   `json:"edited"`
	Deleted     int   `json:"deleted"`
	Renamed     int   `json:"renamed"`
	FilesCopied int   `json:"files_copied"`
	BytesCopied int64 `json:"bytes_copied"`
}

// Status represents the overall result
type Status string

const (
	// StatusSuccess means the destination matches or all changes were staged
	StatusSuccess Status = "success"
	// StatusDifferent means differences were found but not staged (compare, dry run)
	StatusDifferent Status = "different"
	// StatusFailed means the run aborted
	StatusFailed Status = "failed"
)

// ExitCode returns the process exit code for the status
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusDifferent:
		return 1
	default:
		return 2
	}
}

// SetClassification records the classification and its counts
func (r *Report) SetClassification(c *Classification) {
	r.Classification = c
	r.Stats.SourceOnly = len(c.SourceOnly)
	r.Stats.DestOnly = len(c.DestOnly)
	r.Stats.CaseMismatch = len(c.CaseMismatch)
	r.Stats.Changed = len(c.Changed)
	r.Stats.Unchanged = c.Unchanged
}

// SetPlan records the plan, its counts and warnings
func (r *Report) SetPlan(p *Plan) {
	r.Plan = p
	r.Stats.Added = p.Count(ActionAdd)
	r.Stats.Edited = p.Count(ActionEdit)
	r.Stats.Deleted = p.Count(ActionDelete)
	r.Stats.Renamed = p.Count(ActionCaseRename)
	r.Warnings = append(r.Warnings, p.Warnings...)
}

// Finish stamps the end time and duration
func (r *Report) Finish(status Status) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Status = status
}
