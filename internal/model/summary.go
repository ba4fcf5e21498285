package model

import "time"

// FileSummary captures metrics from loading one reference file.
type FileSummary struct {
	Source       string
	Kind         string
	FileSHA256   string
	RefFileID    int64
	BuildBatchID string
	Skipped      bool // file hash already applied
	Attempts     int
	RowsRead     int64
	RowsRejected int64
	RowsAdded    int64
	RowsChanged  int64
	RowsSame     int64
	Duration     time.Duration
	Err          error
}

// BuildSummary aggregates a build run across files.
type BuildSummary struct {
	Files         []FileSummary
	FilesLoaded   int
	FilesSkipped  int
	FilesFailed   int
	DurationTotal time.Duration
}

// Add records one file result.
func (s *BuildSummary) Add(f FileSummary) {
	s.Files = append(s.Files, f)
	switch {
	case f.Err != nil:
		s.FilesFailed++
	case f.Skipped:
		s.FilesSkipped++
	default:
		s.FilesLoaded++
	}
}
