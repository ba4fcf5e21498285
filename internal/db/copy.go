package db

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/myelin/internal/model"
)

// recordSource feeds provider records to COPY, encoding each one when pgx
// asks for the next row. The first encoding failure ends the copy and is
// reported by Err, which makes CopyFrom abort the statement.
type recordSource struct {
	recs    []model.ProviderRecord
	batchID uuid.UUID
	fileID  int64

	next int
	row  *model.ProviderStagingRow
	err  error
}

func newRecordSource(recs []model.ProviderRecord, batchID uuid.UUID, fileID int64) *recordSource {
	return &recordSource{recs: recs, batchID: batchID, fileID: fileID}
}

func (s *recordSource) Next() bool {
	if s.err != nil || s.next >= len(s.recs) {
		return false
	}
	r := s.recs[s.next]
	s.next++
	row, err := model.NewProviderStagingRow(r, s.batchID, s.fileID)
	if err != nil {
		s.err = fmt.Errorf("encode %s record %s (row %d): %w", r.Variant(), model.RecordKey(r), s.next, err)
		return false
	}
	s.row = row
	return true
}

func (s *recordSource) Values() ([]any, error) {
	return s.row.CopyValues(), nil
}

func (s *recordSource) Err() error { return s.err }

var _ pgx.CopyFromSource = (*recordSource)(nil)
