package store

import (
	"context"
	"fmt"

	"github.com/keagan/viddup/pkg/util"
)

// PurgeReport describes what a purge pass found (and, when not a dry run,
// removed).
type PurgeReport struct {
	MissingFiles       []FileRecord
	OrphanFingerprints int
}

// Purge finds file records whose path is no longer readable and fingerprint
// rows that reference no live file. With del=false it only reports; with
// del=true it removes those rows plus brightness samples and whitelist
// entries referencing the removed ids, in one transaction.
func (s *Store) Purge(ctx context.Context, del bool) (*PurgeReport, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{}
	for _, f := range files {
		if !util.FileExists(f.Path) {
			report.MissingFiles = append(report.MissingFiles, f)
		}
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM hashes WHERE filename_id NOT IN (SELECT id FROM filenames)").
		Scan(&report.OrphanFingerprints)
	if err != nil {
		return nil, err
	}

	if !del {
		return report, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, f := range report.MissingFiles {
		steps := []struct {
			q    string
			args []any
		}{
			{"DELETE FROM hashes WHERE filename_id = ?", []any{f.ID}},
			{"DELETE FROM brightness WHERE filename_id = ?", []any{f.ID}},
			{"DELETE FROM whitelist WHERE id1 = ? OR id2 = ?", []any{f.ID, f.ID}},
			{"DELETE FROM filenames WHERE id = ?", []any{f.ID}},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.q, step.args...); err != nil {
				return nil, fmt.Errorf("purge file %d: %w", f.ID, err)
			}
		}
	}

	cleanups := []string{
		"DELETE FROM hashes WHERE filename_id NOT IN (SELECT id FROM filenames)",
		"DELETE FROM brightness WHERE filename_id NOT IN (SELECT id FROM filenames)",
		"DELETE FROM whitelist WHERE id1 NOT IN (SELECT id FROM filenames) OR id2 NOT IN (SELECT id FROM filenames)",
	}
	for _, q := range cleanups {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return nil, fmt.Errorf("purge orphans: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return report, nil
}

// FilesMissingMetadata returns records whose fps or duration was never
// probed successfully.
func (s *Store) FilesMissingMetadata(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(fps, 0), COALESCE(duration, 0) FROM filenames WHERE COALESCE(fps, 0) <= 0 OR COALESCE(duration, 0) <= 0 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.ID, &f.Path, &f.FPS, &f.Duration); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpdateMetadata backfills fps and duration for a file record.
func (s *Store) UpdateMetadata(ctx context.Context, fileID int64, fps, duration float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE filenames SET fps = ?, duration = ? WHERE id = ?", fps, duration, fileID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no file record with id %d", fileID)
	}
	return nil
}
