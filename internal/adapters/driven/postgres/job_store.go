package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore implements driven.JobStore using PostgreSQL. Structured output
// (pages, chunks, statistics) is stored as JSONB; the upload payload lives in
// a BYTEA column and is nulled out once the job completes.
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

// Create inserts a new conversion job
func (s *JobStore) Create(ctx context.Context, job *domain.ConversionJob) error {
	options, pages, chunks, stats, err := marshalJobFields(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO conversion_jobs (
			id, api_key_id, filename, declared_mime, size_bytes, file_hash,
			payload, options, state, kind, pages, chunks, raw_text, statistics,
			error_code, error_message, submitted_at, started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.APIKeyID,
		job.Filename,
		job.DeclaredMIME,
		job.SizeBytes,
		job.FileHash,
		job.Data,
		options,
		string(job.State),
		string(job.Kind),
		pages,
		chunks,
		job.RawText,
		stats,
		job.ErrorCode,
		job.ErrorMessage,
		job.SubmittedAt,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// Update replaces a stored job
func (s *JobStore) Update(ctx context.Context, job *domain.ConversionJob) error {
	options, pages, chunks, stats, err := marshalJobFields(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE conversion_jobs SET
			payload = $2,
			options = $3,
			state = $4,
			kind = $5,
			pages = $6,
			chunks = $7,
			raw_text = $8,
			statistics = $9,
			error_code = $10,
			error_message = $11,
			started_at = $12,
			completed_at = $13
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.Data,
		options,
		string(job.State),
		string(job.Kind),
		pages,
		chunks,
		job.RawText,
		stats,
		job.ErrorCode,
		job.ErrorMessage,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.ConversionJob, error) {
	query := `
		SELECT id, api_key_id, filename, declared_mime, size_bytes, file_hash,
		       payload, options, state, kind, pages, chunks, raw_text, statistics,
		       error_code, error_message, submitted_at, started_at, completed_at
		FROM conversion_jobs
		WHERE id = $1
	`

	var (
		job          domain.ConversionJob
		state, kind  string
		options      []byte
		pages        []byte
		chunks       []byte
		stats        []byte
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.APIKeyID,
		&job.Filename,
		&job.DeclaredMIME,
		&job.SizeBytes,
		&job.FileHash,
		&job.Data,
		&options,
		&state,
		&kind,
		&pages,
		&chunks,
		&job.RawText,
		&stats,
		&job.ErrorCode,
		&job.ErrorMessage,
		&job.SubmittedAt,
		&startedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	job.State = domain.JobState(state)
	job.Kind = domain.DocumentKind(kind)
	job.StartedAt = TimePtr(startedAt)
	job.CompletedAt = TimePtr(completedAt)

	if err := json.Unmarshal(options, &job.Options); err != nil {
		return nil, fmt.Errorf("decode job %s options: %w", id, err)
	}
	if len(pages) > 0 {
		if err := json.Unmarshal(pages, &job.Pages); err != nil {
			return nil, fmt.Errorf("decode job %s pages: %w", id, err)
		}
	}
	if len(chunks) > 0 {
		if err := json.Unmarshal(chunks, &job.Chunks); err != nil {
			return nil, fmt.Errorf("decode job %s chunks: %w", id, err)
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &job.Statistics); err != nil {
			return nil, fmt.Errorf("decode job %s statistics: %w", id, err)
		}
	}
	return &job, nil
}

// marshalJobFields encodes the JSONB columns. Absent output stays NULL.
func marshalJobFields(job *domain.ConversionJob) (options, pages, chunks, stats []byte, err error) {
	options, err = json.Marshal(job.Options)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode job %s options: %w", job.ID, err)
	}
	if job.Pages != nil {
		pages, err = json.Marshal(job.Pages)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode job %s pages: %w", job.ID, err)
		}
	}
	if job.Chunks != nil {
		chunks, err = json.Marshal(job.Chunks)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode job %s chunks: %w", job.ID, err)
		}
	}
	if job.Statistics != nil {
		stats, err = json.Marshal(job.Statistics)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode job %s statistics: %w", job.ID, err)
		}
	}
	return options, pages, chunks, stats, nil
}
