package store

import (
	"context"
	"time"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

type indexStatusRow struct {
	ProjectID    string     `json:"project_id"`
	Status       string     `json:"status"`
	TotalFiles   int        `json:"total_files"`
	IndexedFiles int        `json:"indexed_files"`
	TotalChunks  int        `json:"total_chunks"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

func (r indexStatusRow) toModel() model.IndexStatus {
	st := model.IndexStatus{
		ProjectID:    r.ProjectID,
		Status:       model.IndexingStatus(r.Status),
		TotalFiles:   r.TotalFiles,
		IndexedFiles: r.IndexedFiles,
		TotalChunks:  r.TotalChunks,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
	if r.ErrorMessage != nil {
		st.ErrorMessage = *r.ErrorMessage
	}
	return st
}

// upsertIndexStatusQuery relies on the project_id UNIQUE index: UPSERT
// matches the existing record by that index and merges fields, so a
// progress update during indexing never creates a second row for the
// same project.
const upsertIndexStatusQuery = `
UPSERT index_status MERGE {
	project_id: $project_id,
	status: $status,
	total_files: $total_files,
	indexed_files: $indexed_files,
	total_chunks: $total_chunks,
	started_at: $started_at,
	completed_at: $completed_at,
	error_message: $error_message
} WHERE project_id = $project_id;`

// UpsertIndexStatus atomically creates or updates the single progress
// record for a project's code index.
func (s *Store) UpsertIndexStatus(ctx context.Context, st model.IndexStatus) error {
	_, err := query[indexStatusRow](ctx, s, upsertIndexStatusQuery, map[string]any{
		"project_id":    st.ProjectID,
		"status":        string(st.Status),
		"total_files":   st.TotalFiles,
		"indexed_files": st.IndexedFiles,
		"total_chunks":  st.TotalChunks,
		"started_at":    orNow(st.StartedAt),
		"completed_at":  st.CompletedAt,
		"error_message": nilIfEmpty(st.ErrorMessage),
	})
	return err
}

const getIndexStatusQuery = `
SELECT * FROM index_status WHERE project_id = $project_id LIMIT 1;`

// GetIndexStatus fetches a project's indexing progress record.
func (s *Store) GetIndexStatus(ctx context.Context, projectID string) (model.IndexStatus, bool, error) {
	rows, err := query[indexStatusRow](ctx, s, getIndexStatusQuery, map[string]any{
		"project_id": projectID,
	})
	if err != nil {
		return model.IndexStatus{}, false, err
	}
	if len(rows) == 0 {
		return model.IndexStatus{}, false, nil
	}
	return rows[0].toModel(), true, nil
}

const listIndexStatusesQuery = `SELECT * FROM index_status ORDER BY started_at DESC;`

// ListIndexStatuses returns every project's progress record, most recently
// started first, backing list_projects.
func (s *Store) ListIndexStatuses(ctx context.Context) ([]model.IndexStatus, error) {
	rows, err := query[indexStatusRow](ctx, s, listIndexStatusesQuery, nil)
	if err != nil {
		return nil, err
	}
	statuses := make([]model.IndexStatus, len(rows))
	for i, r := range rows {
		statuses[i] = r.toModel()
	}
	return statuses, nil
}

const deleteIndexStatusQuery = `DELETE FROM index_status WHERE project_id = $project_id;`

// DeleteIndexStatus removes a project's progress record, used by
// delete_project.
func (s *Store) DeleteIndexStatus(ctx context.Context, projectID string) error {
	_, err := query[indexStatusRow](ctx, s, deleteIndexStatusQuery, map[string]any{
		"project_id": projectID,
	})
	return err
}
