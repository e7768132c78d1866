package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run is one AI QR batch.
type Run struct {
	ID        int64
	Folder    string
	Source    string
	Status    string
	Total     int
	Error     string
	CreatedAt time.Time
}

// Image is one generated image of a run.
type Image struct {
	RunID       int64
	PromptIndex int
	ComboIndex  int
	Prompt      string
	Params      map[string]any
	// ParamKeys keeps the declaration order of Params.
	ParamKeys   []string
	File        string
}

// CreateRun records a new running batch and returns its id.
func (s *Store) CreateRun(ctx context.Context, folder, source string, total int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (folder, source, status, total) VALUES (?, ?, ?, ?)`,
		folder, source, StatusRunning, total)
	if err != nil {
		return 0, fmt.Errorf("creating run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun marks a run done, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, id int64, runErr error) error {
	status, msg := StatusDone, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, error = ? WHERE id = ?`, status, msg, id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// AddImage records a generated image.
func (s *Store) AddImage(ctx context.Context, img Image) error {
	params, err := json.Marshal(img.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	keys, err := json.Marshal(img.ParamKeys)
	if err != nil {
		return fmt.Errorf("encoding param keys: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_images (run_id, prompt_index, combo_index, prompt, params, param_keys, file) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.RunID, img.PromptIndex, img.ComboIndex, img.Prompt, string(params), string(keys), img.File)
	if err != nil {
		return fmt.Errorf("adding image: %w", err)
	}
	return nil
}

// Runs lists the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, folder, source, status, total, error, created_at FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Folder, &r.Source, &r.Status, &r.Total, &r.Error, (*sqlTime)(&r.CreatedAt)); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunByFolder returns a run and its images in generation order.
func (s *Store) RunByFolder(ctx context.Context, folder string) (Run, []Image, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, folder, source, status, total, error, created_at FROM runs WHERE folder = ?`, folder).
		Scan(&r.ID, &r.Folder, &r.Source, &r.Status, &r.Total, &r.Error, (*sqlTime)(&r.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("run %q: %w", folder, ErrNotFound)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("reading run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT prompt_index, combo_index, prompt, params, param_keys, file FROM run_images
		 WHERE run_id = ? ORDER BY prompt_index, combo_index`, r.ID)
	if err != nil {
		return Run{}, nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var imgs []Image
	for rows.Next() {
		img := Image{RunID: r.ID}
		var params, keys string
		if err := rows.Scan(&img.PromptIndex, &img.ComboIndex, &img.Prompt, &params, &keys, &img.File); err != nil {
			return Run{}, nil, err
		}
		if err := json.Unmarshal([]byte(params), &img.Params); err != nil {
			return Run{}, nil, fmt.Errorf("decoding params: %w", err)
		}
		if err := json.Unmarshal([]byte(keys), &img.ParamKeys); err != nil {
			return Run{}, nil, fmt.Errorf("decoding param keys: %w", err)
		}
		imgs = append(imgs, img)
	}
	return r, imgs, rows.Err()
}

// sqlTime scans timestamps whether the driver returns time.Time or text.
type sqlTime time.Time

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = sqlTime(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		*t = sqlTime(time.Time{})
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if v, err := time.Parse(layout, s); err == nil {
			*t = sqlTime(v)
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
