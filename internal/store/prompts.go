package store

import (
	"context"
	"fmt"
	"strings"
)

// Prompt is one entry of the prompt list.
type Prompt struct {
	ID   int64
	Text string
}

// Prompts returns the prompt list in display order.
func (s *Store) Prompts(ctx context.Context) ([]Prompt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text FROM prompts ORDER BY position ASC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	defer rows.Close()

	var out []Prompt
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.ID, &p.Text); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PromptTexts returns just the prompt strings, in display order.
func (s *Store) PromptTexts(ctx context.Context) ([]string, error) {
	ps, err := s.Prompts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out, nil
}

// AddPrompt inserts text at the front of the list. Blank text is ignored.
func (s *Store) AddPrompt(ctx context.Context, text string) (Prompt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Prompt{}, nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO prompts (text, position) VALUES (?, (SELECT COALESCE(MIN(position), 0) - 1 FROM prompts))`,
		text)
	if err != nil {
		return Prompt{}, fmt.Errorf("adding prompt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{ID: id, Text: text}, nil
}

// RemovePrompt deletes the prompt with the given id.
func (s *Store) RemovePrompt(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("prompt %d: %w", id, ErrNotFound)
	}
	return nil
}
