package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

const convColumns = "user_id, model, prompt, content, created_at, updated_at"

func (s *SQLite) Get(userID string) (*protocol.Conversation, error) {
	row := s.db.QueryRow(`SELECT `+convColumns+` FROM conversations WHERE user_id = ?`, userID)
	c, err := scanConversation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store: conversation %q: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	return c, nil
}

// Reset replaces the user's row with a fresh empty one. Prior prompt,
// transcript, and model override are discarded.
func (s *SQLite) Reset(userID string) error {
	now := fmtTime(time.Now())
	_, err := s.db.Exec(`
		INSERT INTO conversations (user_id, model, prompt, content, created_at, updated_at)
		VALUES (?, '', '', '', ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			model='', prompt='', content='', created_at=excluded.created_at, updated_at=excluded.updated_at
	`, userID, now, now)
	if err != nil {
		return fmt.Errorf("store: reset conversation: %w", err)
	}
	return nil
}

func (s *SQLite) SetPrompt(userID, prompt string) error {
	res, err := s.db.Exec(`UPDATE conversations SET prompt = ?, updated_at = ? WHERE user_id = ?`,
		prompt, fmtTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("store: set prompt: %w", err)
	}
	return checkAffected(res, "conversation", userID)
}

func (s *SQLite) SetModel(userID, model string) error {
	res, err := s.db.Exec(`UPDATE conversations SET model = ?, updated_at = ? WHERE user_id = ?`,
		model, fmtTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("store: set model: %w", err)
	}
	return checkAffected(res, "conversation", userID)
}

func (s *SQLite) AppendContent(userID, text string) error {
	res, err := s.db.Exec(`UPDATE conversations SET content = content || ?, updated_at = ? WHERE user_id = ?`,
		text, fmtTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("store: append content: %w", err)
	}
	return checkAffected(res, "conversation", userID)
}

func (s *SQLite) ListConversations(limit int) ([]*protocol.Conversation, error) {
	query := `SELECT ` + convColumns + ` FROM conversations ORDER BY updated_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*protocol.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list conversations scan: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func scanConversation(row scannable) (*protocol.Conversation, error) {
	var c protocol.Conversation
	var createdAt, updatedAt string
	err := row.Scan(&c.UserID, &c.Model, &c.Prompt, &c.Content, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
