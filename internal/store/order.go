package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kaidi-io/kaidibot/pkg/protocol"
)

const orderColumns = "id, chat_id, applicant, operator, status, classify, description, created_at, updated_at, deadline"

func (s *SQLite) Insert(o *protocol.WorkOrder) error {
	res, err := s.db.Exec(`
		INSERT INTO work_orders (chat_id, applicant, operator, status, classify, description, created_at, updated_at, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ChatID, o.Applicant, o.Operator, string(statusOrDefault(o.Status)), o.Classify, o.Description,
		fmtTime(o.CreatedAt), fmtTime(o.UpdatedAt), fmtTime(o.Deadline))
	if err != nil {
		return fmt.Errorf("store: insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: insert order id: %w", err)
	}
	o.ID = id
	o.Status = statusOrDefault(o.Status)
	return nil
}

func (s *SQLite) GetByChatID(chatID string) (*protocol.WorkOrder, error) {
	row := s.db.QueryRow(`SELECT `+orderColumns+` FROM work_orders WHERE chat_id = ?`, chatID)
	o, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store: order for chat %q: %w", chatID, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get order: %w", err)
	}
	return o, nil
}

func (s *SQLite) ListOrders(filter OrderFilter) ([]*protocol.WorkOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM work_orders WHERE 1=1`
	var args []any

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Applicant != "" {
		query += " AND applicant = ?"
		args = append(args, filter.Applicant)
	}
	if filter.Operator != "" {
		query += " AND operator = ?"
		args = append(args, filter.Operator)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list orders: %w", err)
	}
	defer rows.Close()

	var orders []*protocol.WorkOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list orders scan: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *SQLite) ListDue(now time.Time) ([]*protocol.WorkOrder, error) {
	rows, err := s.db.Query(`SELECT `+orderColumns+` FROM work_orders WHERE status = ? AND deadline <= ? ORDER BY deadline`,
		string(protocol.OrderOpen), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("store: list due orders: %w", err)
	}
	defer rows.Close()

	var orders []*protocol.WorkOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list due orders scan: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *SQLite) UpdateOperator(id int64, operator string) error {
	res, err := s.db.Exec(`UPDATE work_orders SET operator = ?, updated_at = ? WHERE id = ?`,
		operator, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("store: update operator: %w", err)
	}
	return checkAffected(res, "order", id)
}

func (s *SQLite) UpdateStatus(id int64, status protocol.OrderStatus) error {
	res, err := s.db.Exec(`UPDATE work_orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("store: update status: %w", err)
	}
	return checkAffected(res, "order", id)
}

func (s *SQLite) UpdateDeadline(id int64, deadline time.Time) error {
	res, err := s.db.Exec(`UPDATE work_orders SET deadline = ?, updated_at = ? WHERE id = ?`,
		fmtTime(deadline), fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("store: update deadline: %w", err)
	}
	return checkAffected(res, "order", id)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*protocol.WorkOrder, error) {
	var o protocol.WorkOrder
	var status, createdAt, updatedAt, deadline string
	err := row.Scan(&o.ID, &o.ChatID, &o.Applicant, &o.Operator, &status,
		&o.Classify, &o.Description, &createdAt, &updatedAt, &deadline)
	if err != nil {
		return nil, err
	}
	o.Status = protocol.OrderStatus(status)
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	o.Deadline = parseTime(deadline)
	return &o, nil
}
