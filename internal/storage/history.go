package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"codeqa/internal/envelope"
	"codeqa/internal/executor"
)

type questionKey struct{}

// WithQuestionID tags runs recorded under ctx with a question id.
func WithQuestionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, questionKey{}, id)
}

func questionID(ctx context.Context) string {
	id, _ := ctx.Value(questionKey{}).(string)
	return id
}

// Run is one recorded tool execution.
type Run struct {
	ID           string          `json:"id"`
	QuestionID   string          `json:"questionId,omitempty"`
	ToolID       string          `json:"toolId"`
	ProjectPath  string          `json:"projectPath"`
	Params       map[string]any  `json:"params"`
	Status       envelope.Status `json:"status"`
	ErrorKind    string          `json:"errorKind,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	StartedAt    time.Time       `json:"startedAt"`
	ElapsedMs    int64           `json:"elapsedMs"`
}

// Question is one recorded dispatched question.
type Question struct {
	ID           string                `json:"id"`
	Question     string                `json:"question"`
	ProjectPath  string                `json:"projectPath"`
	MatchedTools []string              `json:"matchedTools"`
	Fallback     bool                  `json:"fallback"`
	Answer       string                `json:"answer"`
	AnswerSource envelope.AnswerSource `json:"answerSource"`
	AskedAt      time.Time             `json:"askedAt"`
	ElapsedMs    int64                 `json:"elapsedMs"`
}

// RunFilter selects runs for ListRuns.
type RunFilter struct {
	ToolID string
	Limit  int
}

// Record implements executor.Recorder.
func (db *DB) Record(ctx context.Context, e executor.Execution) error {
	params, err := json.Marshal(nonNilParams(e.Params))
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	res := e.Result
	var payload []byte
	if res.Payload != nil {
		if payload, err = json.Marshal(res.Payload); err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
	}
	var kind, msg sql.NullString
	if res.Error != nil {
		kind = sql.NullString{String: string(res.Error.Kind), Valid: true}
		msg = sql.NullString{String: res.Error.Message, Valid: true}
	}
	var qid sql.NullString
	if id := questionID(ctx); id != "" {
		qid = sql.NullString{String: id, Valid: true}
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO runs
		(id, question_id, tool_id, project_path, params, status, error_kind, error_msg, payload, started_at, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), qid, e.ToolID, e.ProjectPath, string(params), string(res.Status),
		kind, msg, nullBytes(payload), res.StartedAt.UTC().Format(time.RFC3339Nano), res.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordQuestion stores a dispatched question under id.
func (db *DB) RecordQuestion(ctx context.Context, id string, askedAt time.Time, res *envelope.DispatchResult) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO questions
		(id, question, project_path, matched_tools, fallback, answer, answer_source, asked_at, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Question, res.ProjectPath, strings.Join(res.MatchedIDs(), ","), res.Fallback,
		res.Answer, string(res.AnswerSource), askedAt.UTC().Format(time.RFC3339Nano), res.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first, without payloads.
func (db *DB) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	query := `SELECT id, question_id, tool_id, project_path, params, status, error_kind, error_msg, started_at, elapsed_ms FROM runs`
	var args []any
	if f.ToolID != "" {
		query += ` WHERE tool_id = ?`
		args = append(args, f.ToolID)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run including its payload, or sql.ErrNoRows.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT id, question_id, tool_id, project_path, params, status, error_kind, error_msg, started_at, elapsed_ms, payload FROM runs WHERE id = ?`, id)
	return scanRun(row, true)
}

// ListQuestions returns questions newest first.
func (db *DB) ListQuestions(ctx context.Context, limit int) ([]Question, error) {
	query := `SELECT id, question, project_path, matched_tools, fallback, answer, answer_source, asked_at, elapsed_ms FROM questions ORDER BY asked_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		var q Question
		var tools, source, asked string
		if err := rows.Scan(&q.ID, &q.Question, &q.ProjectPath, &tools, &q.Fallback, &q.Answer, &source, &asked, &q.ElapsedMs); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.MatchedTools = splitNonEmpty(tools)
		q.AnswerSource = envelope.AnswerSource(source)
		q.AskedAt, _ = time.Parse(time.RFC3339Nano, asked)
		out = append(out, q)
	}
	return out, rows.Err()
}

// Prune deletes runs and questions older than before.
func (db *DB) Prune(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UTC().Format(time.RFC3339Nano)
	var total int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM runs WHERE started_at < ?`,
			`DELETE FROM questions WHERE asked_at < ?`,
		} {
			res, err := tx.ExecContext(ctx, stmt, cutoff)
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}
			n, _ := res.RowsAffected()
			total += n
		}
		return nil
	})
	return total, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, withPayload bool) (Run, error) {
	var r Run
	var qid, kind, msg sql.NullString
	var params, status, started string
	dest := []any{&r.ID, &qid, &r.ToolID, &r.ProjectPath, &params, &status, &kind, &msg, &started, &r.ElapsedMs}
	var payload sql.NullString
	if withPayload {
		dest = append(dest, &payload)
	}
	if err := s.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return r, err
		}
		return r, fmt.Errorf("failed to scan run: %w", err)
	}
	r.QuestionID = qid.String
	r.Status = envelope.Status(status)
	r.ErrorKind = kind.String
	r.ErrorMessage = msg.String
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return r, fmt.Errorf("decoding params: %w", err)
	}
	if payload.Valid {
		r.Payload = json.RawMessage(payload.String)
	}
	return r, nil
}

func nonNilParams(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}

func nullBytes(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
