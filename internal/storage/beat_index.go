/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dinkwriter/internal/dink"
	applog "dinkwriter/internal/log"
)

// SQL statements
const (
	// language=SQL
	// dialect=SQLite
	sqlDeleteBeatsByRoot = `DELETE FROM beats WHERE root=?`
	// language=SQL
	// dialect=SQLite
	sqlInsertBeat = `INSERT INTO beats(root, scene_id, block_id, snippet_id, line_id, type, character_id, text, tags)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	// language=SQL
	// dialect=SQLite
	sqlCountBeats = `SELECT COUNT(*) FROM beats WHERE root=?`
)

// IndexBeats replaces every indexed beat of root with the beats of scenes in a single transaction
// and returns the number of rows written.
func IndexBeats(ctx context.Context, db *sql.DB, root string, scenes []dink.Scene) (int, error) {
	if db == nil {
		return 0, errors.New("nil db")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "index_beats")
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlDeleteBeatsByRoot, root); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("clear beats: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, sqlInsertBeat)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	n := 0
	for _, sc := range scenes {
		for _, bl := range sc.Blocks {
			for _, sn := range bl.Snippets {
				for _, bt := range sn.Beats {
					if _, err := stmt.ExecContext(ctx, root, sc.SceneID, bl.BlockID, sn.SnippetID, bt.LineID,
						bt.Type.String(), bt.CharacterID, bt.Text, tagColumn(bt.Tags)); err != nil {
						_ = tx.Rollback()
						return 0, fmt.Errorf("insert beat %q: %w", bt.LineID, err)
					}
					n++
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	l.Debug("beats indexed", slog.String("root", root), slog.Int("beats", n))
	return n, nil
}

// CountBeats returns the number of indexed beats of root.
func CountBeats(ctx context.Context, db *sql.DB, root string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, sqlCountBeats, root).Scan(&n)
	return n, err
}

// tagColumn stores tags space separated and padded so "% tag %" matches whole tags only.
func tagColumn(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.ToLower(strings.Join(tags, " ")) + " "
}

// SearchQuery describes a beat search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Filters are optional and combine with AND. Tags are given without the leading #.
// Limit/Offset implement pagination; Limit 0 means 100.
type SearchQuery struct {
	Text      string
	Root      string
	Character string
	Scene     string
	Type      string // "Line" or "Action"
	Tags      []string
	Limit     int
	Offset    int
}

// SearchHit is one matching beat. Excerpt highlights the FTS match with [ ] when Text was given.
type SearchHit struct {
	ID          int64
	Root        string
	SceneID     string
	BlockID     string
	SnippetID   string
	LineID      string
	Type        string
	CharacterID string
	Text        string
	Excerpt     string
}

// SearchBeats runs a full-text search with filters over the indexed beats.
// With an empty Text it scans the beats table with the filters only.
func SearchBeats(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchHit, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT b.id, b.root, b.scene_id, b.block_id, b.snippet_id, b.line_id, b.type, b.character_id, b.text, snippet(fts_beats, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_beats JOIN beats b ON fts_beats.rowid = b.id\n")
		sb.WriteString("WHERE fts_beats MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT b.id, b.root, b.scene_id, b.block_id, b.snippet_id, b.line_id, b.type, b.character_id, b.text, ''\n")
		sb.WriteString("FROM beats b\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Root); s != "" {
		sb.WriteString(" AND b.root = ?\n")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Character); s != "" {
		sb.WriteString(" AND lower(b.character_id) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(q.Scene); s != "" {
		sb.WriteString(" AND b.scene_id = ?\n")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Type); s != "" {
		sb.WriteString(" AND b.type = ?\n")
		args = append(args, dink.ParseBeatType(s).String())
	}
	for _, t := range q.Tags {
		tt := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if tt == "" {
			continue
		}
		sb.WriteString(" AND b.tags LIKE ? ESCAPE '\\'\n")
		args = append(args, likeContains(" "+tt+" "))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString("ORDER BY b.id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		var ex sql.NullString
		if err := rows.Scan(&h.ID, &h.Root, &h.SceneID, &h.BlockID, &h.SnippetID, &h.LineID, &h.Type, &h.CharacterID, &h.Text, &ex); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if ex.Valid {
			h.Excerpt = ex.String
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// FindLine returns the indexed beats carrying lineID. Duplicate ids across files show up as several hits.
func FindLine(ctx context.Context, db *sql.DB, lineID string) ([]SearchHit, error) {
	if strings.TrimSpace(lineID) == "" {
		return nil, errors.New("line id is required")
	}
	rows, err := db.QueryContext(ctx, `SELECT id, root, scene_id, block_id, snippet_id, line_id, type, character_id, text
		FROM beats WHERE line_id = ? ORDER BY id`, lineID)
	if err != nil {
		return nil, fmt.Errorf("find line: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ID, &h.Root, &h.SceneID, &h.BlockID, &h.SnippetID, &h.LineID, &h.Type, &h.CharacterID, &h.Text); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeContains builds a LIKE pattern matching s literally anywhere; use it with ESCAPE '\'.
func likeContains(s string) string { return "%" + likeEscaper.Replace(s) + "%" }
