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
	"time"

	"dinkwriter/internal/dink"
	"dinkwriter/internal/dinkjson"
	applog "dinkwriter/internal/log"
)

// ErrNoSnapshot is returned when a root has no stored structure snapshot.
var ErrNoSnapshot = errors.New("no structure snapshot")

// StructureSnapshot is one stored parse result of a start file.
type StructureSnapshot struct {
	ID     int64
	Root   string
	TS     time.Time
	Scenes int
	Doc    []byte // structure JSON as written by dinkjson.Encode
}

// SQL statements
const (
	// language=SQL
	// dialect=SQLite
	sqlInsertStructureSnapshot = `INSERT INTO structure_snapshots(root, ts, scenes, doc) VALUES(?, ?, ?, ?)`
	// language=SQL
	// dialect=SQLite
	sqlLatestStructureSnapshot = `SELECT id, root, ts, scenes, doc FROM structure_snapshots WHERE root=? ORDER BY ts DESC, id DESC LIMIT 1`
	// language=SQL
	// dialect=SQLite
	sqlListStructureSnapshots = `SELECT id, root, ts, scenes, '' FROM structure_snapshots WHERE root=? ORDER BY ts DESC, id DESC`
	// language=SQL
	// dialect=SQLite
	sqlPruneStructureSnapshots = `DELETE FROM structure_snapshots WHERE root=? AND id NOT IN (
		SELECT id FROM structure_snapshots WHERE root=? ORDER BY ts DESC, id DESC LIMIT ?)`
)

const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveStructureSnapshot stores the scenes as structure JSON for root and returns the new row id.
func SaveStructureSnapshot(ctx context.Context, db *sql.DB, root string, scenes []dink.Scene, ts time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("nil db")
	}
	doc, err := dinkjson.Encode(scenes)
	if err != nil {
		return 0, err
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := db.ExecContext(ctx, sqlInsertStructureSnapshot, root, ts.UTC().Format(tsLayout), len(scenes), string(doc))
	if err != nil {
		return 0, fmt.Errorf("insert structure snapshot: %w", err)
	}
	id, _ := res.LastInsertId()
	applog.WithOperation(applog.WithComponent("storage"), "snapshot_save").Debug("structure snapshot stored",
		slog.String("root", root), slog.Int64("id", id), slog.Int("scenes", len(scenes)))
	return id, nil
}

// LatestStructureSnapshot returns the newest snapshot of root, or ErrNoSnapshot.
func LatestStructureSnapshot(ctx context.Context, db *sql.DB, root string) (StructureSnapshot, error) {
	var s StructureSnapshot
	var ts, doc string
	err := db.QueryRowContext(ctx, sqlLatestStructureSnapshot, root).Scan(&s.ID, &s.Root, &ts, &s.Scenes, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNoSnapshot
	}
	if err != nil {
		return s, fmt.Errorf("read structure snapshot: %w", err)
	}
	s.TS, _ = time.Parse(tsLayout, ts)
	s.Doc = []byte(doc)
	return s, nil
}

// ListStructureSnapshots lists the snapshots of root, newest first, without their documents.
func ListStructureSnapshots(ctx context.Context, db *sql.DB, root string) ([]StructureSnapshot, error) {
	rows, err := db.QueryContext(ctx, sqlListStructureSnapshots, root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []StructureSnapshot
	for rows.Next() {
		var s StructureSnapshot
		var ts, doc string
		if err := rows.Scan(&s.ID, &s.Root, &ts, &s.Scenes, &doc); err != nil {
			return nil, err
		}
		s.TS, _ = time.Parse(tsLayout, ts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneStructureSnapshots keeps the newest keep snapshots of root and returns how many were removed.
// keep <= 0 leaves the table untouched.
func PruneStructureSnapshots(ctx context.Context, db *sql.DB, root string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := db.ExecContext(ctx, sqlPruneStructureSnapshots, root, root, keep)
	if err != nil {
		return 0, fmt.Errorf("prune structure snapshots: %w", err)
	}
	return res.RowsAffected()
}

// PriorSnippets decodes the latest snapshot of root into the snippet list used for id reconciliation.
// A root without snapshots yields no snippets and no error.
func PriorSnippets(ctx context.Context, db *sql.DB, root string) ([]dink.Snippet, error) {
	snap, err := LatestStructureSnapshot(ctx, db, root)
	if errors.Is(err, ErrNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	scenes, err := dinkjson.Decode(snap.Doc)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", snap.ID, err)
	}
	return dink.FlattenSnippets(scenes), nil
}
