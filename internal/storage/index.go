/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
	"pagecraft/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexDirName  = ".pagecraft"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the SQLite schema of the index. Bump it and add a
	// migration step for breaking changes.
	schemaVersion = 2
)

// IndexPath returns the path of the index database for a document directory.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// Index mirrors pages, blocks and links of a document into SQLite for
// backlink, dangling-link and text queries.
type Index struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenIndex creates or opens the index under root, enables WAL and brings
// the schema up to date.
func OpenIndex(root string) (*Index, error) {
	l := applog.WithOperation(logger(), "index_open").With(slog.String("root", root))
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("document root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}
	path := IndexPath(root)
	db, err := openDB(path)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return &Index{db: db, path: path, log: l}, nil
}

func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func (ix *Index) Close() error { return ix.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema so runMigrations can upgrade it
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureIndexSchema creates the v1 tables.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			page_id  TEXT    PRIMARY KEY,
			ord      INTEGER NOT NULL,
			name     TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS blocks (
			rid       INTEGER PRIMARY KEY,
			block_id  TEXT    NOT NULL UNIQUE,
			page_id   TEXT    NOT NULL,
			ord       INTEGER NOT NULL,
			z         INTEGER NOT NULL,
			text      TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_page ON blocks(page_id);`,
		// target_page may name a page that no longer exists
		`CREATE TABLE IF NOT EXISTS links (
			block_id    TEXT NOT NULL PRIMARY KEY,
			from_page   TEXT NOT NULL,
			target_page TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_page);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_blocks USING fts5(
			text,
			content='blocks',
			content_rowid='rid',
			tokenize = 'unicode61'
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS blocks_ai AFTER INSERT ON blocks BEGIN
			INSERT INTO fts_blocks(rowid, text) VALUES (new.rid, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_ad AFTER DELETE ON blocks BEGIN
			INSERT INTO fts_blocks(fts_blocks, rowid, text) VALUES ('delete', old.rid, old.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_page);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion returns the schema version stored in the index.
func (ix *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// Update replaces the index content with doc in one transaction.
func (ix *Index) Update(ctx context.Context, doc domain.Document) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{"DELETE FROM links;", "DELETE FROM blocks;", "DELETE FROM pages;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}
	insPage, err := tx.PrepareContext(ctx, `INSERT INTO pages(page_id, ord, name) VALUES(?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare pages: %w", err)
	}
	defer insPage.Close()
	insBlock, err := tx.PrepareContext(ctx, `INSERT INTO blocks(block_id, page_id, ord, z, text) VALUES(?,?,?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare blocks: %w", err)
	}
	defer insBlock.Close()
	insLink, err := tx.PrepareContext(ctx, `INSERT INTO links(block_id, from_page, target_page) VALUES(?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare links: %w", err)
	}
	defer insLink.Close()

	links := 0
	for pi, p := range doc.Pages {
		if _, err := insPage.ExecContext(ctx, p.ID, pi, p.Name); err != nil {
			return fmt.Errorf("insert page: %w", err)
		}
		for bi, b := range p.Blocks {
			if _, err := insBlock.ExecContext(ctx, b.ID, p.ID, bi, b.ZIndex, b.Text); err != nil {
				return fmt.Errorf("insert block: %w", err)
			}
			if target, ok := b.LinkedPageID.Get(); ok {
				if _, err := insLink.ExecContext(ctx, b.ID, p.ID, target); err != nil {
					return fmt.Errorf("insert link: %w", err)
				}
				links++
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES('indexed_at', ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ix.log.Debug("index updated", slog.Int("pages", len(doc.Pages)), slog.Int("links", links))
	return nil
}

// Link is one block-to-page link as stored in the index.
type Link struct {
	BlockID    string
	FromPage   string
	FromName   string
	TargetPage string
}

// Backlinks returns the links pointing at pageID, in document order.
func (ix *Index) Backlinks(ctx context.Context, pageID string) ([]Link, error) {
	return ix.queryLinks(ctx, `
		SELECT l.block_id, l.from_page, p.name, l.target_page
		FROM links l
		JOIN pages p ON p.page_id = l.from_page
		JOIN blocks b ON b.block_id = l.block_id
		WHERE l.target_page = ?
		ORDER BY p.ord, b.ord`, pageID)
}

// DanglingLinks returns links whose target page is not in the document.
func (ix *Index) DanglingLinks(ctx context.Context) ([]Link, error) {
	return ix.queryLinks(ctx, `
		SELECT l.block_id, l.from_page, p.name, l.target_page
		FROM links l
		JOIN pages p ON p.page_id = l.from_page
		JOIN blocks b ON b.block_id = l.block_id
		WHERE NOT EXISTS (SELECT 1 FROM pages t WHERE t.page_id = l.target_page)
		ORDER BY p.ord, b.ord`)
}

func (ix *Index) queryLinks(ctx context.Context, q string, args ...any) ([]Link, error) {
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()
	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.BlockID, &l.FromPage, &l.FromName, &l.TargetPage); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// TextHit is a block whose text matched a search.
type TextHit struct {
	BlockID string
	PageID  string
	Snippet string
}

// SearchText runs an FTS5 query over block texts. An empty query returns nothing.
func (ix *Index) SearchText(ctx context.Context, query string, limit int) ([]TextHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, `
		SELECT b.block_id, b.page_id, snippet(fts_blocks, 0, '[', ']', '…', 8)
		FROM fts_blocks JOIN blocks b ON fts_blocks.rowid = b.rid
		WHERE fts_blocks MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()
	var out []TextHit
	for rows.Next() {
		var h TextHit
		if err := rows.Scan(&h.BlockID, &h.PageID, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Healthy runs a quick integrity check.
func (ix *Index) Healthy(ctx context.Context) bool {
	var chk string
	if err := ix.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return false
	}
	_, err := ix.db.ExecContext(ctx, `SELECT 1 FROM links LIMIT 1;`)
	return err == nil
}

// OpenOrRebuildIndex opens the index and fills it from doc. A corrupt index
// file is copied to .pagecraft/backups, removed and rebuilt. rebuilt reports
// whether that happened.
func OpenOrRebuildIndex(ctx context.Context, root string, doc domain.Document) (ix *Index, rebuilt bool, err error) {
	path := IndexPath(root)
	ix, err = OpenIndex(root)
	if err == nil && !ix.Healthy(ctx) {
		_ = ix.Close()
		err = errors.New("index failed integrity check")
	}
	if err != nil {
		logger().Warn("rebuilding index", slog.String("path", path), slog.Any("err", err))
		backupIndexFile(path)
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			_ = os.Remove(p)
		}
		ix, err = OpenIndex(root)
		if err != nil {
			return nil, false, fmt.Errorf("rebuild index: %w", err)
		}
		rebuilt = true
	}
	if err := ix.Update(ctx, doc); err != nil {
		_ = ix.Close()
		return nil, rebuilt, err
	}
	return ix, rebuilt, nil
}

func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), time.Now().Format(backupStamp)))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
