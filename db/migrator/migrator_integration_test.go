//go:build integration

package migrator_test

import (
	"context"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/motorlot/saleverify/db/migrator"
	"github.com/motorlot/saleverify/internal/testutil"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestApplyAll(t *testing.T) {
	dsn, cleanup := testutil.StartPostgres(t)
	defer cleanup()
	pool := testutil.ConnectPool(t, dsn)
	defer pool.Close()
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_widgets.sql": {Data: []byte(`CREATE TABLE widgets (id TEXT PRIMARY KEY);`)},
		"002_gadgets.sql": {Data: []byte(`CREATE TABLE gadgets (id TEXT PRIMARY KEY, widget_id TEXT REFERENCES widgets(id));`)},
	}

	m := migrator.New(pool, fsys, discard())
	if err := m.ApplyAll(ctx); err != nil {
		t.Fatalf("ApplyAll() error = %v", err)
	}

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables WHERE table_name = 'gadgets'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !exists {
		t.Error("expected gadgets table to exist after migration")
	}

	applied, err := m.ListApplied(ctx)
	if err != nil {
		t.Fatalf("ListApplied() error = %v", err)
	}
	if len(applied) != 2 || applied[0] != "001_widgets.sql" || applied[1] != "002_gadgets.sql" {
		t.Errorf("applied = %v, want both files in lexical order", applied)
	}

	t.Run("second run applies nothing", func(t *testing.T) {
		if err := m.ApplyAll(ctx); err != nil {
			t.Fatalf("ApplyAll() second run error = %v", err)
		}
	})

	t.Run("new file is picked up", func(t *testing.T) {
		fsys["003_sprockets.sql"] = &fstest.MapFile{
			Data: []byte(`CREATE TABLE sprockets (id TEXT PRIMARY KEY);`),
		}
		if err := m.ApplyAll(ctx); err != nil {
			t.Fatalf("ApplyAll() error = %v", err)
		}
		applied, err := m.ListApplied(ctx)
		if err != nil {
			t.Fatalf("ListApplied() error = %v", err)
		}
		if len(applied) != 3 {
			t.Errorf("applied = %v, want three files", applied)
		}
	})

	t.Run("modified file fails checksum", func(t *testing.T) {
		fsys["001_widgets.sql"] = &fstest.MapFile{
			Data: []byte(`CREATE TABLE widgets (id TEXT PRIMARY KEY, renamed TEXT);`),
		}
		if err := m.ApplyAll(ctx); err == nil {
			t.Error("expected checksum error for a modified applied migration")
		}
	})
}
