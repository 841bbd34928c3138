package transaction

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a single-connection in-memory database with a test table
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE test_records (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			value INTEGER DEFAULT 0
		)
	`)
	if err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func countRecords(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_records").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func TestManager_Begin(t *testing.T) {
	db := setupTestDB(t)
	mgr := NewManager(db)

	tx, err := mgr.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if tx.Level() != 0 {
		t.Errorf("expected level 0, got %d", tx.Level())
	}
	if tx.DB() != db || tx.Tx() == nil {
		t.Error("expected getters to expose the handle and the sql.Tx")
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback failed: %v", err)
	}
	if !tx.IsRolledBack() || !tx.IsDone() {
		t.Error("expected transaction to be rolled back")
	}
}

func TestManager_WithTransaction_Commit(t *testing.T) {
	db := setupTestDB(t)
	mgr := NewManager(db)

	err := mgr.WithTransaction(context.Background(), func(ctx context.Context, tx *Transaction) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "a")
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}
	if n := countRecords(t, db); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestManager_WithTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	mgr := NewManager(db)
	boom := errors.New("boom")

	err := mgr.WithTransaction(context.Background(), func(ctx context.Context, tx *Transaction) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "a"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := countRecords(t, db); n != 0 {
		t.Errorf("expected 0 records, got %d", n)
	}
}

func TestManager_WithTransaction_Panic(t *testing.T) {
	db := setupTestDB(t)
	mgr := NewManager(db)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
		if n := countRecords(t, db); n != 0 {
			t.Errorf("expected 0 records after panic, got %d", n)
		}
	}()

	mgr.WithTransaction(context.Background(), func(ctx context.Context, tx *Transaction) error {
		tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "a")
		panic("boom")
	})
}

func TestManager_WithTransaction_Reentrant(t *testing.T) {
	db := setupTestDB(t)
	mgr := NewManager(db)

	t.Run("inner failure rolls back to the savepoint only", func(t *testing.T) {
		err := mgr.WithTransaction(context.Background(), func(ctx context.Context, outer *Transaction) error {
			if _, err := outer.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "outer"); err != nil {
				return err
			}
			innerErr := mgr.WithTransaction(ctx, func(ctx context.Context, inner *Transaction) error {
				if inner.Level() != 1 {
					t.Errorf("expected nested level 1, got %d", inner.Level())
				}
				inner.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "inner")
				return errors.New("inner failed")
			})
			if innerErr == nil {
				t.Error("expected inner error")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("outer failed: %v", err)
		}
		if n := countRecords(t, db); n != 1 {
			t.Errorf("expected only the outer record, got %d", n)
		}
	})

	t.Run("outer failure discards a released savepoint", func(t *testing.T) {
		before := countRecords(t, db)
		err := mgr.WithTransaction(context.Background(), func(ctx context.Context, outer *Transaction) error {
			err := mgr.WithTransaction(ctx, func(ctx context.Context, inner *Transaction) error {
				_, err := inner.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "inner")
				return err
			})
			if err != nil {
				return err
			}
			return errors.New("outer failed")
		})
		if err == nil {
			t.Fatal("expected outer error")
		}
		if n := countRecords(t, db); n != before {
			t.Errorf("expected %d records, got %d", before, n)
		}
	})
}

func TestTransaction_Hooks(t *testing.T) {
	db := setupTestDB(t)
	mgr := NewManager(db)

	t.Run("commit hooks wait for the top-level commit", func(t *testing.T) {
		var committed, rolledBack bool
		err := mgr.WithTransaction(context.Background(), func(ctx context.Context, outer *Transaction) error {
			err := mgr.WithTransaction(ctx, func(ctx context.Context, inner *Transaction) error {
				inner.OnCommit(func() { committed = true })
				inner.OnRollback(func() { rolledBack = true })
				return nil
			})
			if committed {
				t.Error("commit hook ran before the top-level commit")
			}
			return err
		})
		if err != nil {
			t.Fatalf("WithTransaction failed: %v", err)
		}
		if !committed || rolledBack {
			t.Errorf("expected commit hook only, got committed=%v rolledBack=%v", committed, rolledBack)
		}
	})

	t.Run("rollback hooks run in reverse order", func(t *testing.T) {
		var order []int
		mgr.WithTransaction(context.Background(), func(ctx context.Context, tx *Transaction) error {
			tx.OnRollback(func() { order = append(order, 1) })
			tx.OnRollback(func() { order = append(order, 2) })
			tx.OnCommit(func() { t.Error("commit hook must not run") })
			return errors.New("fail")
		})
		if len(order) != 2 || order[0] != 2 || order[1] != 1 {
			t.Errorf("unexpected rollback order %v", order)
		}
	})

	t.Run("savepoint rollback hooks run when the outer transaction fails", func(t *testing.T) {
		var restored bool
		mgr.WithTransaction(context.Background(), func(ctx context.Context, outer *Transaction) error {
			mgr.WithTransaction(ctx, func(ctx context.Context, inner *Transaction) error {
				inner.OnRollback(func() { restored = true })
				return nil
			})
			return errors.New("fail")
		})
		if !restored {
			t.Error("expected adopted rollback hook to run")
		}
	})
}

func TestTransaction_DoubleFinish(t *testing.T) {
	db := setupTestDB(t)
	mgr := NewManager(db)

	tx, err := mgr.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTransactionDone) {
		t.Errorf("expected ErrTransactionDone, got %v", err)
	}
	if err := tx.Rollback(); !errors.Is(err, ErrTransactionDone) {
		t.Errorf("expected ErrTransactionDone, got %v", err)
	}

	tx, _ = mgr.Begin(context.Background())
	tx.Rollback()
	if err := tx.Rollback(); err != nil {
		t.Errorf("second rollback should be a no-op, got %v", err)
	}
}

func TestBeginNested_WithoutTransaction(t *testing.T) {
	tx := &Transaction{}
	if _, err := tx.BeginNested(context.Background()); !errors.Is(err, ErrNestedTransactionNotSupported) {
		t.Errorf("expected ErrNestedTransactionNotSupported, got %v", err)
	}
}
