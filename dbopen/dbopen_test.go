package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory(t *testing.T) {
	db := OpenMemory(t)
	if err := db.Ping(); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_WithSchema(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE docs (id TEXT PRIMARY KEY, name TEXT)`))

	if _, err := db.Exec(`INSERT INTO docs (id, name) VALUES ('d1', 'report.docx')`); err != nil {
		t.Fatal(err)
	}
	var name string
	if err := db.QueryRow(`SELECT name FROM docs WHERE id = 'd1'`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "report.docx" {
		t.Fatalf("got %q", name)
	}
}

func TestOpen_MkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_ForeignKeysDefault(t *testing.T) {
	db := OpenMemory(t)
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys: got %d, want 1", fk)
	}
}

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("SQLITE_BUSY: db busy"), true},
		{errors.New("syntax error"), false},
	}
	for _, c := range cases {
		if got := IsBusy(c.err); got != c.want {
			t.Errorf("IsBusy(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRunTx_Commit(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE n (v INTEGER)`))

	err := RunTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO n (v) VALUES (42)`)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	var v int
	if err := db.QueryRow(`SELECT v FROM n`).Scan(&v); err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("got %d", v)
	}
}

func TestRunTx_RollbackOnError(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE n (v INTEGER)`))

	errBoom := errors.New("boom")
	err := RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO n (v) VALUES (1)`); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM n`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("rollback failed: %d rows", count)
	}
}

func TestExec_Insert(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE n (v INTEGER)`))

	res, err := Exec(context.Background(), db, `INSERT INTO n (v) VALUES (?)`, 7)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("rows affected = %d", n)
	}

	var v int
	if err := db.QueryRow(`SELECT v FROM n`).Scan(&v); err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Fatalf("got %d", v)
	}
}
