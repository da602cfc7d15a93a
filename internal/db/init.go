package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"embed"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqlFiles embed.FS

var (
	instance *sql.DB
	dbErr    error
	dbCreate sync.Once
)

// GetDB opens the server database once, creating it if needed.
func GetDB() *sql.DB {
	dbCreate.Do(func() {
		dir := filepath.Join(xdg.DataHome, "jonsport-server")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Fatalf("error creating data directory (%s): %v", dir, err)
		}
		instance, dbErr = Open(filepath.Join(dir, "jonsport-server.sqlite"))
		if dbErr != nil {
			log.Fatalf("error getting db: %v", dbErr)
		}
	})
	return instance
}

// Open opens the sqlite database at filePath, creating the file and tables
// if needed.
func Open(filePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging db: %w", err)
	}

	schema, _ := sqlFiles.ReadFile("schema.sql")
	if _, err = db.Exec(string(schema)); err != nil {
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return db, nil
}
