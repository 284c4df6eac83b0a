package sqliteutil

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// OpenDB opens a local sqlite database and applies the given schema.
// A schema that has already been applied is not an error.
func OpenDB(schema, path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = database.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return database, nil
}
