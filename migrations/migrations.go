// Package migrations embeds the SQL schema applied by the maintenance CLI
// and the database integration tests.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

// Migration is one ordered schema file
type Migration struct {
	Name string
	SQL  string
}

// All returns the embedded migrations in file-name order
func All() ([]Migration, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: name, SQL: string(body)})
	}
	return out, nil
}
