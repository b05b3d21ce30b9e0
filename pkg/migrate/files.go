package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	fileNameRe  = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)
)

const scaffold = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// Scaffold writes an empty goose migration named <timestamp>_<slug>.sql into
// dir and returns its path.
func Scaffold(dir, name string, now time.Time) (string, error) {
	slug := strings.Trim(slugCleanRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	target := filepath.Join(dir, now.UTC().Format("20060102150405")+"_"+slug+".sql")
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, scaffold, slug); err != nil {
		return "", fmt.Errorf("write migration: %w", err)
	}
	return target, nil
}

// Validate checks every .sql file at the root of fsys: timestamped names,
// unique versions, both goose sections and balanced statement blocks.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	versions := make(map[string]string, len(entries))
	var problems []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		match := fileNameRe.FindStringSubmatch(name)
		if match == nil {
			problems = append(problems, fmt.Errorf("%s: want YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if other, dup := versions[match[1]]; dup {
			problems = append(problems, fmt.Errorf("%s: version already used by %s", name, other))
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !bytes.Contains(body, []byte(marker)) {
				problems = append(problems, fmt.Errorf("%s: missing %q", name, marker))
			}
		}
		begins := bytes.Count(body, []byte("-- +goose StatementBegin"))
		if ends := bytes.Count(body, []byte("-- +goose StatementEnd")); begins != ends {
			problems = append(problems, fmt.Errorf("%s: %d StatementBegin vs %d StatementEnd", name, begins, ends))
		}
	}
	return errors.Join(problems...)
}
