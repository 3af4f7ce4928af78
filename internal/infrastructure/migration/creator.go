package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"
)

// VersionLayout is the timestamp format used as the migration version
const VersionLayout = "20060102150405"

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// ErrEmptyName is returned when a migration name has no usable characters
var ErrEmptyName = errors.New("migration: name is empty after sanitizing")

var (
	upTemplate = template.Must(template.New("up").Parse(`-- {{.Name}}
{{- if .Description}}
-- {{.Description}}
{{- end}}
-- Created {{.Timestamp}}

`))
	downTemplate = template.Must(template.New("down").Parse(`-- Rollback {{.Name}}
-- Created {{.Timestamp}}

`))
)

// MigrationFile is a created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair versioned by the current UTC time
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	return createMigrationAt(dir, name, description, time.Now().UTC())
}

func createMigrationAt(dir, name, description string, now time.Time) (*MigrationFile, error) {
	base := sanitizeName(name)
	if base == "" {
		return nil, ErrEmptyName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.Format(VersionLayout)
	existing, err := ListMigrations(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	for _, m := range existing {
		if strings.HasPrefix(m, version+"_") {
			return nil, fmt.Errorf("migration version %s already exists: %s", version, m)
		}
	}

	fileBase := version + "_" + base
	mf := &MigrationFile{
		Version:     version,
		Name:        base,
		Description: strings.TrimSpace(description),
		Timestamp:   now.Format(time.RFC3339),
		UpPath:      filepath.Join(dir, fileBase+upSuffix),
		DownPath:    filepath.Join(dir, fileBase+downSuffix),
	}

	if err := writeTemplate(mf.UpPath, upTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, downTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeTemplate(path string, tmpl *template.Template, data *MigrationFile) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// sanitizeName lowercases a name and folds separators into single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the base names of all up migrations, oldest first
func ListMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), upSuffix); ok {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}
