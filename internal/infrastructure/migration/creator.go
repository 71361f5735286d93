package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"

	// new versions are zero padded to this width
	versionWidth = 6
)

var skeletons = template.Must(template.New("").Parse(`
{{- define "up" }}-- {{ .Description }}
-- Created: {{ .Timestamp }}

{{ end }}
{{- define "down" }}-- Rollback: {{ .Description }}

{{ end }}`))

// MigrationFile describes a freshly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes empty up and down files for the next version in dir,
// creating dir when needed. An existing file is never overwritten.
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	next, err := NextVersion(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = name
	}

	version := fmt.Sprintf("%0*d", versionWidth, next)
	base := filepath.Join(dir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
		UpPath:      base + upSuffix,
		DownPath:    base + downSuffix,
	}

	if err := writeSkeleton(mf.UpPath, "up", mf); err != nil {
		return nil, err
	}
	if err := writeSkeleton(mf.DownPath, "down", mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeSkeleton(path, tmpl string, mf *MigrationFile) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	err = skeletons.ExecuteTemplate(f, tmpl, mf)
	return errors.Join(err, f.Close())
}

// sanitizeName lowercases name, turns runs of spaces, dashes and underscores
// into one underscore and drops every other non alphanumeric character.
func sanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '-' || r == '_':
			return ' '
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return unicode.ToLower(r)
		}
		return -1
	}, name)
	return strings.Join(strings.Fields(cleaned), "_")
}

// ListMigrations returns the base names of the up files in fsys in version
// order. A missing directory holds no migrations.
func ListMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), upSuffix); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// NextVersion is one past the highest numbered migration in fsys
func NextVersion(fsys fs.FS) (int, error) {
	names, err := ListMigrations(fsys)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, name := range names {
		if v, err := parseVersion(name); err == nil {
			highest = max(highest, v)
		}
	}
	return highest + 1, nil
}

// Validate requires a numeric, unique version on every migration and a down
// file for every up file.
func Validate(fsys fs.FS) error {
	names, err := ListMigrations(fsys)
	if err != nil {
		return err
	}
	seen := make(map[int]string, len(names))
	for _, name := range names {
		v, err := parseVersion(name)
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if other, dup := seen[v]; dup {
			return fmt.Errorf("migrations %s and %s share version %d", other, name, v)
		}
		seen[v] = name
		if _, err := fs.Stat(fsys, name+downSuffix); err != nil {
			return fmt.Errorf("migration %s has no down file", name)
		}
	}
	return nil
}

func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, errors.New("missing version prefix")
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", prefix)
	}
	return v, nil
}
