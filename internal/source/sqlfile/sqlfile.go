// Package sqlfile reads SQL migrations from files named <version>_<name>.sql
// whose contents are split by `-- +migrate Up` and `-- +migrate Down` markers.
package sqlfile

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	im "migrator/internal/migrator"
)

// Execer runs a SQL script. The migration context handed to the engine must
// implement it for SQL migrations to run.
type Execer interface {
	ExecSQL(ctx context.Context, sql string) error
}

var ErrNoExecer = errors.New("migration context does not implement sqlfile.Execer")

// Step is a single parsed SQL migration file.
type Step struct {
	Name     string // file name without the .sql extension
	Version  int64
	Title    string
	UpSQL    string
	DownSQL  string
	Checksum string
}

// Source is a migrator.Source backed by a directory of SQL files.
type Source struct {
	fsys fs.FS
	dir  string
}

// New returns a source reading dir inside fsys.
func New(fsys fs.FS, dir string) *Source {
	return &Source{fsys: fsys, dir: dir}
}

// NewDir returns a source reading a directory on disk.
func NewDir(dir string) *Source {
	return New(os.DirFS(dir), ".")
}

// Migrations parses the directory and turns every step into a migration.
func (s *Source) Migrations(_ context.Context) ([]im.Migration, error) {
	steps, err := ParseDir(s.fsys, s.dir)
	if err != nil {
		return nil, err
	}

	migrations := make([]im.Migration, 0, len(steps))
	for _, step := range steps {
		migrations = append(migrations, step.Migration())
	}
	return migrations, nil
}

// Migration converts the step into an engine migration.
func (s Step) Migration() im.Migration {
	return im.Migration{
		Name: s.Name,
		Up:   execFunc(s.UpSQL),
		Down: execFunc(s.DownSQL),
	}
}

func execFunc(sql string) im.Func {
	return func(ctx context.Context, mctx any) error {
		if strings.TrimSpace(sql) == "" {
			return nil
		}
		execer, ok := mctx.(Execer)
		if !ok {
			return ErrNoExecer
		}
		return execer.ExecSQL(ctx, sql)
	}
}

// ParseDir scans dir for files of the form <version>_<name>.sql and splits
// their contents on the Up/Down markers. Files not matching the pattern are
// skipped.
func ParseDir(fsys fs.FS, dir string) ([]Step, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	steps := make([]Step, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".sql") {
			continue
		}
		ver, title, ok := splitVersionName(name)
		if !ok {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		up, down, err := splitUpDown(string(content))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		steps = append(steps, Step{
			Name:     strings.TrimSuffix(name, path.Ext(name)),
			Version:  ver,
			Title:    title,
			UpSQL:    up,
			DownSQL:  down,
			Checksum: checksum(up + "\n--DOWN--\n" + down),
		})
	}
	return steps, nil
}

func splitVersionName(filename string) (int64, string, bool) {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	idx := strings.IndexByte(base, '_')
	if idx <= 0 {
		return 0, "", false
	}
	v, err := strconv.ParseInt(base[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	name := base[idx+1:]
	if name == "" {
		name = "migration"
	}
	return v, name, true
}

func splitUpDown(content string) (string, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	mode := ""
	var up, down strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "-- +migrate up", "--+migrate up":
			mode = "up"
			continue
		case "-- +migrate down", "--+migrate down":
			mode = "down"
			continue
		}
		// lines before the first marker are ignored
		switch mode {
		case "up":
			up.WriteString(line)
			up.WriteByte('\n')
		case "down":
			down.WriteString(line)
			down.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(up.String()), strings.TrimSpace(down.String()), nil
}

func checksum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
