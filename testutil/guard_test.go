package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred func(string) bool
		in   string
		want bool
	}{
		{"infra backend", InfraImportForbidden, "glucotrack/internal/infra/kv/sqlite", true},
		{"kv facade", InfraImportForbidden, "glucotrack/internal/kv", false},
		{"infra lookalike", InfraImportForbidden, "glucotrack/internal/infrastructure", false},
		{"cobra", CLIImportForbidden, "github.com/spf13/cobra", true},
		{"cli package", CLIImportForbidden, "glucotrack/internal/cli", true},
		{"cmd", CLIImportForbidden, "glucotrack/cmd/glucostore", true},
		{"core", CLIImportForbidden, "glucotrack/internal/core", false},
		{"pgx stdlib", DriverImportForbidden, "github.com/jackc/pgx/v5/stdlib", true},
		{"sqlite", DriverImportForbidden, "modernc.org/sqlite", true},
		{"s3", DriverImportForbidden, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"database/sql", DriverImportForbidden, "database/sql", true},
		{"encoding/json", DriverImportForbidden, "encoding/json", false},
		{"ident allowed", InternalImportForbidden("glucotrack/internal/ident"), "glucotrack/internal/ident", false},
		{"other internal", InternalImportForbidden("glucotrack/internal/ident"), "glucotrack/internal/core", true},
		{"external", InternalImportForbidden(), "github.com/google/uuid", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s: predicate(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

type recordingT struct {
	msg string
}

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"database/sql\"\n)\nvar _ = fmt.Sprint\nvar _ sql.DB\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"modernc.org/sqlite\"\n")
	writeFile(t, dir, "notes.txt", "import \"database/sql\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport \"github.com/jackc/pgx/v5\"\n")

	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql (in a.go)" {
		t.Fatalf("expected only the non-test top-level violation, got %v", viols)
	}

	rec := &recordingT{}
	failIfViolations(rec, "direct imports", "drivers", viols)
	if !strings.Contains(rec.msg, "forbidden direct imports detected (drivers)") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}

	if _, err := directImportViolations(filepath.Join(dir, "missing"), DriverImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	writeFile(t, dir, "broken.go", "package tmp\nimport (")
	if _, err := directImportViolations(dir, DriverImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := loadDeps
	t.Cleanup(func() { loadDeps = orig })

	loadDeps = func(string) ([]string, error) {
		return []string{"glucotrack/internal/core", "modernc.org/sqlite", "database/sql", "fmt"}, nil
	}
	viols, err := transitiveDependencyViolations("./...", DriverImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if strings.Join(viols, ",") != "database/sql,modernc.org/sqlite" {
		t.Fatalf("unexpected violations %v", viols)
	}

	loadDeps = func(string) ([]string, error) { return nil, errors.New("boom") }
	if _, err := transitiveDependencyViolations("./...", DriverImportForbidden); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestPackageLayering(t *testing.T) {
	root := filepath.Join("..")
	AssertNoDirectImports(t, filepath.Join(root, "internal", "repository"), DriverImportForbidden, "repository persists through the kv adapter")
	AssertNoDirectImports(t, filepath.Join(root, "internal", "core"), InfraImportForbidden, "core opens stores through kv.Open")
	AssertNoDirectImports(t, filepath.Join(root, "internal", "core"), CLIImportForbidden, "core is used by the CLI, not the reverse")
	AssertNoDirectImports(t, filepath.Join(root, "pkg", "domain"), InternalImportForbidden(modulePath+"/internal/ident"), "domain types depend only on ident")
	AssertNoTransitiveDependency(t, modulePath+"/internal/repository", CLIImportForbidden, "repository stays free of the command layer")
}
