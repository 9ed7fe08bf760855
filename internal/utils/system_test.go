package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"Simple", "alice@example.com", true},
		{"PlusTag", "alice+ops@example.co.uk", true},
		{"Empty", "", false},
		{"NoAt", "alice.example.com", false},
		{"NoTLD", "alice@example", false},
		{"Spaces", "alice @example.com", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidEmail(tc.input); got != tc.valid {
				t.Errorf("IsValidEmail(%q) = %v, expected %v", tc.input, got, tc.valid)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Expected untouched string, got %q", got)
	}
	if got := Truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("Expected abc..., got %q", got)
	}
}

func TestFindProjectRoot(t *testing.T) {
	t.Run("FindsFromNestedDirectory", func(t *testing.T) {
		root := t.TempDir()
		if err := os.Mkdir(filepath.Join(root, ProjectDirName), 0755); err != nil {
			t.Fatal(err)
		}
		nested := filepath.Join(root, "services", "api")
		if err := os.MkdirAll(nested, 0755); err != nil {
			t.Fatal(err)
		}

		got, err := FindProjectRoot(nested)
		if err != nil {
			t.Fatalf("FindProjectRoot failed: %v", err)
		}
		want, _ := filepath.EvalSymlinks(root)
		gotResolved, _ := filepath.EvalSymlinks(got)
		if gotResolved != want {
			t.Errorf("Expected %s, got %s", want, gotResolved)
		}
	})

	t.Run("IgnoresPlainFile", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, ProjectDirName), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		got, err := FindProjectRoot(root)
		if err != nil {
			t.Fatalf("FindProjectRoot failed: %v", err)
		}
		if got == root {
			t.Errorf("A regular file named %s must not mark a project", ProjectDirName)
		}
	})
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.env")

	if err := os.WriteFile(path, []byte("OLD=1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("NEW=1\n"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "NEW=1\n" {
		t.Errorf("Unexpected content %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected temporary files to be cleaned up, found %d entries", len(entries))
	}

	if isWindows() {
		return
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600, got %o", info.Mode().Perm())
	}
}

func TestEnsureGitignore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules"), 0644); err != nil {
		t.Fatal(err)
	}

	added, err := EnsureGitignore(dir, []string{"node_modules", ".env"})
	if err != nil {
		t.Fatalf("EnsureGitignore failed: %v", err)
	}
	if len(added) != 1 || added[0] != ".env" {
		t.Errorf("Expected only .env to be added, got %v", added)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "node_modules\n.env\n" {
		t.Errorf("Unexpected .gitignore content %q", data)
	}

	added, err = EnsureGitignore(dir, []string{".env"})
	if err != nil {
		t.Fatalf("second EnsureGitignore failed: %v", err)
	}
	if len(added) != 0 {
		t.Errorf("Expected no changes on second run, got %v", added)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		def    bool
		expect bool
	}{
		{"YesShort", "y\n", false, true},
		{"YesLong", "YES\n", false, true},
		{"No", "n\n", true, false},
		{"EmptyUsesDefaultTrue", "\n", true, true},
		{"EmptyUsesDefaultFalse", "", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(strings.NewReader(tc.input), &out, "Continue?", tc.def)
			if err != nil {
				t.Fatalf("Confirm failed: %v", err)
			}
			if got != tc.expect {
				t.Errorf("Confirm(%q) = %v, expected %v", tc.input, got, tc.expect)
			}
			if !strings.Contains(out.String(), "Continue?") {
				t.Errorf("Expected the question to be printed, got %q", out.String())
			}
		})
	}
}

func isWindows() bool {
	return os.PathSeparator == '\\'
}
