package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	path, cleanup, err := WriteTempFile("<html>contenu</html>", "html")
	if err != nil {
		t.Fatalf("WriteTempFile: %v", err)
	}
	defer cleanup()

	if !strings.HasSuffix(path, ".html") {
		t.Errorf("path %q missing extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading temp file: %v", err)
	}
	if string(data) != "<html>contenu</html>" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteTempFileCleanup(t *testing.T) {
	t.Parallel()

	path, cleanup, err := WriteTempFile("x", "html")
	if err != nil {
		t.Fatalf("WriteTempFile: %v", err)
	}

	cleanup()
	if FileExists(path) {
		t.Errorf("file %q still exists after cleanup", path)
	}
}

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		want      error
	}{
		{"valid", "html", nil},
		{"valid with dot segments", "tar.gz", nil},
		{"empty", "", ErrExtensionEmpty},
		{"forward slash", "html/../../tmp", ErrExtensionPathTraversal},
		{"backslash", `html\evil`, ErrExtensionPathTraversal},
		{"null byte", "html\x00", ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateExtension(tt.extension)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateExtension(%q) = %v, want nil", tt.extension, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.want)
			}
		})
	}
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if !FileExists(file) {
		t.Errorf("FileExists(%q) = false for regular file", file)
	}
	if FileExists(dir) {
		t.Errorf("FileExists(%q) = true for directory", dir)
	}
	if FileExists(filepath.Join(dir, "absent.txt")) {
		t.Errorf("FileExists = true for missing file")
	}
}
