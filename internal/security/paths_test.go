package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	root := t.TempDir()
	safe := filepath.Join(root, "plots")
	outside := filepath.Join(root, "outside")
	for _, d := range []string{safe, outside} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink(outside, filepath.Join(safe, "link")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(safe, "local_heading.png"), false},
		{"new nested dir", filepath.Join(safe, "run1", "a.png"), false},
		{"dir itself", safe, false},
		{"dot dot escape", filepath.Join(safe, "..", "outside", "a.png"), true},
		{"sibling with common prefix", safe + "-other", true},
		{"through symlink", filepath.Join(safe, "link", "a.png"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, safe)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	if err := ValidateOutputPath(filepath.Join(t.TempDir(), "plots")); err != nil {
		t.Errorf("temp dir rejected: %v", err)
	}
	if err := ValidateOutputPath("plots"); err != nil {
		t.Errorf("relative path rejected: %v", err)
	}
	if err := ValidateOutputPath("/etc/plots"); err == nil {
		t.Error("expected /etc/plots to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"local", "local"},
		{"42", "42"},
		{"node 7/../x", "node_7_.._x"},
		{"a::b", "a_b"},
		{"..", "unknown"},
		{"", "unknown"},
		{strings.Repeat("n", 300), strings.Repeat("n", maxFilenameLen)},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
