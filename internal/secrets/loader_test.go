package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	withKey := filepath.Join(dir, "key")
	if err := os.WriteFile(withKey, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr bool
		unset   bool
	}{
		{name: "inline value", src: Source{Value: " inline "}, want: "inline"},
		{name: "file wins over value", src: Source{Value: "inline", File: withKey}, want: "from-file"},
		{name: "empty file", src: Source{File: empty}, wantErr: true},
		{name: "missing file", src: Source{File: filepath.Join(dir, "missing")}, wantErr: true},
		{name: "nothing configured", src: Source{Name: "smtp password"}, wantErr: true, unset: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Load(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %q", got)
				}
				if errors.Is(err, ErrNotConfigured) != tt.unset {
					t.Fatalf("unexpected error kind: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadOptional(t *testing.T) {
	got, err := LoadOptional(Source{Name: "database dsn"})
	if err != nil || got != "" {
		t.Fatalf("absent optional secret must resolve to empty, got %q, %v", got, err)
	}

	if _, err := LoadOptional(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("unreadable file must still fail")
	}
}

func TestLoadErrorMessage(t *testing.T) {
	_, err := Load(Source{Name: "smtp password"})
	if err == nil || err.Error() != "smtp password is not configured" {
		t.Fatalf("unexpected error: %v", err)
	}
}
