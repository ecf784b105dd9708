package pathops

import (
	"runtime"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", "/"},
		{"///", "/"},
		{"/home/user/", "/home/user"},
		{"/home/user//", "/home/user"},
		{"relative/dir/", "relative/dir"},
		{`C:\`, `C:\`},
		{`C:\Windows\`, `C:\Windows`},
		{`C:\Windows\\`, `C:\Windows`},
		{`\\server\share\`, `\\server\share\`},
		{`\\server\share\dir\`, `\\server\share\dir`},
		{`\\?\C:\`, `\\?\C:\`},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		dir, name string
		want      string
	}{
		{"", "a", "a"},
		{"/", "a", "/a"},
		{"/home", "user", "/home/user"},
		{"/home/", "user", "/home/user"},
		{"/home", "/user", "/home/user"},
		{`C:\`, "Windows", `C:\Windows`},
		{`C:\Users`, "bob", `C:\Users\bob`},
		{`\\server\share`, "dir", `\\server\share\dir`},
	}
	for _, tt := range tests {
		if got := Join(tt.dir, tt.name); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.dir, tt.name, got, tt.want)
		}
	}
}

func TestParent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/a", "/"},
		{"/a/b", "/a"},
		{"/a/b/", "/a"},
		{"a/b", "a"},
		{"name", "name"},
		{`C:\`, `C:\`},
		{`C:\a`, `C:\`},
		{`C:\a\b`, `C:\a`},
		{`C:\a\b\`, `C:\a`},
		{`\\server\share\dir`, `\\server\share\`},
		{`\\server\share\`, `\\server\share\`},
	}
	for _, tt := range tests {
		if got := Parent(tt.in); got != tt.want {
			t.Errorf("Parent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParent_RootIsFixedPoint(t *testing.T) {
	for _, root := range []string{"/", `C:\`, `D:\`} {
		p := root
		for i := 0; i < 3; i++ {
			p = Parent(p)
		}
		if p != root {
			t.Errorf("repeated Parent(%q) = %q, want root to be stable", root, p)
		}
	}
}

func TestIsRoot(t *testing.T) {
	roots := []string{"/", "//", `C:\`, `C:\\`, `\\server\share\`}
	for _, r := range roots {
		if !IsRoot(r) {
			t.Errorf("IsRoot(%q) = false, want true", r)
		}
	}
	nonRoots := []string{"", "/a", "a", `C:\a`}
	for _, r := range nonRoots {
		if IsRoot(r) {
			t.Errorf("IsRoot(%q) = true, want false", r)
		}
	}
}

func TestToExtendedForm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{`C:\very\deep\tree`, `\\?\C:\very\deep\tree`},
		{`\\?\C:\already`, `\\?\C:\already`},
		{`\\?\c:\lower`, `\\?\c:\lower`},
		{`\\.\PhysicalDrive0`, `\\.\PhysicalDrive0`},
		{`\\server\share\dir`, `\\?\UNC\server\share\dir`},
	}
	for _, tt := range tests {
		if got := ToExtendedForm(tt.in); got != tt.want {
			t.Errorf("ToExtendedForm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBackslashIsPlainCharacterOnPOSIX(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("backslash is a separator on Windows")
	}
	if got := Normalize(`/tmp/odd\`); got != `/tmp/odd\` {
		t.Fatalf("Normalize kept %q, want backslash preserved", got)
	}
	if got := Parent(`/tmp/a\b`); got != "/tmp" {
		t.Fatalf("Parent(%q) = %q, want %q", `/tmp/a\b`, got, "/tmp")
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		base, path string
		want       bool
	}{
		{"/data", "/data", true},
		{"/data/", "/data/sub/x", true},
		{"/data", "/database", false},
		{"/data/sub", "/data", false},
		{"/", "/etc", true},
		{`C:\Users`, `c:\users\bob`, true},
		{`C:\`, `D:\x`, false},
		{"", "/x", false},
	}
	for _, tt := range tests {
		if got := Within(tt.base, tt.path); got != tt.want {
			t.Errorf("Within(%q, %q) = %v, want %v", tt.base, tt.path, got, tt.want)
		}
	}
}
