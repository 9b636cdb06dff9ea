package paths

import (
	"reflect"
	"testing"
)

func TestCanonicalizeSpellings(t *testing.T) {
	root := "/home/user/project"

	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative", "src/app/auth.service.ts", "./src/app/auth.service.ts"},
		{"dot relative", "./src/app/auth.service.ts", "./src/app/auth.service.ts"},
		{"absolute under root", "/home/user/project/src/app/auth.service.ts", "./src/app/auth.service.ts"},
		{"backslashes", "src\\app\\auth.service.ts", "./src/app/auth.service.ts"},
		{"dot segments", "src/app/../app/auth.service.ts", "./src/app/auth.service.ts"},
		{"absolute elsewhere with marker", "/other/checkout/src/app/auth.service.ts", "./src/app/auth.service.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(root, tt.path)
			if got != tt.want {
				t.Errorf("Canonicalize(%q, %q) = %q, want %q", root, tt.path, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeIsStable(t *testing.T) {
	root := "/home/user/project"
	spellings := []string{
		"src/core/cache.ts",
		"./src/core/cache.ts",
		"/home/user/project/src/core/cache.ts",
		"src/core/./cache.ts",
	}

	want := Canonicalize(root, spellings[0])
	for _, s := range spellings {
		if got := Canonicalize(root, s); got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", s, got, want)
		}
	}
}

func TestCanonicalizeAbsoluteOutsideRootNoMarker(t *testing.T) {
	got := Canonicalize("/home/user/project", "/tmp/scratch/notes.ts")
	if got != "./tmp/scratch/notes.ts" {
		t.Errorf("got %q", got)
	}
}

func TestMatch(t *testing.T) {
	key := "./src/app/auth.service.ts"

	accepts := []string{
		"./src/app/auth.service.ts",
		"src/app/auth.service.ts",
		"/anything/at/all/src/app/auth.service.ts",
		"project/src/app/auth.service.ts",
	}
	for _, candidate := range accepts {
		if !Match(key, candidate) {
			t.Errorf("Match(%q, %q) = false, want true", key, candidate)
		}
	}

	rejects := []string{
		"src/app/user.service.ts",
		"./app/auth.service.ts",
		"auth.service.ts",
	}
	for _, candidate := range rejects {
		if Match(key, candidate) {
			t.Errorf("Match(%q, %q) = true, want false", key, candidate)
		}
	}
}

func TestMatchAll(t *testing.T) {
	keys := []string{
		"./src/app/auth.service.ts",
		"./packages/auth/src/app/auth.service.ts",
		"./src/app/user.service.ts",
	}

	got := MatchAll(keys, "/elsewhere/src/app/auth.service.ts")
	want := []string{
		"./src/app/auth.service.ts",
		"./packages/auth/src/app/auth.service.ts",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchAll = %v, want %v", got, want)
	}

	if got := MatchAll(keys, "missing.ts"); got != nil {
		t.Errorf("MatchAll for unknown file = %v, want nil", got)
	}
}
