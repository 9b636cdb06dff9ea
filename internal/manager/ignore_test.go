package manager

import "testing"

func TestIsIgnored(t *testing.T) {
	ignored := []string{
		"node_modules/lodash/index.js",
		"src/node_modules/dep/a.ts",
		".git/objects/ab/cdef",
		".tokopt/analysis-cache.json",
		"dist/app.js",
		"build/output.ts",
		"coverage/lcov.info",
		"__pycache__/mod.pyc",
		"vendor/pkg/pkg.go",
		"app/main.min.js",
		"styles/site.min.css",
		"dist.js.map",
		"app.bundle.js",
	}
	for _, path := range ignored {
		if !IsIgnored(path) {
			t.Errorf("IsIgnored(%q) = false, want true", path)
		}
	}

	kept := []string{
		"src/app/auth.service.ts",
		"lib/builder.ts",
		"distillery/brew.ts",
		"src/minify.ts",
	}
	for _, path := range kept {
		if IsIgnored(path) {
			t.Errorf("IsIgnored(%q) = true, want false", path)
		}
	}
}

func TestMatchesExcludes(t *testing.T) {
	excludes := []string{"generated", "*.gen.ts"}

	if !matchesExcludes("generated/types.ts", excludes) {
		t.Error("directory exclude did not match")
	}
	if !matchesExcludes("api.gen.ts", excludes) {
		t.Error("glob exclude did not match")
	}
	if matchesExcludes("src/app.ts", excludes) {
		t.Error("unrelated path excluded")
	}
}
