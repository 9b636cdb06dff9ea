// Package project detects what kind of codebase a root directory holds by
// reading its build manifests. The result seeds per-language defaults and
// shows up in status output.
package project

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	bstoml "github.com/BurntSushi/toml"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// ManifestType identifies the build system a manifest belongs to.
type ManifestType string

const (
	ManifestGoMod       ManifestType = "go.mod"
	ManifestPackageJSON ManifestType = "package.json"
	ManifestCargoToml   ManifestType = "Cargo.toml"
	ManifestPyproject   ManifestType = "pyproject.toml"
	ManifestPubspec     ManifestType = "pubspec.yaml"
)

// Manifest is one detected build manifest.
type Manifest struct {
	Type     ManifestType `json:"type"`
	Path     string       `json:"path"`
	Name     string       `json:"name,omitempty"`
	Version  string       `json:"version,omitempty"`
	Language string       `json:"language"`
}

// Detect scans root and its immediate subdirectories for known build
// manifests. Parse failures on individual manifests are not fatal; the
// manifest is reported without name and version.
func Detect(root string) ([]Manifest, error) {
	var manifests []Manifest

	scanDir := func(dir string) {
		for _, probe := range []ManifestType{
			ManifestGoMod, ManifestPackageJSON, ManifestCargoToml,
			ManifestPyproject, ManifestPubspec,
		} {
			path := filepath.Join(dir, string(probe))
			if _, err := os.Stat(path); err != nil {
				continue
			}
			manifests = append(manifests, parseManifest(probe, path))
		}
	}

	scanDir(root)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch e.Name() {
		case "node_modules", "vendor", "dist", "build", "out":
			continue
		}
		scanDir(filepath.Join(root, e.Name()))
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Path < manifests[j].Path })
	return manifests, nil
}

func parseManifest(kind ManifestType, path string) Manifest {
	m := Manifest{Type: kind, Path: path}
	switch kind {
	case ManifestGoMod:
		m.Language = "go"
		m.Name = goModulePath(path)
	case ManifestPackageJSON:
		m.Language = "javascript"
		if _, err := os.Stat(filepath.Join(filepath.Dir(path), "tsconfig.json")); err == nil {
			m.Language = "typescript"
		}
		m.Name, m.Version = packageJSONInfo(path)
	case ManifestCargoToml:
		m.Language = "rust"
		m.Name, m.Version = cargoInfo(path)
	case ManifestPyproject:
		m.Language = "python"
		m.Name, m.Version = pyprojectInfo(path)
	case ManifestPubspec:
		m.Language = "dart"
		m.Name, m.Version = pubspecInfo(path)
	}
	return m
}

// goModulePath extracts the module directive from a go.mod file.
func goModulePath(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func packageJSONInfo(path string) (string, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", ""
	}
	return pkg.Name, pkg.Version
}

func cargoInfo(path string) (string, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	var cargo struct {
		Package struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := bstoml.Unmarshal(data, &cargo); err != nil {
		return "", ""
	}
	return cargo.Package.Name, cargo.Package.Version
}

func pyprojectInfo(path string) (string, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	var py struct {
		Project struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name    string `toml:"name"`
				Version string `toml:"version"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &py); err != nil {
		return "", ""
	}
	if py.Project.Name != "" {
		return py.Project.Name, py.Project.Version
	}
	return py.Tool.Poetry.Name, py.Tool.Poetry.Version
}

func pubspecInfo(path string) (string, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	var pub struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &pub); err != nil {
		return "", ""
	}
	return pub.Name, pub.Version
}

// PrimaryLanguage picks the most likely main language across manifests,
// preferring the root-level manifest when several were found.
func PrimaryLanguage(manifests []Manifest) string {
	if len(manifests) == 0 {
		return ""
	}
	best := manifests[0]
	for _, m := range manifests[1:] {
		if strings.Count(filepath.ToSlash(m.Path), "/") < strings.Count(filepath.ToSlash(best.Path), "/") {
			best = m
		}
	}
	return best.Language
}
