// Package bridge implements the MCP bridge supervisor (spec.md §4.7,
// component C7): the manifest format, identifier computation, dedup and
// circular-reference detection, and the bridge state machine.
package bridge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StdioEntry is a manifest entry launched as a child process over stdio,
// per spec.md §3 "BridgeManifest entry".
type StdioEntry struct {
	Command  string            `yaml:"command" json:"command"`
	Args     []string          `yaml:"args" json:"args"`
	Cwd      string            `yaml:"cwd,omitempty" json:"cwd,omitempty"`
	Env      map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Disabled bool              `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// HTTPEntry is a manifest entry reached over HTTP, per spec.md §3.
type HTTPEntry struct {
	URL      string            `yaml:"url" json:"url"`
	Env      map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Disabled bool              `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Entry is one named manifest entry. Exactly one of Stdio or HTTP is
// non-nil; IsHTTP reports which.
type Entry struct {
	Name  string
	Stdio *StdioEntry
	HTTP  *HTTPEntry
}

// IsHTTP reports whether e is an HTTP-transport entry.
func (e Entry) IsHTTP() bool { return e.HTTP != nil }

// IsDisabled reports the entry's disabled flag regardless of transport.
func (e Entry) IsDisabled() bool {
	if e.Stdio != nil {
		return e.Stdio.Disabled
	}
	if e.HTTP != nil {
		return e.HTTP.Disabled
	}
	return false
}

// rawManifest is the on-disk shape, per spec.md §6 "Bridge manifest":
//
//	{ "mcpServers": { "<name>": {command/args/cwd/env/disabled} | {url/env/disabled} } }
type rawManifest struct {
	MCPServers map[string]rawEntry `yaml:"mcpServers" json:"mcpServers"`
}

type rawEntry struct {
	Command  string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args     []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Cwd      string            `yaml:"cwd,omitempty" json:"cwd,omitempty"`
	URL      string            `yaml:"url,omitempty" json:"url,omitempty"`
	Env      map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Disabled bool              `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Manifest is the parsed set of bridge entries, keyed by their manifest name.
type Manifest struct {
	Entries map[string]Entry
}

// ParseManifest parses raw manifest bytes. YAML is used (gopkg.in/yaml.v3)
// since YAML is a JSON superset, so a plain JSON manifest parses unchanged,
// per SPEC_FULL's DOMAIN STACK wiring.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing bridge manifest: %w", err)
	}

	m := &Manifest{Entries: make(map[string]Entry, len(raw.MCPServers))}
	for name, re := range raw.MCPServers {
		if re.URL != "" {
			m.Entries[name] = Entry{Name: name, HTTP: &HTTPEntry{URL: re.URL, Env: re.Env, Disabled: re.Disabled}}
			continue
		}
		if re.Command == "" {
			return nil, fmt.Errorf("bridge %q: neither command nor url given", name)
		}
		m.Entries[name] = Entry{Name: name, Stdio: &StdioEntry{
			Command: re.Command, Args: re.Args, Cwd: re.Cwd, Env: re.Env, Disabled: re.Disabled,
		}}
	}
	return m, nil
}

// LoadManifestFile parses the manifest at path.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ErrBridgingDisabled is returned by ResolveManifestPath when the caller has
// explicitly disabled bridging (spec.md §6: "Empty path env var disables
// bridging entirely").
var ErrBridgingDisabled = errors.New("bridging disabled")

// DefaultManifestFileName is the manifest's conventional file name when
// searched for by CWD or ancestor directory, per spec.md §4.7
// "Manifest lookup".
const DefaultManifestFileName = "mcp-bridges.json"

// ProjectManifestFileName is the nearest-ancestor project manifest name
// searched for when neither an explicit path nor a CWD file is found.
const ProjectManifestFileName = "package.json"

// ResolveManifestPath implements the search order of spec.md §4.7
// "Manifest lookup":
//  1. explicit path env var (envPath, envSet)
//  2. CWD file of default name
//  3. nearest ancestor containing a project manifest declaring this system
//     as a dependency (detected via hasDependency)
//
// An explicitly empty envPath (envSet true, envPath "") disables bridging.
func ResolveManifestPath(envPath string, envSet bool, cwd string, hasDependency func(projectManifestPath string) bool) (string, error) {
	if envSet {
		if envPath == "" {
			return "", ErrBridgingDisabled
		}
		return envPath, nil
	}

	candidate := filepath.Join(cwd, DefaultManifestFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	dir := cwd
	for {
		projectManifest := filepath.Join(dir, ProjectManifestFileName)
		if _, err := os.Stat(projectManifest); err == nil {
			if hasDependency == nil || hasDependency(projectManifest) {
				return filepath.Join(dir, DefaultManifestFileName), nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no bridge manifest found searching from %s", cwd)
}
