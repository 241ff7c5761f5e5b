// Package domains holds the table of supported news sites and their mirror hosts.
package domains

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed domains.yaml
var defaultTable []byte

var hostnameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

// Site is a single registry entry.
type Site struct {
	Region     string
	Host       string
	MirrorHost string
}

// Registry maps source hostnames to mirror hostnames. It is read-only after loading.
type Registry struct {
	mirrors map[string]string
	sites   []Site
}

type table struct {
	Regions []struct {
		Name  string            `yaml:"name"`
		Sites map[string]string `yaml:"sites"`
	} `yaml:"regions"`
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultTable))
}

// LoadFile reads a registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open domains file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes and validates a registry table.
func Load(r io.Reader) (*Registry, error) {
	var t table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode domains: %w", err)
	}

	reg := &Registry{mirrors: make(map[string]string)}
	for _, region := range t.Regions {
		hosts := make([]string, 0, len(region.Sites))
		for host := range region.Sites {
			hosts = append(hosts, host)
		}
		sort.Strings(hosts)

		for _, host := range hosts {
			mirror := region.Sites[host]
			if !hostnameRe.MatchString(host) {
				return nil, fmt.Errorf("invalid source host %q in region %q", host, region.Name)
			}
			if !hostnameRe.MatchString(mirror) {
				return nil, fmt.Errorf("invalid mirror host %q for %q", mirror, host)
			}
			if _, dup := reg.mirrors[host]; dup {
				return nil, fmt.Errorf("duplicate source host %q", host)
			}
			reg.mirrors[host] = mirror
			reg.sites = append(reg.sites, Site{Region: region.Name, Host: host, MirrorHost: mirror})
		}
	}

	if len(reg.mirrors) == 0 {
		return nil, fmt.Errorf("domains table is empty")
	}
	return reg, nil
}

// Lookup returns the mirror host registered for hostname.
func (r *Registry) Lookup(hostname string) (string, bool) {
	mirror, ok := r.mirrors[hostname]
	return mirror, ok
}

// Sites returns all entries in region order, hosts sorted within a region.
func (r *Registry) Sites() []Site {
	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// Len returns the number of registered source hosts.
func (r *Registry) Len() int {
	return len(r.mirrors)
}
