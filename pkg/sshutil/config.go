package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry is a concrete Host block from an ssh_config file.
// tbwatch init offers these so the connection fields can be prefilled.
type HostEntry struct {
	Alias        string
	Hostname     string
	User         string
	Port         int // 0 when not set
	IdentityFile string
}

// Label returns "alias (hostname, user)" for pick lists.
func (h HostEntry) Label() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != 0 && h.Port != 22 {
		parts = append(parts, "port: "+strconv.Itoa(h.Port))
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return h.Alias + " (" + strings.Join(parts, ", ") + ")"
}

// DefaultConfigPath returns ~/.ssh/config.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// ListHosts returns the non-wildcard hosts in configPath, sorted by alias.
// A missing file yields no hosts and no error.
func ListHosts(configPath string) ([]HostEntry, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []HostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			entry := HostEntry{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			if port, _ := cfg.Get(alias, "Port"); port != "" {
				entry.Port, _ = strconv.Atoi(port)
			}
			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				entry.IdentityFile = expandPath(identity)
			}
			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}
