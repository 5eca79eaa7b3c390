package ctl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edvin/mailprov/internal/mailcow"
)

const (
	configDirName    = "mailprov"
	profilesFileName = "servers.yaml"
)

var validate = validator.New()

// Profiles is the operator's servers file:
//
//	default: primary
//	servers:
//	  primary:
//	    hostname: mail.example.com
//	    api_key: ${MAILCOW_PRIMARY_KEY}
//	    secure: true
type Profiles struct {
	Default string                    `yaml:"default"`
	Servers map[string]mailcow.Server `yaml:"servers" validate:"dive"`
}

// DefaultProfilesPath returns ~/.config/mailprov/servers.yaml, honouring
// XDG_CONFIG_HOME.
func DefaultProfilesPath() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, configDirName, profilesFileName), nil
}

// LoadProfiles reads and validates a servers file. API keys of the form
// ${NAME} are read from the environment.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	for name, srv := range p.Servers {
		srv.APIKey = expandEnv(srv.APIKey)
		p.Servers[name] = srv
	}

	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}
	if p.Default != "" {
		if _, ok := p.Servers[p.Default]; !ok {
			return nil, fmt.Errorf("default server %q is not defined", p.Default)
		}
	}
	return &p, nil
}

// Server returns the named server, or the default one when name is empty.
func (p *Profiles) Server(name string) (mailcow.Server, error) {
	if name == "" {
		name = p.Default
	}
	if name == "" {
		if len(p.Servers) == 1 {
			for _, srv := range p.Servers {
				return srv, nil
			}
		}
		return mailcow.Server{}, fmt.Errorf("no server selected and no default set")
	}
	srv, ok := p.Servers[name]
	if !ok {
		return mailcow.Server{}, fmt.Errorf("server %q not found", name)
	}
	return srv, nil
}

// Names returns the server names in sorted order.
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.Servers))
	for name := range p.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func expandEnv(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}
