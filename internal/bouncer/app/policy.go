package app

import (
	"bytes"
	"fmt"
	"maps"
	"os"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"gopkg.in/yaml.v3"
)

// PolicyFile is the on-disk shape of the access policy.
type PolicyFile struct {
	// RoleMapping maps provider roles to internal authorities.
	RoleMapping map[string]string `yaml:"roleMapping"`

	Rules        []authz.Rule        `yaml:"rules"`
	Confinements []authz.Confinement `yaml:"confinements"`
}

// Policy returns the enforcer part of the file.
func (p PolicyFile) Policy() authz.Policy {
	return authz.Policy{Rules: p.Rules, Confinements: p.Confinements}
}

// LoadPolicy reads and parses a YAML policy file. Unknown keys are an error
// so typos don't silently open or close routes.
func LoadPolicy(path string) (PolicyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PolicyFile{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy parses a YAML policy document.
func ParsePolicy(raw []byte) (PolicyFile, error) {
	var p PolicyFile

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return PolicyFile{}, fmt.Errorf("parse policy: %w", err)
	}

	if len(p.Rules) == 0 {
		return PolicyFile{}, fmt.Errorf("parse policy: no rules, every request would be denied")
	}
	return p, nil
}

// mergeRoleMapping overlays env entries on the file's mapping.
func mergeRoleMapping(file, env map[string]string) map[string]string {
	out := make(map[string]string, len(file)+len(env))
	maps.Copy(out, file)
	maps.Copy(out, env)
	return out
}
