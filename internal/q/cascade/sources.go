package cascade

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// source supplies flat key/value data to the loader.
type source interface {
	name() string // used in error messages
	providence() Providence
	values() (map[string]any, error)
}

type sourceMap struct {
	m map[string]any
}

func (s *sourceMap) name() string           { return "Defaults" }
func (s *sourceMap) providence() Providence { return Providence{SourceType: "default"} }

func (s *sourceMap) values() (map[string]any, error) {
	if s.m == nil {
		return map[string]any{}, nil
	}
	return s.m, nil
}

// sourceTOMLFile reads a TOML file at load time. Only top-level scalar keys are used; an empty or whitespace-only file contributes no values.
type sourceTOMLFile struct {
	path string
}

func (s *sourceTOMLFile) name() string { return s.path }
func (s *sourceTOMLFile) providence() Providence {
	return Providence{SourceType: "toml_file", SourceIdentifier: s.path}
}

func (s *sourceTOMLFile) values() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return map[string]any{}, nil
	}

	var m map[string]any
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	for k, v := range m {
		if _, isTable := v.(map[string]any); isTable {
			return nil, fmt.Errorf("key %q: tables are not supported", k)
		}
	}
	return m, nil
}

type sourceEnv struct {
	keyToEnv map[string]string // ex: {"context": "INLINESNAP_CONTEXT"}
}

func (s *sourceEnv) name() string           { return "Environment" }
func (s *sourceEnv) providence() Providence { return Providence{SourceType: "env"} }

func (s *sourceEnv) values() (map[string]any, error) {
	m := map[string]any{}
	for key, env := range s.keyToEnv {
		if v, ok := os.LookupEnv(env); ok {
			m[key] = v
		}
	}
	return m, nil
}
