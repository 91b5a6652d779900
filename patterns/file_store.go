package patterns

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileStore reads rule sets from <dir>/<jurisdiction>.yaml (or .yml).
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load reads and validates one jurisdiction's rule file. Unknown keys are
// rejected so a typo in a rule file fails loudly.
func (s *FileStore) Load(_ context.Context, jurisdiction string) (*RuleSet, error) {
	key := NormalizeJurisdiction(jurisdiction)
	if err := validateJurisdiction(key); err != nil {
		return nil, configError(key, "invalid jurisdiction name", err)
	}

	data, path, err := s.read(key)
	if err != nil {
		return nil, err
	}

	set, err := DecodeRuleSet(data)
	if err != nil {
		return nil, configError(key, "cannot parse "+filepath.Base(path), err)
	}
	return prepare(set, key)
}

func (s *FileStore) read(key string) ([]byte, string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(s.dir, key+ext)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, configError(key, "cannot read rule file", err)
		}
	}
	return nil, "", configError(key, "no rule set", nil)
}

// List returns the jurisdictions that have a rule file in the directory.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pattern directory %s: %w", s.dir, err)
	}

	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		j := NormalizeJurisdiction(strings.TrimSuffix(name, ext))
		if !seen[j] {
			seen[j] = true
			out = append(out, j)
		}
	}
	sort.Strings(out)
	return out, nil
}

// DecodeRuleSet parses a YAML rule set without validating it.
func DecodeRuleSet(data []byte) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var set RuleSet
	if err := dec.Decode(&set); err != nil {
		return nil, err
	}
	return &set, nil
}
