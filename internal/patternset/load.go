package patternset

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Parse decodes a pattern set. YAML documents are recognized by ext
// (".yaml", ".yml"); anything else is read as a text list with one pattern
// per line, an optional tab-separated value, and '#' comments.
func Parse(name, ext string, data []byte) (*Definition, error) {
	var def *Definition
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		def = &Definition{}
		if err := yaml.UnmarshalStrict(data, def); err != nil {
			return nil, errors.Wrapf(err, "decode pattern set %q", name)
		}
	default:
		var err error
		def, err = parseLines(data)
		if err != nil {
			return nil, errors.Wrapf(err, "read pattern set %q", name)
		}
	}
	if def.Name == "" {
		def.Name = name
	}
	def.Normalize()
	if err := def.Validate(); err != nil {
		return nil, errors.Wrapf(err, "pattern set %q", def.Name)
	}
	return def, nil
}

func parseLines(data []byte) (*Definition, error) {
	def := &Definition{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		text, value, _ := strings.Cut(line, "\t")
		def.Patterns = append(def.Patterns, Pattern{Text: text, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadFile reads a pattern set from path. The file's base name, without
// extension, names the set unless the file sets one.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load pattern set")
	}
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	return Parse(name, ext, data)
}

// LoadDir reads every .yaml, .yml and .txt file in dir, sorted by file name.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read pattern directory %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".txt":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	defs := make([]*Definition, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		def, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[def.Name]; dup {
			return nil, errors.Errorf("pattern set %q defined in both %s and %s", def.Name, prev, p)
		}
		seen[def.Name] = p
		defs = append(defs, def)
	}
	return defs, nil
}

// Marshal encodes def in the YAML form read back by Parse.
func Marshal(def *Definition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, errors.Wrapf(err, "encode pattern set %q", def.Name)
	}
	return data, nil
}
