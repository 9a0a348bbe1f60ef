package keystore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("keystore: unsupported file format")

// Entry is one credential in a keys file.
type Entry struct {
	AccessKey string `yaml:"access_key" toml:"access_key"`
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
}

// File is the layout of a keys file:
//
//	credentials:
//	  - access_key: remoteci/464cc0a3
//	    secret_key: s3cr3t
type File struct {
	Credentials []Entry `yaml:"credentials" toml:"credentials"`
}

// LoadFile reads a keys file. The format is chosen by extension: .yaml or
// .yml for YAML, .toml for TOML.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}

	var f File

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("keystore: %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("keystore: %s: %w", path, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("keystore: %s: unknown keys %v", path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return f.Store()
}

// Store builds a Static store from the file entries.
func (f File) Store() (*Static, error) {
	s := &Static{secrets: make(map[string][]byte, len(f.Credentials))}

	for _, e := range f.Credentials {
		if err := s.Add(e.AccessKey, []byte(e.SecretKey)); err != nil {
			return nil, err
		}
	}

	return s, nil
}
