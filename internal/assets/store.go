// Package assets indexes the world directory so files can be found by
// base name, the way level and script files refer to each other.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrNotFound is returned by Load for names missing from the index.
var ErrNotFound = errors.New("asset not found")

// Store maps lower-cased base file names to paths under one root.
// It is built once at startup and read-only afterwards.
type Store struct {
	root  string
	files map[string]string
	wire  encoding.Encoding // nil keeps UTF-8
}

// Open indexes every regular file below dir. When two files share a base
// name the first one in lexical walk order wins.
func Open(dir, charset string, log *zap.Logger) (*Store, error) {
	wire, err := lookupCharset(charset)
	if err != nil {
		return nil, err
	}
	s := &Store{root: dir, files: make(map[string]string), wire: wire}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		key := strings.ToLower(d.Name())
		if prev, ok := s.files[key]; ok {
			log.Debug("資源名稱重複，保留第一個",
				zap.String("name", d.Name()),
				zap.String("kept", prev),
				zap.String("skipped", path),
			)
			return nil
		}
		s.files[key] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index assets %s: %w", dir, err)
	}
	return s, nil
}

func lookupCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unknown charset %q", name)
}

// Len returns the number of indexed files.
func (s *Store) Len() int { return len(s.files) }

// Path returns the full path of name.
func (s *Store) Path(name string) (string, bool) {
	p, ok := s.files[strings.ToLower(filepath.Base(name))]
	return p, ok
}

// Load reads name and converts its text to the wire charset.
func (s *Store) Load(name string) ([]byte, error) {
	p, ok := s.Path(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", p, err)
	}
	return s.ToWire(data), nil
}

// ToWire converts UTF-8 text to the wire charset. Characters the charset
// cannot hold are replaced rather than failing the load.
func (s *Store) ToWire(b []byte) []byte {
	if s.wire == nil || isASCII(b) {
		return b
	}
	out, err := encoding.ReplaceUnsupported(s.wire.NewEncoder()).Bytes(b)
	if err != nil {
		return b // fallback to raw bytes
	}
	return out
}

// ToUTF8 converts wire text back to UTF-8 for logs and the script host.
func (s *Store) ToUTF8(b []byte) string {
	if s.wire == nil || isASCII(b) {
		return string(b)
	}
	out, err := s.wire.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
