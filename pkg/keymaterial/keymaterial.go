// Package keymaterial resolves the control-repository private key from
// either a local file or inline content.
package keymaterial

import (
	"os"

	"github.com/mensylisir/pexm/pkg/errors/errdefs"
)

// Source is where the key comes from. It is either a File or an Inline
// value; a nil Source means no key is deployed.
type Source interface {
	isSource()
}

// File reads the key from a path on the machine running pexm.
type File struct {
	Path string
}

// Inline carries the key content itself.
type Inline struct {
	Content string
}

func (File) isSource()   {}
func (Inline) isSource() {}

// NewSource turns the two optional inputs into a Source. Supplying both is
// ambiguous; supplying neither yields a nil Source and no error.
func NewSource(path, content string) (Source, error) {
	switch {
	case path != "" && content != "":
		return nil, errdefs.NewConfigError("ambiguous key source")
	case path != "":
		return File{Path: path}, nil
	case content != "":
		return Inline{Content: content}, nil
	default:
		return nil, nil
	}
}

// Material is resolved key content.
type Material struct {
	content []byte
}

// Bytes returns a copy of the key content.
func (m *Material) Bytes() []byte {
	out := make([]byte, len(m.content))
	copy(out, m.content)
	return out
}

// Resolve reads the key from src. A nil src resolves to nil Material
// without error. A missing or unreadable file is an IOError.
func Resolve(src Source) (*Material, error) {
	switch s := src.(type) {
	case nil:
		return nil, nil
	case File:
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, &errdefs.IOError{Op: "read private key", Path: s.Path, Err: err}
		}
		return &Material{content: data}, nil
	case Inline:
		return &Material{content: []byte(s.Content)}, nil
	default:
		return nil, errdefs.NewConfigError("unsupported key source %T", src)
	}
}

// ResolveFrom is NewSource followed by Resolve.
func ResolveFrom(path, content string) (*Material, error) {
	src, err := NewSource(path, content)
	if err != nil {
		return nil, err
	}
	return Resolve(src)
}
