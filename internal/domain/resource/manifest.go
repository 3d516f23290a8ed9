package resource

import (
	"fmt"
	"sort"
)

// Kind is the type of resource being loaded.
type Kind string

const (
	KindScript Kind = "script"
	KindStyle  Kind = "style"
	KindImage  Kind = "image"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindScript, KindStyle, KindImage:
		return true
	}
	return false
}

// Entry is one manifest line: an optional id and a filename relative to
// the application location.
type Entry struct {
	ID   string
	File string
}

// Manifest lists the files of one kind an application needs. It is either
// an ordered list or a map from id to filename.
type Manifest struct {
	entries []Entry
	keyed   bool
}

// List builds an ordered manifest.
func List(files ...string) Manifest {
	m := Manifest{entries: make([]Entry, 0, len(files))}
	for _, f := range files {
		m.entries = append(m.entries, Entry{File: f})
	}
	return m
}

// Keyed builds an id-addressed manifest. Entries are ordered by id.
func Keyed(files map[string]string) Manifest {
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m := Manifest{entries: make([]Entry, 0, len(ids)), keyed: true}
	for _, id := range ids {
		m.entries = append(m.entries, Entry{ID: id, File: files[id]})
	}
	return m
}

// ManifestFrom converts a decoded manifest value: nil, a single filename,
// a list of filenames or a map of id to filename.
func ManifestFrom(v any) (Manifest, error) {
	switch x := v.(type) {
	case nil:
		return Manifest{}, nil
	case Manifest:
		return x, nil
	case string:
		return List(x), nil
	case []string:
		return List(x...), nil
	case []any:
		files := make([]string, 0, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return Manifest{}, fmt.Errorf("manifest entry %d: want string, got %T", i, item)
			}
			files = append(files, s)
		}
		return List(files...), nil
	case map[string]string:
		return Keyed(x), nil
	case map[string]any:
		files := make(map[string]string, len(x))
		for id, item := range x {
			s, ok := item.(string)
			if !ok {
				return Manifest{}, fmt.Errorf("manifest entry %q: want string, got %T", id, item)
			}
			files[id] = s
		}
		return Keyed(files), nil
	default:
		return Manifest{}, fmt.Errorf("unsupported manifest type %T", v)
	}
}

// Len returns the number of entries.
func (m Manifest) Len() int { return len(m.entries) }

// IsKeyed reports whether entries are addressed by id.
func (m Manifest) IsKeyed() bool { return m.keyed }

// Entries returns a copy of the entries.
func (m Manifest) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
