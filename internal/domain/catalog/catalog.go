package catalog

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GriffinCanCode/casdk/internal/domain/app"
	"github.com/GriffinCanCode/casdk/internal/domain/resource"
	"github.com/GriffinCanCode/casdk/internal/shared/utils"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// ManifestPattern matches application manifests one directory below the
// apps root.
const ManifestPattern = "*/app.{yaml,yml,toml,json}"

var (
	// ErrFormat is returned for manifest files with an unknown extension.
	ErrFormat = errors.New("unsupported manifest format")
	// ErrInvalid is returned for manifests that decode but make no sense.
	ErrInvalid = errors.New("invalid application manifest")
)

// Manifest is a decoded application manifest.
type Manifest struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	Format     string         `json:"format"`
	Checksum   string         `json:"checksum"`
	Definition app.Definition `json:"-"`
}

// Title returns the manifest's title setting, or its id.
func (m Manifest) Title() string {
	if s, ok := m.Definition.Settings["title"].(string); ok && s != "" {
		return s
	}
	return m.ID
}

// Discover finds and decodes every manifest under root, sorted by id.
// Manifests that fail to decode are returned as errors alongside the
// ones that did.
func Discover(root string) ([]Manifest, []error) {
	matches, err := doublestar.Glob(os.DirFS(root), ManifestPattern)
	if err != nil {
		return nil, []error{fmt.Errorf("glob %s: %w", root, err)}
	}
	sort.Strings(matches)

	var (
		out  []Manifest
		errs []error
		seen = make(map[string]string)
	)
	for _, match := range matches {
		m, err := Load(filepath.Join(root, filepath.FromSlash(match)))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[m.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s: id %q already defined by %s", ErrInvalid, m.Path, m.ID, prev))
			continue
		}
		seen[m.ID] = m.Path
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, errs
}

// Load reads and decodes one manifest file. The id defaults to the name
// of the directory holding it.
func Load(file string) (Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	format := strings.TrimPrefix(path.Ext(filepath.ToSlash(file)), ".")
	m, err := Decode(data, format)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", file, err)
	}
	if m.ID == "" {
		m.ID = filepath.Base(filepath.Dir(file))
	}
	m.Path = file
	m.Checksum = utils.Fingerprint(data)
	return m, nil
}

// Decode parses manifest data in the given format (yaml, yml, toml or
// json).
func Decode(data []byte, format string) (Manifest, error) {
	raw := make(map[string]any)

	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &raw)
	case "toml":
		err = toml.Unmarshal(data, &raw)
	case "json":
		err = sonic.Unmarshal(data, &raw)
	default:
		return Manifest{}, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", format, err)
	}

	m, err := fromMap(raw)
	if err != nil {
		return Manifest{}, err
	}
	m.Format = strings.ToLower(format)
	return m, nil
}

func fromMap(raw map[string]any) (Manifest, error) {
	var m Manifest

	if v, ok := raw["id"]; ok {
		id, isString := v.(string)
		if !isString || strings.ContainsAny(id, "/\\ ") {
			return Manifest{}, fmt.Errorf("%w: id %v", ErrInvalid, v)
		}
		m.ID = id
	}

	settings := make(map[string]any)
	if v, ok := raw["settings"]; ok {
		s, isMap := v.(map[string]any)
		if !isMap {
			return Manifest{}, fmt.Errorf("%w: settings must be a table, got %T", ErrInvalid, v)
		}
		for k, val := range s {
			settings[k] = val
		}
	}
	// A top-level title is shorthand for settings.title.
	if title, ok := raw["title"].(string); ok {
		settings["title"] = title
	}
	m.Definition.Settings = settings

	if v, ok := raw["require"]; ok {
		req, isMap := v.(map[string]any)
		if !isMap {
			return Manifest{}, fmt.Errorf("%w: require must be a table, got %T", ErrInvalid, v)
		}
		var err error
		if m.Definition.Require.JS, err = manifestField(req, "js"); err != nil {
			return Manifest{}, err
		}
		if m.Definition.Require.CSS, err = manifestField(req, "css"); err != nil {
			return Manifest{}, err
		}
		if m.Definition.Require.Images, err = manifestField(req, "images"); err != nil {
			return Manifest{}, err
		}
	}
	return m, nil
}

func manifestField(req map[string]any, key string) (resource.Manifest, error) {
	m, err := resource.ManifestFrom(req[key])
	if err != nil {
		return resource.Manifest{}, fmt.Errorf("%w: require.%s: %v", ErrInvalid, key, err)
	}
	return m, nil
}

// Install registers every manifest with the manager.
func Install(m *app.Manager, manifests []Manifest, logger *zap.Logger) {
	for _, mf := range manifests {
		m.Register(mf.ID, mf.Definition)
		if logger != nil {
			logger.Debug("Installed application", zap.String("app", mf.ID), zap.String("manifest", mf.Path))
		}
	}
}
