// Package resources provides icons, widget provider metadata and widget
// previews to the backup engine from a directory of PNG files described by a
// manifest.
//
// Manifest layout (manifest.yaml):
//
//	icons:
//	  com.example.camera/.CameraActivity: camera.png
//	  com.example.notes/.Notes: ""        # installed, no custom icon
//	widgets:
//	  - provider: com.example.clock/.ClockWidgetProvider
//	    label: Clock
//	    configure: true
//	    icon: clock.png
//	    preview: clock_preview.png
package resources

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/homesync/internal/bitmap"
	"github.com/roach88/homesync/internal/launcher"
)

// ManifestName is the manifest file name inside a resources directory.
const ManifestName = "manifest.yaml"

// Manifest is the parsed manifest file.
type Manifest struct {
	// Icons maps a component name to a PNG path relative to the manifest.
	// An empty path means the application has no icon of its own.
	Icons map[string]string `yaml:"icons"`

	Widgets []WidgetEntry `yaml:"widgets"`
}

// WidgetEntry describes one installed widget provider.
type WidgetEntry struct {
	Provider  string `yaml:"provider"`
	Label     string `yaml:"label,omitempty"`
	Configure bool   `yaml:"configure,omitempty"`
	Icon      string `yaml:"icon,omitempty"`
	Preview   string `yaml:"preview,omitempty"`
}

// Catalog serves resources from a directory.
type Catalog struct {
	dir     string
	icons   map[launcher.ComponentName]string
	widgets map[launcher.ComponentName]WidgetEntry
	order   []launcher.ComponentName
}

// Load reads dir/manifest.yaml. Unknown manifest fields are rejected.
// Image files are read lazily.
func Load(dir string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return New(dir, &m)
}

// New builds a catalog from an already parsed manifest. Image paths are
// resolved relative to dir.
func New(dir string, m *Manifest) (*Catalog, error) {
	c := &Catalog{
		dir:     dir,
		icons:   make(map[launcher.ComponentName]string, len(m.Icons)),
		widgets: make(map[launcher.ComponentName]WidgetEntry, len(m.Widgets)),
	}

	for name, path := range m.Icons {
		cn, err := launcher.ParseComponentName(name)
		if err != nil {
			return nil, fmt.Errorf("icons: %w", err)
		}
		c.icons[cn] = path
	}

	for i, w := range m.Widgets {
		cn, err := launcher.ParseComponentName(w.Provider)
		if err != nil {
			return nil, fmt.Errorf("widgets[%d]: %w", i, err)
		}
		if _, dup := c.widgets[cn]; dup {
			return nil, fmt.Errorf("widgets[%d]: duplicate provider %s", i, cn)
		}
		c.widgets[cn] = w
		c.order = append(c.order, cn)
	}
	sort.Slice(c.order, func(i, j int) bool {
		return c.order[i].Flatten() < c.order[j].Flatten()
	})

	return c, nil
}

// ResolveIcon returns the icon for an application component. A nil image
// with a nil error means the component has no icon to export.
func (c *Catalog) ResolveIcon(_ context.Context, cn launcher.ComponentName) (image.Image, error) {
	path, ok := c.icons[cn]
	if !ok || path == "" {
		return nil, nil
	}
	return c.loadImage(path)
}

// InstalledWidgetProviders lists every widget provider in the manifest,
// ordered by component name.
func (c *Catalog) InstalledWidgetProviders(context.Context) ([]launcher.WidgetProviderInfo, error) {
	out := make([]launcher.WidgetProviderInfo, 0, len(c.order))
	for _, cn := range c.order {
		w := c.widgets[cn]
		out = append(out, launcher.WidgetProviderInfo{
			Provider:  cn,
			Label:     w.Label,
			Configure: w.Configure,
		})
	}
	return out, nil
}

// ResolveWidgetIcon returns the provider's icon, or nil if it has none.
func (c *Catalog) ResolveWidgetIcon(_ context.Context, info launcher.WidgetProviderInfo) (image.Image, error) {
	w, ok := c.widgets[info.Provider]
	if !ok || w.Icon == "" {
		return nil, nil
	}
	return c.loadImage(w.Icon)
}

// RenderWidgetPreview returns the provider's preview image, or nil if it
// has none.
func (c *Catalog) RenderWidgetPreview(_ context.Context, info launcher.WidgetProviderInfo) (image.Image, error) {
	w, ok := c.widgets[info.Provider]
	if !ok || w.Preview == "" {
		return nil, nil
	}
	return c.loadImage(w.Preview)
}

func (c *Catalog) loadImage(rel string) (image.Image, error) {
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, rel)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := bitmap.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	return img, nil
}
