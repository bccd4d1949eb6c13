package memfile

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest summarizes a partition for listings.
type Manifest struct {
	Capacity int             `json:"capacity" yaml:"capacity"`
	Used     int             `json:"used" yaml:"used"`
	Free     int             `json:"free" yaml:"free"`
	Entries  []ManifestEntry `json:"entries" yaml:"entries"`
}

type ManifestEntry struct {
	Name    string `json:"name" yaml:"name"`
	Size    int    `json:"size" yaml:"size"`
	Content bool   `json:"content" yaml:"content"`
}

// Manifest lists the partition's entries in directory order.
func (p *Partition) Manifest() Manifest {
	m := Manifest{
		Capacity: p.capacity,
		Used:     p.used,
		Free:     p.Free(),
		Entries:  make([]ManifestEntry, 0, len(p.entries)),
	}

	for _, e := range p.entries {
		info := e.info()
		m.Entries = append(m.Entries, ManifestEntry{
			Name:    string(info.Name),
			Size:    info.Size,
			Content: info.HasContent,
		})
	}

	return m
}

func (m Manifest) YAML() ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal manifest")
	}
	return out, nil
}

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
}

// SDump renders the partition's internals for debugging.
func SDump(p *Partition) string {
	type dumpEntry struct {
		Name    FileName
		Content []byte
		Cursor  int
	}

	entries := make([]dumpEntry, 0, len(p.entries))
	for _, e := range p.entries {
		de := dumpEntry{Name: e.name}
		if e.file != nil {
			de.Content = e.file.buf
			de.Cursor = e.file.cursor
		}
		entries = append(entries, de)
	}

	return spewConfig.Sdump(p.capacity, p.used, entries)
}
