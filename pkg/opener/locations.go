package opener

import (
	"context"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// Locations maps short names to FS URLs, loaded from a yaml file of
// the form:
//
//	locations:
//	  scratch: mem://
//	  assets: s3://bucket/assets?region=us-west-2
type Locations map[string]string

type locationsFile struct {
	Locations map[string]string `yaml:"locations"`
}

// LoadLocations reads a locations file.
func LoadLocations(r io.Reader) (Locations, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var file locationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fserrors.ParseError("bad locations file: " + err.Error())
	}
	return Locations(file.Locations), nil
}

// LoadLocationsFile reads a locations file from disk.
func LoadLocationsFile(path string) (Locations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadLocations(f)
}

// OpenLocation opens the filesystem a named location points at.
func (r *Registry) OpenLocation(ctx context.Context, locations Locations, name string, create bool) (vfs.FS, error) {
	fsURL, ok := locations[name]
	if !ok {
		return nil, fserrors.NotFound(name)
	}
	return r.OpenFS(ctx, fsURL, create)
}
