package storage

import (
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/mongtap/mongtap/internal/model"
)

// ImportLegacyYAML reads a pre-§6.5 model file (YAML rather than the
// canonical JSON form, and missing the "$schema" envelope key) and returns
// it as a current model.Model. mongtapd has no command-line flag that
// calls it, and the server never reads this format at query time.
func ImportLegacyYAML(path string) (*model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: reading legacy model %s", path)
	}
	var m model.Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "storage: parsing legacy model %s", path)
	}
	return &m, nil
}

// SaveFromLegacy imports the legacy YAML file at srcPath and writes it out
// through Save under its current, canonical location.
func (s *Store) SaveFromLegacy(db, collection, srcPath string) error {
	m, err := ImportLegacyYAML(srcPath)
	if err != nil {
		return err
	}
	return s.Save(db, collection, m)
}
