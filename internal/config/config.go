package config

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Service loads the daemon's configuration.
type Service interface {
	LoadConfiguration() (*Configuration, error)
}

var _ Service = &fileConfigurationService{}

type fileConfigurationService struct {
	files []string
}

// LoadConfiguration reads every file in order; later files override the
// values of earlier ones.
func (fc *fileConfigurationService) LoadConfiguration() (*Configuration, error) {
	var c Configuration
	for _, file := range fc.files {
		err := fc.appendFileToConfiguration(&c, file)
		if err != nil {
			return nil, err
		}
	}
	c.setDefaults()
	return &c, nil
}

// appendFileToConfiguration executes filename as a template, with the
// configuration so far as its dot, before decoding it as YAML.
func (fc *fileConfigurationService) appendFileToConfiguration(c *Configuration, filename string) error {
	tmpl, err := template.New(filepath.Base(filename)).Funcs(template.FuncMap{
		"env": func(key string) (string, error) {
			return os.Getenv(key), nil
		},
	}).ParseFiles(filename)
	if err != nil {
		return errors.Wrapf(err, "config: parsing %s", filename)
	}

	buf := &bytes.Buffer{}
	err = tmpl.Execute(buf, c)
	if err != nil {
		return errors.Wrapf(err, "config: expanding %s", filename)
	}

	err = yaml.Unmarshal(buf.Bytes(), c)
	if err != nil {
		return errors.Wrapf(err, "config: decoding %s", filename)
	}

	return nil
}

func NewFileConfigurationService(files []string) Service {
	return &fileConfigurationService{
		files: files,
	}
}
