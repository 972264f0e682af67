package render

import (
	"html/template"

	"github.com/sirupsen/logrus"
)

// ModelOption represents a functional option for configuring a Model.
type ModelOption func(*Model) error

// GlobalFunctionsOption binds the template functions yielded by the
// supplied function provider.
func GlobalFunctionsOption(provider FunctionProvider) ModelOption {
	return func(m *Model) error {
		m.baseTemplate.Funcs(template.FuncMap(provider.GetViewFunctions()))
		return nil
	}
}

// ExtensionsOption replaces the file extensions treated as templates.
func ExtensionsOption(exts ...string) ModelOption {
	return func(m *Model) error {
		m.extensions = exts
		return nil
	}
}

// ReloadAlwaysOption reparses the templates before every render. It is
// meant for development.
func ReloadAlwaysOption(always bool) ModelOption {
	return func(m *Model) error {
		m.reloadAlways = always
		return nil
	}
}

// FieldLoggingOption enables logging to a logrus-enabled stream.
func FieldLoggingOption(logger logrus.FieldLogger) ModelOption {
	return func(m *Model) error {
		m.logger = logger
		return nil
	}
}
