// Package transformcfg loads the transformation-configuration document
// driving the delta engine: which fields are user populated, the unique
// key per kind, ignore lists, required defaults, cross-instance
// reference definitions and the schedule of custom transformers.
package transformcfg

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"muzzammil.xyz/jsonc"

	"github.com/opencatalog/catsync/datamodel"
)

//go:embed defaultconfig.json
var defaultConfig []byte

// ConfigError indicates missing or malformed configuration: an unknown
// entity kind, a missing unique key field or an invalid UpdateType.
// It is fatal at startup.
type ConfigError struct {
	Message string
}

// Creates a configuration error with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// Returns the error message.
func (e *ConfigError) Error() string {
	return "configuration error: " + e.Message
}

// The per-kind section of the configuration document.
type kindConfig struct {
	UserPopulatedProperties     *datamodel.Shape       `json:"user_populated_properties"`
	UniqueIDField               string                 `json:"unique_id_field"`
	IgnoreList                  []string               `json:"ignore_list"`
	RequiredDefaultValues       map[string]any         `json:"required_default_values"`
	AddFieldsToInclude          []string               `json:"add_fields_to_include"`
	UpdateFieldsToInclude       []string               `json:"update_fields_to_include"`
	IDFields                    []datamodel.IDField    `json:"id_fields"`
	FieldMapping                datamodel.FieldMapping `json:"field_mapping"`
	CustomTransformationMethods []customMethod         `json:"custom_transformation_methods"`
}

// One scheduled custom transformer as it appears in the document.
type customMethod struct {
	UpdateType       string `json:"UpdateType"`
	CustomMethodName string `json:"CustomMethodName"`
}

// Config exposes the loaded transformation rules by kind. It is loaded
// once per run and immutable thereafter.
type Config struct {
	kinds   map[datamodel.Kind]*kindConfig
	methods map[datamodel.Kind][]datamodel.TransformMethod
}

var _ datamodel.Config = (*Config)(nil)

// Loads the configuration document from a file. The document may carry
// comments.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read the transformation configuration from %s", path)
	}
	return Parse(raw)
}

// Loads the configuration document shipped with the binary.
func LoadDefault() (*Config, error) {
	return Parse(defaultConfig)
}

// Parses and validates a configuration document.
func Parse(raw []byte) (*Config, error) {
	var document map[string]*kindConfig
	if err := jsonc.Unmarshal(raw, &document); err != nil {
		return nil, NewConfigError("cannot parse the transformation configuration: %s", err)
	}
	config := &Config{
		kinds:   make(map[datamodel.Kind]*kindConfig),
		methods: make(map[datamodel.Kind][]datamodel.TransformMethod),
	}
	for kindName, section := range document {
		kind, ok := datamodel.ParseKind(kindName)
		if !ok {
			return nil, NewConfigError("unknown entity kind %s", kindName)
		}
		if section == nil {
			return nil, NewConfigError("empty section for kind %s", kindName)
		}
		if section.UniqueIDField == "" {
			return nil, NewConfigError("missing unique_id_field for kind %s", kindName)
		}
		methods := make([]datamodel.TransformMethod, 0, len(section.CustomTransformationMethods))
		for _, method := range section.CustomTransformationMethods {
			phase, ok := datamodel.ParsePhase(method.UpdateType)
			if !ok {
				return nil, NewConfigError("invalid UpdateType %s for transformer %s of kind %s",
					method.UpdateType, method.CustomMethodName, kindName)
			}
			methods = append(methods, datamodel.TransformMethod{Phase: phase, Name: method.CustomMethodName})
		}
		config.kinds[kind] = section
		config.methods[kind] = methods
	}
	for _, kind := range datamodel.AllKinds() {
		if _, present := config.kinds[kind]; !present {
			return nil, NewConfigError("missing section for kind %s", kind)
		}
	}
	return config, nil
}

// Returns the field holding the unique key for records of the kind.
func (c *Config) UniqueIDField(kind datamodel.Kind) string {
	if section, ok := c.kinds[kind]; ok {
		return section.UniqueIDField
	}
	return ""
}

// Returns the user-populated-properties shape tree for the kind.
func (c *Config) UserPopulated(kind datamodel.Kind) *datamodel.Shape {
	if section, ok := c.kinds[kind]; ok {
		return section.UserPopulatedProperties
	}
	return nil
}

// Returns the unique keys excluded from compare, add, update and
// delete for the kind.
func (c *Config) IgnoreList(kind datamodel.Kind) []string {
	if section, ok := c.kinds[kind]; ok {
		return section.IgnoreList
	}
	return nil
}

// Returns the defaults inserted into source records at missing or
// falsy paths.
func (c *Config) RequiredDefaults(kind datamodel.Kind) map[string]any {
	if section, ok := c.kinds[kind]; ok {
		return section.RequiredDefaultValues
	}
	return nil
}

// Returns the auto-generated fields copied from the destination peer
// into the updatable view before an add or update.
func (c *Config) FieldsToInclude(kind datamodel.Kind, phase datamodel.Phase) []string {
	section, ok := c.kinds[kind]
	if !ok {
		return nil
	}
	switch phase {
	case datamodel.PhaseAdd:
		return section.AddFieldsToInclude
	case datamodel.PhaseUpdate:
		return section.UpdateFieldsToInclude
	}
	return nil
}

// Returns the cross-instance reference definitions for the kind.
func (c *Config) IDFields(kind datamodel.Kind) []datamodel.IDField {
	if section, ok := c.kinds[kind]; ok {
		return section.IDFields
	}
	return nil
}

// Returns the (user key, auto-id) field pair the cache indexes for the
// kind.
func (c *Config) FieldMapping(kind datamodel.Kind) datamodel.FieldMapping {
	if section, ok := c.kinds[kind]; ok {
		return section.FieldMapping
	}
	return datamodel.FieldMapping{}
}

// Returns the scheduled custom transformers for the kind in
// configuration order.
func (c *Config) TransformMethods(kind datamodel.Kind) []datamodel.TransformMethod {
	return c.methods[kind]
}
