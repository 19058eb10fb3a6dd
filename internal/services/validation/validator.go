// Package validation checks JSON request payloads against embedded JSON
// schemas and decodes them into typed commands.
package validation

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/terraconstructs/hrconsole/internal/apperr"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names
const (
	SchemaSignup          = "signup"
	SchemaLogin           = "login"
	SchemaRoleUpdate      = "role_update"
	SchemaAdminCreateUser = "admin_create_user"
	SchemaSetupToken      = "setup_token"
	SchemaDepartment      = "department"
	SchemaJobCreate       = "job_create"
	SchemaJobUpdate       = "job_update"
	SchemaEmployee        = "employee"
	SchemaJobHistory      = "job_history"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Validator validates request payloads
type Validator interface {
	// Decode reads a JSON document from r, validates it against the named
	// schema and decodes it into out (a pointer to a mapstructure-tagged struct).
	Decode(schema string, r io.Reader, out any) error
}

// SchemaValidator implements Validator using santhosh-tekuri/jsonschema/v6
type SchemaValidator struct {
	schemaCache *lru.Cache[string, *jsonschema.Schema]
}

// NewSchemaValidator creates a new validator with LRU caching for compiled schemas
func NewSchemaValidator(cacheSize int) (*SchemaValidator, error) {
	cache, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &SchemaValidator{schemaCache: cache}, nil
}

// Decode implements Validator.
func (v *SchemaValidator) Decode(name string, r io.Reader, out any) error {
	op := "validation." + name

	doc, err := jsonschema.UnmarshalJSON(r)
	if err != nil {
		return apperr.Wrap(apperr.KindValidationFailed, op, fmt.Errorf("request body is not valid JSON: %w", err))
	}
	if err := v.Validate(name, doc); err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(DateLayout),
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return apperr.Wrap(apperr.KindValidationFailed, op, err)
	}
	return nil
}

// Validate checks an already-parsed document against the named schema.
func (v *SchemaValidator) Validate(name string, doc any) error {
	schema, err := v.schema(name)
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return apperr.ValidationFailed("validation."+name, formatValidationError(err))
	}
	return nil
}

func (v *SchemaValidator) schema(name string) (*jsonschema.Schema, error) {
	if cached, ok := v.schemaCache.Get(name); ok {
		return cached, nil
	}
	schema, err := compileSchema(name)
	if err != nil {
		return nil, err
	}
	v.schemaCache.Add(name, schema)
	return schema, nil
}

// compileSchema compiles an embedded schema file
func compileSchema(name string) (*jsonschema.Schema, error) {
	f, err := schemaFS.Open("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	defer f.Close()

	parsed, err := jsonschema.UnmarshalJSON(f)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	compiler.AssertFormat()

	url := name + ".json"
	if err := compiler.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// formatValidationError reports the first leaf failure with its JSON path.
// Example: "invalid value at '$.email': 'x' is not valid email"
func formatValidationError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	path := "$"
	var parts []string
	for _, part := range ve.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}

	msg := ve.ErrorKind.LocalizedString(message.NewPrinter(language.English))
	if len(msg) > 200 {
		msg = msg[:200] + "... (truncated)"
	}
	return fmt.Sprintf("invalid value at '%s': %s", path, msg)
}
