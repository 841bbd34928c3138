package schema

import (
	"fmt"
	"strings"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
	"github.com/litemap/litemap/internal/orm/model"
)

// ValidationError represents a definition problem with context
type ValidationError struct {
	Type    string
	Field   string
	Message string
	Hint    string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Type != "" {
		b.WriteString(e.Type)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// Unwrap makes every ValidationError a configuration error
func (e *ValidationError) Unwrap() error {
	return ormerrors.ErrConfiguration
}

// Validator checks definitions before any table is built
type Validator struct {
	casing Casing
	errors []error
}

// NewValidator creates a validator for the given casing policy
func NewValidator(casing Casing) *Validator {
	return &Validator{casing: casing}
}

// Validate returns every problem found in defs
func (v *Validator) Validate(defs []*model.Definition) []error {
	v.errors = nil
	tables := make(map[string]string)
	names := make(map[string]bool)

	for _, def := range defs {
		if def == nil {
			v.addError("", "", "nil definition", "")
			continue
		}
		if names[def.Name] {
			v.addError(def.Name, "", "definition registered twice", "")
			continue
		}
		names[def.Name] = true

		table := strings.ToLower(v.casing.Normalize(def.Name))
		if IsMetadata(table) {
			v.addError(def.Name, "", fmt.Sprintf("table name %q is reserved", MetadataTable), "rename the definition")
		}
		if other, dup := tables[table]; dup {
			v.addError(def.Name, "", fmt.Sprintf("table %q is also produced by %s", table, other), "")
		}
		tables[table] = def.Name

		v.errors = append(v.errors, def.Problems()...)
		v.validateColumns(def)
	}

	for _, def := range defs {
		if def == nil {
			continue
		}
		for _, f := range def.Associations() {
			if !names[f.Type] {
				v.addError(def.Name, f.Name,
					fmt.Sprintf("associated definition %q is not registered", f.Type),
					"pass its definition to the schema builder")
			}
		}
	}

	return v.errors
}

func (v *Validator) validateColumns(def *model.Definition) {
	seen := make(map[string]string)
	for _, f := range def.Columns() {
		if IsIdentityName(f.Name) {
			continue
		}
		if _, ok := MapType(f.Type); !ok {
			v.addError(def.Name, f.Name,
				fmt.Sprintf("type %s cannot be stored in a column", f.Type),
				"use a bool, integer, float, string or time.Time field, or mark it ignored")
			continue
		}
		key := strings.ToLower(v.casing.Normalize(f.Name))
		if other, dup := seen[key]; dup {
			v.addError(def.Name, f.Name, fmt.Sprintf("column %q is also produced by field %s", key, other), "")
		}
		seen[key] = f.Name
	}
}

func (v *Validator) addError(typeName, field, message, hint string) {
	v.errors = append(v.errors, &ValidationError{
		Type:    typeName,
		Field:   field,
		Message: message,
		Hint:    hint,
	})
}
