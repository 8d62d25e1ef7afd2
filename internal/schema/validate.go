package schema

import (
	"fmt"
	"strings"
)

// Validate checks every invariant the extended schema must satisfy before
// it can be rewritten into a basic table schema: record columns carry no
// encryption of their own, timestamps are never encrypted, each encrypt
// mode is only applied to a compatible scalar type, and "related" is only
// ever set on a pseudonym column (its value is an arbitrary cross-table
// domain tag, not a reference resolved within this schema).
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema: no columns defined")
	}
	seen := map[string]bool{}
	for _, col := range s {
		if err := validateName(col.Name, seen); err != nil {
			return err
		}
		if err := col.validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateName(name string, seen map[string]bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("schema: column has empty name")
	}
	if seen[name] {
		return fmt.Errorf("schema: duplicate column name %q", name)
	}
	seen[name] = true
	return nil
}

func (c *Column) validate() error {
	if err := c.validateType(); err != nil {
		return fmt.Errorf("column %q: %w", c.Name, err)
	}
	if err := c.validateEncryptMode(); err != nil {
		return fmt.Errorf("column %q: %w", c.Name, err)
	}
	if c.Type == TypeRecord {
		seen := map[string]bool{}
		for _, f := range c.Fields {
			if err := validateName(f.Name, seen); err != nil {
				return fmt.Errorf("column %q: %w", c.Name, err)
			}
			if err := f.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Column) validateType() error {
	switch c.Type {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeTimestamp, TypeRecord:
		return nil
	default:
		return fmt.Errorf("unknown type %q", c.Type)
	}
}

func (c *Column) validateEncryptMode() error {
	if !c.Encrypt.IsEncrypted() {
		return nil
	}
	if c.Type == TypeRecord {
		return fmt.Errorf("record columns cannot be encrypted")
	}
	if c.Type == TypeTimestamp {
		return fmt.Errorf("timestamp columns cannot be encrypted")
	}
	switch c.Encrypt {
	case EncryptProbabilistic, EncryptPseudonym, EncryptSearchwords, EncryptProbabilisticSearchwords:
		if c.Type != TypeString {
			return fmt.Errorf("encrypt mode %q requires a string column", c.Encrypt)
		}
	case EncryptHomomorphicInt:
		if c.Type != TypeInteger {
			return fmt.Errorf("encrypt mode %q requires an integer column", c.Encrypt)
		}
	case EncryptHomomorphicFloat:
		if c.Type != TypeFloat {
			return fmt.Errorf("encrypt mode %q requires a float column", c.Encrypt)
		}
	default:
		return fmt.Errorf("unknown encrypt mode %q", c.Encrypt)
	}
	if c.Related != "" && c.Encrypt != EncryptPseudonym {
		return fmt.Errorf("related is only valid on pseudonym columns")
	}
	return nil
}

