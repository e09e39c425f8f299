package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyTable indicates an empty or malformed table name.
	ErrEmptyTable = errors.New("table name must not be empty")

	bareIdent = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// EventLogStatement selects every row of the Delta table stored at path.
func EventLogStatement(path string) (string, error) {
	if path == "" {
		return "", errors.New("event log path must not be empty")
	}
	if strings.Contains(path, "`") {
		return "", fmt.Errorf("event log path %q contains a backtick", path)
	}
	return "SELECT * FROM delta.`" + path + "`", nil
}

// SelectAllStatement selects every row of a metastore table. The name is
// passed through as written once it is known to be an identifier.
func SelectAllStatement(table string) (string, error) {
	name, err := ValidateTable(table)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + name, nil
}

// CountStatement counts the rows of a metastore table.
func CountStatement(table string) (string, error) {
	name, err := ValidateTable(table)
	if err != nil {
		return "", err
	}
	return "SELECT COUNT(*) FROM " + name, nil
}

// ValidateTable checks that table is a possibly qualified identifier and
// returns it trimmed.
func ValidateTable(table string) (string, error) {
	table = strings.TrimSpace(table)
	parts, err := SplitQualified(table)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 || len(parts) > 3 {
		return "", fmt.Errorf("%w: %q", ErrEmptyTable, table)
	}
	for _, p := range parts {
		if p.Name == "" {
			return "", fmt.Errorf("%w: %q", ErrEmptyTable, table)
		}
		if !p.Quoted && !bareIdent.MatchString(p.Name) {
			return "", fmt.Errorf("invalid identifier %q in table name %q", p.Name, table)
		}
	}
	return table, nil
}

// IdentPart is one segment of a qualified identifier.
type IdentPart struct {
	Name   string
	Quoted bool
}

// SplitQualified splits catalog.schema.table, honouring backtick and double
// quote quoting with doubled quote characters as escapes.
func SplitQualified(ident string) ([]IdentPart, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil, nil
	}

	var (
		parts  []IdentPart
		buf    strings.Builder
		quote  rune
		quoted bool
	)
	runes := []rune(ident)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					buf.WriteRune(r)
					i++
					continue
				}
				quote = 0
				continue
			}
			buf.WriteRune(r)
		case r == '`' || r == '"':
			quote = r
			quoted = true
		case r == '.':
			parts = append(parts, IdentPart{Name: strings.TrimSpace(buf.String()), Quoted: quoted})
			buf.Reset()
			quoted = false
		default:
			buf.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", ident)
	}
	parts = append(parts, IdentPart{Name: strings.TrimSpace(buf.String()), Quoted: quoted})
	return parts, nil
}
