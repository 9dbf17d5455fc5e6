package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// metadataDocument is the raw top-level shape of an experiment metadata
// document. Sections are kept as raw JSON so object member order can be
// preserved during assembly: replicate labels depend on it.
type metadataDocument struct {
	Experiment  map[string]string `json:"experiment"`
	Materials   json.RawMessage   `json:"materials"`
	Treatments  json.RawMessage   `json:"treatments"`
	Conditions  json.RawMessage   `json:"conditions"`
	Comparisons []comparisonEntry `json:"comparisons"`
}

type comparisonEntry struct {
	Treatment namedRef `json:"treatment"`
	Control   namedRef `json:"control"`
}

type namedRef struct {
	Name string `json:"name"`
}

// member is one object member with its document position retained.
type member struct {
	name string
	raw  json.RawMessage
}

// orderedMembers decodes a JSON object into its members in document order.
// encoding/json maps lose member order, which the assembler needs for
// deterministic registry and replicate numbering.
func orderedMembers(raw json.RawMessage) ([]member, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}
	var members []member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("reading value for %q: %w", key, err)
		}
		members = append(members, member{name: key, raw: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading object end: %w", err)
	}
	return members, nil
}

// stringFields decodes an object of string-valued members, ignoring any
// non-string values.
func stringFields(raw json.RawMessage) map[string]string {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil
	}
	fields := make(map[string]string, len(all))
	for key, value := range all {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			fields[key] = s
		}
	}
	return fields
}

// attributeName converts a metadata entry name into a lowerCamel attribute
// name: "contact person" becomes "contactPerson".
func attributeName(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(name[:1]))
	afterSpace := false
	for _, r := range name[1:] {
		switch {
		case r == ' ':
			afterSpace = true
		case afterSpace:
			b.WriteRune(unicode.ToUpper(r))
			afterSpace = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// baseName strips all file extensions: everything from the first dot on.
func baseName(file string) string {
	if i := strings.IndexByte(file, '.'); i >= 0 {
		return file[:i]
	}
	return file
}
