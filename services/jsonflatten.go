package services

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// The judge speaks to candidate programs over stdin/stdout in a flattened
// newline-delimited form: JSON objects contribute their values in document
// key order (sizes like n/rows/cols come before data by construction), flat
// arrays become one space-joined row, nested arrays become one row per
// element, scalars are their bare string form. Expected outputs and program
// stdout are normalized through the same flattening so formatting noise
// never fails a test case.

type jsonKind int

const (
	jsonScalar jsonKind = iota
	jsonArray
	jsonObject
)

// jsonValue is a parsed JSON value that, unlike a map, preserves object key
// order — the stdin protocol depends on document order.
type jsonValue struct {
	kind      jsonKind
	scalar    string // bare form: 42, true, null, hello
	wasString bool
	keys      []string // object keys, document order
	items     []jsonValue
}

func parseOrderedJSON(s string) (*jsonValue, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := parseJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func parseJSONValue(dec *json.Decoder) (*jsonValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := &jsonValue{kind: jsonObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.New("object key is not a string")
				}
				child, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				v.keys = append(v.keys, key)
				v.items = append(v.items, *child)
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return nil, err
			}
			return v, nil
		case '[':
			v := &jsonValue{kind: jsonArray}
			for dec.More() {
				child, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				v.items = append(v.items, *child)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return nil, err
			}
			return v, nil
		}
		return nil, errors.New("unexpected delimiter")
	case string:
		return &jsonValue{kind: jsonScalar, scalar: t, wasString: true}, nil
	case json.Number:
		return &jsonValue{kind: jsonScalar, scalar: t.String()}, nil
	case bool:
		if t {
			return &jsonValue{kind: jsonScalar, scalar: "true"}, nil
		}
		return &jsonValue{kind: jsonScalar, scalar: "false"}, nil
	case nil:
		return &jsonValue{kind: jsonScalar, scalar: "null"}, nil
	}
	return nil, errors.New("unexpected token")
}

// stringify renders the value back as compact JSON.
func (v *jsonValue) stringify() string {
	var b strings.Builder
	v.writeJSON(&b)
	return b.String()
}

func (v *jsonValue) writeJSON(b *strings.Builder) {
	switch v.kind {
	case jsonScalar:
		if v.wasString {
			b.WriteString(strconv.Quote(v.scalar))
		} else {
			b.WriteString(v.scalar)
		}
	case jsonArray:
		b.WriteByte('[')
		for i := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			v.items[i].writeJSON(b)
		}
		b.WriteByte(']')
	case jsonObject:
		b.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			v.items[i].writeJSON(b)
		}
		b.WriteByte('}')
	}
}

func flattenLines(v *jsonValue) []string {
	switch v.kind {
	case jsonScalar:
		return []string{v.scalar}
	case jsonArray:
		if len(v.items) == 0 {
			return []string{""}
		}
		nested := false
		for i := range v.items {
			if v.items[i].kind == jsonArray {
				nested = true
				break
			}
		}
		if nested {
			var lines []string
			for i := range v.items {
				lines = append(lines, flattenLines(&v.items[i])...)
			}
			return lines
		}
		parts := make([]string, len(v.items))
		for i := range v.items {
			if v.items[i].kind == jsonScalar {
				parts[i] = v.items[i].scalar
			} else {
				parts[i] = v.items[i].stringify()
			}
		}
		return []string{strings.Join(parts, " ")}
	default: // object
		var lines []string
		for i := range v.items {
			lines = append(lines, flattenLines(&v.items[i])...)
		}
		return lines
	}
}

var (
	multiRowBraces = regexp.MustCompile(`\{\s*\{`)
	rowSeparator   = regexp.MustCompile(`\}\s*,\s*\{`)
	bracketChars   = regexp.MustCompile(`[\[\]{}]`)
	punctChars     = regexp.MustCompile(`[,:;]`)
	spaceRuns      = regexp.MustCompile(`\s+`)
)

// sanitizeLooseValue handles inputs that are not valid JSON: bracket and
// punctuation characters are stripped to whitespace-separated tokens, and a
// {{...},{...}} matrix shape becomes one row per line.
func sanitizeLooseValue(s string) string {
	s = strings.TrimSpace(s)
	if multiRowBraces.MatchString(s) {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			s = s[1 : len(s)-1]
		}
		s = rowSeparator.ReplaceAllString(s, "\n")
		s = bracketChars.ReplaceAllString(s, "")
		s = punctChars.ReplaceAllString(s, " ")
		lines := strings.Split(s, "\n")
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			line = spaceRuns.ReplaceAllString(strings.TrimSpace(line), " ")
			if line != "" {
				out = append(out, line)
			}
		}
		return strings.Join(out, "\n")
	}
	s = bracketChars.ReplaceAllString(s, "")
	s = punctChars.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRuns.ReplaceAllString(s, " "))
}

// FormatStdin renders a test case input as the newline-delimited stdin the
// candidate program reads.
func FormatStdin(input string) string {
	if v, err := parseOrderedJSON(input); err == nil {
		return strings.Join(flattenLines(v), "\n")
	}
	return sanitizeLooseValue(input)
}

// NormalizeExpected renders an expected value in comparable form.
func NormalizeExpected(expected string) string {
	if v, err := parseOrderedJSON(expected); err == nil {
		return strings.TrimSpace(strings.Join(flattenLines(v), "\n"))
	}
	return strings.TrimSpace(sanitizeLooseValue(expected))
}

// NormalizeOutput renders program stdout in comparable form. Output that
// happens to be valid JSON is flattened the same way expected values are.
func NormalizeOutput(out string) string {
	s := strings.TrimSpace(strings.ReplaceAll(out, "\r\n", "\n"))
	if v, err := parseOrderedJSON(s); err == nil {
		return strings.TrimSpace(strings.Join(flattenLines(v), "\n"))
	}
	return s
}
