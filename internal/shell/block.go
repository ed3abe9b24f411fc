package shell

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"keyenv/internal/envmap"
)

// Sentinel lines delimiting the managed block inside a shell profile.
const (
	BlockStart = "# >>> keyenv >>>"
	BlockEnd   = "# <<< keyenv <<<"
)

const blockTemplate = `{{.Start}}
# Managed by keyenv. Do not edit between these markers.
{{range .Exports}}export {{.Name}}={{.Value}}
{{end}}{{.End}}`

var (
	blockTmpl   = template.Must(template.New("block").Parse(blockTemplate))
	namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// MalformedBlockError reports sentinel lines that do not pair up.
type MalformedBlockError struct {
	Line   int
	Reason string
}

func (e *MalformedBlockError) Error() string {
	return fmt.Sprintf("malformed managed block at line %d: %s", e.Line, e.Reason)
}

// IsValidName reports whether key can be exported by a POSIX shell.
func IsValidName(key string) bool {
	return namePattern.MatchString(key)
}

// Quote wraps value in double quotes, escaping the characters a shell still
// interprets inside them.
func Quote(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('"')
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\\', '"', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteByte(value[i])
	}
	b.WriteByte('"')
	return b.String()
}

// Unquote reverses Quote. A backslash before any other character is kept,
// as a POSIX shell does inside double quotes.
func Unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("value %s is not double-quoted", s)
	}
	body := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body) && strings.IndexByte("\\\"$`", body[i+1]) >= 0:
			i++
			b.WriteByte(body[i])
		case c == '"':
			return "", fmt.Errorf("unescaped quote at offset %d in %s", i+1, s)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

type exportLine struct {
	Name  string
	Value string
}

// RenderBlock renders the managed block for env, without a trailing newline.
func RenderBlock(env envmap.EnvMap) (string, error) {
	data := struct {
		Start, End string
		Exports    []exportLine
	}{Start: BlockStart, End: BlockEnd}

	var invalid error
	env.Each(func(k, v string) bool {
		if !IsValidName(k) {
			invalid = fmt.Errorf("invalid variable name %q", k)
			return false
		}
		data.Exports = append(data.Exports, exportLine{Name: k, Value: Quote(v)})
		return true
	})
	if invalid != nil {
		return "", invalid
	}

	var buf bytes.Buffer
	if err := blockTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripBlock removes every managed block from text by scanning for a start
// sentinel line and its matching end sentinel. One blank separator line next
// to each removed block is dropped too. An unterminated or nested start, or an
// end without a start, is reported as a MalformedBlockError.
func StripBlock(text string) (string, bool, error) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	found := false

	for i := 0; i < len(lines); i++ {
		switch strings.TrimSpace(lines[i]) {
		case BlockEnd:
			return "", false, &MalformedBlockError{Line: i + 1, Reason: "end marker without start marker"}
		case BlockStart:
		default:
			out = append(out, lines[i])
			continue
		}

		end := -1
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if t == BlockStart {
				return "", false, &MalformedBlockError{Line: j + 1, Reason: "start marker inside an open block"}
			}
			if t == BlockEnd {
				end = j
				break
			}
		}
		if end < 0 {
			return "", false, &MalformedBlockError{Line: i + 1, Reason: "start marker without end marker"}
		}
		found = true

		if n := len(out); n > 0 && strings.TrimSpace(out[n-1]) == "" {
			out = out[:n-1]
		} else if n == 0 && end+1 < len(lines) && strings.TrimSpace(lines[end+1]) == "" {
			end++
		}
		i = end
	}
	return strings.Join(out, "\n"), found, nil
}

// Rewrite replaces the managed block in text with a fresh one for env. The
// block is appended after the remaining content, separated by one blank line,
// and the result ends with exactly one newline. An empty env removes the block.
func Rewrite(text string, env envmap.EnvMap) (string, error) {
	rest, _, err := StripBlock(text)
	if err != nil {
		return "", err
	}
	rest = strings.TrimRight(rest, " \t\r\n")

	if env.Len() == 0 {
		if rest == "" {
			return "", nil
		}
		return rest + "\n", nil
	}

	block, err := RenderBlock(env)
	if err != nil {
		return "", err
	}
	if rest == "" {
		return block + "\n", nil
	}
	return rest + "\n\n" + block + "\n", nil
}

// ParseBlock extracts the exports of the managed block in text.
// found is false when text has no block.
func ParseBlock(text string) (env envmap.EnvMap, found bool, err error) {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == BlockStart {
			start = i
			break
		}
	}
	if start < 0 {
		return envmap.EnvMap{}, false, nil
	}

	for i := start + 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == BlockEnd:
			return env, true, nil
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		}

		assignment, ok := strings.CutPrefix(line, "export ")
		if !ok {
			return envmap.EnvMap{}, true, &MalformedBlockError{Line: i + 1, Reason: "not an export statement"}
		}
		name, quoted, ok := strings.Cut(assignment, "=")
		if !ok || !IsValidName(name) {
			return envmap.EnvMap{}, true, &MalformedBlockError{Line: i + 1, Reason: "invalid export statement"}
		}
		value, err := Unquote(quoted)
		if err != nil {
			return envmap.EnvMap{}, true, &MalformedBlockError{Line: i + 1, Reason: err.Error()}
		}
		env.Set(name, value)
	}
	return envmap.EnvMap{}, true, &MalformedBlockError{Line: start + 1, Reason: "start marker without end marker"}
}

// ExportLines renders env as eval-able export statements.
func ExportLines(env envmap.EnvMap) string {
	var b strings.Builder
	env.Each(func(k, v string) bool {
		fmt.Fprintf(&b, "export %s=%s\n", k, Quote(v))
		return true
	})
	return b.String()
}

// UnsetLines renders one unset statement per key.
func UnsetLines(keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "unset %s\n", k)
	}
	return b.String()
}
