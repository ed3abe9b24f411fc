package envmap

import (
	"bufio"
	"io"
	"strings"
)

// ParseState reads the KEY=VALUE state format. Lines are split on the first
// '='; blank lines and lines without '=' or with an empty key are skipped.
// Values are taken verbatim, without any unquoting.
func ParseState(r io.Reader) (EnvMap, error) {
	var m EnvMap
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		m.Set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return EnvMap{}, err
	}
	return m, nil
}

// FormatState renders m in the KEY=VALUE state format, one entry per line.
func FormatState(m EnvMap) string {
	var b strings.Builder
	m.Each(func(k, v string) bool {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
		return true
	})
	return b.String()
}
