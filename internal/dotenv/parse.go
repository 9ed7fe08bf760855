package dotenv

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Parse decodes .env content. Values are taken literally: quotes are
// stripped, double-quoted values understand \n \r \t \" \\ and \$ escapes,
// and nothing is interpolated. Key order follows first appearance.
func Parse(data []byte) (*Env, error) {
	env := New()
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest := strings.TrimPrefix(line, "export "); rest != line {
			line = strings.TrimSpace(rest)
		}

		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("failed to parse env data: line %d: expected KEY=value", lineNo)
		}
		key := strings.TrimSpace(line[:eq])
		if !keyPattern.MatchString(key) {
			return nil, fmt.Errorf("failed to parse env data: line %d: invalid key %q", lineNo, key)
		}

		value, consumed, err := parseValue(strings.TrimSpace(line[eq+1:]), lines[i+1:])
		if err != nil {
			return nil, fmt.Errorf("failed to parse env data: line %d: %w", lineNo, err)
		}
		i += consumed
		env.Set(key, value)
	}

	return env, nil
}

// parseValue decodes raw and reports how many of the following lines a
// multi-line quoted value used up.
func parseValue(raw string, next []string) (string, int, error) {
	if raw == "" {
		return "", 0, nil
	}

	quote := raw[0]
	if quote != '"' && quote != '\'' {
		if i := inlineComment(raw); i >= 0 {
			raw = raw[:i]
		}
		return strings.TrimSpace(raw), 0, nil
	}

	body := raw[1:]
	consumed := 0
	end := closingQuote(body, quote)
	for end < 0 {
		if consumed == len(next) {
			return "", 0, fmt.Errorf("unterminated %c-quoted value", quote)
		}
		body += "\n" + next[consumed]
		consumed++
		end = closingQuote(body, quote)
	}

	trailing := strings.TrimSpace(body[end+1:])
	if trailing != "" && !strings.HasPrefix(trailing, "#") {
		return "", 0, fmt.Errorf("unexpected text %q after closing quote", trailing)
	}

	value := body[:end]
	if quote == '"' {
		value = unescape(value)
	}
	return value, consumed, nil
}

func closingQuote(s string, quote byte) int {
	for i := 0; i < len(s); i++ {
		if quote == '"' && s[i] == '\\' {
			i++
			continue
		}
		if s[i] == quote {
			return i
		}
	}
	return -1
}

// inlineComment finds a " #" that starts a trailing comment.
func inlineComment(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] == '#' && (s[i-1] == ' ' || s[i-1] == '\t') {
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"', '\\', '$':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// LoadFile parses the .env file at path.
func LoadFile(path string) (*Env, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", verrors.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	env, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

// LoadTemplate reads the key set of a template file with godotenv. Values
// are placeholders and may come back expanded, so only use the keys. Keys
// are returned in sorted order.
func LoadTemplate(path string) (*Env, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", verrors.ErrFileNotFound, path)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := New()
	for _, key := range keys {
		env.Set(key, values[key])
	}
	return env, nil
}

// Serialize renders env as KEY=value lines in insertion order. Values are
// written so that Parse, godotenv and shell-style readers see the same text.
func Serialize(env *Env) []byte {
	var b strings.Builder
	for _, key := range env.keys {
		b.WriteString(formatLine(key, env.values[key]))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

func formatLine(key, value string) string {
	// Canonical integers stay bare; "007" is quoted so it keeps its zeros.
	if n, err := strconv.Atoi(value); err == nil && strconv.Itoa(n) == value {
		return key + "=" + value
	}
	// Single quotes keep $, ` and ! literal for every reader.
	if strings.ContainsAny(value, "$`!") && !strings.ContainsAny(value, "'\n\r") {
		return key + "='" + value + "'"
	}
	return key + `="` + doubleQuoteEscaper.Replace(value) + `"`
}
