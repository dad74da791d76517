package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ParsePropertyLine splits a "key = value" line at the first '=' and strips
// the whitespace around both halves.
func ParsePropertyLine(line string) (key, value string, ok bool) {
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

// NormalizeProperties rewrites every key/value line as "key=value". Lines
// without '=' (comments, blanks, continuations) are kept verbatim.
func NormalizeProperties(r io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if key, value, ok := ParsePropertyLine(line); ok {
			b.WriteString(key + "=" + value)
		} else {
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read properties: %w", err)
	}
	return b.String(), nil
}

// LoadProperties normalizes a Java-style properties file and merges it into
// the global viper configuration.
func LoadProperties(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open properties file %s: %w", path, err)
	}
	defer file.Close()

	normalized, err := NormalizeProperties(file)
	if err != nil {
		return err
	}

	viper.SetConfigType("properties")
	if err := viper.MergeConfig(strings.NewReader(normalized)); err != nil {
		return fmt.Errorf("failed to parse properties file %s: %w", path, err)
	}
	return nil
}
