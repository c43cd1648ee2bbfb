package workspace

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	xe "github.com/cardops/shiplane/pkg/errors"
)

var reAssignment = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)

// WriteEnvFile renders values as KEY=VALUE lines, sorted by key.
func WriteEnvFile(path string, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb := strings.Builder{}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, values[k])
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

// ParseEnvFile reads KEY=VALUE assignments from the file at path.
func ParseEnvFile(path string) (map[string]string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return ParseEnv(string(buf)), nil
}

// ParseEnv extracts KEY=VALUE assignments, one per line.
//
// Keys match `[A-Za-z_][A-Za-z0-9_]*`. Lines starting with "#" and
// lines not shaped like an assignment are ignored.
func ParseEnv(content string) map[string]string {
	values := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := reAssignment.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		values[m[1]] = m[2]
	}
	return values
}
