package secret

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

const dollarEscape = "\x00GRIDGATE_DOLLAR\x00"

// ExpandEnvStrict expands $VAR and ${VAR} in s. Every referenced variable
// must be set (an empty value is fine); otherwise ErrMissingEnv lists the
// missing names. "$$" produces a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}
	s = strings.ReplaceAll(s, "$$", dollarEscape)

	missing := map[string]struct{}{}
	out := os.Expand(s, func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok {
			missing[key] = struct{}{}
		}
		return v
	})
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for k := range missing {
			names = append(names, k)
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(names, ", "))
	}
	return strings.ReplaceAll(out, dollarEscape, "$"), nil
}
