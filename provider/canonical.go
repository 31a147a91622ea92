package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Canonicalize builds the deterministic byte string a signature is computed
// over. It is a pure function of the field set, the profile and the secret:
// fields are filtered by the profile's inclusion rules, sorted ascending by
// case-insensitive key, rendered as KEY=VALUE and joined with the profile
// separator. The secret is placed per the profile: once at the end, or after
// every field. With SecretHMACKey the secret never enters the string.
//
// Numeric values must already be formatted by the caller with an invariant
// fixed-point format; canonicalization does not reformat them.
func Canonicalize(fields FieldSet, profile *Profile, secret string) (string, error) {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]string, len(fields))
	for key := range fields {
		if !profile.includes(key) {
			continue
		}
		folded := strings.ToLower(key)
		if prev, dup := seen[folded]; dup {
			return "", fmt.Errorf("%w: %q collides with %q", ErrDuplicateField, key, prev)
		}
		seen[folded] = key
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	var sb strings.Builder
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(profile.Separator)
		}
		name := key
		if profile.KeyCase == KeyCaseUpper {
			name = strings.ToUpper(key)
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(fields[key])
		if profile.SecretPlacement == SecretPerField {
			sb.WriteString(secret)
		}
	}
	if profile.SecretPlacement == SecretSuffix {
		sb.WriteString(secret)
	}

	return sb.String(), nil
}
