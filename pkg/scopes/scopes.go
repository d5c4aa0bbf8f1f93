package scopes

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

const (
	// Separator separates multiple scopes in a transport string.
	Separator = " "

	// Wildcard matches every resource and action.
	Wildcard = "*"

	// Delimiter separates the resource from the action (e.g. "plants:read").
	Delimiter = ":"
)

// Parse converts a space-separated scope string into a slice, trimming
// whitespace and dropping empty entries. Returns nil for empty input.
func Parse(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, Separator)
	out := make([]string, 0, len(parts))
	for i := range parts {
		if parts[i] = strings.TrimSpace(parts[i]); parts[i] != "" {
			out = append(out, parts[i])
		}
	}
	return out
}

// Join converts a scope slice back to a space-separated string.
func Join(scopes []string) string {
	return strings.Join(scopes, Separator)
}

// Matches reports whether a granted scope entry covers the required scope.
//
// Coverage rules:
//   - exact match: "plants:read" covers "plants:read"
//   - global wildcard: "*" covers everything
//   - resource wildcard: "plants:*" covers any action on "plants"
func Matches(required, granted string) bool {
	if granted == required || granted == Wildcard {
		return true
	}

	if resource, ok := strings.CutSuffix(granted, Delimiter+Wildcard); ok {
		return strings.HasPrefix(required, resource+Delimiter)
	}
	return false
}

// Has reports whether any granted scope covers the required scope.
func Has(granted []string, required string) bool {
	for _, g := range granted {
		if Matches(required, g) {
			return true
		}
	}
	return false
}

// HasAll reports whether every required scope is covered. An empty required
// set is trivially satisfied.
func HasAll(granted, required []string) bool {
	for _, req := range required {
		if !Has(granted, req) {
			return false
		}
	}
	return true
}

// Validate checks each scope token against a closed vocabulary of
// "<resource>:<action>" pairs. A token is accepted if it is the global
// wildcard, a "<resource>:*" form for a resource present in the vocabulary,
// or an exact vocabulary member. The first unknown token is reported.
func Validate(scopes, vocabulary []string) error {
	for _, scope := range scopes {
		if scope == Wildcard {
			continue
		}
		if slices.Contains(vocabulary, scope) {
			continue
		}
		if resource, ok := strings.CutSuffix(scope, Delimiter+Wildcard); ok && knownResource(resource, vocabulary) {
			continue
		}
		return fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}
	return nil
}

// knownResource reports whether any vocabulary entry belongs to resource.
func knownResource(resource string, vocabulary []string) bool {
	if resource == "" {
		return false
	}
	for _, v := range vocabulary {
		if strings.HasPrefix(v, resource+Delimiter) {
			return true
		}
	}
	return false
}

// Normalize removes duplicates and sorts the scope set for stable storage
// and comparison. Returns nil for empty input.
func Normalize(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
