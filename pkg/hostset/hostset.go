// Package hostset flattens optional host references and host lists into
// ordered, duplicate-free host lists.
//
// An absent host is the empty string, whether it comes from an unset
// optional field or from an empty list, and it never appears in a result.
package hostset

import "strings"

// Of collects single, possibly absent, host references into a group that
// can be passed to Flatten.
func Of(hosts ...string) []string {
	return hosts
}

// Flatten concatenates the groups, drops absent entries and duplicates and
// keeps the first occurrence of every host. It never fails and never
// returns nil.
func Flatten(groups ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, group := range groups {
		for _, h := range group {
			if h == "" {
				continue
			}
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// Without returns hosts minus every host in exclude, order preserved.
func Without(hosts []string, exclude ...string) []string {
	drop := make(map[string]struct{}, len(exclude))
	for _, h := range exclude {
		drop[h] = struct{}{}
	}
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if _, ok := drop[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

// Join renders hosts as a comma-separated list.
func Join(hosts []string) string {
	return strings.Join(hosts, ",")
}
