package auth

import "strings"

// Allowlist is the set of emails permitted to act as admins.
type Allowlist struct {
	emails map[string]struct{}
}

// ParseAllowlist reads a comma- or whitespace-separated list of emails.
func ParseAllowlist(csv string) Allowlist {
	a := Allowlist{emails: make(map[string]struct{})}
	for _, f := range strings.FieldsFunc(csv, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if e := strings.ToLower(strings.TrimSpace(f)); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

// Allowed reports whether email is listed (case-insensitive).
func (a Allowlist) Allowed(email string) bool {
	_, ok := a.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Len is the number of listed emails.
func (a Allowlist) Len() int { return len(a.emails) }
