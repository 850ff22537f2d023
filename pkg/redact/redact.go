// Package redact masks customer PII before it leaves the service in
// listings or log lines.
package redact

import "strings"

const marker = "***"

// Email keeps up to two characters of the local part and the domain:
// ahmet@example.com -> ah***@example.com. At least one character of the
// local part is always masked. Malformed input is fully masked.
func Email(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		if email == "" {
			return ""
		}
		return marker
	}
	return prefix(local, 2) + marker + "@" + domain
}

// Name keeps the first letter of every token: Ahmet Yilmaz -> A*** Y***.
func Name(name string) string {
	tokens := strings.Fields(name)
	for i, tok := range tokens {
		tokens[i] = prefix(tok, 1) + marker
	}
	return strings.Join(tokens, " ")
}

// prefix returns up to n leading runes of s, never all of them.
func prefix(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		n = len(r) - 1
	}
	if n <= 0 {
		return ""
	}
	return string(r[:n])
}
