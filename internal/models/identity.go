package models

import "strings"

// IdentityKey folds a person identifier for comparison: lower case, trimmed,
// internal whitespace collapsed to single spaces. The ledger stores free-text
// names, so "  Budi   Santoso" and "budi santoso" are the same person.
func IdentityKey(id string) string {
	return strings.ToLower(strings.Join(strings.Fields(id), " "))
}
