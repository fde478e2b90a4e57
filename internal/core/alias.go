package core

import (
	"regexp"
	"strings"
)

const (
	minAliasLength = 3
	maxAliasLength = 20
)

var aliasRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidateAlias checks custom alias syntax: 3-20 characters, letters and
// digits only, and not one of the reserved words (system route names).
// Comparison against reserved words is case-insensitive.
func ValidateAlias(alias string, reserved []string) error {
	if len(alias) < minAliasLength || len(alias) > maxAliasLength {
		return ErrAliasInvalid
	}
	if !aliasRe.MatchString(alias) {
		return ErrAliasInvalid
	}
	for _, word := range reserved {
		if strings.EqualFold(alias, word) {
			return ErrAliasInvalid
		}
	}
	return nil
}
