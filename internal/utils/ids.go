// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// ParseID parses a path identifier as a base-10 int. Surrounding whitespace,
// signs other than a leading '-', and values outside the int range are
// rejected.
//
// Example:
//
//	id, ok := utils.ParseID("42")  // 42, true
//	_, ok = utils.ParseID("abc")   // 0, false
//	_, ok = utils.ParseID(" 42")   // 0, false
func ParseID(s string) (int, bool) {
	if s == "" || s[0] == '+' {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
