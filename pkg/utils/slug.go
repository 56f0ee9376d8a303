package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile("[^a-z0-9]+")

// Slugify lowercases s and joins its alphanumeric runs with underscores, so
// "Order Date (UTC)" becomes "order_date_utc".
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonSlug.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// UniqueSlug slugifies s and appends _2, _3, ... until taken reports false.
// An empty slug becomes fallback.
func UniqueSlug(s, fallback string, taken func(string) bool) string {
	base := Slugify(s)
	if base == "" {
		base = fallback
	}
	slug := base
	for n := 2; taken(slug); n++ {
		slug = fmt.Sprintf("%s_%d", base, n)
	}
	return slug
}
