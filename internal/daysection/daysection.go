// Package daysection finds the part of a running journal that belongs to one
// calendar day.
package daysection

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/cardgest/internal/doctree"
	"github.com/dgallion1/cardgest/internal/parser"
)

// Patterns returns the date strings searched for in headings, most specific
// first. Headings only need to contain one of them, so "2025年11月2日 周日"
// matches the first pattern.
func Patterns(day time.Time) []string {
	y, m, d := day.Date()
	return []string{
		fmt.Sprintf("%d年%d月%d日", y, m, d),
		day.Format("2006年01月02日"),
		day.Format("2006-01-02"),
		day.Format("2006/01/02"),
		fmt.Sprintf("%d-%d-%d", y, m, d),
		fmt.Sprintf("%d/%d/%d", y, m, d),
	}
}

// Extract returns the first section whose heading contains a date pattern for
// day. Patterns are tried in priority order, and for each pattern sections are
// scanned in document order. ok is false when nothing matches.
func Extract(document string, day time.Time) (match doctree.DateMatch, ok bool) {
	sections := parser.Split(document)
	for _, pattern := range Patterns(day) {
		for _, s := range sections {
			if strings.Contains(s.Heading, pattern) {
				return doctree.DateMatch{
					Date:    strings.TrimSpace(s.Heading),
					Content: strings.TrimSpace(s.Body),
				}, true
			}
		}
	}
	return doctree.DateMatch{}, false
}
