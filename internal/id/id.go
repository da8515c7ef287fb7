package id

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// DocPrefix marks document identifiers generated for blank documents.
const DocPrefix = "SIN-DOC-"

// maxDocAttempts bounds the search for an unused generated document.
const maxDocAttempts = 1000

// FormatDocID returns a generated document ID like "SIN-DOC-04217".
func FormatDocID(n int) string {
	return fmt.Sprintf("%s%05d", DocPrefix, n)
}

// NewDocID returns a random generated document ID for which taken reports
// false. It returns an error when no free ID was found.
func NewDocID(r *rand.Rand, taken func(string) bool) (string, error) {
	for i := 0; i < maxDocAttempts; i++ {
		var n int
		if r != nil {
			n = r.IntN(100000)
		} else {
			n = rand.IntN(100000)
		}
		doc := FormatDocID(n)
		if !taken(doc) {
			return doc, nil
		}
	}
	return "", fmt.Errorf("no free document ID after %d attempts", maxDocAttempts)
}

// IsGeneratedDoc reports whether doc was produced by NewDocID.
func IsGeneratedDoc(doc string) bool {
	rest, ok := strings.CutPrefix(doc, DocPrefix)
	if !ok || len(rest) != 5 {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// FormatMonthKey returns a month key like "2024-11".
func FormatMonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthKey parses "2024-11" into year and month.
func ParseMonthKey(key string) (year, month int, err error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid month key %q", key)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in month key %q: %w", key, err)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month in month key %q: %w", key, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month out of range in month key %q", key)
	}
	return year, month, nil
}
