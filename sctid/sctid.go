// Package sctid validates and normalizes SNOMED CT identifiers.
//
// An SCTID is a 6–18 digit number whose final digit is a Verhoeff check
// digit and whose two preceding digits name the partition the identifier
// belongs to (concept, description or relationship).
package sctid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clinvoc/termgraph/concept"
)

// Partition identifies the component type encoded in an SCTID.
type Partition int

const (
	PartitionConcept Partition = iota
	PartitionDescription
	PartitionRelationship
	PartitionUnknown
)

func (p Partition) String() string {
	switch p {
	case PartitionConcept:
		return "concept"
	case PartitionDescription:
		return "description"
	case PartitionRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

// partitions maps the two-digit partition identifier to its component type.
// The first digit distinguishes short-format (0, international release) from
// long-format (1, extension with namespace) identifiers.
var partitions = map[string]Partition{
	"00": PartitionConcept, "10": PartitionConcept,
	"01": PartitionDescription, "11": PartitionDescription,
	"02": PartitionRelationship, "12": PartitionRelationship,
}

// Verhoeff dihedral group D5 multiplication, permutation and inverse tables.
var (
	verhoeffD = [10][10]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
		{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
		{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
		{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
		{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
		{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
		{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
		{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
		{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
	}
	verhoeffP = [8][10]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
		{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
		{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
		{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
		{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
		{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
		{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
	}
	verhoeffInv = [10]int{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}
)

// checksum computes the Verhoeff checksum of a digit string; a valid
// identifier (check digit included) yields 0.
func checksum(digits string) int {
	c := 0
	n := len(digits)
	for i := 0; i < n; i++ {
		d := int(digits[n-1-i] - '0')
		c = verhoeffD[c][verhoeffP[i%8][d]]
	}
	return c
}

// CheckDigit returns the Verhoeff check digit for the given digit string
// (without a check digit appended).
func CheckDigit(digits string) (int, error) {
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("sctid: non-digit character %q", digits[i])
		}
	}
	c := 0
	n := len(digits)
	for i := 0; i < n; i++ {
		d := int(digits[n-1-i] - '0')
		c = verhoeffD[c][verhoeffP[(i+1)%8][d]]
	}
	return verhoeffInv[c], nil
}

// Valid reports whether s is a well-formed SCTID: 6–18 digits, a known
// partition identifier and a correct Verhoeff check digit.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// PartitionOf returns the partition encoded in a well-formed SCTID string,
// or PartitionUnknown when the identifier does not parse.
func PartitionOf(s string) Partition {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return PartitionUnknown
	}
	p, ok := partitions[s[len(s)-3:len(s)-1]]
	if !ok {
		return PartitionUnknown
	}
	return p
}

// Parse normalizes a textual concept reference into a concept.ID. It trims
// whitespace, then requires 6–18 digits, a concept partition identifier and
// a valid check digit.
func Parse(s string) (concept.ID, error) {
	s = strings.TrimSpace(s)
	if len(s) < 6 || len(s) > 18 {
		return 0, fmt.Errorf("sctid: %q: length %d outside 6..18", s, len(s))
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sctid: %q: %w", s, err)
	}
	if _, ok := partitions[s[len(s)-3:len(s)-1]]; !ok {
		return 0, fmt.Errorf("sctid: %q: unknown partition identifier %q", s, s[len(s)-3:len(s)-1])
	}
	if checksum(s) != 0 {
		return 0, fmt.Errorf("sctid: %q: check digit mismatch", s)
	}
	return concept.ID(n), nil
}

// ParseConcept is Parse restricted to the concept partition; description and
// relationship identifiers are rejected.
func ParseConcept(s string) (concept.ID, error) {
	id, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if p := PartitionOf(strings.TrimSpace(s)); p != PartitionConcept {
		return 0, fmt.Errorf("sctid: %q: %s identifier where a concept was expected", s, p)
	}
	return id, nil
}
