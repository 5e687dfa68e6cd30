package completeness

import (
	"strings"

	dErrors "supplierflow/pkg/domain-errors"
)

// Scope names the part of the form being checked.
type Scope string

const (
	Section1 Scope = "section_1"
	Section2 Scope = "section_2"
	Section3 Scope = "section_3"
	Section4 Scope = "section_4"
	Section5 Scope = "section_5"
	Section6 Scope = "section_6"
	Section7 Scope = "section_7"
	All      Scope = "all"
)

// Sections lists the form sections in the order they are checked.
var Sections = []Scope{Section1, Section2, Section3, Section4, Section5, Section6, Section7}

func (s Scope) IsValid() bool {
	if s == All {
		return true
	}
	for _, sec := range Sections {
		if s == sec {
			return true
		}
	}
	return false
}

func (s Scope) String() string {
	return string(s)
}

// Title is the human-readable section heading.
func (s Scope) Title() string {
	switch s {
	case Section1:
		return "Requester details"
	case Section2:
		return "Pre-screening"
	case Section3:
		return "Supplier classification"
	case Section4:
		return "Supplier details"
	case Section5:
		return "Service details"
	case Section6:
		return "Financial details"
	case Section7:
		return "Acknowledgement"
	case All:
		return "Whole submission"
	}
	return string(s)
}

// ParseScope accepts "all", "3", "section_3" and "section 3" forms.
func ParseScope(raw string) (Scope, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == string(All) {
		return All, nil
	}
	s = strings.TrimPrefix(s, "section")
	s = strings.TrimLeft(s, "_ -")
	scope := Scope("section_" + s)
	if !scope.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown scope "+raw)
	}
	return scope, nil
}
