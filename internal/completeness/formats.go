package completeness

import (
	"regexp"
	"strings"
)

var (
	ukPostcodePattern    = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)
	sortCodePattern      = regexp.MustCompile(`^\d{6}$`)
	accountNumberPattern = regexp.MustCompile(`^\d{8}$`)
	vatPattern           = regexp.MustCompile(`^([A-Z]{2})?(\d{9}|\d{12})$`)
	utrPattern           = regexp.MustCompile(`^\d{10}$`)
	dunsPattern          = regexp.MustCompile(`^\d{9}$`)
	ibanPattern          = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{13,32}$`)
	swiftPattern         = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	crnPattern           = regexp.MustCompile(`^\d{7,8}$`)
	emailPattern         = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func compact(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ValidPostcode checks the shape of a UK postcode.
func ValidPostcode(s string) bool {
	return ukPostcodePattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// ValidSortCode accepts 6 digits with optional dashes or spaces.
func ValidSortCode(s string) bool {
	return sortCodePattern.MatchString(strings.ReplaceAll(compact(s), "-", ""))
}

func ValidAccountNumber(s string) bool {
	return accountNumberPattern.MatchString(compact(s))
}

// ValidVATNumber accepts 9 or 12 digits with an optional country prefix.
func ValidVATNumber(s string) bool {
	return vatPattern.MatchString(compact(s))
}

func ValidUTR(s string) bool {
	return utrPattern.MatchString(compact(s))
}

func ValidDUNS(s string) bool {
	return dunsPattern.MatchString(strings.ReplaceAll(compact(s), "-", ""))
}

// ValidIBAN checks length (15 to 34) and the country prefix. It does not run
// the mod-97 checksum.
func ValidIBAN(s string) bool {
	return ibanPattern.MatchString(compact(s))
}

// ValidSWIFT checks bank, country, location and optional branch segments.
func ValidSWIFT(s string) bool {
	return swiftPattern.MatchString(compact(s))
}

func ValidCRN(s string) bool {
	return crnPattern.MatchString(compact(s))
}

func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}
