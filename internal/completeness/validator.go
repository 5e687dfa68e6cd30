// Package completeness computes which mandatory answers and documents a
// submission is still missing.
//
// Validate is pure: it never mutates its input and always reports
// requirements in the same order (section order, then field order within a
// section). A field that is present but malformed is reported with the same
// descriptor as a missing one.
//
// Conditional requirements stay conservative while the answer they depend on
// is unset, so answering a question never grows the missing list:
//   - no supplier type yet: UTR and the identity upload are still required
//   - no overseas answer yet: UK sort code and account number are required
package completeness

import (
	"strings"

	"supplierflow/internal/submission/models"
)

// Requirement is one unmet mandatory item.
type Requirement struct {
	Scope       Scope  `json:"scope"`
	Field       string `json:"field"`
	Description string `json:"description"`
}

// Missing is the ordered list of unmet requirements.
type Missing []Requirement

// Descriptions returns the human-readable descriptors in order.
func (m Missing) Descriptions() []string {
	out := make([]string, len(m))
	for i, r := range m {
		out[i] = r.Description
	}
	return out
}

func (m Missing) Empty() bool {
	return len(m) == 0
}

// BySection groups the requirements by section, keeping order.
func (m Missing) BySection() map[Scope][]Requirement {
	out := make(map[Scope][]Requirement)
	for _, r := range m {
		out[r.Scope] = append(out[r.Scope], r)
	}
	return out
}

// Validate returns every unmet requirement for scope. An unknown scope is
// treated as All.
func Validate(scope Scope, fields models.RequesterFields, docs models.Documents) Missing {
	c := &collector{out: Missing{}}
	switch scope {
	case Section1:
		c.section1(fields)
	case Section2:
		c.section2(fields, docs)
	case Section3:
		c.section3(fields)
	case Section4:
		c.section4(fields)
	case Section5:
		c.section5(fields)
	case Section6:
		c.section6(fields, docs)
	case Section7:
		c.section7(fields)
	default:
		c.section1(fields)
		c.section2(fields, docs)
		c.section3(fields)
		c.section4(fields)
		c.section5(fields)
		c.section6(fields, docs)
		c.section7(fields)
		c.uploads(fields, docs)
	}
	return c.out
}

// CanSubmit is the submit gate: true exactly when nothing is missing.
func CanSubmit(fields models.RequesterFields, docs models.Documents) bool {
	return Validate(All, fields, docs).Empty()
}

type collector struct {
	scope Scope
	out   Missing
}

func (c *collector) require(ok bool, field, description string) {
	if !ok {
		c.out = append(c.out, Requirement{Scope: c.scope, Field: field, Description: description})
	}
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

func (c *collector) section1(f models.RequesterFields) {
	c.scope = Section1
	r := f.Requester
	c.require(present(r.FirstName), "requester.first_name", "First Name")
	c.require(present(r.LastName), "requester.last_name", "Last Name")
	c.require(present(r.JobTitle), "requester.job_title", "Job Title")
	c.require(present(r.Department), "requester.department", "Department")
	c.require(ValidEmail(r.Email), "requester.email", "Email Address (must be a valid email)")
	c.require(present(r.Phone), "requester.phone", "Phone Number")
}

func (c *collector) section2(f models.RequesterFields, docs models.Documents) {
	c.scope = Section2
	p := f.PreScreening
	c.require(p.SupplierConnection.Answered(), "pre_screening.supplier_connection", "Connection to the supplier (yes/no)")
	if p.SupplierConnection.IsYes() {
		c.require(present(p.ConnectionDetails), "pre_screening.connection_details", "Details of the connection to the supplier")
	}
	c.require(present(p.Justification), "pre_screening.justification", "Justification for using this supplier")
	c.require(present(p.ServiceCategory), "pre_screening.service_category", "Service Category")
	c.require(p.PersonalService.Answered(), "pre_screening.personal_service", "Personal service (yes/no)")
	if p.PersonalService.IsYes() {
		c.require(docs.Has(models.DocCESTForm), "documents.cest_form", "CEST Form (upload)")
	}
	c.require(present(p.UsageFrequency), "pre_screening.usage_frequency", "Usage Frequency")
}

func (c *collector) section3(f models.RequesterFields) {
	c.scope = Section3
	switch e := f.Classification.Entity.(type) {
	case nil:
		c.require(false, "classification.supplier_type", "Supplier Type")
	case models.LimitedCompany:
		c.require(e.CompaniesHouseRegistered.Answered(), "classification.companies_house_registered", "Registered with Companies House (yes/no)")
		if e.CompaniesHouseRegistered.IsYes() {
			c.require(ValidCRN(e.CRN), "classification.crn", "Company Registration Number (must be 7 or 8 digits)")
		}
	case models.SoleTrader:
		// trading name is optional
	case models.Partnership:
		c.require(hasAny(e.PartnerNames), "classification.partner_names", "Partner Names")
	case models.Charity:
		c.require(present(e.CharityNumber), "classification.charity_number", "Charity Number")
	case models.PublicSector:
		c.require(present(e.OrganisationType), "classification.organisation_type", "Organisation Type")
	}
}

func (c *collector) section4(f models.RequesterFields) {
	c.scope = Section4
	s := f.Supplier
	c.require(present(s.CompanyName), "supplier.company_name", "Company Name")
	c.require(present(s.Address), "supplier.address", "Address")
	c.require(present(s.City), "supplier.city", "City")
	if !f.Financial.Overseas().IsYes() {
		c.require(ValidPostcode(s.Postcode), "supplier.postcode", "Postcode (must be a valid UK postcode)")
	}
	c.require(present(s.ContactName), "supplier.contact_name", "Contact Name")
	c.require(ValidEmail(s.ContactEmail), "supplier.contact_email", "Contact Email (must be a valid email)")
	c.require(present(s.ContactPhone), "supplier.contact_phone", "Contact Phone")
}

func (c *collector) section5(f models.RequesterFields) {
	c.scope = Section5
	c.require(present(f.Service.Description), "service.description", "Service Description")
	c.require(f.Service.EstimatedValue > 0, "service.estimated_value", "Estimated Annual Value (must be greater than 0)")
}

func (c *collector) section6(f models.RequesterFields, docs models.Documents) {
	c.scope = Section6
	fin := f.Financial
	switch acct := fin.Account.(type) {
	case nil:
		c.require(false, "financial.overseas", "Overseas supplier (yes/no)")
		c.require(false, "financial.sort_code", "Sort Code (must be 6 digits)")
		c.require(false, "financial.account_number", "Account Number (must be 8 digits)")
	case models.UKAccount:
		c.require(ValidSortCode(acct.SortCode), "financial.sort_code", "Sort Code (must be 6 digits)")
		c.require(ValidAccountNumber(acct.AccountNumber), "financial.account_number", "Account Number (must be 8 digits)")
	case models.OverseasAccount:
		c.require(ValidIBAN(acct.IBAN), "financial.iban", "IBAN (15 to 34 characters starting with a country code)")
		c.require(ValidSWIFT(acct.SWIFT), "financial.swift", "SWIFT/BIC Code (8 or 11 characters)")
	}
	c.require(present(fin.BankName), "financial.bank_name", "Bank Name")
	c.require(present(fin.AccountName), "financial.account_name", "Account Name")

	c.require(fin.VATRegistered.Answered(), "financial.vat_registered", "VAT registered (yes/no)")
	if fin.VATRegistered.IsYes() {
		c.require(ValidVATNumber(fin.VATNumber), "financial.vat_number", "VAT Number (9 or 12 digits, optional country prefix)")
	}

	if utrRequired(f.Classification.SupplierType()) || present(fin.UTR) {
		c.require(ValidUTR(fin.UTR), "financial.utr", "Unique Taxpayer Reference (must be 10 digits)")
	}
	if present(fin.DUNS) {
		c.require(ValidDUNS(fin.DUNS), "financial.duns", "DUNS Number (must be 9 digits)")
	}

	c.require(fin.PublicLiability.Answered(), "financial.public_liability", "Public liability insurance (yes/no)")
	if fin.PublicLiability.IsYes() {
		c.require(docs.Has(models.DocInsuranceCertificate), "documents.insurance_certificate", "Insurance Certificate (upload)")
	}
	c.require(docs.Has(models.DocLetterhead), "documents.letterhead", "Company Letterhead (upload)")
}

func (c *collector) section7(f models.RequesterFields) {
	c.scope = Section7
	c.require(f.Acknowledgement.FinalAcknowledgement, "acknowledgement.final", "Final acknowledgement")
}

// uploads holds the group rules that only apply to the whole submission.
func (c *collector) uploads(f models.RequesterFields, docs models.Documents) {
	c.scope = All
	switch f.Classification.SupplierType() {
	case models.SupplierTypeSoleTrader, models.SupplierTypeUnset:
		hasLicence := docs.Has(models.DocDrivingLicenceFront) && docs.Has(models.DocDrivingLicenceBack)
		c.require(docs.Has(models.DocPassportPhoto) || hasLicence, "documents.identity",
			"Proof of identity: passport photo or both sides of driving licence (upload)")
	}
}

func utrRequired(t models.SupplierType) bool {
	switch t {
	case models.SupplierTypeSoleTrader, models.SupplierTypePartnership, models.SupplierTypeUnset:
		return true
	}
	return false
}

func hasAny(names []string) bool {
	for _, n := range names {
		if present(n) {
			return true
		}
	}
	return false
}
