package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// YesNo is a tri-state form answer: unanswered, yes or no.
type YesNo string

const (
	Unanswered YesNo = ""
	Yes        YesNo = "yes"
	No         YesNo = "no"
)

func (y YesNo) IsYes() bool    { return y == Yes }
func (y YesNo) IsNo() bool     { return y == No }
func (y YesNo) Answered() bool { return y == Yes || y == No }

// RequesterFields holds the requester's form answers, one struct per form
// section. The requester owns them until the first review; reviewers only
// read them.
type RequesterFields struct {
	Requester       RequesterDetails `json:"requester"`
	PreScreening    PreScreening     `json:"pre_screening"`
	Classification  Classification   `json:"classification"`
	Supplier        SupplierDetails  `json:"supplier"`
	Service         ServiceDetails   `json:"service"`
	Financial       FinancialDetails `json:"financial"`
	Acknowledgement Acknowledgement  `json:"acknowledgement"`
}

// Section 1.
type RequesterDetails struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	JobTitle   string `json:"job_title"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// Section 2.
type PreScreening struct {
	SupplierConnection YesNo  `json:"supplier_connection"`
	ConnectionDetails  string `json:"connection_details,omitempty"`
	Justification      string `json:"justification"`
	ServiceCategory    string `json:"service_category"`
	PersonalService    YesNo  `json:"personal_service"`
	UsageFrequency     string `json:"usage_frequency"`
}

// Section 4.
type SupplierDetails struct {
	CompanyName  string `json:"company_name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Website      string `json:"website,omitempty"`
}

// Section 5.
type ServiceDetails struct {
	Description    string  `json:"description"`
	EstimatedValue float64 `json:"estimated_value"`
}

// Section 7.
type Acknowledgement struct {
	FinalAcknowledgement bool `json:"final_acknowledgement"`
}

// SupplierType is the legal form of the supplier.
type SupplierType string

const (
	SupplierTypeUnset          SupplierType = ""
	SupplierTypeLimitedCompany SupplierType = "limited_company"
	SupplierTypeSoleTrader     SupplierType = "sole_trader"
	SupplierTypePartnership    SupplierType = "partnership"
	SupplierTypeCharity        SupplierType = "charity"
	SupplierTypePublicSector   SupplierType = "public_sector"
)

// Entity is the supplier-type specific part of section 3. Exactly one of the
// concrete types below is legal at a time.
type Entity interface {
	SupplierType() SupplierType
	isEntity()
}

type LimitedCompany struct {
	CompaniesHouseRegistered YesNo  `json:"companies_house_registered"`
	CRN                      string `json:"crn,omitempty"`
}

type SoleTrader struct {
	TradingName string `json:"trading_name,omitempty"`
}

type Partnership struct {
	PartnerNames []string `json:"partner_names,omitempty"`
}

type Charity struct {
	CharityNumber string `json:"charity_number,omitempty"`
}

type PublicSector struct {
	OrganisationType string `json:"organisation_type,omitempty"`
}

func (LimitedCompany) SupplierType() SupplierType { return SupplierTypeLimitedCompany }
func (SoleTrader) SupplierType() SupplierType     { return SupplierTypeSoleTrader }
func (Partnership) SupplierType() SupplierType    { return SupplierTypePartnership }
func (Charity) SupplierType() SupplierType        { return SupplierTypeCharity }
func (PublicSector) SupplierType() SupplierType   { return SupplierTypePublicSector }

func (LimitedCompany) isEntity() {}
func (SoleTrader) isEntity()     {}
func (Partnership) isEntity()    {}
func (Charity) isEntity()        {}
func (PublicSector) isEntity()   {}

// Classification is section 3. A nil Entity means the supplier type has not
// been answered.
type Classification struct {
	Entity Entity
}

// SupplierType returns the selected supplier type or SupplierTypeUnset.
func (c Classification) SupplierType() SupplierType {
	if c.Entity == nil {
		return SupplierTypeUnset
	}
	return c.Entity.SupplierType()
}

// MarshalJSON flattens the entity into one object tagged by supplier_type.
func (c Classification) MarshalJSON() ([]byte, error) {
	if c.Entity == nil {
		return []byte(`{}`), nil
	}
	body, err := json.Marshal(c.Entity)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, err := json.Marshal(c.Entity.SupplierType())
	if err != nil {
		return nil, err
	}
	fields["supplier_type"] = tag
	return json.Marshal(fields)
}

func (c *Classification) UnmarshalJSON(data []byte) error {
	var head struct {
		SupplierType SupplierType `json:"supplier_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var entity Entity
	switch head.SupplierType {
	case SupplierTypeUnset:
		c.Entity = nil
		return nil
	case SupplierTypeLimitedCompany:
		var v LimitedCompany
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		entity = v
	case SupplierTypeSoleTrader:
		var v SoleTrader
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		entity = v
	case SupplierTypePartnership:
		var v Partnership
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		entity = v
	case SupplierTypeCharity:
		var v Charity
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		entity = v
	case SupplierTypePublicSector:
		var v PublicSector
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		entity = v
	default:
		return fmt.Errorf("unknown supplier_type %q", head.SupplierType)
	}
	c.Entity = entity
	return nil
}

// BankAccount is the payment destination in section 6. The concrete type
// encodes the "overseas supplier" answer.
type BankAccount interface {
	Overseas() bool
	isBankAccount()
}

type UKAccount struct {
	SortCode      string `json:"sort_code,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
}

type OverseasAccount struct {
	IBAN  string `json:"iban,omitempty"`
	SWIFT string `json:"swift,omitempty"`
}

func (UKAccount) Overseas() bool       { return false }
func (OverseasAccount) Overseas() bool { return true }
func (UKAccount) isBankAccount()       {}
func (OverseasAccount) isBankAccount() {}

// FinancialDetails is section 6. A nil Account means "overseas supplier"
// has not been answered.
type FinancialDetails struct {
	Account         BankAccount
	BankName        string
	AccountName     string
	VATRegistered   YesNo
	VATNumber       string
	UTR             string
	DUNS            string
	PublicLiability YesNo
	// BankFingerprint is set when the account numbers have been redacted
	// from a persisted snapshot.
	BankFingerprint string
}

// Overseas returns the "overseas supplier" answer derived from the account
// variant.
func (f FinancialDetails) Overseas() YesNo {
	if f.Account == nil {
		return Unanswered
	}
	if f.Account.Overseas() {
		return Yes
	}
	return No
}

type financialJSON struct {
	Overseas        YesNo           `json:"overseas"`
	Account         json.RawMessage `json:"account,omitempty"`
	BankName        string          `json:"bank_name"`
	AccountName     string          `json:"account_name"`
	VATRegistered   YesNo           `json:"vat_registered"`
	VATNumber       string          `json:"vat_number,omitempty"`
	UTR             string          `json:"utr,omitempty"`
	DUNS            string          `json:"duns,omitempty"`
	PublicLiability YesNo           `json:"public_liability"`
	BankFingerprint string          `json:"bank_fingerprint,omitempty"`
}

func (f FinancialDetails) MarshalJSON() ([]byte, error) {
	out := financialJSON{
		Overseas:        f.Overseas(),
		BankName:        f.BankName,
		AccountName:     f.AccountName,
		VATRegistered:   f.VATRegistered,
		VATNumber:       f.VATNumber,
		UTR:             f.UTR,
		DUNS:            f.DUNS,
		PublicLiability: f.PublicLiability,
		BankFingerprint: f.BankFingerprint,
	}
	if f.Account != nil {
		account, err := json.Marshal(f.Account)
		if err != nil {
			return nil, err
		}
		out.Account = account
	}
	return json.Marshal(out)
}

func (f *FinancialDetails) UnmarshalJSON(data []byte) error {
	var in financialJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*f = FinancialDetails{
		BankName:        in.BankName,
		AccountName:     in.AccountName,
		VATRegistered:   in.VATRegistered,
		VATNumber:       in.VATNumber,
		UTR:             in.UTR,
		DUNS:            in.DUNS,
		PublicLiability: in.PublicLiability,
		BankFingerprint: in.BankFingerprint,
	}
	switch in.Overseas {
	case Unanswered:
		return nil
	case No:
		var account UKAccount
		if err := unmarshalOptional(in.Account, &account); err != nil {
			return err
		}
		f.Account = account
	case Yes:
		var account OverseasAccount
		if err := unmarshalOptional(in.Account, &account); err != nil {
			return err
		}
		f.Account = account
	default:
		return fmt.Errorf("invalid overseas answer %q", in.Overseas)
	}
	return nil
}

func unmarshalOptional(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Clone returns a deep copy; only the partnership variant holds a slice.
func (r RequesterFields) Clone() RequesterFields {
	if p, ok := r.Classification.Entity.(Partnership); ok {
		p.PartnerNames = append([]string(nil), p.PartnerNames...)
		r.Classification.Entity = p
	}
	return r
}

// PersonalService reports whether the worker provides a personal service.
func (r RequesterFields) PersonalService() YesNo {
	return r.PreScreening.PersonalService
}

// SupplierName is the name used for duplicate screening.
func (r RequesterFields) SupplierName() string {
	return strings.TrimSpace(r.Supplier.CompanyName)
}
