package models

// BankSecrets are the banking fields that must not be kept in long-lived
// storage. They are held separately until the submission reaches a terminal
// state.
type BankSecrets struct {
	SortCode      string `json:"sort_code,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	SWIFT         string `json:"swift,omitempty"`
}

func (b BankSecrets) IsZero() bool {
	return b == BankSecrets{}
}

// Redact returns a copy of s with the bank account numbers blanked, and the
// removed values. The account variant is kept so the overseas answer
// survives.
func (s *Submission) Redact() (*Submission, BankSecrets) {
	out := s.Clone()
	var secrets BankSecrets
	switch acct := out.RequesterFields.Financial.Account.(type) {
	case UKAccount:
		secrets.SortCode, secrets.AccountNumber = acct.SortCode, acct.AccountNumber
		out.RequesterFields.Financial.Account = UKAccount{}
	case OverseasAccount:
		secrets.IBAN, secrets.SWIFT = acct.IBAN, acct.SWIFT
		out.RequesterFields.Financial.Account = OverseasAccount{}
	}
	return out, secrets
}

// Rehydrate returns a copy of s with the secrets put back into the account
// variant already recorded.
func (s *Submission) Rehydrate(secrets BankSecrets) *Submission {
	out := s.Clone()
	switch out.RequesterFields.Financial.Account.(type) {
	case UKAccount:
		out.RequesterFields.Financial.Account = UKAccount{SortCode: secrets.SortCode, AccountNumber: secrets.AccountNumber}
	case OverseasAccount:
		out.RequesterFields.Financial.Account = OverseasAccount{IBAN: secrets.IBAN, SWIFT: secrets.SWIFT}
	}
	return out
}
