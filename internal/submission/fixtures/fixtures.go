// Package fixtures builds complete and partial submissions for tests across
// the submission packages.
package fixtures

import (
	"time"

	"supplierflow/internal/submission/models"
	id "supplierflow/pkg/domain"
)

// Now is the fixed clock used by fixtures.
var Now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// LimitedCompanyFields returns a complete form for a UK limited company that
// does not provide a personal service.
func LimitedCompanyFields() models.RequesterFields {
	return models.RequesterFields{
		Requester: models.RequesterDetails{
			FirstName:  "Priya",
			LastName:   "Shah",
			JobTitle:   "Service Manager",
			Department: "Radiology",
			Email:      "priya.shah@example.org",
			Phone:      "020 7946 0000",
		},
		PreScreening: models.PreScreening{
			SupplierConnection: models.No,
			Justification:      "No framework supplier covers MRI coil servicing",
			ServiceCategory:    "clinical",
			PersonalService:    models.No,
			UsageFrequency:     "one_off",
		},
		Classification: models.Classification{Entity: models.LimitedCompany{
			CompaniesHouseRegistered: models.Yes,
			CRN:                      "12345678",
		}},
		Supplier: models.SupplierDetails{
			CompanyName:  "Acme Health Ltd",
			Address:      "1 High Street",
			City:         "London",
			Postcode:     "SW1A 1AA",
			ContactName:  "Sam Jones",
			ContactEmail: "accounts@acmehealth.example",
			ContactPhone: "020 7946 0001",
		},
		Service: models.ServiceDetails{
			Description:    "Quarterly servicing of MRI coils",
			EstimatedValue: 12000,
		},
		Financial: models.FinancialDetails{
			Account:         models.UKAccount{SortCode: "12-34-56", AccountNumber: "12345678"},
			BankName:        "Northbank",
			AccountName:     "Acme Health Ltd",
			VATRegistered:   models.Yes,
			VATNumber:       "GB123456789",
			PublicLiability: models.Yes,
		},
		Acknowledgement: models.Acknowledgement{FinalAcknowledgement: true},
	}
}

// SoleTraderFields returns a complete form for a sole trader providing a
// personal service.
func SoleTraderFields() models.RequesterFields {
	f := LimitedCompanyFields()
	f.PreScreening.PersonalService = models.Yes
	f.Classification = models.Classification{Entity: models.SoleTrader{TradingName: "J Patel Physio"}}
	f.Supplier.CompanyName = "Jay Patel"
	f.Financial.VATRegistered = models.No
	f.Financial.VATNumber = ""
	f.Financial.UTR = "1234567890"
	f.Financial.PublicLiability = models.No
	return f
}

// CompleteDocuments returns every document the given form requires.
func CompleteDocuments(f models.RequesterFields) models.Documents {
	docs := models.Documents{
		models.DocLetterhead: doc(models.DocLetterhead, "application/pdf"),
	}
	if f.PreScreening.PersonalService.IsYes() {
		docs[models.DocCESTForm] = doc(models.DocCESTForm, "application/pdf")
	}
	if f.Financial.PublicLiability.IsYes() {
		docs[models.DocInsuranceCertificate] = doc(models.DocInsuranceCertificate, "application/pdf")
	}
	if f.Classification.SupplierType() == models.SupplierTypeSoleTrader {
		docs[models.DocPassportPhoto] = doc(models.DocPassportPhoto, "image/jpeg")
	}
	return docs
}

// Draft returns a complete draft submission for f.
func Draft(f models.RequesterFields) *models.Submission {
	sub, err := models.NewDraft(id.NewSubmissionID(), "priya.shah@example.org", f, CompleteDocuments(f), "", Now)
	if err != nil {
		panic(err)
	}
	return sub
}

// AtStatus returns a complete submission forced into status and stage, for
// tests that start mid-pipeline.
func AtStatus(f models.RequesterFields, status models.Status, stage models.Stage) *models.Submission {
	sub := Draft(f)
	submitted := Now
	sub.Status = status
	sub.Stage = stage
	sub.SubmittedAt = &submitted
	return sub
}

func doc(name, mime string) models.Document {
	return models.Document{Name: name + ".bin", Size: 2048, MimeType: mime, Present: true}
}
