package models

// Category classifies the documentary purpose of an uploaded file.
type Category string

const (
	CategoryPayStub           Category = "pay_stub"
	CategoryTaxReturn         Category = "tax_return"
	CategoryW2Form            Category = "w2_form"
	CategoryBankStatement     Category = "bank_statement"
	CategoryEmploymentLetter  Category = "employment_letter"
	CategoryLeaseAgreement    Category = "lease_agreement"
	CategoryMortgageStatement Category = "mortgage_statement"
	CategoryUtilityBill       Category = "utility_bill"
	CategoryPropertyDeed      Category = "property_deed"
	CategoryIDDocument        Category = "id_document"
	CategoryImmigrationStatus Category = "immigration_status"
	CategoryOther             Category = "other"
)

// Categories is the closed set, in display order.
var Categories = []Category{
	CategoryPayStub,
	CategoryTaxReturn,
	CategoryW2Form,
	CategoryBankStatement,
	CategoryEmploymentLetter,
	CategoryLeaseAgreement,
	CategoryMortgageStatement,
	CategoryUtilityBill,
	CategoryPropertyDeed,
	CategoryIDDocument,
	CategoryImmigrationStatus,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryPayStub:           "Pay Stubs",
	CategoryTaxReturn:         "Tax Returns",
	CategoryW2Form:            "W-2 Forms",
	CategoryBankStatement:     "Bank Statements",
	CategoryEmploymentLetter:  "Employment Letter",
	CategoryLeaseAgreement:    "Lease Agreement",
	CategoryMortgageStatement: "Mortgage Statement",
	CategoryUtilityBill:       "Utility Bills",
	CategoryPropertyDeed:      "Property Deed",
	CategoryIDDocument:        "ID Document",
	CategoryImmigrationStatus: "Immigration Status",
	CategoryOther:             "Other Documents",
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human-readable name used in notifications and archive folders.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}
