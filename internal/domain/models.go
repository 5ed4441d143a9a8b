package domain

import (
	"path/filepath"
	"strconv"
	"strings"
)

// PaymentType is the category the model assigns to a cheque.
type PaymentType string

const (
	PaymentDonation PaymentType = "Donation"
	PaymentFFS      PaymentType = "FFS Payment"
	PaymentMRP      PaymentType = "MRP Payment"
	PaymentOther    PaymentType = "Other"
)

// PaymentTypes lists the allowed Payment_Type values in prompt order.
var PaymentTypes = []PaymentType{
	PaymentDonation,
	PaymentFFS,
	PaymentMRP,
	PaymentOther,
}

// ParsePaymentType matches s case-insensitively against the enum.
func ParsePaymentType(s string) (PaymentType, bool) {
	s = strings.TrimSpace(s)
	for _, pt := range PaymentTypes {
		if strings.EqualFold(string(pt), s) {
			return pt, true
		}
	}
	return PaymentOther, false
}

// Ledger column names, in ledger order. They double as the JSON keys the model must use.
const (
	ColDate             = "Date"
	ColAmount           = "Amount"
	ColCurrency         = "Currency"
	ColIssuer           = "Issuer"
	ColPayer            = "Payer"
	ColPayee            = "Payee"
	ColMemo             = "Memo"
	ColAccountNumber    = "Account_Number"
	ColChequeNumber     = "Cheque_Number"
	ColPaymentType      = "Payment_Type"
	ColSignaturePresent = "Signature_Present"
	ColOtherInformation = "Other Information"
)

// LedgerColumns is the fixed twelve-column schema.
var LedgerColumns = []string{
	ColDate,
	ColAmount,
	ColCurrency,
	ColIssuer,
	ColPayer,
	ColPayee,
	ColMemo,
	ColAccountNumber,
	ColChequeNumber,
	ColPaymentType,
	ColSignaturePresent,
	ColOtherInformation,
}

// ChequeRecord is the structured extraction result for one document.
// A nil field means the model reported the value as unavailable.
type ChequeRecord struct {
	Date             *string      `json:"Date"`
	Amount           *string      `json:"Amount"`
	Currency         *string      `json:"Currency"`
	Issuer           *string      `json:"Issuer"`
	Payer            *string      `json:"Payer"`
	Payee            *string      `json:"Payee"`
	Memo             *string      `json:"Memo"`
	AccountNumber    *string      `json:"Account_Number"`
	ChequeNumber     *string      `json:"Cheque_Number"`
	PaymentType      *PaymentType `json:"Payment_Type"`
	SignaturePresent *bool        `json:"Signature_Present"`
	OtherInformation *string      `json:"Other Information"`
}

// Row renders the record as ledger cells in LedgerColumns order.
// Missing values become empty cells.
func (r ChequeRecord) Row() []string {
	str := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	var pt, sig string
	if r.PaymentType != nil {
		pt = string(*r.PaymentType)
	}
	if r.SignaturePresent != nil {
		sig = strconv.FormatBool(*r.SignaturePresent)
	}
	return []string{
		str(r.Date),
		str(r.Amount),
		str(r.Currency),
		str(r.Issuer),
		str(r.Payer),
		str(r.Payee),
		str(r.Memo),
		str(r.AccountNumber),
		str(r.ChequeNumber),
		pt,
		sig,
		str(r.OtherInformation),
	}
}

// Document represents one input PDF file
type Document struct {
	Path string
	Name string
}

// NewDocument builds a Document from a path.
func NewDocument(path string) Document {
	return Document{Path: path, Name: filepath.Base(path)}
}

// Outcome is the terminal result of processing one document.
type Outcome string

const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeExhausted     Outcome = "exhausted_retries"
	OutcomeAbandoned     Outcome = "abandoned"
	OutcomeNotRasterized Outcome = "not_rasterized"
	OutcomeLedgerError   Outcome = "ledger_error"
	OutcomeCancelled     Outcome = "cancelled"
)

// DocumentResult records what happened to one document.
type DocumentResult struct {
	Document Document
	Outcome  Outcome
	Attempts int
	Err      error
}
