package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cheque-extractor/internal/domain"
)

const fullReply = `{
  "Date": "2024-03-15",
  "Amount": "250.00",
  "Currency": "CAD",
  "Issuer": "Royal Bank",
  "Payer": "Jane Doe",
  "Payee": "Community Clinic",
  "Memo": "March visit",
  "Account_Number": "0012345",
  "Cheque_Number": "000101",
  "Payment_Type": "FFS Payment",
  "Signature_Present": true,
  "Other Information": null
}`

func TestDecodeRecord_Full(t *testing.T) {
	rec, err := DecodeRecord(fullReply, domain.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-03-15", "250.00", "CAD", "Royal Bank", "Jane Doe", "Community Clinic",
		"March visit", "0012345", "000101", "FFS Payment", "true", "",
	}, rec.Row())
	assert.Nil(t, rec.OtherInformation)
}

func TestDecodeRecord_MissingKeysAreEmpty(t *testing.T) {
	rec, err := DecodeRecord(`{"Payee": "Clinic"}`, domain.NopLogger())
	require.NoError(t, err)

	row := rec.Row()
	require.Len(t, row, len(domain.LedgerColumns))
	assert.Equal(t, "Clinic", row[5])
	for i, cell := range row {
		if i != 5 {
			assert.Empty(t, cell, "column %s", domain.LedgerColumns[i])
		}
	}
}

func TestDecodeRecord_Normalizes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, rec domain.ChequeRecord)
	}{
		{
			name:  "numeric amount",
			reply: `{"Amount": 1250.5}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.Amount)
				assert.Equal(t, "1250.50", *rec.Amount)
			},
		},
		{
			name:  "numeric cheque number",
			reply: `{"Cheque_Number": 101}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.ChequeNumber)
				assert.Equal(t, "101", *rec.ChequeNumber)
			},
		},
		{
			name:  "payment type case",
			reply: `{"Payment_Type": "donation"}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.PaymentType)
				assert.Equal(t, domain.PaymentDonation, *rec.PaymentType)
			},
		},
		{
			name:  "unknown payment type",
			reply: `{"Payment_Type": "Rent"}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.PaymentType)
				assert.Equal(t, domain.PaymentOther, *rec.PaymentType)
			},
		},
		{
			name:  "signature as word",
			reply: `{"Signature_Present": "yes"}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.SignaturePresent)
				assert.True(t, *rec.SignaturePresent)
			},
		},
		{
			name:  "list in a text column",
			reply: `{"Other Information": ["Void after 90 days"]}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.OtherInformation)
				assert.Equal(t, `["Void after 90 days"]`, *rec.OtherInformation)
			},
		},
		{
			name:  "object in a text column",
			reply: `{"Other Information": {"note": "x"}, "Payee": {"name": "Clinic"}}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.OtherInformation)
				assert.Equal(t, `{"note":"x"}`, *rec.OtherInformation)
				require.NotNil(t, rec.Payee)
				assert.Equal(t, `{"name":"Clinic"}`, *rec.Payee)
			},
		},
		{
			name:  "unclear signature",
			reply: `{"Signature_Present": "unclear", "Payee": "Clinic"}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				assert.Nil(t, rec.SignaturePresent)
				require.NotNil(t, rec.Payee)
				assert.Equal(t, "Clinic", *rec.Payee)
			},
		},
		{
			name:  "numeric payment type",
			reply: `{"Payment_Type": 3}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				require.NotNil(t, rec.PaymentType)
				assert.Equal(t, domain.PaymentOther, *rec.PaymentType)
			},
		},
		{
			name:  "blank strings become null",
			reply: `{"Memo": "  ", "Issuer": " Bank "}`,
			check: func(t *testing.T, rec domain.ChequeRecord) {
				assert.Nil(t, rec.Memo)
				require.NotNil(t, rec.Issuer)
				assert.Equal(t, "Bank", *rec.Issuer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord(tt.reply, domain.NopLogger())
			require.NoError(t, err)
			tt.check(t, rec)
		})
	}
}

func TestDecodeRecord_Rejects(t *testing.T) {
	tests := map[string]string{
		"prose":         "I'm sorry, I can't help with that.",
		"fenced":        "```json\n{\"Date\": null}\n```",
		"array":         `[{"Date": null}]`,
		"null":          `null`,
		"trailing data": `{"Date": null} {"Date": null}`,
		"unknown key":   `{"Date": null, "Bank_Address": "1 Main St"}`,
		"truncated":     `{"Date": "2024-`,
	}

	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRecord(reply, domain.NopLogger())
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeDecode), "got %v", err)
		})
	}
}

func TestDecodeRecord_SchemaErrorHasNoHostPath(t *testing.T) {
	_, err := DecodeRecord(`{"Bank_Address": "1 Main St"}`, domain.NopLogger())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "file://")
	assert.Contains(t, err.Error(), recordSchemaURL)
}

func TestBuildRecordJSONSchema(t *testing.T) {
	schema := BuildRecordJSONSchema()
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, len(domain.LedgerColumns))
	_, hasRequired := schema["required"]
	assert.False(t, hasRequired)
}
