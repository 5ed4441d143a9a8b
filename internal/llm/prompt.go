package llm

import (
	"fmt"
	"strings"

	"github.com/spherical/cheque-extractor/internal/domain"
)

// fieldGuide describes each ledger column for the model, in ledger order.
var fieldGuide = []struct {
	key     string
	meaning string
	example string
}{
	{domain.ColDate, "The date written on the cheque.", `"YYYY-MM-DD"`},
	{domain.ColAmount, "The amount payable.", `"X.XX"`},
	{domain.ColCurrency, "The currency of the amount as an ISO code.", `"XXX"`},
	{domain.ColIssuer, "The bank or financial institution the cheque is drawn on.", `"Bank Name"`},
	{domain.ColPayer, "The person or organization that wrote the cheque.", `"Payer Name"`},
	{domain.ColPayee, "The person or organization the cheque is made out to.", `"Payee Name"`},
	{domain.ColMemo, "The memo line, if present.", `"Memo Content"`},
	{domain.ColAccountNumber, "The account the funds are drawn from.", `"Account Number"`},
	{domain.ColChequeNumber, "The cheque's serial number.", `"Cheque Number"`},
	{domain.ColPaymentType, "", `"Payment Category"`},
	{domain.ColSignaturePresent, "Whether the cheque is signed (true/false).", `true/false`},
	{domain.ColOtherInformation, "Anything else relevant that no other field captures.", `"Additional relevant information"`},
}

// BuildPrompt returns the fixed extraction instruction sent with every image.
func BuildPrompt() string {
	categories := make([]string, len(domain.PaymentTypes))
	for i, pt := range domain.PaymentTypes {
		categories[i] = "'" + string(pt) + "'"
	}

	var b strings.Builder
	b.WriteString("Analyze the attached cheque image and extract the following fields as JSON:\n\n")
	for i, f := range fieldGuide {
		meaning := f.meaning
		if f.key == domain.ColPaymentType {
			meaning = "Classify the payment as " + strings.Join(categories, ", ") + " from the information available."
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, f.key, meaning)
	}

	b.WriteString("\nReturn exactly this JSON shape, using these keys verbatim:\n\n{\n")
	for i, f := range fieldGuide {
		sep := ","
		if i == len(fieldGuide)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: %s%s\n", f.key, f.example, sep)
	}
	b.WriteString("}\n\n")

	b.WriteString("Set any field that is missing or illegible to null. ")
	b.WriteString("Respond with the raw JSON object ONLY: no prose and no markdown code fences such as ```json. ")
	b.WriteString("Do not redact or mask any value; complete account and cheque numbers are required for bookkeeping.")
	return b.String()
}
