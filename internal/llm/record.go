package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/spherical/cheque-extractor/internal/domain"
)

const recordSchemaURL = "mem://cheque-extractor/cheque_record.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// BuildRecordJSONSchema returns the JSON Schema every model reply must satisfy.
// Keys are optional and nullable; unknown keys are rejected.
func BuildRecordJSONSchema() map[string]any {
	nullableString := func() map[string]any {
		return map[string]any{"type": []string{"string", "null"}}
	}

	paymentTypes := make([]any, 0, len(domain.PaymentTypes)+1)
	for _, pt := range domain.PaymentTypes {
		paymentTypes = append(paymentTypes, string(pt))
	}
	paymentTypes = append(paymentTypes, nil)

	props := map[string]any{}
	for _, col := range domain.LedgerColumns {
		props[col] = nullableString()
	}
	props[domain.ColPaymentType] = map[string]any{"enum": paymentTypes}
	props[domain.ColSignaturePresent] = map[string]any{"type": []string{"boolean", "null"}}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func recordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(BuildRecordJSONSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(recordSchemaURL, bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(recordSchemaURL)
	})
	return compiledSchema, schemaErr
}

// DecodeRecord parses model content into a ChequeRecord. Content that is not a
// JSON object, or that carries keys outside the ledger schema, yields a decode
// error and must never reach the ledger. Odd value types are coerced instead.
func DecodeRecord(content string, logger *domain.Logger) (domain.ChequeRecord, error) {
	if logger == nil {
		logger = domain.DefaultLogger
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return domain.ChequeRecord{}, domain.DecodeError("content is not valid JSON", err)
	}
	if dec.More() {
		return domain.ChequeRecord{}, domain.DecodeError("content is not valid JSON", fmt.Errorf("trailing data after object"))
	}
	if m == nil {
		return domain.ChequeRecord{}, domain.DecodeError("content is not a JSON object", nil)
	}

	if changed := sanitizeRecordFields(m, logger); len(changed) > 0 {
		logger.Debug("Normalized fields: %s", strings.Join(changed, ", "))
	}

	schema, err := recordSchema()
	if err != nil {
		return domain.ChequeRecord{}, domain.DecodeError("compile record schema", err)
	}
	if err := schema.Validate(m); err != nil {
		return domain.ChequeRecord{}, domain.DecodeError("content does not match the cheque schema", err)
	}

	b, err := json.Marshal(m)
	if err != nil {
		return domain.ChequeRecord{}, domain.DecodeError("re-encode content", err)
	}
	var rec domain.ChequeRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return domain.ChequeRecord{}, domain.DecodeError("unmarshal record", err)
	}
	return rec, nil
}

// sanitizeRecordFields normalizes known keys in place so near-miss replies still
// validate. Unknown keys are left for the schema to reject.
func sanitizeRecordFields(m map[string]any, logger *domain.Logger) []string {
	var changed []string
	note := func(k, why string) { changed = append(changed, k+"("+why+")") }

	for _, col := range domain.LedgerColumns {
		v, ok := m[col]
		if !ok || v == nil {
			continue
		}

		switch col {
		case domain.ColSignaturePresent:
			switch t := v.(type) {
			case bool:
			case string:
				if b, ok := parseLooseBool(t); ok {
					m[col] = b
					note(col, "bool")
					continue
				}
				m[col] = nil
				if s := strings.TrimSpace(t); s == "" || strings.EqualFold(s, "null") {
					note(col, "empty")
				} else {
					logger.Warn("%s value %q is not a yes/no answer, leaving it empty", col, t)
					note(col, "unclear")
				}
			default:
				logger.Warn("%s value %v is not a yes/no answer, leaving it empty", col, t)
				m[col] = nil
				note(col, "unclear")
			}
			continue
		case domain.ColPaymentType:
			s, isString := v.(string)
			if !isString {
				logger.Warn("%s value %v is not text, recording it as %s", col, v, domain.PaymentOther)
				m[col] = string(domain.PaymentOther)
				note(col, "unknown->Other")
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" || strings.EqualFold(s, "null") {
				m[col] = nil
				note(col, "empty")
				continue
			}
			pt, known := domain.ParsePaymentType(s)
			if !known {
				note(col, "unknown->Other")
			} else if string(pt) != s {
				note(col, "case")
			}
			m[col] = string(pt)
			continue
		}

		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				m[col] = nil
				note(col, "empty")
			} else if s != t {
				m[col] = s
			}
		case json.Number:
			if col == domain.ColAmount {
				if d, err := decimal.NewFromString(t.String()); err == nil {
					m[col] = d.StringFixed(2)
					note(col, "number")
					continue
				}
			}
			m[col] = t.String()
			note(col, "number")
		case bool:
			m[col] = strconv.FormatBool(t)
			note(col, "bool")
		case []any, map[string]any:
			// Structured values keep their JSON text in the cell.
			b, err := json.Marshal(t)
			if err != nil {
				m[col] = nil
				note(col, "unencodable")
				continue
			}
			m[col] = string(b)
			note(col, "json")
		}
	}
	return changed
}

func parseLooseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y":
		return true, true
	case "false", "no", "n":
		return false, true
	}
	return false, false
}
