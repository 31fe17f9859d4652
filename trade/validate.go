package trade

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Violation codes.
const (
	CodeRequired         = "required"
	CodeMustBePositive   = "must_be_positive"
	CodeInvalidUUID      = "invalid_uuid"
	CodeInvalidEnum      = "invalid_enum"
	CodeTooLong          = "too_long"
	CodeNetExceedsGross  = "net_exceeds_gross"
	CodeInvalidDocument  = "invalid_document"
	CodeInvalidDate      = "invalid_date"
	CodeTooManyDecimals  = "too_many_decimals"
	CodeNotEditable      = "not_editable"
	CodeLockedByPayments = "locked_by_payments"
)

// MaxNotesLen bounds every free-text notes field.
const MaxNotesLen = 1000

// Violations collects field -> code. The first violation per field wins.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Err returns nil when empty, otherwise a ValidationError with fields sorted.
func (v Violations) Err(message string) error {
	if v.Empty() {
		return nil
	}
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	details := make([]FieldViolation, 0, len(fields))
	for _, f := range fields {
		details = append(details, FieldViolation{Field: f, Code: v[f]})
	}
	return &ValidationError{Message: message, Details: details}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.add(field, CodeRequired)
	}
}

func Positive(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v.add(field, CodeMustBePositive)
	}
}

// Cents rejects money with more than two decimal places.
func Cents(field string, val decimal.Decimal, v Violations) {
	if !val.Equal(val.Round(2)) {
		v.add(field, CodeTooManyDecimals)
	}
}

func ValidUUID(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.add(field, CodeRequired)
		return
	}
	if _, err := uuid.Parse(value); err != nil {
		v.add(field, CodeInvalidUUID)
	}
}

// OneOf accepts the empty value; pair with Required when the field is mandatory.
func OneOf[T ~string](field string, val T, allowed []T, v Violations) {
	if val == "" {
		return
	}
	for _, a := range allowed {
		if val == a {
			return
		}
	}
	v.add(field, CodeInvalidEnum)
}

func MaxLen(field, value string, max int, v Violations) {
	if utf8.RuneCountInString(value) > max {
		v.add(field, CodeTooLong)
	}
}

// WeightPair checks both weights are positive and net does not exceed gross.
func WeightPair(gross, net decimal.Decimal, v Violations) {
	Positive("grossWeight", gross, v)
	Positive("netWeight", net, v)
	if net.GreaterThan(gross) {
		v.add("netWeight", CodeNetExceedsGross)
	}
}

// NormalizeDocument strips punctuation from a CPF/CNPJ. Only ASCII digits
// are kept.
func NormalizeDocument(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TaxDocument requires an 11-digit CPF or a 14-digit CNPJ after normalisation.
func TaxDocument(field, doc string, v Violations) {
	n := NormalizeDocument(doc)
	if n == "" {
		v.add(field, CodeRequired)
		return
	}
	if len(n) != 11 && len(n) != 14 {
		v.add(field, CodeInvalidDocument)
	}
}

// CheckID fails with InvalidInput when id is not a UUID.
func CheckID(field, id string) error {
	v := Violations{}
	ValidUUID(field, id, v)
	return v.Err("invalid " + field)
}
