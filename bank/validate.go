package bank

import "strings"

// Field names a payee field that can fail validation.
type Field string

const (
	FieldBankName      Field = "bankName"
	FieldBankCode      Field = "bankCode"
	FieldAccountNumber Field = "accountNumber"
	FieldAccountHolder Field = "accountHolder"
)

// FieldError flags one missing or unresolvable payee field.
type FieldError struct {
	Field   Field
	Code    string // "missing" or "unresolved"
	Message string
}

func (e FieldError) Error() string { return string(e.Field) + ": " + e.Message }

// Payee is the bank-facing part of a transfer row.
type Payee struct {
	BankName      string
	BankCode      Code
	AccountNumber string
	AccountHolder string
}

// Validation is the outcome of Validate.
type Validation struct {
	IsValid     bool
	FieldErrors []FieldError
}

// Has reports whether the given field failed validation.
func (v Validation) Has(f Field) bool {
	for _, fe := range v.FieldErrors {
		if fe.Field == f {
			return true
		}
	}
	return false
}

// Validate checks the payee fields. Each rule is independent so an operator
// sees every problem on the row at once.
func Validate(p Payee) Validation {
	var errs []FieldError

	bankName := strings.TrimSpace(p.BankName)
	if bankName == "" {
		errs = append(errs, FieldError{Field: FieldBankName, Code: "missing", Message: "bank name is empty"})
	}
	if bankName != "" && strings.TrimSpace(string(p.BankCode)) == "" {
		errs = append(errs, FieldError{Field: FieldBankCode, Code: "unresolved", Message: "bank name " + bankName + " has no institution code"})
	}
	if strings.TrimSpace(p.AccountNumber) == "" {
		errs = append(errs, FieldError{Field: FieldAccountNumber, Code: "missing", Message: "account number is empty"})
	}
	if strings.TrimSpace(p.AccountHolder) == "" {
		errs = append(errs, FieldError{Field: FieldAccountHolder, Code: "missing", Message: "account holder is empty"})
	}

	return Validation{IsValid: len(errs) == 0, FieldErrors: errs}
}

// PayeeFor resolves the bank code of a free-text bank name and builds a Payee.
func PayeeFor(bankName, accountNumber, accountHolder string) Payee {
	code, _ := ResolveCode(bankName)
	return Payee{
		BankName:      strings.TrimSpace(bankName),
		BankCode:      code,
		AccountNumber: strings.TrimSpace(accountNumber),
		AccountHolder: strings.TrimSpace(accountHolder),
	}
}
