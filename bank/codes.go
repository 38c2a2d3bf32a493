/*
Package bank resolves payee bank fields and validates them for transfer files.

PURPOSE:
  Transfer rows carry a free-text bank name typed by site staff ("국민",
  "KB국민은행", "kookmin bank", "농협(중앙)"). Bank transfer files need the
  numeric institution code instead. This package owns the alias table that
  maps the free text onto codes and the validator that flags missing fields.

KEY CONCEPTS:
  - ResolveCode: free-text bank name → 3-digit institution code
  - Validate:    four independent field checks → Validation

SEE ALSO:
  - validate.go: payee validation rules
  - settlement/aggregate.go: validates every row once at creation
*/
package bank

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// INSTITUTION CODES
// =============================================================================

// Code is a 3-digit financial institution code used in transfer files.
type Code string

const (
	CodeKDB       Code = "002"
	CodeIBK       Code = "003"
	CodeKookmin   Code = "004"
	CodeSuhyup    Code = "007"
	CodeNonghyup  Code = "011"
	CodeLocalNH   Code = "012"
	CodeWoori     Code = "020"
	CodeSC        Code = "023"
	CodeCiti      Code = "027"
	CodeDaegu     Code = "031"
	CodeBusan     Code = "032"
	CodeGwangju   Code = "034"
	CodeJeju      Code = "035"
	CodeJeonbuk   Code = "037"
	CodeKyongnam  Code = "039"
	CodeSaemaul   Code = "045"
	CodeShinhyup  Code = "048"
	CodeSavings   Code = "050"
	CodePost      Code = "071"
	CodeHana      Code = "081"
	CodeShinhan   Code = "088"
	CodeKBank     Code = "089"
	CodeKakaoBank Code = "090"
	CodeTossBank  Code = "092"
)

// aliases maps a normalized bank name onto its institution code.
// Keys are produced by normalizeBankName.
var aliases = map[string]Code{
	"산업": CodeKDB, "kdb": CodeKDB, "산업은행": CodeKDB,
	"기업": CodeIBK, "ibk": CodeIBK, "ibk기업": CodeIBK,
	"국민": CodeKookmin, "kb": CodeKookmin, "kb국민": CodeKookmin, "kookmin": CodeKookmin,
	"수협": CodeSuhyup, "수협중앙회": CodeSuhyup, "suhyup": CodeSuhyup,
	"농협": CodeNonghyup, "nh": CodeNonghyup, "nh농협": CodeNonghyup, "농협중앙회": CodeNonghyup, "nonghyup": CodeNonghyup,
	"지역농협": CodeLocalNH, "단위농협": CodeLocalNH, "지역농축협": CodeLocalNH,
	"우리": CodeWoori, "woori": CodeWoori,
	"sc제일": CodeSC, "제일": CodeSC, "sc": CodeSC, "standardchartered": CodeSC,
	"씨티": CodeCiti, "한국씨티": CodeCiti, "citi": CodeCiti, "citibank": CodeCiti,
	"대구": CodeDaegu, "im": CodeDaegu, "imbank": CodeDaegu, "daegu": CodeDaegu,
	"부산": CodeBusan, "busan": CodeBusan,
	"광주": CodeGwangju, "gwangju": CodeGwangju,
	"제주": CodeJeju, "jeju": CodeJeju,
	"전북": CodeJeonbuk, "jeonbuk": CodeJeonbuk,
	"경남": CodeKyongnam, "kyongnam": CodeKyongnam,
	"새마을": CodeSaemaul, "새마을금고": CodeSaemaul, "mg": CodeSaemaul, "mg새마을금고": CodeSaemaul,
	"신협": CodeShinhyup, "신용협동조합": CodeShinhyup, "cu": CodeShinhyup,
	"저축": CodeSavings, "저축은행": CodeSavings, "상호저축": CodeSavings,
	"우체국": CodePost, "우정사업본부": CodePost, "post": CodePost, "koreapost": CodePost,
	"하나": CodeHana, "keb하나": CodeHana, "외환": CodeHana, "hana": CodeHana,
	"신한": CodeShinhan, "shinhan": CodeShinhan,
	"케이뱅크": CodeKBank, "k뱅크": CodeKBank, "kbank": CodeKBank,
	"카카오": CodeKakaoBank, "카카오뱅크": CodeKakaoBank, "kakao": CodeKakaoBank, "kakaobank": CodeKakaoBank,
	"토스": CodeTossBank, "토스뱅크": CodeTossBank, "toss": CodeTossBank, "tossbank": CodeTossBank,
}

// ResolveCode maps a free-text bank name onto its institution code.
// A name that is already a known 3-digit code resolves to itself.
func ResolveCode(bankName string) (Code, bool) {
	key := normalizeBankName(bankName)
	if key == "" {
		return "", false
	}
	if code, ok := aliases[key]; ok {
		return code, true
	}
	if isKnownCode(key) {
		return Code(key), true
	}
	return "", false
}

func isKnownCode(s string) bool {
	for _, c := range aliases {
		if string(c) == s {
			return true
		}
	}
	return false
}

// normalizeBankName lower-cases the name, drops parenthetical notes,
// whitespace and punctuation, then strips "은행"/"bank" suffixes.
func normalizeBankName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	var b strings.Builder
	depth := 0
	for _, r := range strings.ToLower(name) {
		switch {
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}

	key := b.String()
	for _, suffix := range []string{"은행", "bank", "뱅크"} {
		// keep "카카오뱅크" style names resolvable either way
		if trimmed := strings.TrimSuffix(key, suffix); trimmed != key && trimmed != "" {
			if _, ok := aliases[key]; ok {
				return key
			}
			return trimmed
		}
	}
	return key
}
