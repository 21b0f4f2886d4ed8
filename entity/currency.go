package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// fractionDigits lists currencies whose minor unit is not two digits.
// Everything else uses the default of 2.
var fractionDigits = map[string]int{
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0,
	"KRW": 0, "PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0,
	"XOF": 0, "XPF": 0,
}

// FractionDigits returns the number of minor-unit digits for an ISO currency
// code.
func FractionDigits(currency string) int {
	if digits, ok := fractionDigits[strings.ToUpper(currency)]; ok {
		return digits
	}
	return 2
}

// ToMinorUnits converts a decimal price string to the integer minor-unit
// amount used on the wire. Extra fractional digits are truncated, matching the
// gateway's own behaviour. The conversion is done on the digit strings so no
// float rounding is involved.
func ToMinorUnits(value, currency string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(value, "-") {
		return 0, fmt.Errorf("negative amount %q", value)
	}

	digits := FractionDigits(currency)
	whole, frac := value, ""
	if dot := strings.IndexByte(value, '.'); dot >= 0 {
		whole, frac = value[:dot], value[dot+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > digits {
		frac = frac[:digits]
	}
	for len(frac) < digits {
		frac += "0"
	}

	amount, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// FromMinorUnits converts a minor-unit amount back to its decimal
// representation, e.g. 1234 EUR cents to "12.34".
func FromMinorUnits(amount int64, currency string) string {
	digits := FractionDigits(currency)
	if digits == 0 {
		return strconv.FormatInt(amount, 10)
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	text := strconv.FormatInt(amount, 10)
	for len(text) <= digits {
		text = "0" + text
	}
	cut := len(text) - digits
	return sign + text[:cut] + "." + text[cut:]
}
