package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseMoney convierte el texto de un tile ("-1.23 USD", "1,024.50 USD", "−0.40")
// en un decimal. Ignora códigos de moneda, separadores de miles y espacios,
// y normaliza el signo menos Unicode.
func ParseMoney(s string) (decimal.Decimal, error) {
	clean := normalizeNumber(s)
	if clean == "" {
		return decimal.Zero, fmt.Errorf("domain.ParseMoney: empty value %q", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("domain.ParseMoney: %q: %w", s, err)
	}
	return d, nil
}

// ParseCount convierte el texto de un tile de conteo ("12", "1,204") en un entero.
func ParseCount(s string) (int, error) {
	clean := normalizeNumber(s)
	if clean == "" {
		return 0, fmt.Errorf("domain.ParseCount: empty value %q", s)
	}
	n, err := strconv.Atoi(clean)
	if err != nil {
		return 0, fmt.Errorf("domain.ParseCount: %q: %w", s, err)
	}
	return n, nil
}

// normalizeNumber deja solo dígitos, punto y signo.
func normalizeNumber(s string) string {
	s = strings.ReplaceAll(s, "−", "-") // signo menos tipográfico
	var sb strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-', r == '+':
			sb.WriteRune(r)
		case r == ',', unicode.IsSpace(r), unicode.IsLetter(r):
			// separador de miles, espacios o código de moneda
		default:
			// símbolos ($, €) tampoco aportan
		}
	}
	return sb.String()
}

// FormatMoney formatea un decimal con dos decimales y signo explícito.
func FormatMoney(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
