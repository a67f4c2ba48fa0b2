package normalize

import (
	"strconv"
	"strings"
)

// ParseAmountTokens finds the rupiah marker scanning from the end of a
// whitespace-split line. Tokens before the marker form the description and
// the token after it is the amount. Both "Rp 545.000" and "Rp545.000" are
// recognised.
func ParseAmountTokens(tokens []string) (description string, amount int64, ok bool) {
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		var raw string

		switch {
		case isRupiahMarker(tok):
			if i+1 >= len(tokens) {
				continue
			}
			raw = tokens[i+1]
		case hasRupiahPrefix(tok):
			raw = strings.TrimLeft(tok[2:], ".:")
		default:
			continue
		}

		amount, ok = parseDigits(raw)
		if !ok {
			return "", 0, false
		}
		return strings.Join(tokens[:i], " "), amount, true
	}
	return "", 0, false
}

// ParseAmount parses a bare amount cell: "Rp 545.000", "545.000", "545000",
// "Rp 545.000,00". Empty cells and "-" yield false.
func ParseAmount(s string) (int64, bool) {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return 0, false
	}
	if desc, amount, ok := ParseAmountTokens(tokens); ok && desc == "" {
		return amount, true
	}
	return parseDigits(strings.Join(tokens, ""))
}

// FormatRupiah renders an amount with '.' thousand separators, e.g. "Rp 1.049.000".
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "Rp " + b.String()
}

func isRupiahMarker(tok string) bool {
	return strings.EqualFold(strings.TrimRight(tok, ".:"), "rp")
}

func hasRupiahPrefix(tok string) bool {
	if len(tok) <= 2 || !strings.EqualFold(tok[:2], "rp") {
		return false
	}
	rest := strings.TrimLeft(tok[2:], ".:")
	return rest != "" && rest[0] >= '0' && rest[0] <= '9'
}

// parseDigits strips '.' thousand separators and a ",00" / ",-" suffix.
func parseDigits(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ','); i >= 0 {
		suffix := raw[i+1:]
		if suffix != "-" && strings.Trim(suffix, "0") != "" {
			return 0, false
		}
		raw = raw[:i]
	}
	raw = strings.TrimSuffix(raw, ".-")
	raw = strings.ReplaceAll(raw, ".", "")
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
