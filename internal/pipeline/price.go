package pipeline

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// ExtractPrice locates the displayed price in a product page using the
// given CSS selector and returns it in cents. found is false when the page
// has no price at that locator, or when the located text is not a price.
// Both mean "checked, price absent", which is a data condition, not an
// error. The error return is reserved for an unreadable document.
func ExtractPrice(html, selector string) (cents int64, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false, eris.Wrap(err, "price: parse document")
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return 0, false, nil
	}

	cents, perr := ParsePrice(sel.Text())
	if perr != nil {
		return 0, false, nil
	}
	return cents, true, nil
}

// ParsePrice converts a displayed price like "89,90 €", "1 299.00" or "95"
// into cents. Both comma and dot decimal separators are accepted; a
// trailing separator group of one or two digits is the decimal part,
// anything else is a thousands separator.
func ParsePrice(text string) (int64, error) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "," || cleaned == "." {
		return 0, eris.Errorf("price: no digits in %q", strings.TrimSpace(text))
	}

	sep := strings.LastIndexAny(cleaned, ",.")
	intPart := cleaned
	fracPart := ""
	if sep >= 0 {
		frac := cleaned[sep+1:]
		if len(frac) >= 1 && len(frac) <= 2 && !strings.ContainsAny(frac, ",.") {
			intPart = cleaned[:sep]
			fracPart = frac
		}
	}

	digits := func(s string) string {
		return strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, s)
	}

	intDigits := digits(intPart)
	if intDigits == "" {
		intDigits = "0"
	}
	units, err := strconv.ParseInt(intDigits, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "price: parse %q", strings.TrimSpace(text))
	}

	cents := units * 100
	if fracPart != "" {
		if len(fracPart) == 1 {
			fracPart += "0"
		}
		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "price: parse fraction of %q", strings.TrimSpace(text))
		}
		cents += frac
	}
	return cents, nil
}
