package notify

import "strings"

// CleanPhone normalizes a stored phone number to E.164-ish form using the
// configured default country code for bare local numbers. Returns false when
// the input is empty or contains non-digit characters after stripping.
func CleanPhone(phone, countryCode string) (string, bool) {
	p := strings.TrimSpace(phone)
	if p == "" {
		return "", false
	}
	for _, cut := range []string{" ", "-", "(", ")", "+"} {
		p = strings.ReplaceAll(p, cut, "")
	}
	if p == "" || !digitsOnly(p) {
		return "", false
	}

	cc := strings.TrimPrefix(countryCode, "+")
	if cc != "" && strings.HasPrefix(p, cc) && len(p) == len(cc)+10 {
		return "+" + p, true
	}
	if len(p) == 10 {
		return "+" + cc + p, true
	}
	return "+" + p, true
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
