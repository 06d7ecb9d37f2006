package utils

// SanitizeCPF strips everything that is not an ASCII digit.
func SanitizeCPF(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			out = append(out, c)
		}
	}
	return string(out)
}

// ValidateCPF reports whether cpf (already sanitized) is a well formed CPF.
// With strict set the two check digits must match the modulo 11 algorithm;
// otherwise only the length and the "all digits equal" rule are enforced.
func ValidateCPF(cpf string, strict bool) bool {
	if len(cpf) != 11 {
		return false
	}
	allEq := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allEq = false
			break
		}
	}
	if allEq {
		return false
	}
	if !strict {
		return true
	}
	return checkDigit(cpf[:9]) == cpf[9] && checkDigit(cpf[:10]) == cpf[10]
}

func checkDigit(prefix string) byte {
	sum := 0
	weight := len(prefix) + 1
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
	}
	rest := sum % 11
	if rest < 2 {
		return '0'
	}
	return byte('0' + 11 - rest)
}
