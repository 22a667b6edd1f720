package provisioner

import "strings"

// isHostname reports whether value can be used as a DNS subject alternative name
func isHostname(value string) bool {
	if len(value) == 0 || len(value) > 253 {
		return false
	}

	for n, label := range strings.Split(strings.TrimSuffix(value, "."), ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}

		for i, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			case c == '-' && i > 0 && i < len(label)-1:
			case c == '*' && n == 0 && i == 0 && len(label) == 1:
			default:
				return false
			}
		}
	}

	return true
}
