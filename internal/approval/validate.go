package approval

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

var (
	fqdnPattern     = regexp.MustCompile(`^[a-zA-Z0-9][-a-zA-Z0-9.]+[a-zA-Z0-9]$`)
	portListPattern = regexp.MustCompile(`^\d+(-\d+)?(,\d+(-\d+)?)*$`)
	ruleNameStrip   = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)
	expiryTag       = regexp.MustCompile(`(\d+)-G`)
)

// ValidateObjectValue checks a requested object value before it is queued.
// Addresses accept an IP, a CIDR block, or a hostname; services accept a
// port list such as "80", "80-81" or "80,443". Group values are validated
// at approval time, when the member list is split.
func ValidateObjectValue(objType, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("object value must not be empty")
	}

	switch objType {
	case "address":
		if strings.Contains(value, "/") {
			if _, _, err := net.ParseCIDR(value); err != nil {
				return fmt.Errorf("invalid address %q: %w", value, err)
			}
			return nil
		}
		if net.ParseIP(value) != nil {
			return nil
		}
		if fqdnPattern.MatchString(value) {
			return nil
		}
		return fmt.Errorf("invalid address %q: expected IP, CIDR or hostname", value)

	case "service":
		return validatePortList(value)
	}
	return nil
}

func validatePortList(value string) error {
	clean := strings.ReplaceAll(value, " ", "")
	if !portListPattern.MatchString(clean) {
		return fmt.Errorf("invalid port list %q: expected e.g. 80, 80-81 or 80,443", value)
	}
	for _, p := range strings.FieldsFunc(clean, func(r rune) bool { return r == ',' || r == '-' }) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port %q", p)
		}
		if n < 1 || n > 65535 {
			return fmt.Errorf("port %d out of range 1-65535", n)
		}
	}
	return nil
}

// sanitizeRuleName maps a free-form request name to a device-safe rule name:
// spaces become underscores, other disallowed characters are dropped, a name
// that does not start with a letter gets an R_ prefix, and the result is
// capped at 63 characters.
func sanitizeRuleName(name string) string {
	clean := ruleNameStrip.ReplaceAllString(strings.ReplaceAll(name, " ", "_"), "")
	if clean == "" || !isLetter(rune(clean[0])) {
		clean = "R_" + clean
	}
	if len(clean) > 63 {
		clean = clean[:63]
	}
	return clean
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// addressWithMask applies the prefix convention used for address requests:
// an explicit non-zero prefix wins, a value that already carries a mask is
// kept as is, and a bare IP defaults to /32.
func addressWithMask(value, prefix string) string {
	value = strings.TrimSpace(value)
	if prefix != "" && prefix != "0" {
		return value + "/" + prefix
	}
	if strings.Contains(value, "/") {
		return value
	}
	return value + "/32"
}

// splitMembers parses a comma separated member list, dropping empty entries.
func splitMembers(value string) []string {
	var members []string
	for _, m := range strings.Split(value, ",") {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}
	return members
}
