package checkout

import "strings"

// DefaultFirstName is used when the account has no display name.
const DefaultFirstName = "Customer"

// SplitName derives billing first and last names from a display name. The
// first word is the first name and the remaining words, joined by single
// spaces, the last name. A blank name yields DefaultFirstName and an empty
// last name.
func SplitName(display string) (first, last string) {
	fields := strings.Fields(display)
	switch len(fields) {
	case 0:
		return DefaultFirstName, ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
