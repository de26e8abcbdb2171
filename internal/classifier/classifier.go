// Package classifier maps free-text queries to a search type tag. Detection is
// an ordered decision list: the first matching rule wins, so precedence lives
// in the rule slice, not in control flow.
package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

// SearchType is the tag attached to a classified query.
type SearchType string

const (
	TypePhone     SearchType = "phone"
	TypeEmail     SearchType = "email"
	TypeCarNumber SearchType = "car_number"
	TypeUsername  SearchType = "username"
	TypeIPAddress SearchType = "ip_address"
	TypeAddress   SearchType = "address"
	TypeName      SearchType = "name"
	TypeGeneral   SearchType = "general"
)

type rule struct {
	match func(string) bool
	tag   SearchType
}

var (
	phoneRussianRe       = regexp.MustCompile(`^\+?[7-8]\d{10}$`)
	phoneInternationalRe = regexp.MustCompile(`^\+?\d{10,15}$`)
	emailRe              = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	carNumberRe          = regexp.MustCompile(`^[АВЕКМНОРСТУХ]\d{3}[АВЕКМНОРСТУХ]{2}\d{2,3}$`)
	usernameRe           = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	ipAddressRe          = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

var addressKeywords = []string{
	"улица", "ул", "проспект", "пр", "переулок", "пер", "дом", "д", "квартира", "кв",
}

// rules is evaluated top to bottom; order is the precedence contract.
var rules = []rule{
	{isPhone, TypePhone},
	{isEmail, TypeEmail},
	{isCarNumber, TypeCarNumber},
	{isUsername, TypeUsername},
	{isIPAddress, TypeIPAddress},
	{isAddress, TypeAddress},
	{isName, TypeName},
}

// Detect classifies a query. It is pure and total: every input yields a tag,
// falling back to TypeGeneral.
func Detect(query string) SearchType {
	query = strings.TrimSpace(query)
	for _, r := range rules {
		if r.match(query) {
			return r.tag
		}
	}
	return TypeGeneral
}

func isPhone(q string) bool {
	stripped := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(q)
	return phoneRussianRe.MatchString(stripped) || phoneInternationalRe.MatchString(stripped)
}

func isEmail(q string) bool {
	return emailRe.MatchString(q)
}

func isCarNumber(q string) bool {
	plate := strings.ToUpper(strings.ReplaceAll(q, " ", ""))
	return carNumberRe.MatchString(plate)
}

func isUsername(q string) bool {
	if strings.HasPrefix(q, "@") {
		return true
	}
	return usernameRe.MatchString(q)
}

func isIPAddress(q string) bool {
	return ipAddressRe.MatchString(q)
}

func isAddress(q string) bool {
	lower := strings.ToLower(q)
	for _, kw := range addressKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isName accepts 2-3 tokens of pure letters (Cyrillic or Latin, not mixed
// within a token).
func isName(q string) bool {
	words := strings.Fields(q)
	if len(words) < 2 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		if !isLetterWord(w) {
			return false
		}
	}
	return true
}

func isLetterWord(w string) bool {
	if w == "" {
		return false
	}
	var hasCyrillic, hasLatin bool
	for _, r := range w {
		switch {
		case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r == 'ё', r == 'Ё':
			hasCyrillic = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLatin = true
		case unicode.IsLetter(r):
			return false
		default:
			return false
		}
	}
	return !(hasCyrillic && hasLatin)
}
