package search

import (
	"strings"
	"unicode"
)

// Tokenize lowercases s and splits it on non-alphanumeric characters.
// camelCase identifiers such as getOrganizationNetworks are split at their
// case boundaries first, so catalog ids and free text tokenize alike.
func Tokenize(s string) []string {
	var tokens []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// fooBar, l3Firewall, and the last capital of an acronym before a word (MXDevice)
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	return tokens
}

// Normalize joins the tokens of s with single spaces
func Normalize(s string) string {
	return strings.Join(Tokenize(s), " ")
}

// stopwords carry no signal for ranking
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true, "in": true,
	"on": true, "to": true, "and": true, "or": true, "my": true, "me": true,
	"all": true, "is": true, "are": true, "with": true, "by": true, "from": true,
	"i": true, "what": true, "which": true, "this": true, "that": true,
}

// synonyms expand catalog tokens so common phrasings reach the right entries
var synonyms = map[string][]string{
	"organizations": {"org", "orgs", "organization"},
	"organization":  {"org", "orgs", "organizations"},
	"appliance":     {"mx", "security", "firewall"},
	"switch":        {"ms", "switching", "port", "ports"},
	"wireless":      {"mr", "wifi", "access"},
	"camera":        {"mv", "cameras", "video"},
	"sensor":        {"mt", "sensors", "environmental"},
	"networks":      {"network", "net"},
	"network":       {"networks", "net"},
	"devices":       {"device", "hardware"},
	"device":        {"devices", "hardware"},
	"get":           {"show", "list", "fetch", "retrieve", "view"},
	"update":        {"modify", "change", "edit", "set", "configure"},
	"create":        {"add", "new", "make"},
	"delete":        {"remove", "destroy"},
	"firewall":      {"security", "l3", "layer3", "policy"},
	"rules":         {"rule", "policy"},
	"clients":       {"client", "connected", "users"},
	"client":        {"clients", "connected", "users"},
	"port":          {"ports", "interface", "config", "configuration", "settings"},
	"ports":         {"port", "interface", "config", "configuration", "settings"},
	"vpn":           {"tunnel", "connection", "site"},
	"ssids":         {"ssid", "wifi", "wireless"},
	"ssid":          {"ssids", "wifi", "wireless"},
	"statuses":      {"status", "health"},
	"status":        {"statuses", "health"},
	"uplinks":       {"uplink", "wan"},
	"uplink":        {"uplinks", "wan"},
	"backups":       {"backup"},
	"restores":      {"restore"},
	"settings":      {"setting", "config", "configuration"},
}
