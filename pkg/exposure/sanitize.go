package exposure

import (
	"fmt"
	"strings"
)

// Rule replaces one character with a fixed token.
type Rule struct {
	Char  rune
	Token string
}

// Rules is an ordered substitution table.
type Rules []Rule

// DefaultRules is the name substitution table. Order is significant only in
// that no token may contain a character matched by a later rule; Validate
// checks this.
var DefaultRules = Rules{
	{' ', "_"},
	{'&', "_and_"},
	{'!', "_exclmtnpt_"},
	{'#', "_octothrp_"},
	{'$', "_dollarsgn_"},
	{'%', "_prcnt_"},
	{'"', "_prcnt_"},
	{'\'', "_prcnt_"},
	{'(', "_parenlft_"},
	{')', "_parenrght_"},
	{'*', "_astrsk_"},
	{'+', "_plus_"},
	{',', "_comma_"},
	{'.', "_period_"},
	{'/', "_fwdslsh_"},
	{'\\', "_bckslsh_"},
	{':', "_cln_"},
	{';', "_semicln_"},
	{'<', "_anglbrcktlft_"},
	{'>', "_anglbrcktrght_"},
	{'=', "_eql_"},
	{'?', "_qstnmrk_"},
	{'@', "_atsgn_"},
	{'[', "_sqbrcktlft_"},
	{']', "_sqbrcktrght_"},
	{'^', "_crcmflx_"},
	{'~', "_tilde_"},
	{'`', "_bcktck_"},
	{'{', "_sqrlbrcktlft_"},
	{'}', "_sqrlbrcktrght_"},
	{'|', "_pipesmbl_"},
}

// Validate reports an error if a rule's token contains a character that
// the same or a later rule replaces, or if a character has two rules.
func (rs Rules) Validate() error {
	seen := make(map[rune]int, len(rs))
	for i, r := range rs {
		if r.Token == "" {
			return fmt.Errorf("rule %d (%q) has an empty token", i, r.Char)
		}
		if j, dup := seen[r.Char]; dup {
			return fmt.Errorf("rules %d and %d both replace %q", j, i, r.Char)
		}
		seen[r.Char] = i
	}
	for i, r := range rs {
		for j := i; j < len(rs); j++ {
			if strings.ContainsRune(r.Token, rs[j].Char) {
				return fmt.Errorf("token %q of rule %d contains %q replaced by rule %d", r.Token, i, rs[j].Char, j)
			}
		}
	}
	return nil
}

// Apply lower-cases s and applies every rule in order.
func (rs Rules) Apply(s string) string {
	out := strings.ToLower(s)
	for _, r := range rs {
		out = strings.ReplaceAll(out, string(r.Char), r.Token)
	}
	return out
}

// Sanitize turns a content label into an exposure name using DefaultRules.
func Sanitize(label string) string {
	return DefaultRules.Apply(label)
}
