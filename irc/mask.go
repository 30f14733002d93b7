package irc

import (
	"regexp"
)

var (
	// rgxWildMask validates and splits wildmasks.
	rgxWildMask = regexp.MustCompile(
		`(?i)^` +
			`([\w\x5B-\x60\?\*][\w\d\x5B-\x60\?\*]*)` + // nickname
			`!([^\0@\s]+)` + // username
			`@([^\0\s]+)` + // host
			`$`,
	)
)

// WildMask is an irc hostmask that contains wildcard characters ? and *
type WildMask string

// Match checks if the WildMask satisfies the given normal mask.
func (w WildMask) Match(m Mask) bool {
	return isMatch(string(m), string(w))
}

// IsValid checks to ensure the mask is in valid format.
func (m WildMask) IsValid() bool {
	return rgxWildMask.MatchString(string(m))
}

// Split splits a wildmask into it's fragments: nick, user, and host. If the
// format is not acceptable empty string is returned for everything.
func (w WildMask) Split() (nick, user, host string) {
	fragments := rgxWildMask.FindStringSubmatch(string(w))
	if len(fragments) == 0 {
		return
	}
	return fragments[1], fragments[2], fragments[3]
}
