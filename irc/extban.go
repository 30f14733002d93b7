package irc

import "strings"

// ExtBan is a decoded extended ban entry, the $-prefixed syntax several
// daemons (InspIRCd, UnrealIRCd, charybdis/solanum) layer on top of the
// plain nick!user@host ban/exception/invex masks: "$a:account",
// "$a:account$#arg", "$~a:account" (negated). Letter is the extban type
// ("a" for account, etc.); Negated is set by a leading "~"; Arg is the
// optional "$#arg" suffix some extban types carry.
type ExtBan struct {
	Letter  string
	Negated bool
	Account string
	Arg     string
}

// DecodeExtban decodes raw as an extban entry. ok is false if raw isn't
// extban syntax at all (an ordinary nick!user@host mask), in which case
// the caller should treat raw as a plain mask instead.
func DecodeExtban(raw string) (eb ExtBan, ok bool) {
	if len(raw) == 0 || raw[0] != '$' {
		return eb, false
	}
	body := raw[1:]

	if strings.HasPrefix(body, "~") {
		eb.Negated = true
		body = body[1:]
	}

	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		eb.Letter = body
		return eb, true
	}

	eb.Letter = body[:colon]
	value := body[colon+1:]

	if hash := strings.IndexByte(value, '$'); hash >= 0 {
		eb.Account = value[:hash]
		eb.Arg = value[hash+1:]
	} else {
		eb.Account = value
	}

	return eb, true
}

// String reconstructs the extban's wire representation.
func (eb ExtBan) String() string {
	var b strings.Builder
	b.WriteByte('$')
	if eb.Negated {
		b.WriteByte('~')
	}
	b.WriteString(eb.Letter)
	if len(eb.Account) > 0 || len(eb.Arg) > 0 {
		b.WriteByte(':')
		b.WriteString(eb.Account)
		if len(eb.Arg) > 0 {
			b.WriteByte('$')
			b.WriteString(eb.Arg)
		}
	}
	return b.String()
}
