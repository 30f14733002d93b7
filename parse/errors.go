package parse

import "fmt"

// ParseErrorKind closes the set of reasons Parse/ParseWithContext can
// fail. Each corresponds to a specific phase of the parser refusing to
// make sense of a line.
type ParseErrorKind int

const (
	// UnknownBasicType is Phase 1 rejecting a prefix-less line whose
	// verb isn't one of the handful of commands a daemon is allowed to
	// send without identifying itself (PING, ERROR, NOTICE, PONG,
	// AUTHENTICATE).
	UnknownBasicType ParseErrorKind = iota
	// UnknownTypestring is Phase 3 rejecting a verb that is neither a
	// valid numeric nor a recognized IRC command token.
	UnknownTypestring
	// UnknownCTCP is Phase 4 failing to make sense of a CTCP-delimited
	// PRIVMSG/NOTICE whose inner framing doesn't decode.
	UnknownCTCP
	// BadNumeric is Phase 3 finding a three-digit token that doesn't
	// actually parse as a number.
	BadNumeric
	// UncaughtNumericOrUnset is a numeric that resolved to KindUNSET
	// rather than any concrete kind or the KindNUMERIC fallback - a
	// daemon-table construction bug rather than a malformed line.
	UncaughtNumericOrUnset
	// BadConnectSuggestion is a RPL_BOUNCE/RPL_ISUPPORT-style redirect
	// whose suggested server:port couldn't be parsed.
	BadConnectSuggestion
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnknownBasicType:
		return "UnknownBasicType"
	case UnknownTypestring:
		return "UnknownTypestring"
	case UnknownCTCP:
		return "UnknownCTCP"
	case BadNumeric:
		return "BadNumeric"
	case UncaughtNumericOrUnset:
		return "UncaughtNumericOrUnset"
	case BadConnectSuggestion:
		return "BadConnectSuggestion"
	default:
		return "ParseError"
	}
}

// ParseError is returned when a line cannot be turned into an
// irc.Event. Kind narrows down which phase rejected it; Irc carries the
// offending line for logging.
type ParseError struct {
	Kind ParseErrorKind
	Msg  string
	Irc  string
}

func (p ParseError) Error() string {
	return fmt.Sprintf("parse: %s: %s", p.Kind, p.Msg)
}

// ErrMalformedFrame is returned when a line is too structurally broken to
// even reach phase-based parsing (no command token at all).
var ErrMalformedFrame = fmt.Errorf("parse: malformed frame")

// SanityWarning is a non-fatal note Phase 4 attaches to an otherwise
// successfully parsed Event (via Event.Warnings) when something about
// its shape looked surprising but didn't prevent parsing.
type SanityWarning struct {
	Msg string
}

func (s SanityWarning) Error() string {
	return "parse: sanity warning: " + s.Msg
}
