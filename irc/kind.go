package irc

// Kind is a closed classification of a parsed Event, assigned by the
// parser once it has looked past the raw verb/numeric into prefix shape,
// self-directedness, and (for PRIVMSG/NOTICE) CTCP framing. It exists
// alongside the legacy Name/Args fields rather than replacing them: Name
// is the verb or numeric as it appeared on the wire, Kind is what the
// parser decided that verb means.
type Kind string

// Event kinds. Names intentionally avoid the bare verb spelling already
// used by the string constants in common.go (JOIN, PRIVMSG, ...) so the
// two sets of identifiers never collide.
const (
	KindUNSET   Kind = ""
	KindUNKNOWN Kind = "UNKNOWN"
	KindNUMERIC Kind = "NUMERIC"

	KindPING   Kind = "PING"
	KindPONG   Kind = "PONG"
	KindNOTICE Kind = "NOTICE"
	KindERROR  Kind = "ERROR"

	KindJOIN     Kind = "JOIN"
	KindSELFJOIN Kind = "SELFJOIN"
	KindPART     Kind = "PART"
	KindSELFPART Kind = "SELFPART"
	KindQUIT     Kind = "QUIT"
	KindSELFQUIT Kind = "SELFQUIT"
	KindNICK     Kind = "NICK"
	KindSELFNICK Kind = "SELFNICK"
	KindKICK     Kind = "KICK"
	KindSELFKICK Kind = "SELFKICK"
	KindINVITE   Kind = "INVITE"

	// PRIVMSG variants. CHAN/QUERY are messages received from someone
	// else; SELFCHAN/SELFQUERY are the bot's own messages looped back
	// to it (used by bouncers and the echo-message capability); EMOTE
	// is a CTCP ACTION, channel or query alike.
	KindCHAN      Kind = "CHAN"
	KindQUERY     Kind = "QUERY"
	KindEMOTE     Kind = "EMOTE"
	KindSELFCHAN  Kind = "SELFCHAN"
	KindSELFQUERY Kind = "SELFQUERY"

	KindMODE      Kind = "MODE"
	KindCHANMODE  Kind = "CHANMODE"
	KindSELFMODE  Kind = "SELFMODE"

	KindHOSTSTART Kind = "HOSTSTART"
	KindHOSTEND   Kind = "HOSTEND"
	KindCLEARCHAT Kind = "CLEARCHAT"
	KindCAP       Kind = "CAP"

	KindSASLAuthenticate Kind = "SASL_AUTHENTICATE"
	KindAuthChallenge    Kind = "AUTH_CHALLENGE"
	KindAuthFailure      Kind = "AUTH_FAILURE"
	KindRPLLoggedIn      Kind = "RPL_LOGGEDIN"

	KindRPLMyInfo       Kind = "RPL_MYINFO"
	KindRPLISupport     Kind = "RPL_ISUPPORT"
	KindRPLWhoisAccount Kind = "RPL_WHOISACCOUNT"

	// CTCP subtypes. ACTION is deliberately absent: it is special-cased
	// to KindEMOTE rather than surfaced as a CTCP kind.
	KindCTCPVersion    Kind = "CTCP_VERSION"
	KindCTCPPing       Kind = "CTCP_PING"
	KindCTCPTime       Kind = "CTCP_TIME"
	KindCTCPClientinfo Kind = "CTCP_CLIENTINFO"
	KindCTCPFinger     Kind = "CTCP_FINGER"
	KindCTCPSource     Kind = "CTCP_SOURCE"
	KindCTCPDCC        Kind = "CTCP_DCC"
	KindCTCPUnknown    Kind = "CTCP_UNKNOWN"
)

// ctcpKinds maps an uppercased CTCP tag to its Kind. A tag not present
// here (other than ACTION, handled separately) becomes KindCTCPUnknown.
var ctcpKinds = map[string]Kind{
	"VERSION":    KindCTCPVersion,
	"PING":       KindCTCPPing,
	"TIME":       KindCTCPTime,
	"CLIENTINFO": KindCTCPClientinfo,
	"FINGER":     KindCTCPFinger,
	"SOURCE":     KindCTCPSource,
	"DCC":        KindCTCPDCC,
}

// CTCPKind resolves a CTCP tag (as extracted from the inner message by
// CTCPunpack, e.g. "VERSION" or "ACTION") to its Kind. ACTION is not in
// the table and resolves to KindCTCPUnknown; callers special-case it to
// KindEMOTE themselves.
func CTCPKind(tag string) Kind {
	if kind, ok := ctcpKinds[tag]; ok {
		return kind
	}
	return KindCTCPUnknown
}
