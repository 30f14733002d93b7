/*
Package parse turns raw irc protocol lines into irc.Events, in four
phases: tag extraction, prefix-less specials, prefix classification,
and typestring resolution, followed by per-kind specialization.
*/
package parse

import (
	"strconv"
	"strings"

	"github.com/rivulet-irc/rivulet/irc"
)

const (
	errMsgNoBasicType  = "line has no prefix and isn't a recognized prefix-less command"
	errMsgNoTypestring = "verb is neither a numeric nor a recognized command"
	errMsgBadCTCP      = "CTCP framing did not decode"
	errMsgBadNumeric   = "three-digit verb did not parse as a number"
)

// prefixlessSpecials are the only commands Phase 1 accepts without a
// leading ':' prefix; their sender is implicitly the connected server.
var prefixlessSpecials = map[string]bool{
	irc.PING:       true,
	"ERROR":        true,
	irc.NOTICE:     true,
	irc.PONG:       true,
	"AUTHENTICATE": true,
}

// verbKinds is the closed event-kind enum lookup for non-numeric verbs,
// prior to Phase 4 specialization (e.g. PRIVMSG always starts out
// KindCHAN here; specialize narrows it to QUERY/EMOTE/SELF* variants).
var verbKinds = map[string]irc.Kind{
	irc.JOIN:       irc.KindJOIN,
	irc.PART:       irc.KindPART,
	irc.QUIT:       irc.KindQUIT,
	irc.NICK:       irc.KindNICK,
	irc.KICK:       irc.KindKICK,
	"INVITE":       irc.KindINVITE,
	irc.PRIVMSG:    irc.KindCHAN,
	irc.NOTICE:     irc.KindNOTICE,
	irc.MODE:       irc.KindMODE,
	irc.TOPIC:      irc.KindUNKNOWN,
	irc.PING:       irc.KindPING,
	irc.PONG:       irc.KindPONG,
	"ERROR":        irc.KindERROR,
	"CAP":          irc.KindCAP,
	"AUTHENTICATE": irc.KindSASLAuthenticate,
	"CLEARCHAT":    irc.KindCLEARCHAT,
	"HOSTTARGET":   irc.KindHOSTSTART,
	"AWAY":         irc.KindUNKNOWN,
	"WALLOPS":      irc.KindUNKNOWN,
}

// Context carries the connection state Phase 2-4 need but that a raw
// line doesn't itself supply: the connection's NetworkInfo (for
// daemon-table lookups and channel types), the addresses this event's
// server is known under (for services identification), the bot's
// current nickname (for SELF* promotion), and whether this
// connection is a Twitch one (services rule 4 is skipped there).
type Context struct {
	NetworkInfo     *irc.NetworkInfo
	SelfNick        string
	ServerAddresses []string
	IsTwitch        bool
}

// Parse parses a line with no connection context: no SELF* promotion,
// no daemon-specific numeric table, and services identification limited
// to the rules that don't need a server address to compare against.
// Most callers should prefer ParseWithContext once a connection's
// NetworkInfo and bot nickname are available.
func Parse(str []byte) (*irc.Event, error) {
	return ParseWithContext(str, Context{})
}

// ParseWithContext runs all four phases against raw using ctx for the
// connection state Phase 2-4 need.
func ParseWithContext(raw []byte, ctx Context) (*irc.Event, error) {
	line := strings.TrimRight(string(raw), "\r\n")
	if len(line) == 0 {
		return nil, ErrMalformedFrame
	}

	ev := &irc.Event{Raw: line}

	// Phase 0: tags.
	rest := line
	if rest[0] == '@' {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, ErrMalformedFrame
		}
		ev.Tags = rest[1:sp]
		rest = strings.TrimLeft(rest[sp+1:], " ")
	}
	if len(rest) == 0 {
		return nil, ErrMalformedFrame
	}

	// Phase 1/2: prefix.
	hasPrefix := rest[0] == ':'
	var senderRaw string
	if hasPrefix {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return nil, ErrMalformedFrame
		}
		senderRaw = rest[1:sp]
		rest = rest[sp+1:]
	}

	command, remainder := splitCommand(rest)
	if command == "" {
		return nil, ErrMalformedFrame
	}

	if !hasPrefix && !prefixlessSpecials[command] {
		return nil, ParseError{Kind: UnknownBasicType, Msg: errMsgNoBasicType, Irc: line}
	}

	ev.Name = command
	args, hasTrailing := splitArgs(remainder)
	ev.Args = args

	if hasPrefix {
		sender := irc.ParsePrefix(senderRaw)
		sender.Special = irc.IsServices(sender, ctx.ServerAddresses, ctx.IsTwitch)
		ev.Sender = senderRaw
		ev.SenderUser = &sender
	} else {
		ev.Sender = ""
		ev.SenderUser = &irc.User{Special: true}
	}

	// Phase 3: typestring resolution.
	switch {
	case isNumeric(command):
		num, err := strconv.Atoi(command)
		if err != nil {
			return nil, ParseError{Kind: BadNumeric, Msg: errMsgBadNumeric, Irc: line}
		}
		ev.Num = num
		if ctx.NetworkInfo != nil {
			ev.Type = ctx.NetworkInfo.KindForNumeric(num)
		} else {
			ev.Type = irc.BaseNumericKind(num)
		}
	default:
		if kind, ok := verbKinds[command]; ok {
			ev.Type = kind
		} else if isValidVerbToken(command) {
			ev.Type = irc.KindUNKNOWN
		} else {
			return nil, ParseError{Kind: UnknownTypestring, Msg: errMsgNoTypestring, Irc: line}
		}
	}

	if err := specialize(ev, ctx, hasTrailing); err != nil {
		return nil, err
	}

	return ev, nil
}

// splitCommand pulls the first space-delimited token (the verb or
// numeric) off s, returning it and whatever follows.
func splitCommand(s string) (command, remainder string) {
	sp := strings.IndexByte(s, ' ')
	if sp < 0 {
		return s, ""
	}
	return s[:sp], s[sp+1:]
}

// splitArgs splits s on spaces, except that a token beginning with ':'
// consumes the rest of the string verbatim as the final "trailing"
// argument. hasTrailing reports whether the line actually carried one
// (as opposed to its last positional arg merely not containing a space).
func splitArgs(s string) (args []string, hasTrailing bool) {
	for len(s) > 0 {
		if s[0] == ':' {
			args = append(args, s[1:])
			return args, true
		}
		sp := strings.IndexByte(s, ' ')
		if sp < 0 {
			args = append(args, s)
			return args, false
		}
		args = append(args, s[:sp])
		s = s[sp+1:]
	}
	return args, false
}

func isNumeric(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isValidVerbToken checks that s is at least shaped like an IRC command
// token (letters only), without requiring it be one we specifically
// recognize. Distinguishes an obscure-but-legitimate verb (which
// becomes KindUNKNOWN) from outright garbage (UnknownTypestring).
func isValidVerbToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
