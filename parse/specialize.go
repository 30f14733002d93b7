package parse

import (
	"strings"

	"github.com/rivulet-irc/rivulet/irc"
)

// defaultChantypes is used to decide channel-vs-user targets when no
// NetworkInfo is available yet (e.g. parsing the very first lines of a
// connection, before 005 has arrived).
const defaultChantypes = "#&~"

func isChannelTarget(target string, ctx Context) bool {
	if ctx.NetworkInfo != nil {
		return ctx.NetworkInfo.IsChannel(target)
	}
	return len(target) > 0 && strings.ContainsRune(defaultChantypes, rune(target[0]))
}

func isSelf(nick string, ctx Context) bool {
	return ctx.SelfNick != "" && strings.EqualFold(nick, ctx.SelfNick)
}

// specialize applies Phase 4: narrowing the coarse, per-verb Kind
// assigned in Phase 3 into the closed set of specific event kinds, and
// filling in Channel/Content/Aux/TargetUser. It never turns a
// successfully tokenized line into a hard error except for CTCP framing
// that claims to be CTCP (delimited) but doesn't decode; anything else
// surprising is recorded as a warning instead.
func specialize(ev *irc.Event, ctx Context, hasTrailing bool) error {
	switch ev.Name {
	case irc.JOIN:
		specializeJoin(ev, ctx)
	case irc.PART:
		specializePart(ev, ctx)
	case irc.QUIT:
		specializeQuit(ev, ctx, hasTrailing)
	case irc.NICK:
		specializeNick(ev, ctx)
	case irc.KICK:
		specializeKick(ev, ctx)
	case "INVITE":
		specializeInvite(ev)
	case irc.PRIVMSG, irc.NOTICE:
		return specializeMessage(ev, ctx)
	case irc.MODE:
		specializeMode(ev, ctx, hasTrailing)
	case "AUTHENTICATE":
		specializeAuthenticate(ev)
	case "HOSTTARGET":
		specializeHosttarget(ev)
	case "PING", "PONG", "ERROR":
		if len(ev.Args) > 0 {
			ev.Content = ev.Args[len(ev.Args)-1]
		}
	case "CAP":
		ev.Aux = strings.Join(ev.Args, " ")
	default:
		if ev.Num != 0 {
			specializeNumeric(ev, ctx, hasTrailing)
		} else {
			genericFallback(ev, ctx, hasTrailing)
		}
	}

	return nil
}

func specializeJoin(ev *irc.Event, ctx Context) {
	if len(ev.Args) == 0 {
		ev.Warnings = append(ev.Warnings, "JOIN with no channel argument")
		return
	}
	ev.Channel = ev.Args[0]
	if len(ev.Args) >= 2 {
		// extended-join: <channel> <account> :<realname>
		ev.Aux = ev.Args[1]
	}
	if ev.SenderUser != nil && isSelf(ev.SenderUser.Nickname, ctx) {
		ev.Type = irc.KindSELFJOIN
	}
}

func specializePart(ev *irc.Event, ctx Context) {
	if len(ev.Args) == 0 {
		ev.Warnings = append(ev.Warnings, "PART with no channel argument")
		return
	}
	ev.Channel = ev.Args[0]
	if len(ev.Args) >= 2 {
		ev.Content = ev.Args[1]
	}
	if ev.SenderUser != nil && isSelf(ev.SenderUser.Nickname, ctx) {
		ev.Type = irc.KindSELFPART
	}
}

func specializeQuit(ev *irc.Event, ctx Context, hasTrailing bool) {
	if len(ev.Args) > 0 {
		ev.Content = ev.Args[len(ev.Args)-1]
	}
	if ev.SenderUser != nil && isSelf(ev.SenderUser.Nickname, ctx) {
		ev.Type = irc.KindSELFQUIT
	}
}

func specializeNick(ev *irc.Event, ctx Context) {
	if len(ev.Args) == 0 {
		ev.Warnings = append(ev.Warnings, "NICK with no new-nick argument")
		return
	}
	ev.Aux = ev.Args[0]
	if ev.SenderUser != nil && isSelf(ev.SenderUser.Nickname, ctx) {
		ev.Type = irc.KindSELFNICK
	}
}

func specializeKick(ev *irc.Event, ctx Context) {
	if len(ev.Args) < 2 {
		ev.Warnings = append(ev.Warnings, "KICK missing channel or victim argument")
		return
	}
	ev.Channel = ev.Args[0]
	victim := ev.Args[1]
	ev.TargetUser = &irc.User{Nickname: victim}
	if len(ev.Args) >= 3 {
		ev.Content = ev.Args[2]
	}
	if isSelf(victim, ctx) {
		ev.Type = irc.KindSELFKICK
	}
}

func specializeInvite(ev *irc.Event) {
	if len(ev.Args) < 2 {
		ev.Warnings = append(ev.Warnings, "INVITE missing nick or channel argument")
		return
	}
	ev.TargetUser = &irc.User{Nickname: ev.Args[0]}
	ev.Channel = ev.Args[1]
}

func specializeMessage(ev *irc.Event, ctx Context) error {
	if len(ev.Args) < 2 {
		ev.Warnings = append(ev.Warnings, ev.Name+" missing target or message argument")
		return nil
	}
	target, msg := ev.Args[0], ev.Args[1]

	if irc.IsCTCPString(msg) {
		kind, _, data, ok := irc.UnpackCTCPKind(msg)
		if !ok {
			return ParseError{Kind: UnknownCTCP, Msg: errMsgBadCTCP, Irc: ev.Raw}
		}
		ev.Content = data
		ev.Type = kind
	} else {
		ev.Content = msg
		if ev.Name == irc.NOTICE {
			ev.Type = irc.KindNOTICE
		} else {
			self := ev.SenderUser != nil && isSelf(ev.SenderUser.Nickname, ctx)
			isChan := isChannelTarget(target, ctx)
			switch {
			case self && isChan:
				ev.Type = irc.KindSELFCHAN
			case self:
				ev.Type = irc.KindSELFQUERY
			case isChan:
				ev.Type = irc.KindCHAN
			default:
				ev.Type = irc.KindQUERY
			}
		}
	}

	if isChannelTarget(target, ctx) {
		ev.Channel = target
	} else {
		ev.TargetUser = &irc.User{Nickname: target}
	}
	return nil
}

func specializeMode(ev *irc.Event, ctx Context, hasTrailing bool) {
	if len(ev.Args) == 0 {
		ev.Warnings = append(ev.Warnings, "MODE with no target argument")
		return
	}
	target := ev.Args[0]
	ev.Aux = strings.Join(ev.Args[1:], " ")

	switch {
	case isChannelTarget(target, ctx):
		ev.Type = irc.KindCHANMODE
		ev.Channel = target
	case isSelf(target, ctx):
		ev.Type = irc.KindSELFMODE
	default:
		ev.TargetUser = &irc.User{Nickname: target}
	}
}

func specializeAuthenticate(ev *irc.Event) {
	if len(ev.Args) > 0 && ev.Args[0] == "+" {
		ev.Type = irc.KindAuthChallenge
	} else if len(ev.Args) > 0 {
		ev.Content = ev.Args[0]
	}
}

// specializeHosttarget handles Twitch's HOSTTARGET: "-" in the hosted
// channel slot marks the end of a host, anything else the start.
func specializeHosttarget(ev *irc.Event) {
	if len(ev.Args) < 2 {
		return
	}
	ev.Channel = ev.Args[0]
	hosted := strings.Fields(ev.Args[1])[0]
	if hosted == "-" {
		ev.Type = irc.KindHOSTEND
	} else {
		ev.Type = irc.KindHOSTSTART
		ev.Aux = hosted
	}
}

func specializeNumeric(ev *irc.Event, ctx Context, hasTrailing bool) {
	switch ev.Num {
	case 4:
		ev.Type = irc.KindRPLMyInfo
		if len(ev.Args) > 0 {
			ev.Aux = strings.Join(ev.Args[1:], " ")
		}
	case 5:
		ev.Type = irc.KindRPLISupport
		if len(ev.Args) > 0 {
			ev.Aux = strings.Join(ev.Args[1:], " ")
		}
	case 330:
		// RPL_WHOISACCOUNT: <client> <nick> <account> :is logged in as
		if len(ev.Args) >= 3 {
			ev.TargetUser = &irc.User{Nickname: ev.Args[1], Account: ev.Args[2]}
		} else {
			ev.Warnings = append(ev.Warnings, "RPL_WHOISACCOUNT missing nick or account argument")
		}
	default:
		genericFallback(ev, ctx, hasTrailing)
	}
}

// genericFallback splits an event this parser has no specific handling
// for into target/channel/content using the channel-prefix heuristic,
// stripping a leading self-nick the way most numeric replies carry one.
func genericFallback(ev *irc.Event, ctx Context, hasTrailing bool) {
	args := ev.Args
	if len(args) > 0 && isSelf(args[0], ctx) {
		args = args[1:]
	}

	if len(args) > 0 {
		target := args[0]
		if isChannelTarget(target, ctx) {
			ev.Channel = target
		} else {
			ev.TargetUser = &irc.User{Nickname: target}
		}
	}

	if hasTrailing && len(ev.Args) > 0 {
		ev.Content = ev.Args[len(ev.Args)-1]
	}
}
