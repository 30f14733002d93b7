package irc

import "strings"

// User is the sender or target of a parsed Event: a wire-level snapshot
// of who said something, not the roster entry the data package keeps
// across events. Account and Special are only ever set by the parser:
// Special on the sender while the prefix is classified, Account on the
// target of an RPL_WHOISACCOUNT during Phase 4; nothing later in the
// pipeline should assign them directly.
type User struct {
	Nickname string
	Ident    string
	Address  string
	Account  string

	// Special marks a sender that cannot be spoofed by a regular client:
	// the server itself, or a services pseudo-client such as NickServ.
	// See IsServices.
	Special bool
}

// String reconstructs the fullhost (nick!ident@address), or just the
// address if this User has no nickname (a server-only prefix).
func (u User) String() string {
	if u.Nickname == "" {
		return u.Address
	}
	if u.Ident == "" && u.Address == "" {
		return u.Nickname
	}
	return u.Nickname + "!" + u.Ident + "@" + u.Address
}

// ParsePrefix implements the three-way split of a raw IRC message prefix
// (the part between the leading ':' and the next space). A prefix
// containing '!' is a full nick!ident@address hostmask; one without '!'
// but containing '.' is taken to be a bare server address; anything
// else is a bare nickname (some daemons send a prefix with no ident or
// address for their own pseudo-users).
func ParsePrefix(prefix string) User {
	if bang := strings.IndexByte(prefix, '!'); bang >= 0 {
		nick := prefix[:bang]
		rest := prefix[bang+1:]
		ident, address := rest, ""
		if at := strings.IndexByte(rest, '@'); at >= 0 {
			ident, address = rest[:at], rest[at+1:]
		}
		return User{Nickname: nick, Ident: ident, Address: address}
	}

	if strings.ContainsRune(prefix, '.') {
		return User{Address: prefix}
	}

	return User{Nickname: prefix}
}

// knownServiceNicks are nicknames that identify a services pseudo-client
// across the common daemons (Atheme, Anope, and their derivatives).
var knownServiceNicks = map[string]bool{
	"nickserv": true,
	"chanserv": true,
	"operserv": true,
	"memoserv": true,
	"hostserv": true,
	"botserv":  true,
	"infoserv": true,
	"global":   true,
	"alis":     true,
	"saslserv": true,
	"groupserv": true,
}

// sharedDomains counts how many trailing dot-separated labels two
// addresses have in common, e.g. sharedDomains("irc.foo.net",
// "services.foo.net") == 2 ("foo", "net").
func sharedDomains(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	shared := 0
	for i, j := len(as)-1, len(bs)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if !strings.EqualFold(as[i], bs[j]) {
			break
		}
		shared++
	}
	return shared
}

// IsServices applies the parser's ordered rules for deciding whether a
// sender is the server itself or a services pseudo-client, and thus not
// spoofable the way a regular user's nick!ident@address triple is.
// serverAddresses holds every address this Event's Server is known
// under (its connect address and its resolved address); isTwitch
// excludes rule 4 (shared-domain matching), which would otherwise
// misidentify ordinary Twitch chatters sharing the network's domain.
func IsServices(sender User, serverAddresses []string, isTwitch bool) bool {
	for _, addr := range serverAddresses {
		if addr != "" && strings.EqualFold(addr, sender.Address) {
			return true
		}
	}

	if knownServiceNicks[strings.ToLower(sender.Nickname)] {
		return true
	}

	if strings.EqualFold(sender.Nickname, "Q") &&
		strings.EqualFold(sender.Ident, "TheQBot") &&
		strings.EqualFold(sender.Address, "CServe.quakenet.org") {
		return true
	}
	if strings.EqualFold(sender.Nickname, "AuthServ") &&
		strings.EqualFold(sender.Address, "Services.GameSurge.net") {
		return true
	}

	if !isTwitch {
		for _, addr := range serverAddresses {
			if addr != "" && sharedDomains(sender.Address, addr) >= 2 {
				return true
			}
		}
	}

	if strings.Contains(sender.Address, "/staff/") {
		return true
	}

	return false
}
