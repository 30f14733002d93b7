package data

import (
	"github.com/rivulet-irc/rivulet/irc"
)

// User encapsulates all the data associated with a user.
//
// State refreshes a known user's Realname from RPL_WHOREPLY through
// ApplyWhois. WHOIS replies (RPL_WHOISUSER, RPL_WHOISACCOUNT) are not
// handled, so Account and Ident are not refreshed from them.
type User struct {
	irc.Host `json:"host"`
	Realname string `json:"realname"`
	Account  string `json:"account"`

	// Special marks a user identified as network/channel services (e.g.
	// NickServ, ChanServ) per the prefix classification the parser
	// applies during connection registration. Mirrors irc.User.Special.
	Special bool `json:"special"`
}

// NewUser creates a user object from a nickname or fullhost.
func NewUser(nickorhost string) *User {
	if len(nickorhost) == 0 {
		return nil
	}

	return &User{
		Host: irc.Host(nickorhost),
	}
}

// String returns a one-line representation of this user.
func (u *User) String() string {
	str := u.Host.Nick()
	if fh := u.Host.String(); len(fh) > 0 && str != fh {
		str += " " + fh
	}
	if len(u.Realname) > 0 {
		str += " " + u.Realname
	}

	return str
}

// ApplyWhois merges fields learned from a WHOIS reply into the user,
// leaving any field not present in the reply untouched.
func (u *User) ApplyWhois(ident, host, realname, account string) {
	if len(ident) > 0 || len(host) > 0 {
		nick := u.Host.Nick()
		if len(ident) == 0 {
			ident = u.Host.Username()
		}
		if len(host) == 0 {
			host = u.Host.Hostname()
		}
		u.Host = irc.Host(nick + "!" + ident + "@" + host)
	}
	if len(realname) > 0 {
		u.Realname = realname
	}
	if len(account) > 0 {
		u.Account = account
	}
}
