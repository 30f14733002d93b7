package irc

import "strings"

// Used to record the server settings, aids in parsing irc protocol.
//
// ProtoCaps is the slim snapshot threaded through the dispatch package,
// which only ever needs to answer "is this target a channel?". The
// fuller NetworkInfo type (casemapping, length limits, the daemon
// table, ...) is what the parser itself consults.
type ProtoCaps struct {
	// The channel types supported by the server, usually &#~
	Chantypes string
	// The user prefix and symbol mapping (ov)@+
	Prefix string
	// The status message, whatever this means @+
	Statusmsg string
	// The channel modes allowed to be set by the server.
	Chanmodes string
}

// CreateProtoCaps builds a ProtoCaps with RFC-default capabilities, to
// be narrowed by ISUPPORT once a connection is established.
func CreateProtoCaps() *ProtoCaps {
	return &ProtoCaps{
		Chantypes: INFO_DEFAULT_CHANTYPES,
		Prefix:    INFO_DEFAULT_PREFIX,
		Chanmodes: INFO_DEFAULT_CHANMODES,
	}
}

// IsChannel checks whether target begins with one of this ProtoCaps'
// channel-type prefix characters.
func (p *ProtoCaps) IsChannel(target string) bool {
	return len(target) > 0 && strings.ContainsRune(p.Chantypes, rune(target[0]))
}

// FromNetworkInfo narrows this ProtoCaps to match a live NetworkInfo,
// as happens once ISUPPORT/MYINFO have been processed for a connection.
func (p *ProtoCaps) FromNetworkInfo(ni *NetworkInfo) {
	p.Chantypes = ni.Chantypes()
	p.Prefix = ni.Prefix()
	p.Chanmodes = ni.Chanmodes()
}

// ParseISupport updates the four capabilities ProtoCaps tracks from a
// 005 event's key=value arguments, ignoring everything else (a fuller
// NetworkInfo should be used to capture the rest of ISUPPORT).
func (p *ProtoCaps) ParseISupport(e *Event) {
	for _, arg := range e.Args[1:] {
		eq := strings.IndexByte(arg, '=')
		if eq < 0 {
			continue
		}
		name, value := arg[:eq], arg[eq+1:]
		switch name {
		case INFO_CHANTYPES:
			p.Chantypes = value
		case INFO_PREFIX:
			p.Prefix = value
		case INFO_CHANMODES:
			p.Chanmodes = value
		case "STATUSMSG":
			p.Statusmsg = value
		}
	}
}
