package irc

import "strings"

// DaemonTag identifies the ircd implementation a connection is talking
// to. It governs which numeric replies get reinterpreted by Phase 3 of
// the parser: most daemons agree on the RFC1459/2812 basics, but a
// handful of numerics diverge between implementations (a given code
// means one thing on one daemon and something else on another).
type DaemonTag string

const (
	DaemonUnknown   DaemonTag = "unknown"
	DaemonUnreal    DaemonTag = "unreal"
	DaemonInspircd  DaemonTag = "inspircd"
	DaemonU2        DaemonTag = "u2"
	DaemonBahamut   DaemonTag = "bahamut"
	DaemonRatbox    DaemonTag = "ratbox"
	DaemonHybrid    DaemonTag = "hybrid"
	DaemonIrcdSeven DaemonTag = "ircdseven"
	DaemonCharybdis DaemonTag = "charybdis"
	DaemonRizon     DaemonTag = "rizon"
	DaemonIrcu      DaemonTag = "ircu"
	DaemonRFC1459   DaemonTag = "rfc1459"
	DaemonRFC2812   DaemonTag = "rfc2812"
	DaemonTwitch    DaemonTag = "twitch"
)

// daemonIdents maps a case-insensitive substring of a server's 004
// IRCD field (or, for Twitch, its network name) to the DaemonTag it
// identifies. Entries are checked in slice order and the first whose
// substring is found wins.
var daemonIdents = []struct {
	substr string
	tag    DaemonTag
}{
	{"unreal", DaemonUnreal},
	{"inspircd", DaemonInspircd},
	{"bahamut", DaemonBahamut},
	{"u2.", DaemonU2},
	{"ircd-ratbox", DaemonRatbox},
	{"ratbox", DaemonRatbox},
	{"ircd-hybrid", DaemonHybrid},
	{"hybrid", DaemonHybrid},
	{"ircd-seven", DaemonIrcdSeven},
	{"charybdis", DaemonCharybdis},
	{"rizon", DaemonRizon},
	{"ircu", DaemonIrcu},
}

// IdentifyDaemon guesses a DaemonTag from the IRCD version string a
// server reports in its 004, falling back to DaemonUnknown. Twitch
// never sends a conventional 004 at all, so its daemon tag is set
// directly by whoever establishes the connection rather than through
// this function.
func IdentifyDaemon(ircdVersion string) DaemonTag {
	lower := strings.ToLower(ircdVersion)
	for _, entry := range daemonIdents {
		if strings.Contains(lower, entry.substr) {
			return entry.tag
		}
	}
	return DaemonUnknown
}

// baseNumericKinds is the default numeric-to-Kind table, covering the
// numerics Phase 4 gives special treatment regardless of daemon.
var baseNumericKinds = map[int]Kind{
	4:   KindRPLMyInfo,
	5:   KindRPLISupport,
	330: KindRPLWhoisAccount,
	900: KindRPLLoggedIn,
}

// Per-daemon overlay tables. A daemon not listed here, or a numeric not
// listed in its overlay, falls back to baseNumericKinds and then
// KindNUMERIC. These are deliberately sparse: they hold only the
// numerics known to diverge from the base table, not an exhaustive
// 0-999 enumeration.
var (
	hybridOverlay = map[int]Kind{
		338: KindCTCPUnknown, // RPL_CHANACTIVE-style IRCu/Hybrid divergence on 338
	}
	ratboxOverlay = map[int]Kind{
		338: KindCTCPUnknown,
	}
	charybdisOverlay = map[int]Kind{
		730: KindUNKNOWN, // RPL_MONONLINE
		731: KindUNKNOWN, // RPL_MONOFFLINE
	}
)

// daemonOverlays maps a DaemonTag to the overlay(s) it melds onto the
// base table, in meld order. ircdseven is explicitly the union of
// hybrid, ratbox, and charybdis, reflecting its lineage.
var daemonOverlays = map[DaemonTag][]map[int]Kind{
	DaemonHybrid:    {hybridOverlay},
	DaemonRatbox:    {ratboxOverlay},
	DaemonCharybdis: {charybdisOverlay},
	DaemonIrcdSeven: {hybridOverlay, ratboxOverlay, charybdisOverlay},
}

// numericTable is the melded numeric-to-Kind lookup for a connection's
// identified daemon. It's rebuilt by setDaemon and is otherwise
// read-only once built, so it's safe to share across goroutines.
type numericTable map[int]Kind

// buildNumericTable clears to the base table and melds in tag's
// overlay(s), if any. An unset-in-target entry is filled from the
// overlay; an entry the base table already set is left alone, so an
// overlay can only add coverage, never override the base meaning of a
// numeric the base table already assigns.
func buildNumericTable(tag DaemonTag) numericTable {
	table := make(numericTable, len(baseNumericKinds))
	for num, kind := range baseNumericKinds {
		table[num] = kind
	}

	for _, overlay := range daemonOverlays[tag] {
		for num, kind := range overlay {
			if _, set := table[num]; !set {
				table[num] = kind
			}
		}
	}

	return table
}

// Kind looks up the Kind for a numeric, falling back to KindNUMERIC for
// anything the table doesn't specifically classify.
func (t numericTable) Kind(num int) Kind {
	if kind, ok := t[num]; ok {
		return kind
	}
	return KindNUMERIC
}

// BaseNumericKind looks up num in the base (no daemon overlay) table.
// Used by the parser when it has no NetworkInfo to consult yet.
func BaseNumericKind(num int) Kind {
	return buildNumericTable(DaemonUnknown).Kind(num)
}
