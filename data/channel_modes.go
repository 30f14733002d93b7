package data

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/rivulet-irc/rivulet/irc"
)

// exemptionLetter is the mode letter ircds use for ban exceptions.
const exemptionLetter = 'e'

// banClassLetters are the address-mode letters that accumulate
// exemptions: an exemption entry immediately following one of these in
// the same modestring is folded onto that entry's Exemptions instead of
// being tracked as an address-mode entry of its own.
var banClassLetters = map[rune]bool{'b': true, 'q': true, 'I': true}

// Mode is a single entry of an address-list mode (ban, quiet, invex...).
// Raw is the mask or extban exactly as the server sent it. If Raw is an
// extban ($a:account, $~a:account$#arg, see irc.DecodeExtban), Account
// and Negated are populated from it; otherwise Raw is a plain
// nick!user@host-style mask.
//
// Exemptions is only ever populated on ban-class entries (b/q/I): it
// holds the masks/extbans of 'e' entries that arrived immediately after
// this one in the same Apply() call, the common "+b mask +e exempt"
// ircd idiom for scoping an exception to the ban beside it.
type Mode struct {
	Letter     rune
	Raw        string
	Account    string
	Negated    bool
	Exemptions []string
}

// newMode decodes raw (extban or plain mask) into a Mode for letter.
func newMode(letter rune, raw string) *Mode {
	mo := &Mode{Letter: letter, Raw: raw}
	if eb, ok := irc.DecodeExtban(raw); ok {
		mo.Account = eb.Account
		mo.Negated = eb.Negated
	}
	return mo
}

// Mask reports the nick!user@host-style mask this entry matches, empty
// if the entry is an extban rather than a plain mask.
func (mo *Mode) Mask() string {
	if len(mo.Raw) > 0 && mo.Raw[0] == '$' {
		return ""
	}
	return mo.Raw
}

// String returns the entry's wire representation.
func (mo *Mode) String() string {
	return mo.Raw
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ChannelModes encapsulates flag-based modestrings, setting and getting any
// modes and potentially using arguments as well. Some functions work with full
// modestrings containing both + and - characters, and some commands work with
// simple modestrings with are only positive or negative with the leading +/-
// omitted.
type ChannelModes struct {
	modes        map[rune]bool
	argModes     map[rune]string
	addressModes map[rune][]*Mode

	addresses int

	// lastBanClass is exemption-accumulation scratch state: the most
	// recently set/matched ban-class (banClassLetters) Mode within the
	// current Apply() call, so a following 'e' entry can fold onto it
	// instead of becoming its own address-mode entry. Reset at the start
	// of every Apply() - see resetBanScratch.
	lastBanClass *Mode

	*modeKinds
}

// NewChannelModes creates an empty ChannelModes.
func NewChannelModes(m *modeKinds) ChannelModes {
	return ChannelModes{
		modes:        make(map[rune]bool),
		argModes:     make(map[rune]string),
		addressModes: make(map[rune][]*Mode),
		modeKinds:    m,
	}
}

// Clone deep copies the ChannelModes.
func (m *ChannelModes) Clone() ChannelModes {
	cm := ChannelModes{
		modes:        make(map[rune]bool, len(m.modes)),
		argModes:     make(map[rune]string, len(m.argModes)),
		addressModes: make(map[rune][]*Mode, len(m.addressModes)),
		addresses:    m.addresses,
		modeKinds:    m.modeKinds,
	}

	for k, v := range m.modes {
		cm.modes[k] = v
	}
	for k, v := range m.argModes {
		cm.argModes[k] = v
	}
	for k, list := range m.addressModes {
		cloned := make([]*Mode, len(list))
		for i, mo := range list {
			dup := *mo
			dup.Exemptions = append([]string{}, mo.Exemptions...)
			cloned[i] = &dup
		}
		cm.addressModes[k] = cloned
	}

	return cm
}

type modeJSON struct {
	Raw        string   `json:"raw"`
	Account    string   `json:"account,omitempty"`
	Negated    bool     `json:"negated,omitempty"`
	Exemptions []string `json:"exemptions,omitempty"`
}

type channelModesJSON struct {
	Modes        map[string]bool       `json:"modes"`
	ArgModes     map[string]string     `json:"arg_modes"`
	AddressModes map[string][]modeJSON `json:"address_modes"`
	Addresses    int                   `json:"addresses"`
	ModeKinds    *modeKinds            `json:"mode_kinds"`
}

// MarshalJSON turns ChannelModes -> JSON
func (c ChannelModes) MarshalJSON() ([]byte, error) {
	var toJSON channelModesJSON

	if c.modes != nil {
		toJSON.Modes = make(map[string]bool, len(c.modes))
		for k, v := range c.modes {
			toJSON.Modes[string(k)] = v
		}
	}
	if c.argModes != nil {
		toJSON.ArgModes = make(map[string]string, len(c.argModes))
		for k, v := range c.argModes {
			toJSON.ArgModes[string(k)] = v
		}
	}
	if c.addressModes != nil {
		toJSON.AddressModes = make(map[string][]modeJSON, len(c.addressModes))
		for k, list := range c.addressModes {
			entries := make([]modeJSON, len(list))
			for i, mo := range list {
				entries[i] = modeJSON{
					Raw:        mo.Raw,
					Account:    mo.Account,
					Negated:    mo.Negated,
					Exemptions: append([]string{}, mo.Exemptions...),
				}
			}
			toJSON.AddressModes[string(k)] = entries
		}
	}

	toJSON.Addresses = c.addresses
	toJSON.ModeKinds = c.modeKinds

	return json.Marshal(toJSON)
}

// UnmarshalJSON turns JSON -> ChannelModes
func (c *ChannelModes) UnmarshalJSON(b []byte) error {
	var fromJSON channelModesJSON

	if err := json.Unmarshal(b, &fromJSON); err != nil {
		return err
	}

	if fromJSON.Modes != nil {
		c.modes = make(map[rune]bool, len(fromJSON.Modes))
		for k, v := range fromJSON.Modes {
			if len(k) != 1 {
				return errors.New("modes is a map of char to bool")
			}

			c.modes[rune(k[0])] = v
		}
	}
	if fromJSON.ArgModes != nil {
		c.argModes = make(map[rune]string, len(fromJSON.ArgModes))
		for k, v := range fromJSON.ArgModes {
			if len(k) != 1 {
				return errors.New("arg_modes is a map of char to string")
			}

			c.argModes[rune(k[0])] = v
		}
	}
	if fromJSON.AddressModes != nil {
		c.addressModes = make(map[rune][]*Mode, len(fromJSON.AddressModes))
		for k, entries := range fromJSON.AddressModes {
			if len(k) != 1 {
				return errors.New("address_modes is a map of char to []Mode")
			}

			letter := rune(k[0])
			list := make([]*Mode, len(entries))
			for i, e := range entries {
				list[i] = &Mode{
					Letter:     letter,
					Raw:        e.Raw,
					Account:    e.Account,
					Negated:    e.Negated,
					Exemptions: e.Exemptions,
				}
			}
			c.addressModes[letter] = list
		}
	}

	c.addresses = fromJSON.Addresses
	c.modeKinds = fromJSON.ModeKinds

	return nil
}

// resetBanScratch clears the exemption-accumulation state. Called at the
// start of every Apply() so accumulation never bleeds across calls.
func (m *ChannelModes) resetBanScratch() {
	m.lastBanClass = nil
}

// Apply takes a complex modestring and applies it to a an existing modeset.
// User prefix modes (such as o and v) are user-targeted (therefore taking an
// argument) and are returned in two arrays, positive and negative modes
// respectively. Any other mode not declared in the channel mode kinds is set
// or unset as a mode without an argument.
func (m *ChannelModes) Apply(modestring string) ([]userMode, []userMode) {
	m.resetBanScratch()
	return apply(m, modestring)
}

// ApplyDiff applies a ModeDiff to the current modeset instance.
func (m *ChannelModes) ApplyDiff(d *ModeDiff) {
	for mode := range d.pos.modes {
		m.setMode(mode)
	}
	for mode, arg := range d.pos.argModes {
		m.setArg(mode, arg)
	}

	d.pos.resetBanScratch()
	m.resetBanScratch()
	for mode, list := range d.pos.addressModes {
		for _, mo := range list {
			m.setAddress(mode, mo.Raw)
		}
	}

	for mode := range d.neg.modes {
		m.unsetMode(mode)
	}
	for mode, arg := range d.neg.argModes {
		m.unsetArg(mode, arg)
	}
	for mode, list := range d.neg.addressModes {
		for _, mo := range list {
			m.unsetAddress(mode, mo.Raw)
		}
	}
}

// String turns a ChannelModes into a simple string representation.
func (m *ChannelModes) String() string {
	length := len(m.modes)
	arglength := len(m.argModes) + m.addresses
	modes := make([]rune, length+arglength)
	args := make([]string, arglength)

	index := 0
	argIndex := 0

	for mode := range m.modes {
		modes[index] = mode
		index++
	}
	for mode, arg := range m.argModes {
		modes[index] = mode
		args[argIndex] = arg
		argIndex++
		index++
	}
	for mode, list := range m.addressModes {
		for _, mo := range list {
			modes[index] = mode
			args[argIndex] = mo.Raw
			argIndex++
			index++
		}
	}

	if argIndex == 0 {
		return string(modes)
	}
	return string(modes) + " " + strings.Join(args, " ")
}

// IsSet checks to see if the given modes are set using simple mode strings.
func (m *ChannelModes) IsSet(modestrs ...string) bool {
	modes, args := parseSimpleModestrings(modestrs...)
	if len(modes) == 0 {
		return false
	}

	used := 0

	for _, mode := range modes {
		kind := m.kind(mode)
		switch kind {
		case ARGS_ALWAYS, ARGS_ONSET, ARGS_ADDRESS:
			arg, found := "", false
			if used < len(args) {
				arg = args[used]
				used++
			}
			if kind == ARGS_ADDRESS {
				found = m.isAddressSet(mode, arg)
			} else {
				found = m.isArgSet(mode, arg)
			}
			if !found {
				return false
			}
		default:
			if !m.isModeSet(mode) {
				return false
			}
		}
	}

	return true
}

// Set sets modes using a simple mode string.
func (m *ChannelModes) Set(modestrs ...string) {
	modes, args := parseSimpleModestrings(modestrs...)
	if len(modes) == 0 {
		return
	}

	used := 0

	for _, mode := range modes {
		switch m.kind(mode) {
		case ARGS_ALWAYS, ARGS_ONSET:
			if used >= len(args) {
				break
			}
			m.setArg(mode, args[used])
			used++
		case ARGS_ADDRESS:
			if used >= len(args) {
				break
			}
			m.setAddress(mode, args[used])
			used++
		default:
			m.setMode(mode)
		}
	}
}

// Unset unsets modes using a simple mode string.
func (m *ChannelModes) Unset(modestrs ...string) {
	modes, args := parseSimpleModestrings(modestrs...)
	if len(modes) == 0 {
		return
	}

	used := 0

	for _, mode := range modes {

		switch m.kind(mode) {
		case ARGS_ALWAYS:
			if used >= len(args) {
				break
			}
			m.unsetArg(mode, args[used])
			used++
		case ARGS_ADDRESS:
			if used >= len(args) {
				break
			}
			m.unsetAddress(mode, args[used])
			used++
		case ARGS_ONSET:
			m.unsetArg(mode, "")
		default:
			m.unsetMode(mode)
		}
	}
}

// Arg returns the argument for the current mode. Empty string if the mode
// is not set.
func (m *ChannelModes) Arg(mode rune) string {
	return m.argModes[mode]
}

// Addresses returns the raw masks/extbans for the current mode. Nil if
// the mode is not set. This is a compatibility accessor over
// AddressModes for callers (like ban matching against irc.WildMask) that
// only need the wire-format string.
func (m *ChannelModes) Addresses(mode rune) []string {
	list := m.addressModes[mode]
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	for i, mo := range list {
		out[i] = mo.Raw
	}
	return out
}

// AddressModes returns the decoded Mode entries for mode, including any
// accumulated exemptions on ban-class letters. Nil if the mode is not set.
func (m *ChannelModes) AddressModes(mode rune) []*Mode {
	return m.addressModes[mode]
}

// isModeSet checks to see if a mode has been set.
func (m *ChannelModes) isModeSet(mode rune) bool {
	return m.modes[mode]
}

// setMode sets a mode.
func (m *ChannelModes) setMode(mode rune) {
	m.modes[mode] = true
}

// unsetMode unsets a mode.
func (m *ChannelModes) unsetMode(mode rune) {
	delete(m.modes, mode)
}

// isArgSet checks to see if a specific arg has been set for a mode, if arg is
// empty string simply checks for the modes existence.
func (m *ChannelModes) isArgSet(mode rune, arg string) bool {
	if check, has := m.argModes[mode]; has &&
		(len(arg) == 0 || arg == check) {

		return true
	}
	return false
}

// setArg sets an argument for a mode.
func (m *ChannelModes) setArg(mode rune, arg string) {
	m.argModes[mode] = arg
}

// unsetArg unsets an argument mode. If arg is not empty string, it will
// ensure the arg matches as well in order to unset.
func (m *ChannelModes) unsetArg(mode rune, arg string) {
	if check, has := m.argModes[mode]; has &&
		(len(arg) == 0 || arg == check) {

		delete(m.argModes, mode)
	}
}

// isAddressSet checks to see if a specific address is set in a mode, if address
// is empty string, simply checks for the modes existence.
func (m *ChannelModes) isAddressSet(mode rune, address string) bool {
	list, has := m.addressModes[mode]
	if !has {
		return false
	}
	if len(address) == 0 {
		return true
	}
	for _, mo := range list {
		if mo.Raw == address {
			return true
		}
	}
	return false
}

// setAddress sets an address for a mode. A letter of exemptionLetter folds
// onto the most recently touched ban-class entry from this Apply() call
// (the "+b mask +e exempt" idiom) instead of becoming its own entry,
// unless no ban-class entry has been seen yet, in which case it is
// tracked like any other address mode.
func (m *ChannelModes) setAddress(mode rune, address string) {
	if mode == exemptionLetter && m.lastBanClass != nil {
		if !containsString(m.lastBanClass.Exemptions, address) {
			m.lastBanClass.Exemptions = append(m.lastBanClass.Exemptions, address)
		}
		return
	}

	list := m.addressModes[mode]
	for _, mo := range list {
		if mo.Raw == address {
			if banClassLetters[mode] {
				m.lastBanClass = mo
			}
			return
		}
	}

	mo := newMode(mode, address)
	m.addressModes[mode] = append(list, mo)
	m.addresses++

	if banClassLetters[mode] {
		m.lastBanClass = mo
	}
}

// unsetAddress unsets an address for a mode. Removing the literal
// wildcard mask "*!*@*" with no exact match for that letter clears every
// entry for the letter - a quirk several ircds exhibit when a wildcard
// removal is sent against a list that was never populated with that
// exact literal.
func (m *ChannelModes) unsetAddress(mode rune, address string) {
	if mode == exemptionLetter {
		m.unsetExemption(address)
		return
	}

	list, has := m.addressModes[mode]
	if !has {
		return
	}

	i, lenaddr := 0, len(list)
	for ; i < lenaddr && list[i].Raw != address; i++ {
	}

	if i >= lenaddr {
		if address == "*!*@*" {
			delete(m.addressModes, mode)
			m.addresses -= lenaddr
			m.lastBanClass = nil
		}
		return
	}

	if m.lastBanClass == list[i] {
		m.lastBanClass = nil
	}

	if lenaddr == 1 {
		delete(m.addressModes, mode)
	} else {
		if i < lenaddr-1 {
			list[i], list[lenaddr-1] = list[lenaddr-1], list[i]
		}
		m.addressModes[mode] = list[:lenaddr-1]
	}
	m.addresses--
}

// unsetExemption removes address from whichever ban-class entry's
// Exemptions currently holds it.
func (m *ChannelModes) unsetExemption(address string) {
	for letter := range banClassLetters {
		for _, mo := range m.addressModes[letter] {
			for i, ex := range mo.Exemptions {
				if ex == address {
					mo.Exemptions = append(mo.Exemptions[:i], mo.Exemptions[i+1:]...)
					return
				}
			}
		}
	}
}

// isUserMode checks if the given mode belongs to the user mode kinds.
func (m ChannelModes) isUserMode(mode rune) (is bool) {
	if m.userPrefixes != nil {
		is = m.modeBit(mode) > 0
	}
	return is
}
