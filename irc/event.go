/*
Package irc defines types to be used by most other packages in the
rivulet irc client/bot framework. It is small and comprised mostly of
helper like types and constants.
*/
package irc

import (
	"bytes"
	"strings"
	"time"
)

// Event contains all the information about an irc event.
//
// Name/Sender/Args are the raw token split produced by Phase 1-3 of the
// parser (verb or numeric, prefix, space-delimited remainder) and are
// what the rest of the tree has always consumed. Type/Num/SenderUser/
// TargetUser/Channel/Content/Aux/Tags/Raw are the richer, per-kind
// fields Phase 4 fills in on top of that base; a handler that only
// cares about the classic shape can keep ignoring them.
type Event struct {
	// Name of the event. Uppercase constant name or numeric.
	Name string
	// Sender is the server or user that sent the event, normally a fullhost.
	Sender string
	// Args split by space delimiting.
	Args []string
	// Times is the time this event was received.
	Time time.Time
	// NetworkID is the ID of the network that sent this event.
	NetworkID string
	// NetworkInfo is the networks information.
	NetworkInfo *NetworkInfo

	// Type is the closed-enum classification Phase 4 assigned this
	// event, e.g. KindCHAN vs KindSELFCHAN vs KindQUERY for a PRIVMSG.
	Type Kind
	// Num is the numeric reply code, or 0 for non-numeric events.
	Num int
	// SenderUser is Sender parsed into its constituent fields, with
	// Special set by the services-identification rules.
	SenderUser *User
	// TargetUser is the destination user for user-directed events
	// (PRIVMSG/NOTICE to a nick, KICK's victim, ...). Nil when the
	// event has no single user target.
	TargetUser *User
	// Channel is the channel this event concerns, if any.
	Channel string
	// Content is the event's message body: a PRIVMSG/NOTICE's trailing
	// text with any CTCP framing already stripped, a KICK's reason, etc.
	Content string
	// Aux is a secondary string that doesn't fit Channel/Content, e.g.
	// a NICK event's new nickname or a MODE event's argument string.
	Aux string
	// Tags is the undecoded IRCv3 "@key=value;..." blob, sans the
	// leading '@' and trailing space, or empty if the line carried none.
	Tags string
	// Raw is the original line exactly as received, before any parsing.
	Raw string

	// Warnings accumulates non-fatal sanity-check messages noticed
	// while specializing this event (Phase 4). These are informational:
	// the event is still returned and dispatched normally.
	Warnings []string
}

// NewEvent constructs a event object that has a timestamp.
func NewEvent(netID string, ni *NetworkInfo, name, sender string,
	args ...string) *Event {

	var setArgs []string
	if len(args) > 0 {
		setArgs = make([]string, len(args))
		copy(setArgs, args)
	}
	return &Event{
		Name:        name,
		Sender:      sender,
		Args:        setArgs,
		Time:        time.Now().UTC(),
		NetworkID:   netID,
		NetworkInfo: ni,
	}
}

// Nick returns the nick of the sender. Will be empty string if it was
// not able to parse the sender.
func (e *Event) Nick() string {
	return Nick(e.Sender)
}

// Username returns the username of the sender. Will be empty string if it was
// not able to parse the sender.
func (e *Event) Username() string {
	return Username(e.Sender)
}

// Hostname returns the host of the sender. Will be empty string if it was
// not able to parse the sender.
func (e *Event) Hostname() string {
	return Hostname(e.Sender)
}

// SplitHost splits the sender into it's fragments: nick, user, and hostname.
// If the format is not acceptable empty string is returned for everything.
func (e *Event) SplitHost() (nick, user, hostname string) {
	return Split(e.Sender)
}

// SplitArgs splits string arguments. A convenience method to avoid having to
// call splits and import strings.
func (e *Event) SplitArgs(index int) []string {
	return strings.Split(e.Args[index], ",")
}

// Target retrieves the channel or user this event was sent to. Before using
// this method it would be prudent to check that the Event.Name is a message
// that supports a Target argument.
func (e *Event) Target() string {
	return e.Args[0]
}

// IsTargetChan uses the underlying NetworkInfo to decide if this is a channel
// or not. If there is no NetworkInfo it will panic.
func (e *Event) IsTargetChan() bool {
	return e.NetworkInfo.IsChannel(e.Args[0])
}

// Message retrieves the message sent to the user or channel. Before using
// this method it would be prudent to check that the Event.Name is a message
// that supports a Message argument.
func (e *Event) Message() string {
	return e.Args[1]
}

// String turns this back into an IRC style message.
func (e *Event) String() string {
	b := &bytes.Buffer{}
	if len(e.Sender) > 0 {
		b.WriteByte(':')
		b.WriteString(e.Sender)
		b.WriteByte(' ')
	}
	b.WriteString(e.Name)

	lastArg := len(e.Args) - 1
	for i, arg := range e.Args {
		b.WriteByte(' ')
		if lastArg == i && strings.ContainsRune(arg, ' ') {
			b.WriteByte(':')
		}
		b.WriteString(arg)
	}

	return b.String()
}

// IsCTCP checks if this event is a CTCP event. This means it's delimited
// by the CTCPDelim as well as being PRIVMSG or NOTICE only.
func (e *Event) IsCTCP() bool {
	return (e.Name == PRIVMSG || e.Name == NOTICE) && len(e.Args) >= 2 &&
		IsCTCPString(e.Args[1])
}

// UnpackCTCP can be called to retrieve a tag and data from a CTCP event.
func (e *Event) UnpackCTCP() (tag, data string) {
	return CTCPunpackString(e.Args[1])
}
