package dispatch

import "github.com/rivulet-irc/rivulet/irc"

// PrivmsgHandler is for handling privmsgs going to channel or user targets.
type PrivmsgHandler interface {
	Privmsg(ev *irc.Event, w irc.Writer)
}

// PrivmsgUserHandler is for handling privmsgs going to user targets.
type PrivmsgUserHandler interface {
	PrivmsgUser(ev *irc.Event, w irc.Writer)
}

// PrivmsgChannelHandler is for handling privmsgs going to channel targets.
type PrivmsgChannelHandler interface {
	PrivmsgChannel(ev *irc.Event, w irc.Writer)
}

// NoticeHandler is for handling notices going to channel or user targets.
type NoticeHandler interface {
	Notice(ev *irc.Event, w irc.Writer)
}

// NoticeUserHandler is for handling notices going to user targets.
type NoticeUserHandler interface {
	NoticeUser(ev *irc.Event, w irc.Writer)
}

// NoticeChannelHandler is for handling notices going to channel targets.
type NoticeChannelHandler interface {
	NoticeChannel(ev *irc.Event, w irc.Writer)
}

// CTCPHandler is for handling any ctcp request not claimed by a more
// specific handler.
type CTCPHandler interface {
	CTCP(ev *irc.Event, tag, data string, w irc.Writer)
}

// CTCPChannelHandler is for handling ctcp requests sent to a channel.
type CTCPChannelHandler interface {
	CTCPChannel(ev *irc.Event, tag, data string, w irc.Writer)
}

// CTCPReplyHandler is for handling ctcp replies, which arrive as notices.
type CTCPReplyHandler interface {
	CTCPReply(ev *irc.Event, tag, data string, w irc.Writer)
}
