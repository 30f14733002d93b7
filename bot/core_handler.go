package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivulet-irc/rivulet/irc"
)

// coreHandler is the bot's main handling struct. As such it has access directly
// to the bot itself. It's used to deal with mission critical events such as
// pings, connects, disconnects etc.
type coreHandler struct {
	// The bot this core handler belongs to.
	bot *Bot

	// How many nicks have been sent.
	nickvalue int

	// untilJoinScale used to be for timed joins, retained for compatibility
	// with older configurations that specify a join delay.
	untilJoinScale time.Duration

	// Protect access to core Handler
	protect sync.RWMutex
}

// HandleRaw implements the dispatch.EventHandler interface so the bot can
// deal with all irc messages coming in.
func (c *coreHandler) HandleRaw(w irc.Writer, ev *irc.Event) {
	server := c.getServer(ev)
	if server == nil {
		return
	}

	switch ev.Name {

	case irc.PING:
		w.Send(irc.PONG + " :" + ev.Args[0])

	case irc.CONNECT:
		cfg := server.conf.Network(server.networkID)
		c.protect.Lock()
		c.nickvalue = 0
		c.protect.Unlock()

		nick, _ := cfg.Nick()
		username, _ := cfg.Username()
		realname, _ := cfg.Realname()
		w.Send("NICK :" + nick)
		w.Send(fmt.Sprintf("USER %v 0 * :%v", username, realname))

	case irc.ERR_NICKNAMEINUSE:
		cfg := server.conf.Network(server.networkID)
		c.protect.Lock()
		var nick string
		altnick, hasAlt := cfg.Altnick()
		if c.nickvalue == 0 && hasAlt && len(altnick) > 0 {
			nick = altnick
			c.nickvalue++
		} else {
			nick, _ = cfg.Nick()
			for i := 0; i < c.nickvalue; i++ {
				nick += "_"
			}
			c.nickvalue++
		}
		c.protect.Unlock()
		w.Send("NICK :" + nick)

	case irc.JOIN:
		server.protectState.RLock()
		defer server.protectState.RUnlock()
		if server.state != nil {
			if ev.Sender == server.state.Self.String() {
				w.Send("WHO :", ev.Args[0])
				w.Send("MODE :", ev.Args[0])
			}
		}

	case irc.RPL_MYINFO:
		server.netInfo.ParseMyInfo(ev)
		server.rehashProtocaps()

	case irc.RPL_ISUPPORT:
		server.netInfo.ParseISupport(ev)
		server.rehashProtocaps()
	}
}

// getServer is a helper to look up the server an event originated on.
func (c *coreHandler) getServer(ev *irc.Event) *Server {
	c.bot.protectServers.RLock()
	defer c.bot.protectServers.RUnlock()
	return c.bot.servers[ev.NetworkID]
}
