package data

import (
	"encoding/json"
	"strings"

	"github.com/rivulet-irc/rivulet/irc"
)

const (
	// banMode is the universal irc mode for bans
	banMode = 'b'
)

// Channel encapsulates all the data associated with a channel: its topic,
// and the modes (including the ban list) set upon it.
type Channel struct {
	Name  string `json:"name"`
	Topic string `json:"topic"`

	ChannelModes `json:"channel_modes"`
}

// NewChannel instantiates a channel object. Returns nil if name is empty.
func NewChannel(name string, kinds *modeKinds) *Channel {
	if len(name) == 0 {
		return nil
	}

	return &Channel{
		Name:         name,
		ChannelModes: NewChannelModes(kinds),
	}
}

type channelJSON struct {
	Name         string       `json:"name"`
	Topic        string       `json:"topic"`
	ChannelModes ChannelModes `json:"channel_modes"`
}

// MarshalJSON turns Channel -> JSON, keeping the embedded ChannelModes
// under its own key rather than promoting its Marshaler.
func (c Channel) MarshalJSON() ([]byte, error) {
	return json.Marshal(channelJSON{c.Name, c.Topic, c.ChannelModes})
}

// UnmarshalJSON turns JSON -> Channel.
func (c *Channel) UnmarshalJSON(b []byte) error {
	var fromJSON channelJSON
	if err := json.Unmarshal(b, &fromJSON); err != nil {
		return err
	}

	c.Name = fromJSON.Name
	c.Topic = fromJSON.Topic
	c.ChannelModes = fromJSON.ChannelModes
	return nil
}

// IsBanned checks a mask to see if it's banned.
func (c *Channel) IsBanned(mask string) bool {
	if !strings.ContainsAny(mask, "!@") {
		mask += "!@"
	}
	bans := c.Addresses(banMode)
	for i := 0; i < len(bans); i++ {
		if irc.WildMask(bans[i]).Match(irc.Mask(mask)) {
			return true
		}
	}

	return false
}

// SetBans replaces the channel's bans with the given list.
func (c *Channel) SetBans(bans []string) {
	c.addresses -= len(c.addressModes[banMode])
	delete(c.addressModes, banMode)
	for i := 0; i < len(bans); i++ {
		c.setAddress(banMode, bans[i])
	}
}

// AddBan adds to the channel's bans.
func (c *Channel) AddBan(ban string) {
	c.setAddress(banMode, ban)
}

// Bans gets the bans of the channel.
func (c *Channel) Bans() []string {
	addrs := c.Addresses(banMode)
	if addrs == nil {
		return nil
	}
	bans := make([]string, len(addrs))
	copy(bans, addrs)
	return bans
}

// HasBan checks to see if a specific mask is present in the banlist.
func (c *Channel) HasBan(ban string) bool {
	return c.isAddressSet(banMode, ban)
}

// DeleteBan deletes a ban from the list.
func (c *Channel) DeleteBan(ban string) {
	c.unsetAddress(banMode, ban)
}

// String returns the name of the channel.
func (c *Channel) String() string {
	return c.Name
}

// DeleteBans deletes all bans that match a mask.
func (c *Channel) DeleteBans(mask string) {
	bans := c.Addresses(banMode)
	if 0 == len(bans) {
		return
	}

	if !strings.ContainsAny(mask, "!@") {
		mask += "!@"
	}

	toRemove := make([]string, 0, 1) // Assume only one ban will match.
	for i := 0; i < len(bans); i++ {
		if irc.WildMask(bans[i]).Match(irc.Mask(mask)) {
			toRemove = append(toRemove, bans[i])
		}
	}

	for i := 0; i < len(toRemove); i++ {
		c.unsetAddress(banMode, toRemove[i])
	}
}
