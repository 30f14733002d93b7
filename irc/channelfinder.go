package irc

import (
	"regexp"
	"strings"
)

const (
	// nChannelsAssumed is the number of channels assumed to be in each irc message
	// if this number is too small, there could be memory thrashing due to append
	nChannelsAssumed = 1
)

// channelRegexp stores a cached regexp generated
type ChannelFinder struct {
	chantypes     string
	channelRegexp *regexp.Regexp
}

// CreateChannelFinder builds a ChannelFinder from the chantypes string given
// by a network's ISUPPORT CHANTYPES.
func CreateChannelFinder(chantypes string) (*ChannelFinder, error) {
	f := &ChannelFinder{chantypes: chantypes}
	if err := f.BuildRegex(chantypes); err != nil {
		return nil, err
	}
	return f, nil
}

// IsChannel checks to see if the target is a channel based on the chantypes
// this finder was built with.
func (c *ChannelFinder) IsChannel(target string) bool {
	if len(target) == 0 {
		return false
	}
	return strings.ContainsRune(c.chantypes, rune(target[0]))
}

// BuildRegex creates a channel regex safely using the types that are passed in.
func (c *ChannelFinder) BuildRegex(types string) error {
	safetypes := ""
	for _, c := range types {
		safetypes += string(`\`) + string(c)
	}
	regex, err := regexp.Compile(`[` + safetypes + `][^\s,]+`)
	if err == nil {
		c.channelRegexp = regex
	}
	return err
}

// FindChannels retrieves all the channels in the string using a cached regex
// created using ProtoCaps.
func (c *ChannelFinder) FindChannels(msg string) []string {
	channels := make([]string, 0, nChannelsAssumed)

	for _, v := range c.channelRegexp.FindAllString(msg, -1) {
		channels = append(channels, v)
	}

	return channels
}
