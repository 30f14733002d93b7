/*
Package config creates a configuration using toml.

An example configuration looks like this:
	# Anything defined here provides fallback defaults for all networks.
	# except the immediately following fields which are global-only.
	# In other words, all values you see in the network definition can be
	# defined here and all servers will use those values unless they have their
	# own defined.
	storefile = "/path/to/store/file.db"
	nocorecmds = false

	[networks.ircnet]
		servers = ["localhost:3333", "server.com:6667"]

		nick = "Nick"
		altnick = "Altnick"
		username = "Username"
		realname = "Realname"
		password = "Password"

		ssl = true
		sslcert = "/path/to/a.crt"
		noverifycert = false

		nostate = false
		nostore = false

		throttlek = -1.2
		throttleburst = 3.0
		throttleincrement = 1.0

		keepalive = 60.0

		noreconnect = false
		reconnecttimeout = 20

		# Optional, this is the hardcoded default value, you can set it if
		# you don't feel like writing prefix in the channels all the time.
		prefix = "."

		[[networks.ircnet.channels]]
			name = "#channel1"
			password = "password"
			prefix = "!"

	# Ext provides defaults for all exts, much as the global definitions provide
	# defaults for all networks.
	[ext]
		# Define listen to create a extension server for extensions to connect
		listen = "localhost:3333"
		# OR
		listen = "/path/to/unix.sock"

		# Define the execdir to start all executables in the path.
		execdir = "/path/to/executables"

		# Control reconnection for remote extensions.
		noreconnect = false
		reconnecttimeout = 20

		# Ext configuration is deeply nested so we can configure it globally
		# based on the network, or based on the channel on that network, or even
		# on all channels on that network.
		[ext.config] # Global config value
			key = "stringvalue"
		[ext.config.channels.#channel] # All networks for #channel
			key = "stringvalue"
		[ext.config.networks.ircnet.config] # All channels on ircnet network
			key = "stringvalue"
		[ext.config.networks.ircnet.channels.#channel] # Freenode's #channel
			key = "stringvalue"

	[exts.myext]
		# Define exec to specify a path to the executable to launch.
		exec = "/path/to/executable"

		# Defining this means that the bot will try to connect to this extension
		# rather than expecting it to connect to the listen server above.
		server = ["localhost:44", "server.com:4444"]
		ssl = true
		sslcert = "/path/to/a.crt"
		noverifycert = false

		# Define the above connection properties, or simply this one property.
		unix = "/path/to/sock.sock"

		# Use json not gob.
		usejson = false

		[exts.myext.active]
			ircnet = ["#channel1", "#channel2"]

Once again note the fallback mechanisms between network and the "global scope"
as well as the exts and ext. This can save you lots of repetitive typing.

The [ext] and [exts] sections are only checked for value types by Validate.
No code in this module reads their values: no extension server is started
and no extension executable is launched.
*/
package config

import (
	"sync"

	"gopkg.in/inconshreveable/log15.v2"
)

const (
	// defaultIrcPort is IRC Network'n default tcp port.
	defaultIrcPort = uint16(6667)
	// defaultStoreFile is where the bot will store it'n Store database if not
	// overridden.
	defaultStoreFile = "./store.db"
	// defaultThrottleK is the default linear-decay rate of the send
	// throttle, in message-weight per second. See spec 4.5.
	defaultThrottleK = -1.2
	// defaultThrottleBurst is the default weight above which a message is
	// held rather than released.
	defaultThrottleBurst = 3.0
	// defaultThrottleIncrement is the default weight added on every
	// released message.
	defaultThrottleIncrement = 1.0
	// defaultKeepAlive is the default number of seconds to wait on an idle
	// connection before sending a ping.
	defaultKeepAlive = 60.0
	// defaultReconnectTimeout is how many seconds to wait between reconns.
	defaultReconnectTimeout = uint(20)
	// defaultPrefix is the command prefix by default
	defaultPrefix = '.'
)

// The following format strings are for formatting various config errors.
const (
	fmtErrInvalid          = "config(%v): Invalid %v, given: %v"
	fmtErrMissing          = "config(%v): Requires %v, but nothing was given."
	fmtErrNetworkNotFound  = "config: Network not found, given: %v"
	errMsgNetworksRequired = "config: At least one network is required."
	errMsgDuplicateNetwork = "config: Network names must be unique, use .Host()"
)

// Config holds all the information related to the bot including global settings
// default settings, and network specific settings.
type Config struct {
	values mp

	errors   errList      `toml:"-" json:"-"`
	filename string       `toml:"-" json:"-"`
	protect  sync.RWMutex `toml:"-" json:"-"`
}

// NewConfig initializes a Config object.
func NewConfig() *Config {
	c := &Config{}
	c.clear()

	return c
}

// New initializes a Config object. Alias of NewConfig.
func New() *Config {
	return NewConfig()
}

// Clear re-initializes all memory in the configuration.
func (c *Config) Clear() {
	c.protect.Lock()
	defer c.protect.Unlock()

	c.clear()
}

// clear re-initializes all memory in the configuration without locking first.
func (c *Config) clear() {
	c.values = make(mp)
	c.errors = make(errList, 0)
	c.filename = ""
}

// Clone deep copies a configuration object.
func (c *Config) Clone() *Config {
	c.protect.RLock()
	defer c.protect.RUnlock()

	// ? :D
	return nil
}

// Filename returns fileName of the configuration, or the default.
func (c *Config) Filename() (filename string) {
	c.protect.RLock()
	defer c.protect.RUnlock()

	filename = defaultConfigFileName
	if len(c.filename) > 0 {
		filename = c.filename
	}
	return
}

// StoreFile gets the global storefile or defaultStoreFile.
func (c *Config) StoreFile() (storefile string) {
	c.protect.RLock()
	defer c.protect.RUnlock()

	storefile = defaultStoreFile
	if val, ok := c.getStr("storefile"); ok {
		storefile = val
	}
	return storefile
}

// LogFile gets the configured log file path, if any.
func (c *Config) LogFile() (string, bool) {
	c.protect.RLock()
	defer c.protect.RUnlock()
	return c.getStr("logfile")
}

// LogLevel gets the configured log level, if any.
func (c *Config) LogLevel() (string, bool) {
	c.protect.RLock()
	defer c.protect.RUnlock()
	return c.getStr("loglevel")
}

func (c *Config) getStr(key string) (string, bool) {
	if val, ok := c.values[key]; ok {
		if str, ok := val.(string); ok && len(str) > 0 {
			return str, true
		}
	}

	return "", false
}

// Network returns a context scoped to the given network id. Passing the
// empty string returns the global network context, whose values serve as
// defaults for every other network.
func (c *Config) Network(netID string) *NetCTX {
	c.protect.RLock()
	defer c.protect.RUnlock()

	if len(netID) == 0 {
		return &NetCTX{&c.protect, nil, c.values}
	}

	network := c.values.get("networks").get(netID)
	return &NetCTX{&c.protect, c.values, network}
}

// NewNetwork creates (if necessary) and returns a context scoped to the
// given network id.
func (c *Config) NewNetwork(netID string) *NetCTX {
	c.protect.Lock()
	nets := c.values.get("networks")
	if nets == nil {
		nets = make(mp)
		c.values["networks"] = map[string]interface{}(nets)
	}
	if _, ok := nets[netID]; !ok {
		nets[netID] = make(map[string]interface{})
	}
	c.protect.Unlock()

	return c.Network(netID)
}

// Networks returns the list of configured network ids.
func (c *Config) Networks() []string {
	c.protect.RLock()
	defer c.protect.RUnlock()

	nets := c.values.get("networks")
	names := make([]string, 0, len(nets))
	for name := range nets {
		names = append(names, name)
	}
	return names
}

// PluginOption returns a plugin-scoped config value set via SetPluginOption
// or a [plugins.name] section of the config file.
func (c *Config) PluginOption(plugin, option string) (string, bool) {
	c.protect.RLock()
	defer c.protect.RUnlock()

	val, ok := c.values.get("plugins").get(plugin)[option]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// SetPluginOption sets a plugin-scoped config value, creating the plugin's
// section if necessary. This is how --set plugin.option=value and other
// plugin-specific CLI flags reach a plugin's own configuration; the core
// only stores the value; interpreting it is the plugin's concern.
func (c *Config) SetPluginOption(plugin, option, value string) {
	c.protect.Lock()
	defer c.protect.Unlock()

	plugins := c.values.get("plugins")
	if plugins == nil {
		plugins = make(mp)
		c.values["plugins"] = map[string]interface{}(plugins)
	}

	section := plugins.get(plugin)
	if section == nil {
		section = make(mp)
		plugins[plugin] = map[string]interface{}(section)
	}

	section[option] = value
}

// DisplayErrors is a helper function to log the output of all config errors
// to the given logger.
func (c *Config) DisplayErrors(logger log15.Logger) {
	c.protect.RLock()
	defer c.protect.RUnlock()

	for _, e := range c.errors {
		logger.Error(e.Error())
	}
}
