// Command rivulet runs a rivulet bot using a config file optionally
// overridden by command line flags.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/rivulet-irc/rivulet/bot"
	"github.com/rivulet-irc/rivulet/config"
)

// version is reported by --version.
const version = "0.1.0"

// clearSentinel is the value that clears a list or string flag instead of
// setting it, per the CLI's external interface contract.
const clearSentinel = "-"

type options struct {
	Nickname      string   `long:"nickname" description:"Nickname to use on the network"`
	Server        string   `long:"server" description:"Server address (host:port) to connect to"`
	Port          string   `long:"port" description:"Port to connect to, if not part of --server"`
	Account       string   `long:"account" description:"Account name to authenticate with"`
	Password      string   `long:"password" description:"Account/services password"`
	ServerPass    string   `long:"pass" description:"Server connection password"`
	Admins        []string `long:"admins" description:"Nicknames/accounts granted bot-admin access"`
	HomeChannels  []string `long:"homeChannels" description:"Channels joined with full trust"`
	GuestChannels []string `long:"guestChannels" description:"Channels joined passively"`
	Append        bool     `short:"a" description:"Append to channel lists instead of replacing them"`
	Settings      bool     `long:"settings" description:"Print the effective settings and exit"`
	Bright        bool     `long:"bright" description:"Use a colour scheme suited to light terminals"`
	Monochrome    bool     `long:"monochrome" description:"Disable coloured output"`
	Set           []string `long:"set" description:"Set a plugin option: plugin.option=value" value-name:"plugin.option=value"`
	ConfigPath    string   `long:"config" description:"Path to the config file" default:"config.toml"`
	WriteConfig   bool     `long:"writeconfig" description:"Write the effective config to --config and exit"`
	Version       bool     `long:"version" description:"Print the version and exit"`
}

// exit codes per the CLI's external interface contract.
const (
	exitSuccess = 0
	exitFatal   = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return exitSuccess
		}
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}

	if opts.Version {
		fmt.Println("rivulet", version)
		return exitSuccess
	}

	cfg := config.New().FromFile(opts.ConfigPath)
	applyOptions(cfg, &opts)

	for _, setFlag := range opts.Set {
		plugin, option, value, err := parsePluginSet(setFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFatal
		}
		cfg.SetPluginOption(plugin, option, value)
	}

	if opts.Settings {
		if err := cfg.ToWriter(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, errors.Wrap(err, "rivulet: could not print settings"))
			return exitFatal
		}
		return exitSuccess
	}

	if code := checkCompleteness(cfg, &opts); code != exitSuccess {
		return code
	}

	if opts.WriteConfig {
		if err := cfg.ToFile(opts.ConfigPath); err != nil {
			fmt.Fprintln(os.Stderr, errors.Wrap(err, "rivulet: could not write config"))
			return exitFatal
		}
		return exitSuccess
	}

	var b *bot.Bot
	var err error
	if opts.Bright || opts.Monochrome {
		b, err = bot.NewWithLogger(cfg, bot.NewLogHandler(opts.Bright, opts.Monochrome))
	} else {
		b, err = bot.New(cfg)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "rivulet: could not create bot"))
		return exitFatal
	}
	defer b.Close()

	return runUntilDead(b)
}

// runUntilDead starts the bot and blocks until it's told to shut down via
// keyboard input, an interrupt signal, or every network dying out.
func runUntilDead(b *bot.Bot) int {
	end := b.Start()

	input, quit := make(chan int), make(chan os.Signal, 2)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Scan()
		input <- 0
	}()

	signal.Notify(quit, os.Interrupt, os.Kill)

	for {
		select {
		case <-input:
			b.Stop()
			return exitSuccess
		case <-quit:
			b.Stop()
			return exitSuccess
		case err, ok := <-end:
			if ok {
				b.Info("Server death", "err", err)
				return exitFatal
			}
			return exitSuccess
		}
	}
}

// applyOptions overlays the CLI flags onto the global network context of
// cfg. A trailing "-" on a list or string flag clears that field instead
// of setting it; -a appends to existing channel lists instead of
// replacing them.
func applyOptions(cfg *config.Config, opts *options) {
	net := cfg.Network("")

	setStr := func(val string, set func(string)) {
		switch val {
		case "":
			return
		case clearSentinel:
			set("")
		default:
			set(val)
		}
	}

	setStr(opts.Nickname, func(v string) { net.SetNick(v) })
	setStr(opts.Account, func(v string) { net.SetUsername(v) })
	setStr(opts.ServerPass, func(v string) { net.SetPassword(v) })

	// The account password authenticates against services (SASL/NickServ),
	// not the server itself; SASL handshake details are a plugin's
	// concern (see Non-goals), so it's handed off as a plugin option
	// rather than stored on the network context.
	if len(opts.Password) > 0 && opts.Password != clearSentinel {
		cfg.SetPluginOption("auth", "password", opts.Password)
	}

	if len(opts.Server) > 0 {
		servers := []string{opts.Server}
		if opts.Server == clearSentinel {
			servers = nil
		} else if len(opts.Port) > 0 {
			servers = []string{opts.Server + ":" + opts.Port}
		}
		net.SetServers(servers)
	}

	applyChannelList(net.HomeChannels, net.SetHomeChannels, opts.HomeChannels, opts.Append)
	applyChannelList(net.GuestChannels, net.SetGuestChannels, opts.GuestChannels, opts.Append)
	applyChannelList(net.Admins, net.SetAdmins, opts.Admins, opts.Append)
}

func applyChannelList(
	get func() ([]string, bool), set func([]string) *config.NetCTX,
	flag []string, appendMode bool) {

	if len(flag) == 0 {
		return
	}

	if len(flag) == 1 && flag[0] == clearSentinel {
		set(nil)
		return
	}

	if appendMode {
		existing, _ := get()
		flag = append(existing, flag...)
	}
	set(flag)
}

// checkCompleteness enforces exit code 2: configuration incomplete (no
// admins and no home channels) when writing the config out.
func checkCompleteness(cfg *config.Config, opts *options) int {
	if !opts.WriteConfig {
		return exitSuccess
	}

	net := cfg.Network("")
	admins, _ := net.Admins()
	homes, _ := net.HomeChannels()
	if len(admins) == 0 && len(homes) == 0 {
		fmt.Fprintln(os.Stderr,
			"rivulet: configuration incomplete: no admins and no home channels")
		return exitConfig
	}

	return exitSuccess
}

// parsePluginSet splits a --set plugin.option=value flag into its parts.
func parsePluginSet(setFlag string) (plugin, option, value string, err error) {
	eq := strings.IndexByte(setFlag, '=')
	if eq < 0 {
		return "", "", "", errors.Errorf("rivulet: --set value %q is missing '='", setFlag)
	}

	key, value := setFlag[:eq], setFlag[eq+1:]
	dot := strings.IndexByte(key, '.')
	if dot < 0 {
		return "", "", "", errors.Errorf("rivulet: --set key %q is missing a plugin prefix", key)
	}

	return key[:dot], key[dot+1:], value, nil
}
