package bot

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rivulet-irc/rivulet/config"
	"github.com/rivulet-irc/rivulet/data"
	"github.com/rivulet-irc/rivulet/inet"
	"github.com/rivulet-irc/rivulet/irc"
	"github.com/rivulet-irc/rivulet/parse"

	"gopkg.in/inconshreveable/log15.v2"
)

type Status byte

// Server Statuses
const (
	STATUS_STOPPED Status = iota
	STATUS_CONNECTING
	STATUS_STARTED
	STATUS_RECONNECTING
)

const (
	// errFmtAlreadyConnected occurs if a server has not been shutdown
	// before another attempt to connect to it is made.
	errFmtAlreadyConnected = "bot: %v already connected.\n"
)

var (
	// errNotConnected happens when a write occurs to a disconnected server.
	errNotConnected = errors.New("bot: Server not connected")
	// errFailedToLoadCertificate happens when we fail to parse the certificate
	errFailedToLoadCertificate = errors.New("bot: Failed to load certificate")
	// errServerKilledConn happens when the server is killed mid-connect.
	errServerKilledConn = errors.New("bot: Killed trying to connect.")
	// errNoServers happens when a network has no servers configured.
	errNoServers = errors.New("bot: No servers configured for network")
)

// connResult is used to return results from the channel patterns in
// createIrcClient
type connResult struct {
	conn net.Conn
	err  error
}

// certReader is for IoC of the createTlsConfig function.
type certReader func(string) (*x509.CertPool, error)

// Server is all the details around a specific server connection. Also contains
// the connection and configuration for the specific server.
type Server struct {
	bot *Bot
	log15.Logger

	networkID string
	netInfo   *irc.NetworkInfo

	// Status
	status          Status
	statusListeners [][]chan Status

	// Configuration
	conf *config.Config

	// Writing
	writer irc.Writer

	handlerID int
	handler   *coreHandler

	// State and Connection
	client      *inet.IrcClient
	started     bool
	state       *data.State
	reconnScale time.Duration
	killable    chan int

	// protects client reading/writing
	protect sync.RWMutex

	// protects the state from reading and writing.
	protectState sync.RWMutex
}

// parseContext builds the parse.Context this server's current
// connection state supports: self-nickname (once registration has
// populated state), configured server addresses for services
// identification, and a Twitch guess based on the network id, since
// Twitch's gateway never identifies itself via IRCD version string.
func (s *Server) parseContext() parse.Context {
	ctx := parse.Context{NetworkInfo: s.netInfo}

	s.protectState.RLock()
	if s.state != nil && s.state.Self.User != nil {
		ctx.SelfNick = s.state.Self.Nick()
	}
	s.protectState.RUnlock()

	if addrs, ok := s.conf.Network(s.networkID).Servers(); ok {
		ctx.ServerAddresses = addrs
	}

	ctx.IsTwitch = strings.Contains(strings.ToLower(s.networkID), "twitch")

	return ctx
}

// protocaps derives a simple ProtoCaps snapshot from the server's current
// network information, for components that don't need the full info.
func (s *Server) protocaps() *irc.ProtoCaps {
	return &irc.ProtoCaps{
		Chantypes: s.netInfo.Chantypes(),
		Chanmodes: s.netInfo.LegacyChanmodes(),
		Prefix:    s.netInfo.Prefix(),
	}
}

// Write writes to the server's IrcClient.
func (s *Server) Write(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	s.protect.RLock()
	defer s.protect.RUnlock()

	if s.GetStatus() != STATUS_STOPPED {
		return s.client.Write(buf)
	}

	return 0, errNotConnected
}

// createState creates the server's state tracker from its network info.
func (s *Server) createState() (err error) {
	s.state, err = data.NewState(s.netInfo)
	return err
}

// createIrcClient connects to the configured server, and creates an IrcClient
// for use with that connection. The returned bool reports whether the
// failure (if any) should be retried via reconnection.
func (s *Server) createIrcClient() (err error, retry bool) {
	if s.client != nil {
		return fmt.Errorf(errFmtAlreadyConnected, s.networkID), false
	}

	var result *connResult
	resultService := make(chan chan *connResult)
	resultChan := make(chan *connResult)

	go s.createConnection(resultService)

	select {
	case resultService <- resultChan:
		result = <-resultChan
		if result.err != nil {
			return result.err, true
		}
	case s.killable <- 0:
		close(resultService)
		return errServerKilledConn, false
	}

	cfg := s.conf.Network(s.networkID)

	throttle := inet.NewThrottle()
	if k, ok := cfg.ThrottleK(); ok {
		throttle.K = k
	}
	if burst, ok := cfg.ThrottleBurst(); ok {
		throttle.Burst = burst
	}
	if inc, ok := cfg.ThrottleIncrement(); ok {
		throttle.Increment = inc
	}

	keepalive, _ := cfg.KeepAlive()

	s.protect.Lock()
	s.client = inet.CreateIrcClient(result.conn, s.networkID,
		time.Duration(keepalive)*time.Second, throttle)
	s.protect.Unlock()
	return nil, true
}

// createConnection creates a connection based off the server receiver's
// config variables. It takes a chan of channels to return the result on.
// If the channel is closed before it can send it's result, it will close the
// connection automatically.
func (s *Server) createConnection(resultService chan chan *connResult) {
	cfg := s.conf.Network(s.networkID)

	r := &connResult{}

	servers, _ := cfg.Servers()
	if len(servers) == 0 {
		r.err = errNoServers
		resultChan := <-resultService
		resultChan <- r
		return
	}
	server := servers[0]

	ssl, _ := cfg.SSL()
	if s.bot.connProvider == nil {
		if ssl {
			var conf *tls.Config
			conf, r.err = s.createTlsConfig(readCert)
			if r.err == nil {
				r.conn, r.err = tls.Dial("tcp", server, conf)
			}
		} else {
			r.conn, r.err = net.Dial("tcp", server)
		}
	} else {
		r.conn, r.err = s.bot.connProvider(server)
	}

	if resultChan, ok := <-resultService; ok {
		resultChan <- r
	} else {
		if r.conn != nil {
			r.conn.Close()
		}
	}
}

// createTlsConfig creates a tls config appropriate for the server.
func (s *Server) createTlsConfig(cr certReader) (conf *tls.Config, err error) {
	cfg := s.conf.Network(s.networkID)

	conf = &tls.Config{}
	noverify, _ := cfg.NoVerifyCert()
	conf.InsecureSkipVerify = noverify

	if cert, ok := cfg.SSLCert(); ok && len(cert) > 0 {
		conf.RootCAs, err = cr(cert)
	}

	return
}

// Close shuts down the connection and returns.
func (s *Server) Close() (err error) {
	s.protect.Lock()
	defer s.protect.Unlock()

	if s.client != nil {
		err = s.client.Close()
	}
	s.client = nil
	return
}

// rehashProtocaps delivers updated network info to the server's state.
func (s *Server) rehashProtocaps() error {
	s.protectState.Lock()
	defer s.protectState.Unlock()
	if s.state != nil {
		return s.state.SetNetworkInfo(s.netInfo)
	}
	return nil
}

// setStatus safely sets the status of the server and notifies any listeners.
func (s *Server) setStatus(newstatus Status) {
	s.protect.Lock()
	defer s.protect.Unlock()

	s.status = newstatus
	if s.statusListeners == nil {
		return
	}
	for _, listener := range s.statusListeners[0] {
		listener <- s.status
	}
	i := byte(newstatus) + 1
	for _, listener := range s.statusListeners[i] {
		listener <- s.status
	}
}

// addStatusListener adds a listener for status changes.
func (s *Server) addStatusListener(listener chan Status, listen ...Status) {
	s.protect.Lock()
	defer s.protect.Unlock()

	if s.statusListeners == nil {
		s.statusListeners = [][]chan Status{
			make([]chan Status, 0),
			make([]chan Status, 0),
			make([]chan Status, 0),
			make([]chan Status, 0),
			make([]chan Status, 0),
		}
	}

	if len(listen) == 0 {
		s.statusListeners[0] = append(s.statusListeners[0], listener)
	} else {
		for _, st := range listen {
			i := byte(st) + 1
			s.statusListeners[i] = append(s.statusListeners[i], listener)
		}
	}
}

// GetStatus safely gets the status of the server.
func (s *Server) GetStatus() Status {
	s.protect.RLock()
	defer s.protect.RUnlock()

	return s.status
}

// readCert returns a CertPool containing the client certificate specified
// in filename.
func readCert(filename string) (certpool *x509.CertPool, err error) {
	var pem []byte
	var file *os.File

	if file, err = os.Open(filename); err != nil {
		return
	}

	defer file.Close()

	pem, err = ioutil.ReadAll(file)
	if err != nil {
		return
	}

	certpool = x509.NewCertPool()
	ok := certpool.AppendCertsFromPEM(pem)
	if !ok {
		err = errFailedToLoadCertificate
	}
	return
}
