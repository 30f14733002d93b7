package data

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cznic/kv"
)

var (
	nMaxCache = 1000

	// authTimeout is how long a temporary authentication survives before
	// reap() removes it if it is never refreshed via Update.
	authTimeout = 10 * time.Minute

	// reapInterval is how often the background goroutine sweeps timeouts.
	reapInterval = time.Minute
)

const (
	errFmtBadHost = "Host [%s] does not match stored hosts for user [%s]."

	userPrefix    = "u:"
	channelPrefix = "c:"
)

// AuthFailureType enumerates the reasons AuthUserPerma/AuthUserTmp can fail.
type AuthFailureType int

const (
	// AuthErrUserNotFound means no stored user exists with that username.
	AuthErrUserNotFound AuthFailureType = iota
	// AuthErrHostNotFound means the host does not match any of the user's
	// whitelisted masks.
	AuthErrHostNotFound
	// AuthErrBadPassword means the password given did not match.
	AuthErrBadPassword
)

// AuthError is returned by AuthUserPerma/AuthUserTmp when authentication
// fails for a specific, distinguishable reason.
type AuthError struct {
	msg         string
	FailureType AuthFailureType
}

// Error satisfies the error interface.
func (a AuthError) Error() string {
	return a.msg
}

// StateUpdate describes changes in a network's visible hosts, used to
// promote or demote a temporary authentication via Store.Update.
type StateUpdate struct {
	// Seen removes the timeout for these hosts; they've rejoined view.
	Seen []string
	// Unseen starts a timeout for these hosts; they've left view.
	Unseen []string
	// Nick is [oldHost, newHost], migrating any auth/timeout record.
	Nick []string
	// Quit removes all auth/timeout records for this host.
	Quit string
}

// Store is used to store StoredUser and StoredChannel objects, cache their
// lookup, and track which hosts are currently authenticated.
type Store struct {
	db *kv.DB

	mu       sync.Mutex
	cache    map[string]*StoredUser
	authed   map[string]*StoredUser
	timeouts map[string]time.Time

	reapStop chan struct{}
}

// MemStoreProvider creates an in-memory database, useful for tests and for
// bots that don't need their store to survive a restart.
func MemStoreProvider() (*kv.DB, error) {
	return kv.CreateMem(&kv.Options{})
}

// NewStore initializes a store type using the database returned by the
// given provider.
func NewStore(dbProvider func() (*kv.DB, error)) (*Store, error) {
	db, err := dbProvider()
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:       db,
		cache:    make(map[string]*StoredUser),
		authed:   make(map[string]*StoredUser),
		timeouts: make(map[string]time.Time),
		reapStop: make(chan struct{}),
	}

	go s.reapLoop()

	return s, nil
}

// CreateStore is an alias for NewStore.
func CreateStore(dbProvider func() (*kv.DB, error)) (*Store, error) {
	return NewStore(dbProvider)
}

// Close closes the underlying database and stops the reaper goroutine.
func (s *Store) Close() error {
	close(s.reapStop)
	return s.db.Close()
}

// reapLoop periodically sweeps expired temporary authentications until
// Close is called.
func (s *Store) reapLoop() {
	t := time.NewTicker(reapInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.reap()
		case <-s.reapStop:
			return
		}
	}
}

// reap removes any authentication whose timeout has passed.
func (s *Store) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for key, deadline := range s.timeouts {
		if deadline.Before(now) {
			delete(s.timeouts, key)
			delete(s.authed, key)
		}
	}
}

// SaveUser adds or overwrites a user in the database.
func (s *Store) SaveUser(su *StoredUser) error {
	serialized, err := su.serialize()
	if err != nil {
		return err
	}

	if err = s.db.Set(userKey(su.Username), serialized); err != nil {
		return err
	}

	s.mu.Lock()
	s.checkCacheLimits()
	s.cache[su.Username] = su
	s.mu.Unlock()
	return nil
}

// RemoveUser removes a user from the database, reporting whether a user by
// that name was actually stored.
func (s *Store) RemoveUser(username string) (removed bool, err error) {
	found, err := s.fetchUser(username)
	if err != nil {
		return false, err
	}
	if found == nil {
		return false, nil
	}

	if err = s.db.Delete(userKey(username)); err != nil {
		return false, err
	}

	s.mu.Lock()
	delete(s.cache, username)
	s.mu.Unlock()
	return true, nil
}

// FindUser looks up a user based on username, consulting and warming the
// cache.
func (s *Store) FindUser(username string) (user *StoredUser, err error) {
	s.mu.Lock()
	if cached, ok := s.cache[username]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	user, err = s.fetchUser(username)
	if err != nil || user == nil {
		return
	}

	s.mu.Lock()
	s.checkCacheLimits()
	s.cache[username] = user
	s.mu.Unlock()
	return
}

// fetchUser gets a user from the database based on username, bypassing the
// cache.
func (s *Store) fetchUser(username string) (user *StoredUser, err error) {
	serialized, err := s.db.Get(nil, userKey(username))
	if err != nil || serialized == nil {
		return nil, err
	}

	user, err = deserializeUser(serialized)
	return
}

// checkCacheLimits verifies if adding one to the size of the cache will
// cross its boundaries, if so, it dumps the cache. Callers must hold s.mu.
func (s *Store) checkCacheLimits() {
	if len(s.cache)+1 > nMaxCache {
		s.cache = make(map[string]*StoredUser)
	}
}

// authUser is the common path for AuthUserPerma and AuthUserTmp.
func (s *Store) authUser(
	network, host, username, password string) (*StoredUser, error) {

	key := network + host

	s.mu.Lock()
	if user, ok := s.authed[key]; ok {
		s.mu.Unlock()
		return user, nil
	}
	s.mu.Unlock()

	user, err := s.FindUser(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, AuthError{
			fmt.Sprintf("User [%s] was not found.", username),
			AuthErrUserNotFound,
		}
	}

	if !user.HasMask(host) {
		return nil, AuthError{
			fmt.Sprintf(errFmtBadHost, host, username),
			AuthErrHostNotFound,
		}
	}

	if !user.VerifyPassword(password) {
		return nil, AuthError{
			fmt.Sprintf("Password for user [%s] did not match.", username),
			AuthErrBadPassword,
		}
	}

	s.mu.Lock()
	s.authed[key] = user
	s.mu.Unlock()
	return user, nil
}

// AuthUserPerma authenticates a user without starting a timeout; the
// authentication lasts until Logout, LogoutByUsername or a StateUpdate.Quit
// removes it. A StateUpdate.Unseen for the host starts a timeout for it.
func (s *Store) AuthUserPerma(
	network, host, username, password string) (*StoredUser, error) {

	return s.authUser(network, host, username, password)
}

// AuthUserTmp authenticates a user but starts a timeout that Update/reap
// will expire unless it's refreshed with a StateUpdate.Seen.
func (s *Store) AuthUserTmp(
	network, host, username, password string) (*StoredUser, error) {

	user, err := s.authUser(network, host, username, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.timeouts[network+host] = time.Now().UTC().Add(authTimeout)
	s.mu.Unlock()
	return user, nil
}

// GetAuthedUser retrieves a previously authenticated user by network/host,
// or nil if none exists.
func (s *Store) GetAuthedUser(network, host string) *StoredUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed[network+host]
}

// Logout deletes an authenticated host.
func (s *Store) Logout(network, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := network + host
	delete(s.authed, key)
	delete(s.timeouts, key)
}

// LogoutByUsername deletes every authenticated host belonging to username,
// across all networks.
func (s *Store) LogoutByUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, user := range s.authed {
		if user.Username == username {
			delete(s.authed, key)
			delete(s.timeouts, key)
		}
	}
}

// Update applies a StateUpdate, promoting/demoting/migrating/removing
// authentication timeouts for the given network.
func (s *Store) Update(network string, update StateUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, host := range update.Seen {
		delete(s.timeouts, network+host)
	}

	for _, host := range update.Unseen {
		key := network + host
		if _, ok := s.authed[key]; ok {
			s.timeouts[key] = time.Now().UTC().Add(authTimeout)
		}
	}

	if len(update.Nick) == 2 {
		oldKey := network + update.Nick[0]
		newKey := network + update.Nick[1]

		if user, ok := s.authed[oldKey]; ok {
			delete(s.authed, oldKey)
			s.authed[newKey] = user
		}
		if deadline, ok := s.timeouts[oldKey]; ok {
			delete(s.timeouts, oldKey)
			s.timeouts[newKey] = deadline
		}
	}

	if len(update.Quit) > 0 {
		key := network + update.Quit
		delete(s.authed, key)
		delete(s.timeouts, key)
	}
}

// HasAny reports whether the store has any users saved at all.
func (s *Store) HasAny() (bool, error) {
	found := false
	err := s.eachUser(func(*StoredUser) error {
		found = true
		return io.EOF
	})
	if err != nil && err != io.EOF {
		return false, err
	}
	return found, nil
}

// GlobalUsers returns every user with a global (non-network, non-channel)
// access grant.
func (s *Store) GlobalUsers() ([]*StoredUser, error) {
	return s.filterUsers(func(u *StoredUser) bool {
		_, ok := u.Access[mkKey("", "")]
		return ok
	})
}

// NetworkUsers returns every user with an access grant specific to network
// (and not a channel within it).
func (s *Store) NetworkUsers(network string) ([]*StoredUser, error) {
	return s.filterUsers(func(u *StoredUser) bool {
		_, ok := u.Access[mkKey(network, "")]
		return ok
	})
}

// ChanUsers returns every user with an access grant specific to channel on
// network.
func (s *Store) ChanUsers(network, channel string) ([]*StoredUser, error) {
	return s.filterUsers(func(u *StoredUser) bool {
		_, ok := u.Access[mkKey(network, channel)]
		return ok
	})
}

// filterUsers walks every stored user and collects those matching pred. It
// returns a nil slice (not an error) when nothing matches.
func (s *Store) filterUsers(pred func(*StoredUser) bool) ([]*StoredUser, error) {
	var users []*StoredUser
	err := s.eachUser(func(u *StoredUser) error {
		if pred(u) {
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// eachUser enumerates every stored user in key order, invoking fn for each.
// Returning a non-nil error from fn stops the enumeration early and is
// propagated, except io.EOF which is swallowed as an early-exit signal.
func (s *Store) eachUser(fn func(*StoredUser) error) error {
	enum, _, err := s.db.Seek([]byte(userPrefix))
	if err != nil {
		return err
	}

	for {
		k, v, err := enum.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !strings.HasPrefix(string(k), userPrefix) {
			return nil
		}

		user, err := deserializeUser(v)
		if err != nil {
			return err
		}

		if err := fn(user); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// SaveChannel adds or overwrites a channel in the database.
func (s *Store) SaveChannel(sc *StoredChannel) error {
	serialized, err := sc.serialize()
	if err != nil {
		return err
	}
	return s.db.Set(channelKey(sc.NetID, sc.Name), serialized)
}

// FindChannel looks up a channel by network id and name.
func (s *Store) FindChannel(netID, name string) (*StoredChannel, error) {
	serialized, err := s.db.Get(nil, channelKey(netID, name))
	if err != nil || serialized == nil {
		return nil, err
	}
	return deserializeChannel(serialized)
}

// RemoveChannel removes a channel from the database, reporting whether a
// channel by that network id/name was actually stored.
func (s *Store) RemoveChannel(netID, name string) (removed bool, err error) {
	found, err := s.FindChannel(netID, name)
	if err != nil {
		return false, err
	}
	if found == nil {
		return false, nil
	}

	if err = s.db.Delete(channelKey(netID, name)); err != nil {
		return false, err
	}
	return true, nil
}

// Channels returns every stored channel.
func (s *Store) Channels() ([]*StoredChannel, error) {
	enum, _, err := s.db.Seek([]byte(channelPrefix))
	if err != nil {
		return nil, err
	}

	var channels []*StoredChannel
	for {
		k, v, err := enum.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(string(k), channelPrefix) {
			break
		}

		ch, err := deserializeChannel(v)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	return channels, nil
}

// userKey builds the database key for a stored user.
func userKey(username string) []byte {
	return []byte(userPrefix + username)
}

// channelKey builds the database key for a stored channel.
func channelKey(netID, name string) []byte {
	return []byte(channelPrefix + netID + ":" + name)
}
