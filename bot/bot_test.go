package bot

import (
	"net"
	"runtime"
	"testing"

	"github.com/rivulet-irc/rivulet/config"
	"github.com/rivulet-irc/rivulet/data"
	"github.com/rivulet-irc/rivulet/irc"
	"github.com/rivulet-irc/rivulet/mocks"
)

const serverID = "irc.gamesurge.net"

var fakeConfiguration = `
nick = "nobody"
altnick = "nobody_"
username = "nobody"
realname = "ultimateq"

[networks.` + serverID + `]
servers = ["irc.gamesurge.net:6667"]
`

func fakeConfig() *config.Config {
	return config.NewConfig().FromString(fakeConfiguration)
}

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New(fakeConfig())
	if err != nil {
		t.Error("Unexpected error:", err)
	}
	if b == nil {
		t.Fatal("Bot should not be nil.")
	}
}

func TestCreateBot(t *testing.T) {
	t.Parallel()
	b, err := createBot(fakeConfig(), nil, nil, nil, true, false)
	if err != nil {
		t.Error("Unexpected error:", err)
	}
	if len(b.servers) != 1 {
		t.Error("Expected exactly one server to be created.")
	}
	if _, ok := b.servers[serverID]; !ok {
		t.Error("The server was not keyed by its network id.")
	}
}

func TestBot_StartStop(t *testing.T) {
	t.Parallel()
	conn := mocks.CreateConn()
	connProvider := func(srv string) (net.Conn, error) {
		return conn, nil
	}

	b, err := createBot(fakeConfig(), connProvider, nil, nil, false, false)
	if err != nil {
		t.Fatal("Unexpected error:", err)
	}

	end := b.Start()
	srv := b.servers[serverID]
	for srv.GetStatus() != STATUS_STARTED {
		runtime.Gosched()
	}

	if !b.StopNetwork(serverID) {
		t.Error("Expected the network to have been stopped.")
	}
	for range end {
	}
}

func TestBot_RegisterUnregister(t *testing.T) {
	t.Parallel()
	b, err := createBot(fakeConfig(), nil, nil, nil, false, false)
	if err != nil {
		t.Fatal("Unexpected error:", err)
	}

	handler := &coreHandler{bot: b}
	id := b.Register(irc.PRIVMSG, handler)
	if !b.Unregister(id) {
		t.Error("Expected to be able to unregister the handler.")
	}
	if b.Unregister(id) {
		t.Error("Should not be able to double unregister.")
	}
}

func TestBot_StateStore(t *testing.T) {
	t.Parallel()
	b, err := createBot(fakeConfig(), nil, nil, nil, false, false)
	if err != nil {
		t.Fatal("Unexpected error:", err)
	}

	if b.State(serverID) == nil {
		t.Error("Expected state to be created by default.")
	}
	if b.State("notanetwork") != nil {
		t.Error("Expected nil state for an unknown network.")
	}
}

func TestBot_NetworkWriter(t *testing.T) {
	t.Parallel()
	b, err := createBot(fakeConfig(), nil, nil, nil, false, false)
	if err != nil {
		t.Fatal("Unexpected error:", err)
	}

	if b.NetworkWriter(serverID) == nil {
		t.Error("Expected a writer for a known network.")
	}
	if b.NetworkWriter("notanetwork") != nil {
		t.Error("Expected nil writer for an unknown network.")
	}
}

func TestBot_Locker(t *testing.T) {
	t.Parallel()
	b, err := createBot(fakeConfig(), nil, nil, nil, false, false)
	if err != nil {
		t.Fatal("Unexpected error:", err)
	}

	if ok := b.ReadState(serverID, func(*data.State) {}); !ok {
		t.Error("Expected ReadState to succeed for a known network.")
	}
	if ok := b.ReadState("notanetwork", func(*data.State) {}); ok {
		t.Error("Expected ReadState to fail for an unknown network.")
	}

	if state := b.OpenState(serverID); state == nil {
		t.Error("Expected OpenState to return a state.")
	}
	b.CloseState(serverID)
}

func TestCheckConfig(t *testing.T) {
	t.Parallel()
	if !CheckConfig(fakeConfig()) {
		t.Error("Expected the fake config to be valid.")
	}

	bad := config.NewConfig().FromString("")
	if CheckConfig(bad) {
		t.Error("Expected an empty config to be invalid.")
	}
}
