package bot

import (
	"bytes"
	"crypto/x509"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/rivulet-irc/rivulet/mocks"
)

func TestServer_createIrcClient(t *testing.T) {
	t.Parallel()
	errch := make(chan error)
	connProvider := func(srv string) (net.Conn, error) {
		return mocks.CreateConn(), nil
	}
	b, _ := createBot(fakeConfig(), connProvider, nil, nil, false, false)
	srv := b.servers[serverID]

	go func() {
		err, _ := srv.createIrcClient()
		errch <- err
	}()

	if err := <-errch; err != nil {
		t.Error("Expected a clean connect, got:", err)
	}
	if srv.client == nil {
		t.Error("Client should have been instantiated.")
	}
}

func TestServer_createIrcClient_failConn(t *testing.T) {
	t.Parallel()
	errch := make(chan error)
	connProvider := func(srv string) (net.Conn, error) {
		return nil, errNoServers
	}
	b, _ := createBot(fakeConfig(), connProvider, nil, nil, false, false)
	srv := b.servers[serverID]

	go func() {
		err, retry := srv.createIrcClient()
		if !retry {
			t.Error("Expected the connection to be retryable.")
		}
		errch <- err
	}()

	if err := <-errch; err == nil {
		t.Error("Expected a failed connection.")
	}
}

func TestServer_createIrcClient_killConn(t *testing.T) {
	t.Parallel()
	errch := make(chan error)
	connProvider := func(srv string) (net.Conn, error) {
		time.Sleep(time.Second)
		return nil, errNoServers
	}
	b, _ := createBot(fakeConfig(), connProvider, nil, nil, false, false)
	srv := b.servers[serverID]

	go func() {
		err, _ := srv.createIrcClient()
		errch <- err
	}()

	<-srv.killable
	if err := <-errch; err != errServerKilledConn {
		t.Error("Expected a killed connection, got:", err)
	}
}

func TestServer_createTlsConfig(t *testing.T) {
	t.Parallel()
	b, _ := createBot(fakeConfig(), nil, nil, nil, false, false)
	srv := b.servers[serverID]

	pool := x509.NewCertPool()
	tlsConfig, err := srv.createTlsConfig(func(_ string) (*x509.CertPool, error) {
		return pool, nil
	})
	if err != nil {
		t.Error("Unexpected error:", err)
	}

	if tlsConfig.RootCAs != nil {
		t.Error("No cert was configured, RootCAs should be untouched.")
	}
}

func TestServer_rehashProtocaps(t *testing.T) {
	t.Parallel()
	b, _ := createBot(fakeConfig(), nil, nil, nil, false, false)
	srv := b.servers[serverID]

	if err := srv.rehashProtocaps(); err != nil {
		t.Error("Unexpected error:", err)
	}

	caps := srv.protocaps()
	if caps == nil {
		t.Error("Expected a snapshot of the network's protocaps.")
	}
}

func TestServer_Status(t *testing.T) {
	t.Parallel()
	srv := &Server{}

	if srv.GetStatus() != STATUS_STOPPED {
		t.Error("A fresh server should be stopped.")
	}

	srv.setStatus(STATUS_CONNECTING)
	if srv.GetStatus() != STATUS_CONNECTING {
		t.Error("Expected the status to be connecting.")
	}

	srv.setStatus(STATUS_STARTED)
	if srv.GetStatus() != STATUS_STARTED {
		t.Error("Expected the status to be started.")
	}
}

func TestServer_addStatusListener(t *testing.T) {
	t.Parallel()
	srv := &Server{}

	listener := make(chan Status, 1)
	srv.addStatusListener(listener, STATUS_STARTED)

	srv.setStatus(STATUS_CONNECTING)
	select {
	case <-listener:
		t.Error("Should not have been notified of an unfiltered status.")
	default:
	}

	srv.setStatus(STATUS_STARTED)
	select {
	case got := <-listener:
		if got != STATUS_STARTED {
			t.Error("Expected to be notified of STATUS_STARTED.")
		}
	default:
		t.Error("Expected to be notified.")
	}
}

func TestServer_Write(t *testing.T) {
	t.Parallel()
	conn := mocks.CreateConn()
	connProvider := func(srv string) (net.Conn, error) {
		return conn, nil
	}

	b, _ := createBot(fakeConfig(), connProvider, nil, nil, false, false)
	srv := b.servers[serverID]

	_, err := srv.Write([]byte{1})
	if err != errNotConnected {
		t.Error("Expected:", errNotConnected, "got:", err)
	}

	end := b.Start()

	for srv.GetStatus() != STATUS_STARTED {
		runtime.Gosched()
	}

	message := []byte("PONG :msg\r\n")
	if _, err = srv.Write(message); err != nil {
		t.Error("Unexpected write error:", err)
	}
	got := conn.Receive(len(message), nil)
	if !bytes.Equal(got, message) {
		t.Errorf("Socket received wrong message: (%s) != (%s)", got, message)
	}

	b.Stop()
	for range end {
	}
}
