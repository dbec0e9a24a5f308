package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/pexm/pkg/artifact"
	"github.com/mensylisir/pexm/pkg/connector"
	"github.com/mensylisir/pexm/pkg/errors/errdefs"
	"github.com/mensylisir/pexm/pkg/operation"
)

type stubConn struct {
	host    string
	exec    func(host, cmd string) ([]byte, []byte, error)
	mu      *sync.Mutex
	history *[]string
	stdin   *[]string
}

func (c *stubConn) Connect(ctx context.Context, cfg connector.ConnectionCfg) error {
	c.host = cfg.Host
	if c.host == "unreachable" {
		return &connector.ConnectionError{Host: cfg.Host, Err: errors.New("no route to host")}
	}
	return nil
}

func (c *stubConn) Exec(ctx context.Context, cmd string, opts *connector.ExecOptions) ([]byte, []byte, error) {
	c.mu.Lock()
	*c.history = append(*c.history, c.host+": "+cmd)
	if opts != nil && len(opts.Stdin) > 0 {
		*c.stdin = append(*c.stdin, c.host+": "+string(opts.Stdin))
	}
	c.mu.Unlock()
	if c.exec != nil {
		return c.exec(c.host, cmd)
	}
	return nil, nil, nil
}

func (c *stubConn) CopyContent(ctx context.Context, content []byte, dest string, opts *connector.FileTransferOptions) error {
	c.mu.Lock()
	*c.history = append(*c.history, c.host+": copy "+dest+" "+opts.Permissions)
	c.mu.Unlock()
	return nil
}

func (c *stubConn) Upload(ctx context.Context, local, remote string, opts *connector.FileTransferOptions) error {
	c.mu.Lock()
	*c.history = append(*c.history, c.host+": upload "+remote)
	c.mu.Unlock()
	return nil
}

func (c *stubConn) GetOS(ctx context.Context) (*connector.OS, error) {
	return &connector.OS{ID: "centos", VersionID: "7", Arch: "x86_64"}, nil
}
func (c *stubConn) IsConnected() bool { return true }
func (c *stubConn) Close() error      { return nil }

type stubFactory struct {
	exec    func(host, cmd string) ([]byte, []byte, error)
	mu      sync.Mutex
	history []string
	stdin   []string
	created int32
}

func (s *stubFactory) newConn() connector.Connector {
	atomic.AddInt32(&s.created, 1)
	return &stubConn{exec: s.exec, mu: &s.mu, history: &s.history, stdin: &s.stdin}
}

func (s *stubFactory) NewSSHConnector(pool *connector.ConnectionPool) connector.Connector {
	return s.newConn()
}

func (s *stubFactory) NewLocalConnector() connector.Connector { return s.newConn() }

func (s *stubFactory) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

func newTestFleet(factory *stubFactory, opts ...FleetOption) *Fleet {
	resolve := func(host string) connector.ConnectionCfg {
		return connector.ConnectionCfg{Host: host, User: "root"}
	}
	f := NewFleet(resolve, append([]FleetOption{WithFactory(factory)}, opts...)...)
	return f
}

func TestFleet_RunOperationCollectsEveryHost(t *testing.T) {
	factory := &stubFactory{exec: func(host, cmd string) ([]byte, []byte, error) {
		if host == "c1" {
			return nil, []byte("boom"), &connector.CommandError{Cmd: cmd, ExitCode: 1, Stderr: "boom"}
		}
		return []byte(host + "\n"), nil, nil
	}}
	f := newTestFleet(factory)
	defer f.Close()

	results, err := f.RunOperation(context.Background(), operation.Hostname, []string{"c0", "c1", "c2"}, nil)
	require.Error(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "c0", results.Output("c0"))
	assert.Equal(t, "c2", results.Output("c2"))

	var remoteErr *errdefs.RemoteOperationError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, operation.Hostname, remoteErr.Operation)
	assert.Equal(t, []string{"c1"}, remoteErr.Hosts())
}

func TestFleet_FailedTokenRequestHidesPassword(t *testing.T) {
	const password = "S3cr3t-Console-Pw"
	factory := &stubFactory{exec: func(host, cmd string) ([]byte, []byte, error) {
		return nil, []byte("curl: (7) Failed to connect"), &connector.CommandError{Cmd: cmd, ExitCode: 7, Stderr: "curl: (7) Failed to connect"}
	}}
	f := newTestFleet(factory)
	defer f.Close()

	_, err := f.RunOperation(context.Background(), operation.RBACToken, []string{"master"},
		operation.Params{"Master": "master", "User": "admin", "Password": password})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit code 7")
	assert.NotContains(t, err.Error(), password)
	for _, line := range factory.History() {
		assert.NotContains(t, line, password)
	}

	factory.mu.Lock()
	defer factory.mu.Unlock()
	require.Len(t, factory.stdin, 1)
	assert.Contains(t, factory.stdin[0], `"password":"`+password+`"`)
}

func TestFleet_FailedTokenRequestHidesPasswordLocally(t *testing.T) {
	const password = "S3cr3t-Console-Pw"
	resolve := func(host string) connector.ConnectionCfg {
		return connector.ConnectionCfg{Host: host}
	}
	f := NewFleet(resolve)
	defer f.Close()

	// the PE curl is absent here, so the request fails after the command ran
	_, err := f.RunOperation(context.Background(), operation.RBACToken, []string{"localhost"},
		operation.Params{"Master": "127.0.0.1", "User": "admin", "Password": password})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), password)
}

func TestFleet_RunOperationAcceptsDetailedExitCode(t *testing.T) {
	factory := &stubFactory{exec: func(host, cmd string) ([]byte, []byte, error) {
		return []byte("Notice: Applied catalog"), nil, &connector.CommandError{Cmd: cmd, ExitCode: 2}
	}}
	f := newTestFleet(factory)
	defer f.Close()

	_, err := f.RunOperation(context.Background(), operation.PuppetRunOnce, []string{"master"}, nil)
	assert.NoError(t, err)
}

func TestFleet_UnknownOperationTouchesNoHost(t *testing.T) {
	factory := &stubFactory{}
	f := newTestFleet(factory)
	defer f.Close()

	_, err := f.RunOperation(context.Background(), "bogus", []string{"a"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&factory.created))
}

func TestFleet_EmptyHostSet(t *testing.T) {
	factory := &stubFactory{}
	f := newTestFleet(factory)
	defer f.Close()

	results, err := f.RunCommand(context.Background(), "true", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), atomic.LoadInt32(&factory.created))
}

func TestFleet_ConnectionFailureIsPerHost(t *testing.T) {
	factory := &stubFactory{}
	f := newTestFleet(factory)
	defer f.Close()

	results, err := f.RunCommand(context.Background(), "true", []string{"ok", "unreachable"})
	require.Error(t, err)
	assert.NoError(t, results["ok"].Err)
	assert.Error(t, results["unreachable"].Err)
}

func TestFleet_ReusesConnections(t *testing.T) {
	factory := &stubFactory{}
	f := newTestFleet(factory)
	defer f.Close()

	_, err := f.RunCommand(context.Background(), "true", []string{"a", "b"})
	require.NoError(t, err)
	_, err = f.RunCommand(context.Background(), "true", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&factory.created))
}

func TestFleet_UploadContentWithRecursiveChown(t *testing.T) {
	factory := &stubFactory{}
	f := newTestFleet(factory)
	defer f.Close()

	_, err := f.UploadContent(context.Background(), []byte("key"), "/etc/ssh-dir/key", []string{"master"}, &UploadOptions{
		Owner: "pe-puppet", Group: "pe-puppet", Mode: "0400", RecursiveChownDir: "/etc/ssh-dir",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"master: copy /etc/ssh-dir/key 0400",
		"master: chown -R pe-puppet:pe-puppet '/etc/ssh-dir'",
	}, factory.History())
}

func TestFleet_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	factory := &stubFactory{exec: func(host, cmd string) ([]byte, []byte, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil, nil
	}}
	f := newTestFleet(factory, WithConcurrency(2))
	defer f.Close()

	_, err := f.RunCommand(context.Background(), "true", []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestFleet_FetchAndStageFetchFailure(t *testing.T) {
	factory := &stubFactory{}
	f := newTestFleet(factory, WithStager(&artifact.Stager{}))
	defer f.Close()

	_, err := f.FetchAndStage(context.Background(), "http://127.0.0.1:1/pe.tar.gz", t.TempDir()+"/pe.tar.gz", "/tmp/pe.tar.gz", []string{"master"})
	require.Error(t, err)
	assert.True(t, errdefs.IsIO(err))
	assert.Empty(t, factory.History())
}

func TestFleet_Facts(t *testing.T) {
	factory := &stubFactory{exec: func(host, cmd string) ([]byte, []byte, error) {
		if strings.HasPrefix(cmd, "hostname") {
			return []byte(host), nil, nil
		}
		return nil, nil, nil
	}}
	f := newTestFleet(factory)
	defer f.Close()

	facts, err := f.Facts(context.Background(), "master")
	require.NoError(t, err)
	assert.Equal(t, "master", facts.Hostname)
	assert.Equal(t, "el-7-x86_64", facts.Platform)
}
