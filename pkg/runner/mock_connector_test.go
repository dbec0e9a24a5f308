package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/mensylisir/pexm/pkg/connector"
)

// MockConnector is a mock implementation of connector.Connector. Unset
// funcs fall back to benign defaults.
type MockConnector struct {
	ExecFunc        func(ctx context.Context, cmd string, options *connector.ExecOptions) (stdout, stderr []byte, err error)
	CopyContentFunc func(ctx context.Context, content []byte, dstPath string, options *connector.FileTransferOptions) error
	UploadFunc      func(ctx context.Context, localPath, remotePath string, options *connector.FileTransferOptions) error
	GetOSFunc       func(ctx context.Context) (*connector.OS, error)

	mu          sync.Mutex
	ExecHistory []string
	LastOptions *connector.ExecOptions
}

func NewMockConnector() *MockConnector {
	return &MockConnector{
		GetOSFunc: func(ctx context.Context) (*connector.OS, error) {
			return &connector.OS{ID: "centos", VersionID: "7", Arch: "x86_64", Kernel: "mock-kernel"}, nil
		},
	}
}

func (m *MockConnector) Connect(ctx context.Context, cfg connector.ConnectionCfg) error { return nil }

func (m *MockConnector) Exec(ctx context.Context, cmd string, options *connector.ExecOptions) ([]byte, []byte, error) {
	m.mu.Lock()
	m.ExecHistory = append(m.ExecHistory, cmd)
	m.LastOptions = options
	m.mu.Unlock()
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, cmd, options)
	}
	return nil, nil, nil
}

func (m *MockConnector) CopyContent(ctx context.Context, content []byte, dstPath string, options *connector.FileTransferOptions) error {
	if m.CopyContentFunc != nil {
		return m.CopyContentFunc(ctx, content, dstPath, options)
	}
	return nil
}

func (m *MockConnector) Upload(ctx context.Context, localPath, remotePath string, options *connector.FileTransferOptions) error {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, localPath, remotePath, options)
	}
	return nil
}

func (m *MockConnector) GetOS(ctx context.Context) (*connector.OS, error) {
	if m.GetOSFunc != nil {
		return m.GetOSFunc(ctx)
	}
	return nil, fmt.Errorf("GetOSFunc not set")
}

func (m *MockConnector) IsConnected() bool { return true }
func (m *MockConnector) Close() error      { return nil }

var _ connector.Connector = (*MockConnector)(nil)
