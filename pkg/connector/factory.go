package connector

// Factory creates connectors; the executor asks it for one per host.
type Factory interface {
	NewSSHConnector(pool *ConnectionPool) Connector
	NewLocalConnector() Connector
}

type defaultFactory struct{}

func NewFactory() Factory {
	return &defaultFactory{}
}

func (f *defaultFactory) NewSSHConnector(pool *ConnectionPool) Connector {
	return NewSSHConnector(pool)
}

func (f *defaultFactory) NewLocalConnector() Connector {
	return &LocalConnector{}
}

// IsLocalHost reports whether host refers to the machine running pexm.
func IsLocalHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "local://localhost":
		return true
	}
	return false
}

var _ Factory = (*defaultFactory)(nil)
