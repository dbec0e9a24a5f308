package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mensylisir/pexm/pkg/operation"
)

// CallKind names the Executor method a recorded call went through.
type CallKind string

const (
	KindOperation CallKind = "operation"
	KindCommand   CallKind = "command"
	KindUpload    CallKind = "upload"
	KindStage     CallKind = "stage"
)

// Call is one recorded Executor invocation. Name is the operation name, the
// command text, or the remote path.
type Call struct {
	Kind    CallKind
	Name    string
	Hosts   []string
	Params  operation.Params
	Content []byte
	Upload  *UploadOptions
	// Start and End are sequence numbers shared across all calls and hosts.
	// End is the highest sequence number any host of this call finished at.
	Start int64
	End   int64
}

// Fake is a recording Executor for tests. Hosts within a call run
// concurrently, like the real fleet.
type Fake struct {
	// Failures maps call name to host to the error that host reports.
	Failures map[string]map[string]error
	// Outputs maps call name to host to the output that host reports.
	Outputs map[string]map[string]string
	// FetchErr is returned by FetchAndStage before any host is touched.
	FetchErr error
	// HostDelay is how long each host takes.
	HostDelay time.Duration

	mu       sync.Mutex
	seq      int64
	calls    []Call
	messages []string
}

func NewFake() *Fake {
	return &Fake{
		Failures: map[string]map[string]error{},
		Outputs:  map[string]map[string]string{},
	}
}

// Fail makes host report err for the call named name.
func (f *Fake) Fail(name, host string, err error) *Fake {
	if f.Failures[name] == nil {
		f.Failures[name] = map[string]error{}
	}
	f.Failures[name][host] = err
	return f
}

// Output makes host report out for the call named name.
func (f *Fake) Output(name, host, out string) *Fake {
	if f.Outputs[name] == nil {
		f.Outputs[name] = map[string]string{}
	}
	f.Outputs[name][host] = out
	return f
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Messages returns the progress messages in order.
func (f *Fake) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func (f *Fake) record(c Call) (Results, error) {
	c.Hosts = append([]string(nil), c.Hosts...)
	c.Start = atomic.AddInt64(&f.seq, 1)

	results := make(Results, len(c.Hosts))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var end int64
	for _, host := range c.Hosts {
		host := host
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.HostDelay > 0 {
				time.Sleep(f.HostDelay)
			}
			done := atomic.AddInt64(&f.seq, 1)
			mu.Lock()
			defer mu.Unlock()
			if done > end {
				end = done
			}
			results[host] = Result{Host: host, Output: f.Outputs[c.Name][host], Err: f.Failures[c.Name][host]}
		}()
	}
	wg.Wait()
	c.End = end

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return results, results.Err(c.Name)
}

func (f *Fake) RunOperation(ctx context.Context, name string, hosts []string, params operation.Params) (Results, error) {
	return f.record(Call{Kind: KindOperation, Name: name, Hosts: hosts, Params: params})
}

func (f *Fake) RunCommand(ctx context.Context, command string, hosts []string) (Results, error) {
	return f.record(Call{Kind: KindCommand, Name: command, Hosts: hosts})
}

func (f *Fake) UploadContent(ctx context.Context, content []byte, remotePath string, hosts []string, opts *UploadOptions) (Results, error) {
	return f.record(Call{Kind: KindUpload, Name: remotePath, Hosts: hosts, Content: append([]byte(nil), content...), Upload: opts})
}

func (f *Fake) FetchAndStage(ctx context.Context, sourceURL, localPath, uploadPath string, hosts []string) (Results, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return f.record(Call{Kind: KindStage, Name: uploadPath, Hosts: hosts, Params: operation.Params{"URL": sourceURL, "LocalPath": localPath}})
}

func (f *Fake) Progress(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

var _ Executor = (*Fake)(nil)
