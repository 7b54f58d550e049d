package interpreter

import (
	"context"
	"errors"
	"sync"
)

// ContinueCall records the arguments of one Continue call on a Mock.
type ContinueCall struct {
	Remaining []string
}

// Mock is an in-memory Service for tests.
// Responses are served from queues; the *Func hooks take precedence when set.
type Mock struct {
	mu sync.Mutex

	SubmitFunc   func(ctx context.Context, script string) (*ScriptResponse, error)
	ContinueFunc func(ctx context.Context, remaining []string) (*ScriptResponse, error)

	Disks      []Disk
	DiskNames  []string
	Partitions map[string][]Partition
	Trees      map[string]*TreeNode
	HealthInfo *Health
	HealthErr  error
	LoginErr   error
	Accounts   map[string]string // username -> password

	submitted []string
	continued []ContinueCall
	replies   []mockReply
	loggedIn  bool
}

type mockReply struct {
	resp *ScriptResponse
	err  error
}

// ErrNoMockReply is returned when a Mock runs out of queued replies.
var ErrNoMockReply = errors.New("mock interpreter: no reply queued")

// NewMock creates an empty mock.
func NewMock() *Mock {
	return &Mock{
		Partitions: make(map[string][]Partition),
		Trees:      make(map[string]*TreeNode),
		Accounts:   make(map[string]string),
		HealthInfo: &Health{Status: "ok", Version: "1.0.0"},
	}
}

// Reply queues a response for the next Submit or Continue.
func (m *Mock) Reply(resp *ScriptResponse) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{resp: resp})
	return m
}

// Fail queues an error for the next Submit or Continue.
func (m *Mock) Fail(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{err: err})
	return m
}

func (m *Mock) next() (*ScriptResponse, error) {
	if len(m.replies) == 0 {
		return nil, ErrNoMockReply
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply.resp, reply.err
}

// Submit implements ScriptRunner.Submit
func (m *Mock) Submit(ctx context.Context, script string) (*ScriptResponse, error) {
	m.mu.Lock()
	m.submitted = append(m.submitted, script)
	fn := m.SubmitFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, script)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next()
}

// Continue implements ScriptRunner.Continue
func (m *Mock) Continue(ctx context.Context, remaining []string) (*ScriptResponse, error) {
	m.mu.Lock()
	m.continued = append(m.continued, ContinueCall{Remaining: append([]string(nil), remaining...)})
	fn := m.ContinueFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, remaining)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next()
}

// Submitted returns every script passed to Submit, in call order.
func (m *Mock) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submitted...)
}

// Continued returns every Continue call, in call order.
func (m *Mock) Continued() []ContinueCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ContinueCall(nil), m.continued...)
}

// ListDisks implements Browser.ListDisks
func (m *Mock) ListDisks(ctx context.Context) ([]Disk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Disks, nil
}

// AllDisks implements Browser.AllDisks
func (m *Mock) AllDisks(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DiskNames, nil
}

// ListPartitions implements Browser.ListPartitions
func (m *Mock) ListPartitions(ctx context.Context, disk string) ([]Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Partitions[disk], nil
}

// ContentTree implements Browser.ContentTree
func (m *Mock) ContentTree(ctx context.Context, partitionID string) (*TreeNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Trees[partitionID], nil
}

// Login implements Authenticator.Login
func (m *Mock) Login(ctx context.Context, username, password, partitionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoginErr != nil {
		return false, m.LoginErr
	}
	if want, ok := m.Accounts[username]; !ok || want != password {
		return false, &AuthError{Op: "login", Message: "invalid credentials"}
	}
	m.loggedIn = true
	return true, nil
}

// Logout implements Authenticator.Logout
func (m *Mock) Logout(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loggedIn {
		return false, &AuthError{Op: "logout", Message: "no active session"}
	}
	m.loggedIn = false
	return true, nil
}

// LoggedIn reports whether Login succeeded without a later Logout.
func (m *Mock) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedIn
}

// Health implements HealthChecker.Health
func (m *Mock) Health(ctx context.Context) (*Health, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HealthErr != nil {
		return nil, m.HealthErr
	}
	return m.HealthInfo, nil
}

var _ Service = (*Mock)(nil)
