package interpreter

import "context"

// ScriptRunner is the part of the service the script session protocol depends on.
type ScriptRunner interface {
	Submit(ctx context.Context, script string) (*ScriptResponse, error)
	Continue(ctx context.Context, remaining []string) (*ScriptResponse, error)
}

// Browser reads disks, partitions and partition content.
type Browser interface {
	ListDisks(ctx context.Context) ([]Disk, error)
	AllDisks(ctx context.Context) ([]string, error)
	ListPartitions(ctx context.Context, disk string) ([]Partition, error)
	ContentTree(ctx context.Context, partitionID string) (*TreeNode, error)
}

// Authenticator logs users in and out of the interpreter.
type Authenticator interface {
	Login(ctx context.Context, username, password, partitionID string) (bool, error)
	Logout(ctx context.Context) (bool, error)
}

// HealthChecker performs one health probe.
type HealthChecker interface {
	Health(ctx context.Context) (*Health, error)
}

// Service is everything the console consumes from the interpreter.
// This interface allows for mocking in tests.
type Service interface {
	ScriptRunner
	Browser
	Authenticator
	HealthChecker
}

// Ensure Client implements Service
var _ Service = (*Client)(nil)
