package kubo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"anchorage/internal/services"
)

// Identity reports the node identity as printed by "ipfs id".
type Identity struct {
	ID           string   `json:"ID"`
	Addresses    []string `json:"Addresses"`
	AgentVersion string   `json:"AgentVersion"`
}

// PreferredAddress picks the multiaddress advertised in status snapshots. The
// second entry is usually the externally routable one; fall back to the first
// when only one exists.
func (id Identity) PreferredAddress() string {
	switch {
	case len(id.Addresses) > 1:
		return id.Addresses[1]
	case len(id.Addresses) == 1:
		return id.Addresses[0]
	default:
		return ""
	}
}

// Result carries the captured output of one CLI invocation.
type Result struct {
	Stdout string
	Stderr string
}

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes the binary to completion and captures its output.
	Run(ctx context.Context, binary string, args []string, env []string) (Result, error)
	// Start launches the binary detached from the current process.
	Start(binary string, args []string, env []string) error
}

// CommandError describes a CLI invocation that exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = "no stderr output"
	}
	return fmt.Sprintf("ipfs %s exited with code %d: %s", strings.Join(e.Args, " "), e.ExitCode, detail)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps kubo CLI interactions for a single repository.
type Client struct {
	binary  string
	repoDir string
	exec    Executor
}

// New constructs a kubo client.
func New(binary, repoDir string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ipfs binary required")
	}
	repoDir = strings.TrimSpace(repoDir)
	if repoDir == "" {
		return nil, errors.New("ipfs repository directory required")
	}
	client := &Client{
		binary:  binary,
		repoDir: repoDir,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// RepoDir returns the repository path the client operates on.
func (c *Client) RepoDir() string {
	return c.repoDir
}

func (c *Client) env() []string {
	return append(os.Environ(), "IPFS_PATH="+c.repoDir)
}

func (c *Client) run(ctx context.Context, args ...string) (Result, error) {
	res, err := c.exec.Run(ctx, c.binary, args, c.env())
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return res, services.Wrap(services.ErrExternalTool, "kubo", args[0], "ipfs command failed", cmdErr)
		}
		return res, services.Wrap(services.ErrExternalTool, "kubo", args[0], "execute ipfs", err)
	}
	return res, nil
}

// Identity runs "ipfs id" and decodes the JSON report. A failure here is the
// canonical signal that no daemon is serving the repository.
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	res, err := c.run(ctx, "id")
	if err != nil {
		return Identity{}, err
	}
	var identity Identity
	if err := json.Unmarshal([]byte(res.Stdout), &identity); err != nil {
		return Identity{}, services.Wrap(services.ErrExternalTool, "kubo", "id", "decode identity JSON", err)
	}
	if identity.ID == "" {
		return Identity{}, services.Wrap(services.ErrExternalTool, "kubo", "id", "identity report has no peer ID", nil)
	}
	return identity, nil
}

// Add publishes a file or directory and returns the wrapping directory CID.
// With -w the CLI prints one line per entry plus a final line for the wrapper,
// so the last CID printed is the one to share.
func (c *Client) Add(ctx context.Context, path string) (string, error) {
	res, err := c.run(ctx, "add", "-q", "-w", path)
	if err != nil {
		return "", err
	}
	cid := lastCID(res.Stdout)
	if cid == "" {
		return "", services.Wrap(services.ErrExternalTool, "kubo", "add", "no CID in add output", nil)
	}
	return cid, nil
}

func lastCID(stdout string) string {
	var last string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Without -q kubo prints "added <cid> <name>" records.
		if fields := strings.Fields(line); len(fields) >= 2 && fields[0] == "added" {
			last = fields[1]
			continue
		}
		last = line
	}
	return last
}

// Get fetches a CID into outDir.
func (c *Client) Get(ctx context.Context, cid, outDir string) error {
	_, err := c.run(ctx, "get", cid, "-o", outDir)
	return err
}

// PinAdd pins a CID recursively.
func (c *Client) PinAdd(ctx context.Context, cid string) error {
	_, err := c.run(ctx, "pin", "add", cid)
	return err
}

// ListPins returns the recursively pinned CIDs.
func (c *Client) ListPins(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "pin", "ls", "--type=recursive")
	if err != nil {
		return nil, err
	}
	var pins []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		pins = append(pins, fields[0])
	}
	return pins, nil
}

// BlockStat probes whether a CID is retrievable within the given timeout. The
// timeout is enforced by kubo itself via its global --timeout flag so a stuck
// DHT walk cannot hold a cycle hostage.
func (c *Client) BlockStat(ctx context.Context, cid string, timeout time.Duration) error {
	args := []string{}
	if timeout > 0 {
		args = append(args, "--timeout", fmt.Sprintf("%ds", int(timeout.Seconds())))
	}
	args = append(args, "block", "stat", cid)
	if _, err := c.run(ctx, args...); err != nil {
		return services.Wrap(services.ErrUnavailable, "kubo", "block-stat",
			fmt.Sprintf("content %s not retrievable", cid), err)
	}
	return nil
}

// InitRepo initializes the repository. Kubo refuses to initialize twice; the
// caller decides whether an existing repo is an error.
func (c *Client) InitRepo(ctx context.Context) error {
	_, err := c.run(ctx, "init")
	return err
}

// BootstrapClear removes every bootstrap peer so the node can only ever join
// the private swarm.
func (c *Client) BootstrapClear(ctx context.Context) error {
	_, err := c.run(ctx, "bootstrap", "rm", "--all")
	return err
}

// SwarmConnect dials the relay and returns the CLI report text.
func (c *Client) SwarmConnect(ctx context.Context, addr string) (string, error) {
	res, err := c.run(ctx, "swarm", "connect", addr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ConnectSucceeded reports whether a swarm connect transcript indicates
// success. The CLI prints "connect <addr> success" on the happy path.
func ConnectSucceeded(output string) bool {
	lowered := strings.ToLower(output)
	return strings.Contains(lowered, "connect") && strings.Contains(lowered, "success")
}

// SwarmPeers lists the currently connected peer addresses.
func (c *Client) SwarmPeers(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "swarm", "peers")
	if err != nil {
		return nil, err
	}
	var peers []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		peers = append(peers, line)
	}
	return peers, nil
}

// StartDaemon launches "ipfs daemon" detached so it outlives the agent.
func (c *Client) StartDaemon() error {
	if err := c.exec.Start(c.binary, []string{"daemon"}, c.env()); err != nil {
		return services.Wrap(services.ErrDaemonStart, "kubo", "daemon", "spawn ipfs daemon", err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, env []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &CommandError{
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   result.Stderr,
			}
		}
		return result, fmt.Errorf("run %s: %w", binary, err)
	}
	return result, nil
}

func (commandExecutor) Start(binary string, args []string, env []string) error {
	cmd := exec.Command(binary, args...) //nolint:gosec
	cmd.Env = env
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}
	// Detach: the daemon must survive the agent process.
	return cmd.Process.Release()
}
