package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"anchorage/internal/logging"
	"anchorage/internal/services"
)

// Entry is one parsed queue line: a CID to fetch, optionally tagged with the
// snapshot secret it was announced under.
type Entry struct {
	CID    string
	Secret string
	// Line preserves the original text for residual rewrites.
	Line string
}

// EntryResult pairs an entry with its processing outcome.
type EntryResult struct {
	Entry Entry
	Err   error
}

// Handler processes one queue entry.
type Handler func(ctx context.Context, entry Entry) error

const lockRetryInterval = 100 * time.Millisecond

// Processor drains one queue file.
type Processor struct {
	path    string
	handler Handler
	logger  *slog.Logger
}

// New constructs a processor for the queue file at path.
func New(path string, handler Handler, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		path:    path,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "commands"),
	}
}

// Parse splits queue file content into entries. Blank lines and # comments
// are skipped. A line is its CID followed by an optional secret; anything
// with more tokens is malformed.
func Parse(content string) []Entry {
	var entries []Entry
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		entry := Entry{CID: fields[0], Line: line}
		if len(fields) > 1 {
			entry.Secret = fields[1]
		}
		entries = append(entries, entry)
	}
	return entries
}

func validate(entry Entry) error {
	if fields := strings.Fields(entry.Line); len(fields) > 2 {
		return services.Wrap(services.ErrValidation, "commands", "parse",
			fmt.Sprintf("line has %d tokens, want cid with optional secret", len(fields)), nil)
	}
	return nil
}

// ProcessFile drains the queue file once. The file is held under an advisory
// lock for the whole drain so concurrent appenders and a second agent cannot
// interleave. Entries fail independently; the rewritten file holds only the
// failed lines so they retry next cycle. A missing queue file means an empty
// queue.
func (p *Processor) ProcessFile(ctx context.Context) ([]EntryResult, error) {
	if _, err := os.Stat(p.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat queue file: %w", err)
	}

	lock := flock.New(p.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("lock queue file: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTimeout, "commands", "lock", "queue file is locked", nil)
	}
	defer func() { _ = lock.Unlock() }()

	content, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	entries := Parse(string(content))
	if len(entries) == 0 {
		return nil, nil
	}

	results := make([]EntryResult, 0, len(entries))
	for _, entry := range entries {
		err := validate(entry)
		if err == nil {
			err = p.handler(ctx, entry)
		}
		if err != nil {
			p.logger.Warn("queue entry failed",
				logging.String(logging.FieldCID, entry.CID),
				logging.Error(err))
		} else {
			p.logger.Info("queue entry done", logging.String(logging.FieldCID, entry.CID))
		}
		results = append(results, EntryResult{Entry: entry, Err: err})
	}

	if err := p.writeResidual(results); err != nil {
		return results, err
	}
	return results, nil
}

const queueHeader = "# Add CIDs here to process them.\n"

// EnsureFile creates the queue file with its instruction header when absent,
// so operators editing by hand find the format documented in place. An
// existing file is left untouched.
func EnsureFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat queue file: %w", err)
	}
	if err := os.WriteFile(path, []byte(queueHeader), 0o644); err != nil {
		return fmt.Errorf("create queue file: %w", err)
	}
	return nil
}

// Append adds a line to the queue file, creating it when missing. Used by the
// CLI so manual edits and tooling share one code path.
func Append(path, cid, secret string) error {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return services.Wrap(services.ErrValidation, "commands", "append", "cid required", nil)
	}
	line := cid
	if secret = strings.TrimSpace(secret); secret != "" {
		line += " " + secret
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock queue file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open queue file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintln(file, line); err != nil {
		return fmt.Errorf("append queue line: %w", err)
	}
	return nil
}

func (p *Processor) writeResidual(results []EntryResult) error {
	var failed []string
	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, result.Entry.Line)
		}
	}

	var builder strings.Builder
	if len(failed) > 0 {
		fmt.Fprintf(&builder, "# %d failed entr%s retained at %s\n",
			len(failed), plural(len(failed)), time.Now().Format(time.RFC3339))
		for _, line := range failed {
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}

	if err := os.WriteFile(p.path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("rewrite queue file: %w", err)
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
