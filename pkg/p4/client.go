package p4

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sdejongh/p4harmonize/internal/platform"
	"github.com/sdejongh/p4harmonize/pkg/logging"
	"github.com/sdejongh/p4harmonize/pkg/models"
)

// Fields requested from fstat for every destination file
const fstatFields = "depotFile,clientFile,headAction,headChange,headType,fileSize,digest"

// Workspace settings for the generated client spec
const (
	WorkspaceOptions       = "noallwrite noclobber nocompress unlocked modtime rmdir noaltsync"
	WorkspaceSubmitOptions = "leaveunchanged"
)

// Head actions of files that no longer exist at head
var deletedActions = map[string]bool{
	"delete":      true,
	"move/delete": true,
	"purge":       true,
	"archive":     true,
}

// ClientConfig configures a Client
type ClientConfig struct {
	Connection Connection
	// Root is the local root of the workspace
	Root string
	// Stream is the depot path of the stream, without a trailing /...
	Stream string
	// DryRun logs mutating commands instead of running them
	DryRun bool
	// TempDir holds the argument files of batched commands (default os.TempDir)
	TempDir string
}

// Client is a session with one Perforce server for one workspace.
// It is safe for concurrent use.
type Client struct {
	config ClientConfig
	runner Runner
	logger logging.Logger

	infoMu sync.Mutex
	info   Record
}

// NewClient creates a client. A nil runner runs the p4 binary.
func NewClient(config ClientConfig, runner Runner, logger logging.Logger) *Client {
	if runner == nil {
		runner = NewCommandRunner(config.Connection, nil)
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Client{config: config, runner: runner, logger: logger}
}

// run logs and runs a command. Mutating commands are skipped in dry run.
func (c *Client) run(ctx context.Context, mutating bool, input string, args ...string) (string, error) {
	fields := logging.Fields{"command": "p4 " + strings.Join(args, " ")}
	if mutating && c.config.DryRun {
		fields["dry_run"] = true
		c.logger.Info(ctx, "skipping p4 command", fields)
		return "", nil
	}
	c.logger.Info(ctx, "running p4 command", fields)
	return c.runner.Run(ctx, input, args...)
}

// Info returns the tagged output of p4 info, queried once per client
func (c *Client) Info(ctx context.Context) (Record, error) {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()

	if c.info != nil {
		return c.info, nil
	}

	out, err := c.run(ctx, false, "", "-ztag", "info")
	if err != nil {
		return nil, err
	}
	records := ParseTagged(out)
	if len(records) == 0 {
		return nil, fmt.Errorf("p4 info returned no data")
	}
	c.info = records[0]
	return c.info, nil
}

// IsCaseSensitive reports whether the server treats paths case sensitively
func (c *Client) IsCaseSensitive(ctx context.Context) (bool, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return false, err
	}
	handling := info["clientCase"]
	if handling == "" {
		handling = info["caseHandling"]
	}
	return handling != "insensitive", nil
}

// QueryFiles returns the files present at head under scope
func (c *Client) QueryFiles(ctx context.Context, scope string) ([]*models.DestFile, error) {
	out, err := c.run(ctx, false, "", "-ztag", "fstat", "-T", fstatFields, "-Ol", scope)
	if err != nil {
		return nil, err
	}

	var files []*models.DestFile
	for _, r := range ParseTagged(out) {
		action := r["headAction"]
		if action == "" || deletedActions[action] {
			continue
		}

		rel, err := c.relativePath(r)
		if err != nil {
			return nil, err
		}

		files = append(files, &models.DestFile{
			Path:       rel,
			DepotPath:  r["depotFile"],
			ClientPath: r["clientFile"],
			HeadType:   r["headType"],
			Kind:       models.ParseContentKind(r["headType"]),
			HeadAction: action,
			HeadChange: r["headChange"],
			Size:       r["fileSize"],
			Digest:     r["digest"],
		})
	}
	return files, nil
}

// relativePath maps a record to its path relative to the workspace root.
// Without a workspace (dry run) the depot path below the stream is used.
func (c *Client) relativePath(r Record) (string, error) {
	if clientFile := r["clientFile"]; clientFile != "" {
		rel, err := platform.RelativeSlash(c.config.Root, clientFile)
		if err != nil {
			return "", &models.PreconditionError{Message: fmt.Sprintf("%s is outside the workspace root %s", clientFile, c.config.Root)}
		}
		return rel, nil
	}

	if !c.config.DryRun {
		return "", &models.PreconditionError{Message: fmt.Sprintf("fstat returned no clientFile for %s, make sure the workspace %s exists", r["depotFile"], c.config.Connection.Client)}
	}

	depotFile := r["depotFile"]
	prefix := c.config.Stream + "/"
	if len(depotFile) <= len(prefix) || !strings.EqualFold(depotFile[:len(prefix)], prefix) {
		return "", &models.PreconditionError{Message: fmt.Sprintf("%s is outside the stream %s", depotFile, c.config.Stream)}
	}
	return depotFile[len(prefix):], nil
}

// Stage opens paths for add, edit or delete, passing them through an argument file
func (c *Client) Stage(ctx context.Context, kind models.ActionKind, paths []string) error {
	switch kind {
	case models.ActionAdd, models.ActionEdit, models.ActionDelete:
	default:
		return fmt.Errorf("cannot stage %s actions", kind)
	}
	if len(paths) == 0 {
		return nil
	}

	if c.config.DryRun {
		c.logger.Info(ctx, "skipping p4 command", logging.Fields{
			"command": "p4 -x ... " + string(kind),
			"files":   len(paths),
			"dry_run": true,
		})
		return nil
	}

	argFile, err := os.CreateTemp(c.config.TempDir, "p4harmonize_"+string(kind)+"_*")
	if err != nil {
		return fmt.Errorf("failed to create argument file: %w", err)
	}
	defer os.Remove(argFile.Name())

	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	_, err = argFile.WriteString(b.String())
	if closeErr := argFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write argument file: %w", err)
	}

	argPath := strings.ReplaceAll(argFile.Name(), "\\", "/")
	_, err = c.run(ctx, true, "", "-x", argPath, string(kind))
	return err
}

// Rename opens from for edit and moves it to to
func (c *Client) Rename(ctx context.Context, from, to string) error {
	if _, err := c.run(ctx, true, "", "edit", from); err != nil {
		return err
	}
	_, err := c.run(ctx, true, "", "move", from, to)
	return err
}

// RevertUnmodified reverts opened files whose content did not change
func (c *Client) RevertUnmodified(ctx context.Context) error {
	_, err := c.run(ctx, true, "", "revert", "-a")
	return err
}

// WorkspaceExists reports whether the configured client spec exists
func (c *Client) WorkspaceExists(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, false, "", "-ztag", "clients", "-e", c.config.Connection.Client)
	if err != nil {
		return false, err
	}
	for _, r := range ParseTagged(out) {
		if strings.EqualFold(r["client"], c.config.Connection.Client) {
			return true, nil
		}
	}
	return false, nil
}

// WorkspaceSpec renders the client spec created by CreateWorkspace
func (c *Client) WorkspaceSpec() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client:\t%s\n\n", c.config.Connection.Client)
	if c.config.Connection.User != "" {
		fmt.Fprintf(&b, "Owner:\t%s\n\n", c.config.Connection.User)
	}
	fmt.Fprintf(&b, "Description:\n\tCreated by p4harmonize.\n\n")
	fmt.Fprintf(&b, "Root:\t%s\n\n", c.config.Root)
	fmt.Fprintf(&b, "Options:\t%s\n\n", WorkspaceOptions)
	fmt.Fprintf(&b, "SubmitOptions:\t%s\n\n", WorkspaceSubmitOptions)
	fmt.Fprintf(&b, "LineEnd:\tlocal\n\n")
	fmt.Fprintf(&b, "Stream:\t%s\n", c.config.Stream)
	return b.String()
}

// CreateWorkspace creates the client spec for the stream
func (c *Client) CreateWorkspace(ctx context.Context) error {
	_, err := c.run(ctx, true, c.WorkspaceSpec(), "client", "-i")
	return err
}

// DeleteWorkspace force deletes the client spec
func (c *Client) DeleteWorkspace(ctx context.Context) error {
	_, err := c.run(ctx, true, "", "client", "-df", c.config.Connection.Client)
	return err
}

// Flush records scope as synced at head without transferring content
func (c *Client) Flush(ctx context.Context, scope string) error {
	_, err := c.run(ctx, true, "", "flush", scope)
	return err
}
