package runtime

import (
	"context"
	"fmt"
	"io"
	"os"

	"stackit.dev/pstack/internal/config"
	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/git"
	"stackit.dev/pstack/internal/tui"
)

// Context provides access to the repository, configuration and output for commands
type Context struct {
	context.Context
	Repo   *git.Repository
	Config *config.Config
	Splog  *tui.Splog
}

// Options tweak how a context is created
type Options struct {
	Debug bool
	// Dir is the directory to look for the repository in; defaults to the working directory
	Dir string
	// Out receives console output; defaults to stdout
	Out io.Writer
}

// GetContext opens the repository around the working directory, loads its
// configuration and sets up console and file logging.
func GetContext(ctx context.Context, opts Options) (*Context, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	repo, err := git.OpenRepository(ctx, dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(repo.GitDir())
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logOpts := tui.LogOptions{
		File:  cfg.LogFile(),
		Debug: opts.Debug || os.Getenv("DEBUG") != "",
	}
	logOpts.MaxSizeMB, logOpts.MaxBackups, logOpts.MaxAgeDays = cfg.LogRotation()
	splog, err := tui.NewSplog(out, logOpts)
	if err != nil {
		// A broken log location must not stop the command
		logOpts.File = ""
		splog, _ = tui.NewSplog(out, logOpts)
		splog.Warn("file logging disabled: %v", err)
	}

	return &Context{Context: ctx, Repo: repo, Config: cfg, Splog: splog}, nil
}

// EngineOptions builds stack options from the configuration
func (c *Context) EngineOptions() (engine.Options, error) {
	policy, err := engine.ParsePopPolicy(c.Config.PopPolicy())
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		PopPolicy:        policy,
		LockTimeout:      c.Config.LockTimeout(),
		NameLength:       c.Config.NameLength(),
		IncludeUntracked: c.Config.IncludeUntracked(),
		Logger:           c.Splog.Logger(),
	}, nil
}

// Branch returns the checked out branch
func (c *Context) Branch() (string, error) {
	return c.Repo.CurrentBranch(c)
}

// Stack opens the stack of the checked out branch
func (c *Context) Stack() (*engine.Stack, error) {
	branch, err := c.Branch()
	if err != nil {
		return nil, err
	}
	opts, err := c.EngineOptions()
	if err != nil {
		return nil, err
	}
	return engine.Open(c, c.Repo, branch, opts)
}

// InitStack initializes the stack of the checked out branch
func (c *Context) InitStack() (*engine.Stack, error) {
	branch, err := c.Branch()
	if err != nil {
		return nil, err
	}
	opts, err := c.EngineOptions()
	if err != nil {
		return nil, err
	}
	return engine.Init(c, c.Repo, branch, opts)
}

// Close flushes the log file
func (c *Context) Close() error {
	return c.Splog.Close()
}
