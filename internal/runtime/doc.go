// Package runtime provides the per-command context holding the repository,
// configuration and output used by every pstack command.
package runtime
