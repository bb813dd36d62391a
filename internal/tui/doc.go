// Package tui provides the terminal user interface for pstack.
//
// It handles:
//   - Interactive prompts and selections (using survey and bubbletea)
//   - Console output and the rotating log file (Splog)
//   - Terminal detection
package tui
