// Package config manages pstack configuration.
//
// Settings live in <gitdir>/pstack_config.json and can be overridden with
// PSTACK_* environment variables (for example PSTACK_POP_POLICY).
package config
