package utils

import (
	"fmt"
	"io"
	"os"
)

// ReadFromStdin reads all content from standard input.
// It returns nothing instead of blocking when stdin is a terminal.
func ReadFromStdin() ([]byte, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, nil
	}
	return io.ReadAll(os.Stdin)
}

// ReadInput reads path, or standard input when path is empty or "-"
func ReadInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := ReadFromStdin()
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
