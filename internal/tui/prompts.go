package tui

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrCanceled is returned when the user interrupts a prompt
var ErrCanceled = errors.New("canceled")

// SelectOption is one choice of PromptSelect
type SelectOption struct {
	Label string
	Value string
}

// PromptConfirm asks a yes/no question
func PromptConfirm(message string, defaultValue bool) (bool, error) {
	if !Interactive() {
		return false, ErrInteractiveDisabled
	}
	answer := defaultValue
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: defaultValue}, &answer); err != nil {
		return false, promptError(err)
	}
	return answer, nil
}

// PromptSelect asks the user to pick one option and returns its value
func PromptSelect(message string, options []SelectOption, defaultIndex int) (string, error) {
	if !Interactive() {
		return "", ErrInteractiveDisabled
	}
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to select")
	}
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}
	prompt := &survey.Select{
		Message:  message,
		Options:  labels,
		PageSize: 15,
	}
	if defaultIndex >= 0 && defaultIndex < len(labels) {
		prompt.Default = labels[defaultIndex]
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		return "", promptError(err)
	}
	return options[index].Value, nil
}

func promptError(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCanceled
	}
	return err
}
