package ui

import "github.com/charmbracelet/huh"

func AskConfirm(title, description string, value *bool) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(value),
		),
	).Run()
}
