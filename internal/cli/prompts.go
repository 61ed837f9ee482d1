package cli

import (
	"context"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"portfolio/cms/internal/editor"
)

// SurveyIO is the terminal every prompt reads from and writes to.
type SurveyIO struct {
	In  terminal.FileReader
	Out terminal.FileWriter
	Err terminal.FileWriter
}

var DefaultSurveyIO = SurveyIO{
	In:  os.Stdin,
	Out: os.Stdout,
	Err: os.Stderr,
}

func (s SurveyIO) AskOptions() []survey.AskOpt {
	return []survey.AskOpt{survey.WithStdio(s.In, s.Out, s.Err)}
}

// Confirmer asks the delete question with a yes/no prompt defaulting to no.
func (s SurveyIO) Confirmer() editor.Confirmer {
	return editor.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		ok := false
		err := survey.AskOne(&survey.Confirm{Message: prompt, Default: false}, &ok, s.AskOptions()...)
		return ok, err
	})
}

func (s SurveyIO) askCredentials(username, password string) (string, string, error) {
	if username == "" {
		if err := survey.AskOne(&survey.Input{Message: "Username:", Default: "admin"}, &username,
			append(s.AskOptions(), survey.WithValidator(survey.Required))...); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password,
			append(s.AskOptions(), survey.WithValidator(survey.Required))...); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}

func (s SurveyIO) askField(name, current string) (string, error) {
	value := current
	err := survey.AskOne(&survey.Input{Message: name + ":", Default: current}, &value, s.AskOptions()...)
	return value, err
}

// always is the confirmer behind --yes.
var always = editor.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
