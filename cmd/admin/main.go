package main

import (
	"fmt"
	"os"

	"portfolio/cms/internal/cli"
	"portfolio/cms/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: load .env: %s\n", err)
		os.Exit(1)
	}
	rootCmd := cli.NewRootCommand(cli.Options{
		Config: config.LoadAdmin(),
		IO:     cli.DefaultSurveyIO,
	})
	os.Exit(cli.Execute(rootCmd))
}
