// Command generator asks for a test framework and a scenario, generates a
// test script for it, prints it and saves it under the scripts directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"dev/bravebird/signup-automation-go/pkg/app"
	"dev/bravebird/signup-automation-go/pkg/config"
	"dev/bravebird/signup-automation-go/pkg/frameworks"
	"dev/bravebird/signup-automation-go/pkg/generator"
	"dev/bravebird/signup-automation-go/pkg/logger"
	"dev/bravebird/signup-automation-go/pkg/models"
)

var errAborted = errors.New("aborted")

// prompter asks the user for the missing inputs
type prompter interface {
	Select(message string, options []string) (int, error)
	Input(message string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Select(message string, options []string) (int, error) {
	var idx int
	err := survey.AskOne(&survey.Select{
		Message:  message,
		Options:  options,
		PageSize: len(options),
	}, &idx)
	return idx, translateSurveyErr(err)
}

func (surveyPrompter) Input(message string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Input{Message: message}, &out, survey.WithValidator(survey.Required))
	return out, translateSurveyErr(err)
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

type options struct {
	framework   string
	requirement string
	provider    string
	noCache     bool
	url         string
}

func main() {
	var opts options
	flag.StringVar(&opts.framework, "framework", "", "framework key or menu number (prompted when empty)")
	flag.StringVar(&opts.requirement, "requirement", "", "test scenario (prompted when empty)")
	flag.StringVar(&opts.provider, "provider", "", "LLM provider: openai, anthropic, gemini or ollama")
	flag.BoolVar(&opts.noCache, "no-cache", false, "skip the response cache")
	flag.StringVar(&opts.url, "url", "", "sign-up page URL for the built-in sign-up templates")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so the script on stdout stays clean
	log := logger.New(os.Stderr, cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	if err := run(ctx, os.Stdout, deps.Generator, surveyPrompter{}, opts); err != nil {
		if errors.Is(err, errAborted) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, gen *generator.Service, p prompter, opts options) error {
	fmt.Fprintln(out, "AI Test Automation Script Generator")
	fmt.Fprintln(out, "----------------------------------")

	fw, err := chooseFramework(gen.Catalog(), p, opts.framework)
	if err != nil {
		return err
	}

	requirement := strings.TrimSpace(opts.requirement)
	if requirement == "" {
		requirement, err = p.Input("Describe the test scenario (e.g., 'login with invalid credentials'):")
		if err != nil {
			return err
		}
	}

	req := models.GenerateRequest{
		Requirement:  requirement,
		FrameworkKey: fw.Key,
		LLMProvider:  opts.provider,
		SkipCache:    opts.noCache,
	}
	if opts.url != "" {
		req.Signup = &models.SignupInput{URL: opts.url, Username: "testuser", Email: "testuser@example.com", Password: "P@ssw0rd"}
	}

	fmt.Fprintf(out, "\nGenerating %s test script...\n", fw.Name)
	script, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Generated Test Script ===")
	fmt.Fprintln(out, script.Content)
	if script.FilePath != "" {
		fmt.Fprintf(out, "\nScript saved to: %s\n", script.FilePath)
	}
	fmt.Fprintf(out, "Source: %s (%s)\n", script.Source, script.Provider)
	fmt.Fprintln(out, "Script generation complete!")
	return nil
}

// chooseFramework resolves the flag as a key, then as a menu number, and
// falls back to the interactive menu
func chooseFramework(c *frameworks.Catalog, p prompter, flagValue string) (models.Framework, error) {
	if flagValue != "" {
		if fw, err := c.ByKey(flagValue); err == nil {
			return fw, nil
		}
		return c.ByChoice(flagValue)
	}

	all := c.All()
	labels := make([]string, len(all))
	for i, fw := range all {
		labels[i] = fmt.Sprintf("%s. %s", fw.Choice, fw.Name)
	}
	idx, err := p.Select("Select framework:", labels)
	if err != nil {
		return models.Framework{}, err
	}
	if idx < 0 || idx >= len(all) {
		return models.Framework{}, fmt.Errorf("%w: menu index %d", frameworks.ErrUnknownFramework, idx)
	}
	return all[idx], nil
}
