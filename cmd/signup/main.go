// Command signup runs the sign-up flow once in a local browser and prints
// the result of every step.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dev/bravebird/signup-automation-go/pkg/browser"
	"dev/bravebird/signup-automation-go/pkg/config"
	"dev/bravebird/signup-automation-go/pkg/logger"
	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/signup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	def := signup.DefaultFlow()
	in := models.SignupInput{}
	flag.StringVar(&in.URL, "url", def.URL, "sign-up page URL")
	flag.StringVar(&in.Username, "username", def.Credentials.Username, "username to register")
	flag.StringVar(&in.Email, "email", def.Credentials.Email, "email to register")
	flag.StringVar(&in.Password, "password", def.Credentials.Password, "password to register")
	flag.StringVar(&in.UsernameSelector, "username-selector", "", "override the username field selector")
	flag.StringVar(&in.EmailSelector, "email-selector", "", "override the email field selector")
	flag.StringVar(&in.PasswordSelector, "password-selector", "", "override the password field selector")
	flag.StringVar(&in.SubmitSelector, "submit-selector", "", "override the submit button selector")
	flag.StringVar(&in.SuccessSelector, "success-selector", "", "override the success message selector")
	flag.IntVar(&in.TimeoutSeconds, "timeout", int(signup.DefaultTimeout/time.Second), "per-step timeout in seconds")
	headless := flag.Bool("headless", cfg.Browser.Headless, "run the browser without a window")
	screenshotDir := flag.String("screenshot-dir", cfg.Output.ScreenshotsDir, "where to save the failure screenshot")
	flag.Parse()

	log := logger.New(os.Stderr, cfg.App.LogLevel, cfg.App.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flow := signup.FromInput(in)
	if err := flow.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	session, err := browser.Launch(browser.LaunchOptions{Headless: *headless, Bin: cfg.Browser.Bin})
	if err != nil {
		log.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	res, runErr := flow.Run(ctx, session.Page)
	printResult(os.Stdout, res)

	if runErr != nil {
		name := fmt.Sprintf("signup_%s_failure.png", time.Now().Format("20060102_150405"))
		if path, err := session.Screenshot(*screenshotDir, name); err != nil {
			log.Warn("failed to take screenshot", "error", err)
		} else {
			fmt.Fprintf(os.Stdout, "Screenshot saved to: %s\n", path)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		session.Close()
		os.Exit(1)
	}
}

func printResult(w io.Writer, res signup.Result) {
	for _, s := range res.Steps {
		line := fmt.Sprintf("%d. %-15s %-8s %5dms", s.Sequence, s.Name, s.Status, s.Duration)
		if s.ErrorMessage != "" {
			line += "  " + s.ErrorMessage
		}
		fmt.Fprintln(w, line)
	}
	if res.SuccessText != "" {
		fmt.Fprintf(w, "Success message: %q\n", res.SuccessText)
	}
	fmt.Fprintf(w, "Status: %s (%s)\n", res.Status, res.Duration.Round(time.Millisecond))
}
