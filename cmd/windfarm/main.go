package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"windfarm/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	envFile    string
	clear      bool
	noWatch    bool
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "windfarm",
		Short:         "Post generated \"X causes Y\" tweets and reply to mentions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", app.DefaultConfigPath, "path to config file (yaml, json or toml)")
	cmd.Flags().StringVar(&f.envFile, "env-file", "", "load environment variables from a dotenv file first")
	cmd.Flags().BoolVarP(&f.clear, "clear", "c", false, "delete every tweet on the account and exit")
	cmd.Flags().BoolVar(&f.noWatch, "no-watch", false, "disable config hot reload")
	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil {
			return fmt.Errorf("env file: %w", err)
		}
	}

	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		select {
		case s := <-sig:
			cancel(stopSignal{s})
		case <-ctx.Done():
		}
	}()

	a, err := app.New(ctx, app.Options{
		ConfigPath:     f.configPath,
		ConfigRequired: cmd.Flags().Changed("config"),
		Watch:          !f.noWatch && !f.clear,
	})
	if err != nil {
		return err
	}

	reason := app.StopFatalError
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 45*time.Second)
		defer done()
		_ = a.Close(closeCtx, reason)
	}()

	if err := a.Authenticate(ctx); err != nil {
		return err
	}

	if f.clear {
		if err := a.Clear(ctx); err != nil {
			return err
		}
		reason = app.StopClearDone
		return nil
	}

	if err := a.Run(ctx); err != nil {
		return err
	}
	reason = stopReason(context.Cause(ctx))
	return nil
}

type stopSignal struct{ sig os.Signal }

func (s stopSignal) Error() string { return "received " + s.sig.String() }

func stopReason(cause error) app.StopReason {
	var s stopSignal
	if !errors.As(cause, &s) {
		return app.StopUnknown
	}
	switch s.sig {
	case os.Interrupt:
		return app.StopSIGINT
	case syscall.SIGTERM:
		return app.StopSIGTERM
	}
	return app.StopUnknown
}
