package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arjenou/5000React/internal/client"
)

const (
	apiFlagName       = "api"
	tokenFileFlagName = "token-file"
	verboseFlagName   = "verbose"
)

type app struct {
	client *client.Client
}

func newRootCMD() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "archctl",
		Short:         "Command-line client for the portfolio API",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().String(apiFlagName, envOr("ARCHCTL_API", "http://localhost:8787"), "API base URL")
	rootCmd.PersistentFlags().String(tokenFileFlagName, defaultTokenFile(), "where the admin token is kept")
	rootCmd.PersistentFlags().BoolP(verboseFlagName, "v", false, "log request attempts")

	rootCmd.AddCommand(
		newHealthCMD(a),
		newLoginCMD(a),
		newLogoutCMD(a),
		newVerifyCMD(a),
		newProjectsCMD(a),
		newUploadCMD(a),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	flags := cmd.Flags()
	base, err := flags.GetString(apiFlagName)
	if err != nil {
		return err
	}
	tokenFile, err := flags.GetString(tokenFileFlagName)
	if err != nil {
		return err
	}
	verbose, err := flags.GetBool(verboseFlagName)
	if err != nil {
		return err
	}

	session, err := client.LoadSession(tokenFile)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a.client = client.New(base, session, client.WithLogger(logger))
	return nil
}

// emit prints a successful payload as indented JSON or turns a failed result
// into a command error.
func emit[T any](cmd *cobra.Command, res client.Result[T]) error {
	if !res.Success {
		if res.Status != 0 {
			return fmt.Errorf("%s (%s, status %d)", res.Error, res.Kind, res.Status)
		}
		return fmt.Errorf("%s (%s)", res.Error, res.Kind)
	}
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Data); err != nil {
		return err
	}
	if res.Pagination != nil {
		p := res.Pagination
		fmt.Fprintf(cmd.ErrOrStderr(), "page %d/%d, %d total\n", p.Page, p.TotalPages, p.Total)
	}
	if res.Message != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
	}
	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".archfolio", "token")
	}
	return filepath.Join(dir, "archfolio", "token")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
