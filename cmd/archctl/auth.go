package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newHealthCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(cmd, a.client.Health(cmd.Context()))
		},
	}
}

func newLoginCMD(a *app) *cobra.Command {
	var password string
	loginCmd := &cobra.Command{
		Use:   "login USERNAME",
		Short: "Log in as an admin and store the token",
		Long: `Log in as an admin and store the token.
The password is read from --password or, when omitted, from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password required")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			res := a.client.Login(cmd.Context(), args[0], password)
			if !res.Success {
				return emit(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", res.Data.User.Username)
			return nil
		},
	}
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "admin password")
	return loginCmd
}

func newLogoutCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.Logout()
		},
	}
}

func newVerifyCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the stored token; a rejected token is forgotten",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(cmd, a.client.Verify(cmd.Context()))
		},
	}
}
