package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSignupCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signup <username>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			resp, err := a.client.Signup(cmd.Context(), args[0], pass)
			if err != nil {
				return fmt.Errorf("signup: %w", err)
			}
			if err := a.saveSession(); err != nil {
				return err
			}
			a.success("signed up as %s (id %d)", resp.User.Username, resp.User.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

func newSigninCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signin <username>",
		Short: "Sign in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			resp, err := a.client.Signin(cmd.Context(), args[0], pass)
			if err != nil {
				return fmt.Errorf("signin: %w", err)
			}
			if err := a.saveSession(); err != nil {
				return err
			}
			a.success("signed in as %s", resp.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

func newSignoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Invalidate the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signoutErr := a.client.Signout(cmd.Context())
			// the local token is useless either way
			if err := a.clearSession(); err != nil {
				return err
			}
			if signoutErr != nil {
				return fmt.Errorf("signout: %w", signoutErr)
			}
			a.success("signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("whoami: %w", err)
			}
			a.printf("%s (id %d, since %s)\n", user.Username, user.ID, user.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}
}
