// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/pkg/errutil"
)

// newUserCmd creates the user command group.
func newUserCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long: `Register, authenticate, enable or disable accounts and reset passwords.
Passwords not given as flags are read from the first line of stdin.`,
	}

	cmd.AddCommand(newUserRegisterCmd(deps))
	cmd.AddCommand(newUserAuthenticateCmd(deps))
	cmd.AddCommand(newUserGoogleCmd(deps))
	cmd.AddCommand(newUserSetActiveCmd(deps))
	cmd.AddCommand(newUserResetPasswordCmd(deps))

	return cmd
}

func newUserRegisterCmd(deps *Deps) *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a password account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				pw, err := readSecret(cmd, password)
				if err != nil {
					return err
				}
				user, err := svc.Register(ctx, email, username, pw)
				if err != nil {
					return describeAuthError(err)
				}
				cmd.Println("Registered " + formatUser(user))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password (default: read from stdin)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUserAuthenticateCmd(deps *Deps) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "authenticate",
		Short: "Check an email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				pw, err := readSecret(cmd, password)
				if err != nil {
					return err
				}
				user, err := svc.Authenticate(ctx, email, pw)
				if err != nil {
					return describeAuthError(err)
				}
				cmd.Println("Authenticated " + formatUser(user))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default: read from stdin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserGoogleCmd(deps *Deps) *cobra.Command {
	var googleID, email, name string

	cmd := &cobra.Command{
		Use:   "authenticate-google",
		Short: "Sign in with an already verified Google identity",
		Long: `Sign in, link or create the account for a Google identity. The
identity must have been verified with Google beforehand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				user, err := svc.AuthenticateGoogle(ctx, googleID, email, name)
				if err != nil {
					return describeAuthError(err)
				}
				cmd.Println("Authenticated " + formatUser(user))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&googleID, "google-id", "", "Google subject identifier")
	cmd.Flags().StringVar(&email, "email", "", "email asserted by Google")
	cmd.Flags().StringVar(&name, "name", "", "display name asserted by Google")
	_ = cmd.MarkFlagRequired("google-id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserSetActiveCmd(deps *Deps) *cobra.Command {
	var (
		email  string
		active bool
	)

	cmd := &cobra.Command{
		Use:   "set-active",
		Short: "Enable or disable an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				user, err := svc.SetActive(ctx, email, active)
				if err != nil {
					return describeAuthError(err)
				}
				cmd.Println("Updated " + formatUser(user))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&active, "active", true, "whether the account may sign in")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserResetPasswordCmd(deps *Deps) *cobra.Command {
	var email, newPassword string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset an account password",
		Long: `Issue a reset token for the account and redeem it with the new
password in one step. Reset tokens do not outlive the process that issued
them, so this is the offline equivalent of the emailed reset flow.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, deps, func(ctx context.Context, svc *auth.Service) error {
				pw, err := readSecret(cmd, newPassword)
				if err != nil {
					return err
				}
				token, err := svc.CreateResetToken(ctx, email)
				if err != nil {
					return describeAuthError(err)
				}
				if err := svc.ResetPassword(ctx, token, pw); err != nil {
					svc.ResetTokens().Revoke(token)
					return describeAuthError(err)
				}
				cmd.Println("Password reset for " + auth.NormalizeEmail(email))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "new password (default: read from stdin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// withService builds a backend for cmd, runs fn and releases the backend.
func withService(cmd *cobra.Command, deps *Deps, fn func(ctx context.Context, svc *auth.Service) error) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	backend, err := deps.BackendFactory(ctx, cfg, logger, nil)
	if err != nil {
		errutil.LogError(logger, "start backend", err)
		return err
	}
	defer backend.Close()

	// Authentication kinds are the command's answer, not a failure to log.
	if err := fn(ctx, backend.Service); err != nil {
		if !errors.Is(err, auth.ErrAuthentication) {
			errutil.LogError(logger, "user command failed", err)
		}
		return err
	}
	return nil
}

// readSecret returns value, or the first line of stdin when value is empty.
func readSecret(cmd *cobra.Command, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", oops.Code("PASSWORD_REQUIRED").Wrap(err)
		}
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password is required")
	}
	return line, nil
}

// describeAuthError adds a readable hint for password policy failures.
func describeAuthError(err error) error {
	if reason := auth.WeakPasswordReason(err); reason != "" {
		return oops.Code(auth.CodeWeakPassword).Wrapf(err, "%s", reason)
	}
	return err
}

func formatUser(u *auth.User) string {
	s := fmt.Sprintf("%s <%s> id=%s logins=%d", u.Username, u.Email, u.ID, u.LoginCount)
	if !u.IsActive {
		s += " (disabled)"
	}
	return s
}
