package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mbolis/dynaform/client"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/session"
)

func loginCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the token in the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "read password")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			tok, err := e.client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			s := session.Session{
				Username:     username,
				DisplayName:  tok.Name(),
				AccessToken:  tok.AccessToken,
				RefreshToken: tok.RefreshToken,
				Expiration:   tok.Expiration(time.Now()),
			}
			if err = e.sessions.Save(cmd.Context(), s); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", s.Sender())
			return nil
		},
	}
	cmd.Flags().String("username", "", "account email")
	cmd.Flags().String("password", "", "account password, read from stdin when empty")
	return cmd
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// currentSession returns the stored session, refreshing its token first
// when it has expired.
func (e *env) currentSession(ctx context.Context) (session.Session, error) {
	s, err := e.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return s, &client.AuthError{Err: client.ErrNotLoggedIn}
	}
	if err != nil || !s.Expired(time.Now()) {
		return s, err
	}
	if s.RefreshToken == "" {
		return s, &client.AuthError{Err: client.ErrNotLoggedIn}
	}

	log.Debugf("formctl: token of %s expired, refreshing", s.Username)
	tok, err := e.client.Refresh(ctx, s.RefreshToken)
	if err != nil {
		return s, err
	}
	s.AccessToken = tok.AccessToken
	s.RefreshToken = tok.RefreshToken
	s.Expiration = tok.Expiration(time.Now())
	if name := tok.Name(); name != "" {
		s.DisplayName = name
	}
	return s, e.sessions.Save(ctx, s)
}
