package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/weprixetechnologies/cly-user-sub000/auth"
	"golang.org/x/term"
)

// Swapped in tests.
var (
	promptForInput    = readLine
	promptForPassword = readPassword
)

var (
	inputSrc io.Reader
	inputBuf *bufio.Reader
)

// loginCmd creates a new cobra.Command for signing in to the storefront.
func loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your storefront account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = promptForInput(cmd, "Email: ")
			}
			password := promptForPassword(cmd, "Password: ")

			res, err := current.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			name := res.UserID
			if res.User != nil && res.User.Name != "" {
				name = res.User.Name
			}
			cmd.Printf("Login was successful. Welcome, %s.\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}

// sessionCmd shows the stored session and can force a token refresh.
func sessionCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				st  *auth.Status
				err error
			)
			if refresh {
				st, err = current.auth.Refresh(cmd.Context())
			} else {
				st, err = current.auth.Status(cmd.Context())
			}
			if err != nil {
				return err
			}
			printStatus(cmd, st)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Exchange the refresh token for a new token pair first")
	return cmd
}

func printStatus(cmd *cobra.Command, st *auth.Status) {
	if !st.LoggedIn() {
		cmd.Println("Not logged in. Use `cly login` to sign in.")
		return
	}
	cmd.Printf("User ID: %s\n", valueOr(st.UserID, "(none)"))
	cmd.Printf("Access token: %s\n", presence(st.HasAccessToken))
	cmd.Printf("Refresh token: %s\n", presence(st.HasRefreshToken))
	if st.Access == nil {
		return
	}
	if st.Access.ExpiresAt.IsZero() {
		cmd.Println("Access token expiry: unknown")
		return
	}
	state := "valid"
	if st.Access.Expired(time.Now()) {
		state = "expired"
	}
	cmd.Printf("Access token expiry: %s (%s)\n", st.Access.ExpiresAt.Local().Format(time.RFC1123), state)
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// readLine prompts the user for input and returns the trimmed string.
func readLine(cmd *cobra.Command, prompt string) string {
	cmd.Print(prompt)
	if in := cmd.InOrStdin(); in != inputSrc {
		inputSrc, inputBuf = in, bufio.NewReader(in)
	}
	input, err := inputBuf.ReadString('\n')
	if err != nil && err != io.EOF {
		log.Error().Err(err).Msg("Failed to read input")
	}
	return strings.TrimSpace(input)
}

// readPassword reads a password without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command, prompt string) string {
	cmd.Print(prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(cmd, "")
	}
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read password")
		return ""
	}
	return strings.TrimSpace(string(password))
}
