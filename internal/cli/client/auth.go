package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
		Long:  "Login, logout, and check which credentials plotsearch will use",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var token, apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token",
		Long:  "Store a bearer token and API URL in ~/.config/plotsearch/config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter token: ")
				input, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = input
			}
			return runAuthLogin(cmd.OutOrStdout(), token, apiURL)
		},
	}

	cmd.Flags().StringVar(&token, "with-token", "", "Bearer token issued by the auth service")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials are in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagToken, _ := cmd.Flags().GetString("token")
			flagURL, _ := cmd.Flags().GetString("api-url")
			creds, err := ResolveCredentials(flagToken, flagURL)
			if err != nil {
				return err
			}
			return writeAuthStatus(cmd.OutOrStdout(), creds, jsonOutput(cmd))
		},
	}
}

func runAuthLogin(w io.Writer, token, apiURL string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if strings.ContainsAny(token, " \t") {
		return fmt.Errorf("token must not contain whitespace")
	}

	if err := SaveGlobalConfig(&GlobalConfig{Token: token, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(w, "Successfully logged in")
	return nil
}

func writeAuthStatus(w io.Writer, creds Credentials, asJSON bool) error {
	authenticated := creds.Source != SourceNone

	if asJSON {
		status := map[string]any{
			"authenticated": authenticated,
			"source":        string(creds.Source),
			"api_url":       creds.APIURL,
		}
		if authenticated {
			status["token"] = maskToken(creds.Token)
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if !authenticated {
		fmt.Fprintln(w, "Not authenticated")
		fmt.Fprintf(w, "API URL: %s\n", creds.APIURL)
		fmt.Fprintln(w, "Run 'plotsearch auth login' or set "+envToken)
		return nil
	}

	fmt.Fprintln(w, "Authenticated: yes")
	fmt.Fprintf(w, "Source: %s\n", creds.Source)
	fmt.Fprintf(w, "Token: %s\n", maskToken(creds.Token))
	fmt.Fprintf(w, "API URL: %s\n", creds.APIURL)
	return nil
}

func maskToken(token string) string {
	if len(token) < 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
