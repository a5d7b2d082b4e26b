package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igcrawler/pkg/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage session credentials",
	Long: `Manage stored session credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store session credentials securely",
	Long: `Store session credentials in the system keychain or encrypted file.

You will be prompted for the session ID and CSRF token. To get these values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Copy the sessionid and csrftoken values`,
	Example: `  igcrawler auth login
  igcrawler auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:     "logout <username>",
	Short:   "Remove stored credentials",
	Example: `  igcrawler auth logout myusername`,
	Args:    cobra.ExactArgs(1),
	RunE:    runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored logins with masked secrets",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func runLogin(_ *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Instagram username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	sessionID, err := promptSecret("Session ID (sessionid cookie): ")
	if err != nil {
		return err
	}
	csrfToken, err := promptSecret("CSRF token (csrftoken cookie): ")
	if err != nil {
		return err
	}

	fmt.Print("User agent (press Enter for default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	creds := &auth.Credentials{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: userAgent,
	}
	if err := manager.Store(creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Credentials stored for %s\n", username)
	return nil
}

func runLogout(_ *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Credentials removed for %s\n", args[0])
	return nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	all, err := manager.List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No stored credentials.")
		return nil
	}

	for _, creds := range all {
		masked := creds.Masked()
		fmt.Printf("%-20s session: %-16s csrf: %-16s modified: %s\n",
			masked.Username, masked.SessionID, masked.CSRFToken,
			masked.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

// promptSecret reads a value without echoing it to the terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("value is required")
	}
	return value, nil
}
