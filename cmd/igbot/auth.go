package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igbot/pkg/auth"
	"igbot/pkg/logger"
	"igbot/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored account credentials",
	Long: `Manage stored account credentials.

Credentials are resolved in this order:
  - Command line flags and IGBOT_* environment variables
  - The secret.txt file (username:NAME and password:SECRET lines)
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

The auth commands manage the keychain and the encrypted file. The
secret.txt file is never written.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store account credentials securely",
	Example: `  # Interactive login
  igbot auth login

  # Login with username
  igbot auth login myaccount`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	Run:   runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with the password masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func newCredentialManager() *auth.Manager {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	return auth.NewManager(cfg.Account.SecretFile, logger.GetLogger())
}

func runLogin(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()
	prompt := ui.NewPrompter(os.Stdin, os.Stdout, 0)

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		input, err := prompt.ReadLine("Username: ")
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		name = input
	}
	if name == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		ok, _ := prompt.Confirm(fmt.Sprintf("Account '%s' already exists. Update credentials?(y/n)", name))
		if !ok {
			return
		}
	}

	secret, err := readPassword(prompt, "Password: ")
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	if secret == "" {
		ui.PrintError("Password is required")
		os.Exit(1)
	}

	proxy, _ := prompt.ReadLine("Proxy (press Enter for none): ")

	account := &auth.Account{Username: name, Password: secret, Proxy: proxy}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", name))
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	if err := manager.Delete(args[0]); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + args[0])
}

func runList(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'igbot auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Password: %s\n", sanitized.Password)
		if sanitized.Proxy != "" {
			fmt.Printf("   Proxy: %s\n", sanitized.Proxy)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

// readPassword reads without echo on a terminal and falls back to the
// prompter's line read otherwise
func readPassword(prompt *ui.Prompter, question string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return prompt.ReadLine(question)
	}

	fmt.Print(question)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
