package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"socialcrawler/pkg/auth"
	"socialcrawler/pkg/config"
	"socialcrawler/pkg/logger"
	"socialcrawler/pkg/reddit"
	"socialcrawler/pkg/ui"
)

var noVerify bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Reddit credentials",
	Long: `Manage stored Reddit script-app credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Reddit credentials securely",
	Long: `Store the credentials of a Reddit script app.

You will be prompted for:
  - Client id and client secret of the app
  - Reddit username (if not provided) and password
  - User Agent (optional, press Enter for the configured one)

The credentials are checked against the token endpoint before they are
stored, unless --no-verify is given.`,
	Example: `  # Interactive login
  socialcrawler auth login

  # Login with username, skipping the token check
  socialcrawler auth login my_bot --no-verify`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored Reddit credentials.

If no username is provided, you will be shown a list of stored accounts
to choose from.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Reddit accounts with sanitized credential information.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&noVerify, "no-verify", false, "store without requesting a token first")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	cfg, err := config.Resolve(configFile, globalFlags())
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowAppSetupGuide(cmd.OutOrStdout())

	fmt.Print("Ready to enter your app credentials? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'socialcrawler auth login' when you're ready.")
		return
	}
	fmt.Println()

	if username == "" {
		username = prompt(reader, "Reddit username: ")
	}
	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("\nAccount '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	clientID := prompt(reader, "Client id: ")

	fmt.Print("Client secret (hidden): ")
	clientSecret, err := readPassword(reader)
	if err != nil {
		ui.PrintError("Failed to read client secret", err.Error())
		os.Exit(1)
	}

	fmt.Print("Password (hidden): ")
	password, err := readPassword(reader)
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}

	userAgent := prompt(reader, fmt.Sprintf("User Agent (Enter for %q): ", cfg.Reddit.UserAgent))
	if userAgent == "" {
		userAgent = cfg.Reddit.UserAgent
	}

	account := &auth.Account{
		Username:     username,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Password:     password,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}
	if err := account.Validate(); err != nil {
		ui.PrintError("Invalid credentials", err.Error())
		os.Exit(1)
	}

	if !noVerify {
		fmt.Println("\nRequesting a token to check the credentials...")
		if err := verifyCredentials(cmd.Context(), account, cfg.Reddit); err != nil {
			ui.PrintError("Credential check failed", err.Error())
			fmt.Println("\nUse --no-verify to store them anyway.")
			os.Exit(1)
		}
		ui.PrintSuccess("Token acquired")
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Account saved: " + username)

	fmt.Println("\nYour credentials are stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("   - System keychain (primary)")
	}
	fmt.Println("   - Encrypted file (backup)")

	fmt.Println("\nStart a run:")
	fmt.Println("   $ socialcrawler crawl -s <subreddit>")
	fmt.Println("\nUse this account explicitly:")
	fmt.Printf("   $ socialcrawler crawl -s <subreddit> --account %s\n", username)
}

// verifyCredentials runs one password grant against the token endpoint
func verifyCredentials(ctx context.Context, account *auth.Account, cfg config.RedditConfig) error {
	client := reddit.NewClient(account.Credentials(), cfg, logger.NewNopLogger())
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	return client.Authenticate(ctx)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found")
			return
		}

		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Username)
		}
		fmt.Printf("  0. Cancel\n\n")

		reader := bufio.NewReader(os.Stdin)
		input := prompt(reader, "Choice: ")

		var choice int
		fmt.Sscanf(input, "%d", &choice)
		if choice == 0 {
			return
		}
		if choice < 0 || choice > len(accounts) {
			ui.PrintError("Invalid choice")
			os.Exit(1)
		}
		username = accounts[choice-1].Username
	}

	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + username)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'socialcrawler auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	ui.Println()

	rows := make([][]string, 0, len(accounts))
	for _, account := range accounts {
		s := auth.SanitizeAccount(account)
		rows = append(rows, []string{
			s.Username,
			s.ClientID,
			s.ClientSecret,
			s.UserAgent,
			s.LastModified.Format("2006-01-02 15:04:05"),
		})
	}
	ui.PrintTable([]string{"USERNAME", "CLIENT ID", "SECRET", "USER AGENT", "MODIFIED"}, rows)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads a secret from stdin without echoing
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
