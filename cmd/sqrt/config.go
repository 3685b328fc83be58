package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"sqrt-go/internal/app"
	"sqrt-go/internal/config"
	"sqrt-go/internal/database"
	"sqrt-go/internal/encryption"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration, archive keys and the warehouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}
		if enc != nil && !enc.IsConfigured() {
			passphrase, err := readPassphrase("Archive key passphrase: ", true)
			if err != nil {
				return err
			}
			if err := enc.Setup(passphrase); err != nil {
				return fmt.Errorf("generating archive keys: %w", err)
			}
			fmt.Printf("Archive keys written to %s\n", cfg.Encryption.PublicKeyPath)
		}

		db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Printf("Warehouse ready at %s\n", db.Path())
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Println()
		fmt.Printf("aw logs:    %s\n", cfg.Aw.LogsFolder)
		fmt.Printf("aw android: %s\n", cfg.Aw.AndroidFile)
		fmt.Printf("mpd:        %s, %s\n", cfg.Mpd.LibraryCSV, cfg.Mpd.LogFolder)
		fmt.Printf("sleep:      %s\n", cfg.Sleep.File)
		fmt.Printf("waka:       %s\n", cfg.Waka.DumpFolder)
		fmt.Printf("archive:    %s (%d days, timeout %d)\n", cfg.Archive.Root, cfg.Archive.Days, cfg.Archive.Timeout)
		return nil
	},
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
// When stdin is not a terminal the first line of stdin is used.
func readPassphrase(prompt string, confirm bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	read := func(prompt string) (string, error) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	passphrase, err := read(prompt)
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := read("Repeat passphrase: ")
		if err != nil {
			return "", err
		}
		if again != passphrase {
			return "", errors.New("passphrases do not match")
		}
	}
	return passphrase, nil
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
}
