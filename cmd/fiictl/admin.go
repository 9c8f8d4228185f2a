package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	adminstore "github.com/dalemusser/fiiportal/internal/app/store/admins"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// minPassword is the shortest password fiictl will hash.
const minPassword = 10

// passwordEnv lets scripts pass a password without a prompt.
const passwordEnv = "FIICTL_PASSWORD"

var errPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPassword)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(), newAdminSetPasswordCmd(), newAdminStatusCmd("disable", models.AdminDisabled),
		newAdminStatusCmd("enable", models.AdminActive), newAdminListCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var name string
	var googleOnly bool
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an admin (password read from stdin or " + passwordEnv + ")",
		Long: `Creates an active admin account. The email must also be listed in
admin_emails for the account to sign in. With --google-only no password is
stored and the admin signs in with Google.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hash string
			if !googleOnly {
				pw, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if hash, err = hashPassword(pw); err != nil {
					return err
				}
			}
			return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
				a, err := adminstore.New(db).Create(ctx, args[0], name, hash)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", a.Email, a.ID.Hex())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().BoolVar(&googleOnly, "google-only", false, "Create without a password")
	return cmd
}

func newAdminSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <email>",
		Short: "Replace an admin's password (read from stdin or " + passwordEnv + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := hashPassword(pw)
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
				if err := adminstore.New(db).SetPassword(ctx, args[0], hash); err != nil {
					return notFoundHint(err, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
				return nil
			})
		},
	}
}

func newAdminStatusCmd(use, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: "Set an admin's status to " + status,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
				if err := adminstore.New(db).SetStatus(ctx, args[0], status); err != nil {
					return notFoundHint(err, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s is now %s\n", args[0], status)
				return nil
			})
		},
	}
}

func newAdminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
				admins, err := adminstore.New(db).List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "EMAIL\tNAME\tSTATUS\tPASSWORD\tLAST LOGIN")
				for _, a := range admins {
					last := "-"
					if a.LastLoginAt != nil {
						last = a.LastLoginAt.Format("2006-01-02 15:04")
					}
					pw := "no"
					if a.PasswordHash != "" {
						pw = "yes"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Email, a.Name, a.Status, pw, last)
				}
				return tw.Flush()
			})
		},
	}
}

// readPassword takes FIICTL_PASSWORD when set, otherwise the first line
// of r.
func readPassword(r io.Reader) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func hashPassword(pw string) (string, error) {
	if len(pw) < minPassword {
		return "", errPasswordTooShort
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func notFoundHint(err error, email string) error {
	if errors.Is(err, adminstore.ErrNotFound) {
		return fmt.Errorf("no admin with email %s", email)
	}
	return err
}
