package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iliyamo/gym-session-reservation/internal/config"
	"github.com/iliyamo/gym-session-reservation/internal/database"
	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
	"github.com/iliyamo/gym-session-reservation/internal/utils"
)

const commandTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gymctl",
		Short:         "Operate the gym reservation database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadDotEnv()
		},
	}
	root.AddCommand(newMigrateCmd(), newCreateStaffCmd(), newResetBenefitsCmd())
	return root
}

// withDB opens the configured database for the duration of fn.
func withDB(fn func(ctx context.Context, db *sql.DB, cfg config.Config) error) error {
	cfg := config.Load()
	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, db, cfg)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, db *sql.DB, cfg config.Config) error {
				if err := database.Migrate(ctx, db, database.Dialect(cfg.DBDriver)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newCreateStaffCmd() *cobra.Command {
	var (
		name, email, role string
		passwordStdin     bool
	)
	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create an admin or trainer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := model.Role(strings.ToLower(role))
			if r != model.RoleAdmin && r != model.RoleTrainer {
				return fmt.Errorf("role must be admin or trainer, got %q", role)
			}
			if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
				return errors.New("--name and --email are required")
			}
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}
			if err := utils.CheckPassword(password); err != nil {
				return err
			}
			return withDB(func(ctx context.Context, db *sql.DB, cfg config.Config) error {
				id, err := repository.NewMemberRepo(db).Create(ctx, repository.NewMember{
					Name: strings.TrimSpace(name), Email: email, Password: password, Role: r,
				}, cfg.BcryptCost)
				if errors.Is(err, repository.ErrEmailExists) {
					return fmt.Errorf("an account with email %s already exists", email)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s #%d <%s>\n", r, id, strings.ToLower(email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "admin or trainer")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	return cmd
}

// readPassword prompts without echo on a terminal, or reads one line from
// stdin when asked to (scripts, tests).
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		return readLine(cmd.InOrStdin())
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; use --password-stdin")
	}
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func readLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no password on stdin")
	}
	return strings.TrimSpace(sc.Text()), nil
}

func newResetBenefitsCmd() *cobra.Command {
	var member string
	cmd := &cobra.Command{
		Use:   "reset-benefits",
		Short: "Restore tier benefit counters for one member or everyone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(ctx context.Context, db *sql.DB, _ config.Config) error {
				members := repository.NewMemberRepo(db)
				if member == "" {
					n, err := members.ResetAllBenefits(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "reset benefits for %d members\n", n)
					return nil
				}
				id, err := strconv.ParseUint(member, 10, 64)
				if err != nil || id == 0 {
					return fmt.Errorf("invalid member id %q", member)
				}
				m, err := members.ResetBenefits(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "member #%d: %d guest passes, %d training sessions\n",
					m.ID, m.GuestPassesRemaining, m.PersonalTrainingSessionsRemaining)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "member id; all active members when empty")
	return cmd
}
