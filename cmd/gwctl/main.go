// Command gwctl is a small administrative CLI for the gateway's
// credential and external API account store. It shares the gateway's
// own config file and database (internal/infrastructure/config,
// internal/infrastructure/persistence) but runs no HTTP server — it
// mirrors the teacher's cmd/cli entrypoint in structure (cobra root +
// subcommands, config.Load() bootstrap) without its interactive REPL
// surface, and logs nothing (its logger is zap.NewNop()).
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/repository"
	"github.com/ngoclaw/relaygate/internal/infrastructure/config"
	"github.com/ngoclaw/relaygate/internal/infrastructure/persistence"
)

const gwctlVersion = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:     "gwctl",
		Short:   "Administrative CLI for the relay gateway's credential store",
		Version: gwctlVersion,
	}

	root.AddCommand(newCredentialCmd())
	root.AddCommand(newAccountCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// store bundles the repositories gwctl operates against, opened fresh
// for each invocation (this is a short-lived CLI process, not a
// server — there is no long-lived connection pool to share).
type store struct {
	credentials repository.CredentialRepository
	externals   repository.ExternalAPIAccountRepository
}

func openStore() (*store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := zap.NewNop()

	db, err := persistence.NewDBConnectionSilent(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	key := config.ResolveEncryptionKey(cfg.Relay.EncryptionKey, logger)

	credentials, err := persistence.NewGormCredentialRepository(db, key)
	if err != nil {
		return nil, fmt.Errorf("init credential repository: %w", err)
	}
	externals, err := persistence.NewGormExternalAPIAccountRepository(db, key)
	if err != nil {
		return nil, fmt.Errorf("init external account repository: %w", err)
	}
	return &store{credentials: credentials, externals: externals}, nil
}

func newCredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credential",
		Aliases: []string{"cred"},
		Short:   "Manage Upstream credentials",
	}

	var (
		userID     string
		region     string
		authType   string
		visibility string
		opusFlag   bool
	)
	create := &cobra.Command{
		Use:   "create <refresh-token>",
		Short: "Register a new credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			id := uuid.NewString()
			now := time.Now()
			cred := entity.ReconstructCredential(
				id, args[0], region,
				entity.AuthType(authType),
				"", "", "", userID,
				entity.CredentialVisibility(visibility),
				entity.CredentialStatusActive,
				opusFlag,
				0, 0, time.Time{}, time.Time{}, now,
			)
			if err := s.credentials.Save(cmd.Context(), cred); err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	create.Flags().StringVar(&userID, "user", "", "owning user ID (empty for the public pool)")
	create.Flags().StringVar(&region, "region", "us-east-1", "Upstream region")
	create.Flags().StringVar(&authType, "auth-type", string(entity.AuthTypeSocial), "social|idc")
	create.Flags().StringVar(&visibility, "visibility", string(entity.VisibilityPublic), "public|private")
	create.Flags().BoolVar(&opusFlag, "opus", false, "mark this credential Pro+/Opus-enabled")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			creds, err := s.credentials.FindAll(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSER\tVISIBILITY\tSTATUS\tOPUS\tSUCCESS\tFAIL\tLAST USED")
			for _, c := range creds {
				lastUsed := "-"
				if !c.LastUsed().IsZero() {
					lastUsed = c.LastUsed().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%d\t%d\t%s\n",
					c.ID(), orDash(c.UserID()), c.Visibility(), c.Status(),
					c.OpusEnabled(), c.SuccessCount(), c.FailCount(), lastUsed)
			}
			return w.Flush()
		},
	})

	var newStatus string
	setStatus := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Change a credential's status (active|invalid|expired)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			return s.credentials.MarkStatus(cmd.Context(), args[0], entity.CredentialStatus(newStatus))
		},
	}
	setStatus.Flags().StringVar(&newStatus, "status", "", "active|invalid|expired")
	_ = setStatus.MarkFlagRequired("status")
	cmd.AddCommand(setStatus)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			return s.credentials.Delete(cmd.Context(), args[0])
		},
	})

	return cmd
}

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"acct"},
		Short:   "Manage external API accounts used for delegation",
	}

	var format string
	create := &cobra.Command{
		Use:   "create <user-id> <api-base> <api-key>",
		Short: "Register a new external API account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			account, err := entity.NewExternalAPIAccount(
				uuid.NewString(), args[1], args[2],
				entity.APIFormat(format), args[0],
			)
			if err != nil {
				return err
			}
			if err := s.externals.Save(cmd.Context(), account); err != nil {
				return err
			}
			fmt.Println(account.ID())
			return nil
		},
	}
	create.Flags().StringVar(&format, "format", string(entity.FormatOpenAI), "openai|anthropic")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's external API accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			accounts, err := s.externals.FindByUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFORMAT\tAPI BASE\tSUCCESS\tFAIL")
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", a.ID(), a.Format(), a.APIBase(), a.SuccessCount(), a.FailCount())
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an external API account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			return s.externals.Delete(cmd.Context(), args[0])
		},
	})

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
