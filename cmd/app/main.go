// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fieldvault/fieldvault/cmd/app/commands"
	"github.com/fieldvault/fieldvault/internal/app"
	"github.com/fieldvault/fieldvault/internal/config"
	cryptoService "github.com/fieldvault/fieldvault/internal/crypto/service"
)

const version = "1.0.0"

// withContainer loads the configuration, builds the DI container, hands it to
// the command and shuts everything down afterwards.
func withContainer(ctx context.Context, fn func(context.Context, *app.Container) error) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}()

	return fn(ctx, container)
}

func main() {
	cmd := &cli.Command{
		Name:    "fieldvault",
		Usage:   "Field-level encryption and tokenization service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations for the SQL store backends",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunMigrations(
						container.Logger(),
						cfg.StoreDriver,
						cfg.DBConnectionString,
					)
				},
			},
			{
				Name:  "create-master-key",
				Usage: "Generate a new KMS-protected master key for wrapping field keys",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Master key ID (e.g., prod-master-key-2026)",
					},
					&cli.StringFlag{
						Name:  "kms-provider",
						Value: "",
						Usage: "KMS provider (gcpkms, awskms, azurekeyvault, hashivault or localsecrets)",
					},
					&cli.StringFlag{
						Name:  "kms-key-uri",
						Value: "",
						Usage: "KMS key URI (e.g., base64key://... for localsecrets)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunCreateMasterKey(
						ctx,
						cryptoService.NewKMSService(),
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("id"),
						cmd.String("kms-provider"),
						cmd.String("kms-key-uri"),
					)
				},
			},
			{
				Name:  "generate-key",
				Usage: "Create version 1 of a new field key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Key ID (e.g., pii)",
					},
					&cli.StringFlag{
						Name:    "algorithm",
						Aliases: []string{"alg"},
						Value:   "aes-gcm",
						Usage:   "Encryption algorithm to use (aes-gcm or chacha20-poly1305)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						keys, err := container.KeyUseCase()
						if err != nil {
							return err
						}
						return commands.RunGenerateKey(
							ctx,
							keys,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.String("id"),
							cmd.String("algorithm"),
						)
					})
				},
			},
			{
				Name:  "rotate-key",
				Usage: "Create the next version of an existing field key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Key ID to rotate",
					},
					&cli.StringFlag{
						Name:    "algorithm",
						Aliases: []string{"alg"},
						Value:   "",
						Usage:   "New algorithm (empty keeps the current one)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						keys, err := container.KeyUseCase()
						if err != nil {
							return err
						}
						return commands.RunRotateKey(
							ctx,
							keys,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.String("id"),
							cmd.String("algorithm"),
						)
					})
				},
			},
			{
				Name:  "purge-key-version",
				Usage: "Permanently remove a retired key version",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"i"},
						Value:   "",
						Usage:   "Key ID",
					},
					&cli.UintFlag{
						Name:    "version",
						Aliases: []string{"v"},
						Value:   0,
						Usage:   "Version number to purge",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						keys, err := container.KeyUseCase()
						if err != nil {
							return err
						}
						return commands.RunPurgeKeyVersion(
							ctx,
							keys,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.String("id"),
							uint32(cmd.Uint("version")),
						)
					})
				},
			},
			{
				Name:  "clean-tokens",
				Usage: "Hard-delete revoked token records past their retention window",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Value:   30,
						Usage:   "Remove revoked records inactive for more than this many days",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Value: false,
						Usage: "Report what would be removed without deleting anything",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format (text or json)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						if err := container.LoadState(ctx); err != nil {
							return err
						}
						vault, err := container.VaultUseCase()
						if err != nil {
							return err
						}
						return commands.RunCleanTokens(
							ctx,
							vault,
							container.Logger(),
							commands.DefaultIO().Writer,
							int(cmd.Int("days")),
							cmd.Bool("dry-run"),
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "register-field",
				Usage: "Register the encryption policy for a field",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "field",
						Value: "",
						Usage: "Field ID (e.g., customer.email)",
					},
					&cli.StringFlag{
						Name:  "key",
						Value: "",
						Usage: "Key ID the field encrypts under",
					},
					&cli.StringFlag{
						Name:  "mode",
						Value: "randomized",
						Usage: "Encryption mode (deterministic or randomized)",
					},
					&cli.StringFlag{
						Name:  "shape",
						Value: "string",
						Usage: "Value shape (string, text, json or number)",
					},
					&cli.BoolFlag{
						Name:  "compress",
						Value: false,
						Usage: "Compress values before encryption",
					},
					&cli.BoolFlag{
						Name:  "cache-randomized",
						Value: false,
						Usage: "Opt a randomized field into the encryption cache",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						if err := container.LoadState(ctx); err != nil {
							return err
						}
						columns, err := container.ColumnUseCase()
						if err != nil {
							return err
						}
						return commands.RunRegisterField(
							ctx,
							columns,
							container.Logger(),
							commands.DefaultIO().Writer,
							cmd.String("field"),
							cmd.String("key"),
							cmd.String("mode"),
							cmd.String("shape"),
							cmd.Bool("compress"),
							cmd.Bool("cache-randomized"),
						)
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
