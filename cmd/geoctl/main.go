// Package main provides geoctl, the operator CLI for provisioning
// tenants, managing points, and minting geo tokens against a
// Postgres-backed appstore.
//
// Usage:
//
//	geoctl app create --app demo --auth-key secret --max-zoom 20
//	geoctl point create --app demo --point P1
//	geoctl token mint-update --app demo --point P1
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/core"
	"github.com/geomesh/proximity/internal/pointcache"
	"github.com/geomesh/proximity/internal/token"
)

var (
	dbURL   string
	verbose bool
	pool    *pgxpool.Pool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "geoctl",
		Short: "Operator CLI for the proximity index",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			if dbURL == "" {
				dbURL = os.Getenv("DATABASE_URL")
				if dbURL == "" {
					return fmt.Errorf("DATABASE_URL environment variable required (or pass --db)")
				}
			}

			ctx := context.Background()
			var err error
			pool, err = pgxpool.New(ctx, dbURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			if err := appstore.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if pool != nil {
				pool.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL (defaults to DATABASE_URL env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(appCmd(), pointCmd(), tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// worldFromPool builds a core.World bound to the global connection
// pool established in PersistentPreRunE. The CLI always talks to the
// durable Postgres store, never the in-memory one, since an ephemeral
// store would make every management command a no-op.
func worldFromPool() (*core.World, error) {
	if pool == nil {
		return nil, fmt.Errorf("no database connection")
	}
	return core.NewWorld(appstore.NewPostgres(pool), pointcache.New()), nil
}

func appCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "app", Short: "Manage tenants"}

	var authKey, hmacKeyHex string
	var maxZoom int
	create := &cobra.Command{
		Use:   "create",
		Short: "Create or update a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _ := cmd.Flags().GetString("app")
			if app == "" {
				return fmt.Errorf("--app is required")
			}
			hmacKey, err := resolveHMACKey(hmacKeyHex)
			if err != nil {
				return err
			}
			if authKey == "" {
				authKey = randomHex(16)
				fmt.Printf("generated auth key: %s\n", authKey)
			}
			if err := appstore.CreateTenant(cmd.Context(), pool, app, authKey, hmacKey, maxZoom); err != nil {
				return err
			}
			fmt.Printf("tenant %q ready (max zoom %d)\n", app, maxZoom)
			return nil
		},
	}
	create.Flags().String("app", "", "tenant id")
	create.Flags().StringVar(&authKey, "auth-key", "", "management auth key (generated if omitted)")
	create.Flags().StringVar(&hmacKeyHex, "hmac-key", "", "hex-encoded HMAC key (generated if omitted)")
	create.Flags().IntVar(&maxZoom, "max-zoom", 20, "max sector zoom level for this tenant")

	cmd.AddCommand(create)
	return cmd
}

func pointCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "point", Short: "Manage points"}

	var app, pointID, authKey string

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := worldFromPool()
			if err != nil {
				return err
			}
			appTok := token.MintAppToken(app, authKey)
			start := time.Now()
			if err := world.CreatePoint(cmd.Context(), appTok, pointID); err != nil {
				return err
			}
			fmt.Printf("point %q created in %s\n", diagnosticASCII(pointID), humanize.RelTime(start, time.Now(), "", ""))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := worldFromPool()
			if err != nil {
				return err
			}
			appTok := token.MintAppToken(app, authKey)
			if err := world.DeletePoint(cmd.Context(), appTok, pointID); err != nil {
				return err
			}
			fmt.Printf("point %q deleted\n", diagnosticASCII(pointID))
			return nil
		},
	}

	var subjectsJSON string
	setSubjects := &cobra.Command{
		Use:   "set-subjects",
		Short: `Replace a point's subjects, e.g. --subjects '[{"subject_id":"s1","priority":1.5}]'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var subjects []appstore.Subject
			if err := json.Unmarshal([]byte(subjectsJSON), &subjects); err != nil {
				return fmt.Errorf("invalid --subjects JSON: %w", err)
			}
			world, err := worldFromPool()
			if err != nil {
				return err
			}
			appTok := token.MintAppToken(app, authKey)
			if err := world.SetPointSubjects(cmd.Context(), appTok, pointID, subjects); err != nil {
				return err
			}
			labels := make([]string, len(subjects))
			for i, s := range subjects {
				labels[i] = diagnosticASCII(s.SubjectID)
			}
			fmt.Printf("set %s subjects (%s) for point %q\n",
				humanize.Comma(int64(len(subjects))), strings.Join(labels, ", "), diagnosticASCII(pointID))
			return nil
		},
	}
	setSubjects.Flags().StringVar(&subjectsJSON, "subjects", "[]", "JSON array of {subject_id, priority}")

	for _, c := range []*cobra.Command{create, del, setSubjects} {
		c.Flags().StringVar(&app, "app", "", "tenant id")
		c.Flags().StringVar(&pointID, "point", "", "point id")
		c.Flags().StringVar(&authKey, "auth-key", "", "tenant auth key")
	}

	cmd.AddCommand(create, del, setSubjects)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Mint geo tokens"}

	var app, pointID, authKey, subjectID string
	var pointIDs []string

	mintUpdate := &cobra.Command{
		Use:   "mint-update",
		Short: "Mint an UPDATE_POINT token",
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := worldFromPool()
			if err != nil {
				return err
			}
			appTok := token.MintAppToken(app, authKey)
			tok, err := world.GetUpdatePointAuthToken(cmd.Context(), appTok, pointID)
			if err != nil {
				return err
			}
			return printToken(tok)
		},
	}

	mintNearest := &cobra.Command{
		Use:   "mint-nearest",
		Short: "Mint a NEAREST_POINTS token",
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := worldFromPool()
			if err != nil {
				return err
			}
			appTok := token.MintAppToken(app, authKey)
			tok, err := world.GetNearestPointsAuthToken(cmd.Context(), appTok, pointID, subjectID)
			if err != nil {
				return err
			}
			return printToken(tok)
		},
	}
	mintNearest.Flags().StringVar(&subjectID, "subject", "", "subject id the token is scoped to")

	mintCoords := &cobra.Command{
		Use:   "mint-coords",
		Short: "Mint a POINTS_COORDS token",
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := worldFromPool()
			if err != nil {
				return err
			}
			appTok := token.MintAppToken(app, authKey)
			tok, err := world.GetPointsCoordsAuthToken(cmd.Context(), appTok, pointID, pointIDs)
			if err != nil {
				return err
			}
			return printToken(tok)
		},
	}
	mintCoords.Flags().StringSliceVar(&pointIDs, "point-ids", nil, "comma-separated point ids the token is bound to")

	for _, c := range []*cobra.Command{mintUpdate, mintNearest, mintCoords} {
		c.Flags().StringVar(&app, "app", "", "tenant id")
		c.Flags().StringVar(&pointID, "point", "", "anchor point id")
		c.Flags().StringVar(&authKey, "auth-key", "", "tenant auth key")
	}

	cmd.AddCommand(mintUpdate, mintNearest, mintCoords)
	return cmd
}

func printToken(tok token.GeoToken) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	fmt.Printf("expires %s\n", humanize.Time(tok.Claims.ExpireAt))
	return nil
}

func resolveHMACKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate hmac key: %w", err)
		}
		fmt.Printf("generated hmac key: %s\n", hex.EncodeToString(key))
		return key, nil
	}
	return hex.DecodeString(hexKey)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
