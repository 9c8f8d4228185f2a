// Command fiictl runs maintenance tasks against the portal database:
// admin accounts, index reconciliation and goal recalculation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	mongoURI string
	dbName   string
	timeout  time.Duration
	verbose  bool
)

// connect opens the database named by the flags. The returned func
// disconnects.
var connect = func(ctx context.Context) (*mongo.Database, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetAppName("fiictl"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	return client.Database(dbName), func() { _ = client.Disconnect(context.Background()) }, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// withDB runs fn with a connected database under the --timeout deadline.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *mongo.Database) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	db, closeDB, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(ctx, db)
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "fiictl",
		Short:         "Maintenance commands for the FII portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("FIIPORTAL_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI (or FIIPORTAL_MONGO_URI)")
	root.PersistentFlags().StringVar(&dbName, "database", envOr("FIIPORTAL_MONGO_DATABASE", "fiiportal"), "MongoDB database name (or FIIPORTAL_MONGO_DATABASE)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress")

	root.AddCommand(newAdminCmd(), newIndexesCmd(), newGoalsCmd())
	return root
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "fiictl:", err)
		os.Exit(1)
	}
}
