package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/postgresresults"
	"github.com/a-h/localcluster/rqliteresults"
	"github.com/a-h/localcluster/sqliteresults"
	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"zombiezen.com/go/sqlite/sqlitex"
)

type GlobalFlags struct {
	LogLevel   string `help:"Log level (debug, info, warn, error)." enum:"debug,info,warn,error" default:"info"`
	Store      string `help:"The type of result store to use." enum:"none,sqlite,rqlite,postgres" default:"none"`
	Connection string `help:"The result store connection string to use." default:"file:results.db?mode=rwc"`
}

// ResultStore returns the configured result store, or nil if there isn't one.
func (g GlobalFlags) ResultStore(ctx context.Context) (localcluster.Store, error) {
	switch g.Store {
	case "none", "":
		return nil, nil
	case "sqlite":
		pool, err := sqlitex.NewPool(g.Connection, sqlitex.PoolOptions{})
		if err != nil {
			return nil, err
		}
		return sqliteresults.New(pool), nil
	case "rqlite":
		u, err := url.Parse(g.Connection)
		if err != nil {
			return nil, err
		}
		user := u.Query().Get("user")
		password := u.Query().Get("password")
		// Remove user and password from the connection string.
		u.RawQuery = ""
		client := rqlitehttp.NewClient(u.String(), nil)
		if user != "" && password != "" {
			client.SetBasicAuth(user, password)
		}
		return rqliteresults.New(client), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, g.Connection)
		if err != nil {
			return nil, err
		}
		return postgresresults.New(pool), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", g.Store)
	}
}

type CLI struct {
	GlobalFlags

	Movies MoviesCommand `cmd:"movies" help:"Find the local cluster around a movie in a Neo4j movie graph."`
	Plot   PlotCommand   `cmd:"plot" help:"Plot on disk against in memory running times."`
	SBM    SBMCommand    `cmd:"sbm" help:"Stochastic block model experiments (generate, compare)."`
	Wiki   WikiCommand   `cmd:"wiki" help:"Wikipedia top categories experiments (cluster, category)."`
}

func main() {
	var cli CLI
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	kctx := kong.Parse(&cli,
		kong.Name("localcluster"),
		kong.Description("Local graph clustering experiments."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	slog.SetDefault(setupLogger(cli.LogLevel))
	if err := kctx.Run(cli.GlobalFlags); err != nil {
		fmt.Println(err)
		cancel()
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	// Results are written to stdout, so logs go to stderr.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
