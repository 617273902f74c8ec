package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/weprixetechnologies/cly-user-sub000/auth"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/config"
	"github.com/weprixetechnologies/cly-user-sub000/db"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/clierr"
	"github.com/weprixetechnologies/cly-user-sub000/session"
)

// deps holds what the commands share. It is built once per invocation.
type deps struct {
	cfg     *config.Config
	store   session.Store
	api     *client.Client
	auth    *auth.Service
	catalog db.CatalogRepository
	closers []func() error
	// loginRequired is set by the client when the session cannot be recovered.
	loginRequired bool
}

var (
	apiURLFlag string
	current    *deps
	// buildDeps is replaced in tests.
	buildDeps = newDeps
)

const skipDepsAnnotation = "cly/skip-deps"

func Execute() {
	rootCmd := createRootCmd()
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		printError(rootCmd, err)
	}
	closeDeps()
	if err != nil {
		os.Exit(clierr.ExitCode(userError(err)))
	}
}

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cly",
		Short:         "A command-line storefront client",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipDepsAnnotation] != "" || current != nil {
				return nil
			}
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			current = d
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Backend API base URL (overrides "+config.EnvAPIURL+")")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		sessionCmd(),
		accountCmd(),
		categoriesCmd(),
		productsCmd(),
		catalogCmd(),
		cartCmd(),
		addressCmd(),
		orderCmd(),
		faqCmd(),
		policyCmd(),
		contactCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

func newDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := config.Load(config.DefaultPath(), ".env")
	if err != nil {
		return nil, clierr.New(clierr.Validation, "Invalid configuration: "+err.Error(), err)
	}
	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
		if err := cfg.Validate(); err != nil {
			return nil, clierr.New(clierr.Validation, err.Error(), err)
		}
	}

	d := &deps{cfg: cfg}
	db.Path = cfg.DBPath
	if err := db.InitDB(); err != nil {
		return nil, clierr.New(clierr.Internal, "Failed to initialize the local database.", err)
	}
	d.closers = append(d.closers, db.CloseDB)
	d.catalog = db.NewCatalogRepository(db.GetDB())

	opts := []session.Option{session.WithSecure(cfg.SecureCookies)}
	switch cfg.SessionBackend {
	case config.BackendMemory:
		d.store = session.NewMemoryStore(opts...)
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		d.closers = append(d.closers, rdb.Close)
		d.store = session.NewRedisStore(rdb, opts...)
	default:
		d.store = session.NewDBStore(db.NewCookieRepository(db.GetDB()), opts...)
	}

	if err := d.connect(); err != nil {
		return nil, err
	}
	return d, nil
}

// connect builds the API client and auth service on top of d.store.
func (d *deps) connect() error {
	api, err := client.New(client.Config{
		BaseURL:           d.cfg.APIURL,
		Store:             d.store,
		RequestTimeout:    d.cfg.RequestTimeout,
		RefreshTimeout:    d.cfg.RefreshTimeout,
		PassThrough403:    !d.cfg.RefreshOn403,
		OnUnauthenticated: func(error) { d.loginRequired = true },
		Limiter:           client.NewRateLimiter(d.cfg.RateLimit),
		UserAgent:         "cly/" + version,
	})
	if err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	d.api = api
	d.auth = auth.NewService(d.store, api)
	return nil
}

func closeDeps() {
	if current == nil {
		return
	}
	for i := len(current.closers) - 1; i >= 0; i-- {
		if err := current.closers[i](); err != nil {
			log.Error().Err(err).Msg("Failed to release resource.")
		}
	}
	current = nil
}

// userError turns any command error into a user-facing clierr.Error.
func userError(err error) *clierr.Error {
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return ce
	}
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrNoSession):
		return clierr.New(clierr.Auth, "You are not logged in.", err)
	case errors.Is(err, client.ErrRefreshFailed):
		return clierr.New(clierr.Auth, "Your session has expired.", err)
	case errors.Is(err, client.ErrNoUserID):
		return clierr.New(clierr.Auth, "Your session has no user account attached.", err)
	case errors.Is(err, client.ErrEmptyResponse):
		return clierr.New(clierr.Backend, "The server returned an empty response.", err)
	case client.IsNotFound(err):
		return clierr.New(clierr.NotFound, apiMessage(err, "Not found."), err)
	case errors.As(err, &apiErr):
		return clierr.New(clierr.Backend, apiMessage(err, "The server rejected the request."), err)
	}
	return clierr.New(clierr.Internal, err.Error(), err)
}

func apiMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func printError(cmd *cobra.Command, err error) {
	ue := userError(err)
	cmd.PrintErrln("Error:", ue.Message)
	if ue.Type == clierr.Auth || (current != nil && current.loginRequired) {
		cmd.PrintErrln("Run `cly login` to sign in again.")
	}
}
