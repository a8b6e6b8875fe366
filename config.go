package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind            string
	databaseName    string
	databaseURI     string
	gracePeriod     time.Duration
	port            int
	prefix          string
	profile         bool
	tlsCert         string
	tlsKey          string
	vapidEmail      string
	vapidPrivateKey string
	vapidPublicKey  string
	verbose         bool
	version         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if (c.vapidPublicKey == "") != (c.vapidPrivateKey == "") {
		return errors.New("both --vapid-public-key and --vapid-private-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.gracePeriod <= 0 {
		return fmt.Errorf("invalid grace period (must be positive): %s", c.gracePeriod)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("INFECT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "infect",
		Short:         "Coordination service for the Infected party game: join codes, live rooms, and infection updates.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServeAPI(cmd.Context(), cfg)
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: INFECT_BIND)")
	fs.StringVar(&cfg.databaseName, "database-name", "infect", "mongodb database name (env: INFECT_DATABASE_NAME)")
	fs.StringVar(&cfg.databaseURI, "database-uri", "", "mongodb connection uri; empty selects the in-memory store (env: INFECT_DATABASE_URI)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", 60*time.Second, "time a disconnected player's seat is held pending reconnect (env: INFECT_GRACE_PERIOD)")
	fs.IntVarP(&cfg.port, "port", "p", 4000, "port to listen on (env: INFECT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: INFECT_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: INFECT_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: INFECT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: INFECT_TLS_KEY)")
	fs.StringVar(&cfg.vapidEmail, "vapid-email", "mailto:admin@example.com", "contact address reported to push services (env: INFECT_VAPID_EMAIL)")
	fs.StringVar(&cfg.vapidPrivateKey, "vapid-private-key", "", "vapid private key for web push (env: INFECT_VAPID_PRIVATE_KEY)")
	fs.StringVar(&cfg.vapidPublicKey, "vapid-public-key", "", "vapid public key for web push (env: INFECT_VAPID_PUBLIC_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: INFECT_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: INFECT_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newCleanupCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("infect v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
