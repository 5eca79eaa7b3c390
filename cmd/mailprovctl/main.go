package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/mailprov/internal/billing"
	"github.com/edvin/mailprov/internal/config"
	"github.com/edvin/mailprov/internal/crypto"
	"github.com/edvin/mailprov/internal/ctl"
	"github.com/edvin/mailprov/internal/customfield"
	"github.com/edvin/mailprov/internal/db"
	"github.com/edvin/mailprov/internal/logging"
	"github.com/edvin/mailprov/internal/mailcow"
	"github.com/edvin/mailprov/internal/provision"
)

// optionFlags collects repeated -option Name=value flags.
type optionFlags []string

func (o *optionFlags) String() string     { return strings.Join(*o, ",") }
func (o *optionFlags) Set(v string) error { *o = append(*o, v); return nil }

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error

	switch cmd {
	case "servers":
		err = listServers(args)
	case "test":
		err = testConnection(args)
	case "status":
		err = withServer("status", args, "", func(ctx context.Context, client *mailcow.Client, srv mailcow.Server, fs *flag.FlagSet) error {
			return ctl.Status(ctx, client, srv, os.Stdout)
		})
	case "mailboxes":
		err = withServer("mailboxes", args, "<domain>", func(ctx context.Context, client *mailcow.Client, srv mailcow.Server, fs *flag.FlagSet) error {
			return ctl.Mailboxes(ctx, client, srv, fs.Arg(0), os.Stdout)
		})
	case "credentials":
		err = credentials(args)
	case "lifecycle":
		err = lifecycle(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  mailprovctl servers [-profiles FILE]
  mailprovctl test [-profiles FILE] [-server NAME]
  mailprovctl status [-profiles FILE] [-server NAME]
  mailprovctl mailboxes [-profiles FILE] [-server NAME] <domain>
  mailprovctl credentials <service-id>
  mailprovctl lifecycle [-profiles FILE] [-server NAME] -action ACTION [-password PW] [-option Name=value]... <service-id>

Actions: suspend, unsuspend, terminate, change-package, change-password, sync-username

Server profiles are read from ~/.config/mailprov/servers.yaml unless -profiles is given.
Commands that read service records use DATABASE_URL and PASSWORD_ENCRYPTION_KEY.`)
}

func profileFlags(fs *flag.FlagSet) (profiles, server *string) {
	profiles = fs.String("profiles", "", "Path to the servers file")
	server = fs.String("server", "", "Server profile name (default: the file's default)")
	return profiles, server
}

func loadServer(profilesPath, name string) (mailcow.Server, error) {
	profiles, err := loadProfiles(profilesPath)
	if err != nil {
		return mailcow.Server{}, err
	}
	return profiles.Server(name)
}

func loadProfiles(path string) (*ctl.Profiles, error) {
	if path == "" {
		var err error
		path, err = ctl.DefaultProfilesPath()
		if err != nil {
			return nil, err
		}
	}
	return ctl.LoadProfiles(path)
}

func listServers(args []string) error {
	fs := flag.NewFlagSet("servers", flag.ExitOnError)
	profilesPath := fs.String("profiles", "", "Path to the servers file")
	fs.Parse(args)

	profiles, err := loadProfiles(*profilesPath)
	if err != nil {
		return err
	}
	for _, name := range profiles.Names() {
		srv := profiles.Servers[name]
		marker := " "
		if name == profiles.Default {
			marker = "*"
		}
		fmt.Printf("%s %-16s %s\n", marker, name, srv.BaseURL())
	}
	return nil
}

func testConnection(args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	profilesPath, server := profileFlags(fs)
	timeout := fs.Duration("timeout", mailcow.DefaultTimeout, "Request timeout")
	fs.Parse(args)

	srv, err := loadServer(*profilesPath, *server)
	if err != nil {
		return err
	}

	module := provision.NewModule(mailcow.NewClient(*timeout), noShadow{}, nil, nil, zerolog.Nop())
	result := module.TestConnection(context.Background(), provision.Params{Server: srv})
	if !result.Success {
		return fmt.Errorf("connection failed: %s", result.Error)
	}
	fmt.Printf("Connection to %s OK\n", srv.BaseURL())
	return nil
}

// withServer parses the common flags and runs fn against the selected server.
func withServer(name string, args []string, usageArgs string, fn func(ctx context.Context, client *mailcow.Client, srv mailcow.Server, fs *flag.FlagSet) error) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	profilesPath, server := profileFlags(fs)
	timeout := fs.Duration("timeout", mailcow.DefaultTimeout, "Request timeout")
	fs.Parse(args)

	if usageArgs != "" && fs.NArg() < 1 {
		return fmt.Errorf("usage: mailprovctl %s [flags] %s", name, usageArgs)
	}

	srv, err := loadServer(*profilesPath, *server)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()
	return fn(ctx, mailcow.NewClient(*timeout), srv, fs)
}

func credentials(args []string) error {
	fs := flag.NewFlagSet("credentials", flag.ExitOnError)
	fs.Parse(args)

	serviceID, err := parseServiceID(fs)
	if err != nil {
		return err
	}

	cfg, err := loadCtlConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cipher, err := crypto.NewPasswordCipher(cfg.PasswordEncryptionKey)
	if err != nil {
		return err
	}

	return ctl.Credentials(ctx, billing.NewServiceStore(pool), cipher, serviceID, os.Stdout)
}

func lifecycle(args []string) error {
	fs := flag.NewFlagSet("lifecycle", flag.ExitOnError)
	profilesPath, server := profileFlags(fs)
	action := fs.String("action", "", "Lifecycle action (required)")
	password := fs.String("password", "", "New administrator password for change-password")
	var options optionFlags
	fs.Var(&options, "option", "Config option as Name=value (repeatable)")
	fs.Parse(args)

	if *action == "" {
		return fmt.Errorf("-action is required")
	}
	serviceID, err := parseServiceID(fs)
	if err != nil {
		return err
	}
	opts, err := ctl.ParseOptions(options)
	if err != nil {
		return err
	}

	srv, err := loadServer(*profilesPath, *server)
	if err != nil {
		return err
	}

	cfg, err := loadCtlConfig()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 6*cfg.MailcowTimeout+10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cipher, err := crypto.NewPasswordCipher(cfg.PasswordEncryptionKey)
	if err != nil {
		return err
	}

	fields := customfield.NewPostgresStore(pool)
	services := billing.NewServiceStore(pool)

	params, err := ctl.ServiceParams(ctx, services, fields, serviceID, srv)
	if err != nil {
		return err
	}
	params.Password = *password
	params.ConfigOptions = opts

	module := provision.NewModule(
		mailcow.NewClient(cfg.MailcowTimeout),
		customfield.NewShadowStore(fields, cfg.ShadowFieldName, logger),
		services,
		cipher,
		logger,
	)
	return ctl.RunLifecycle(ctx, module, *action, params, os.Stdout)
}

func loadCtlConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate("ctl"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseServiceID(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() < 1 {
		return 0, fmt.Errorf("service id is required")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid service id %q", fs.Arg(0))
	}
	return id, nil
}

// noShadow satisfies provision.Shadow for commands that never touch the
// billing database.
type noShadow struct{}

func (noShadow) FieldName() string                  { return config.DefaultShadowFieldName }
func (noShadow) Get(map[string]string) string       { return "" }
func (noShadow) Set(context.Context, int64, string) {}
