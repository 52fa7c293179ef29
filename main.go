package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksauth/internal/auth"
	"github.com/die-net/socksauth/internal/conn"
	"github.com/die-net/socksauth/internal/dialer"
	"github.com/die-net/socksauth/internal/proxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socksListen = pflag.String("socks5-listen", "127.0.0.1:1080", "SOCKS5 proxy listen address")
		upstream    = pflag.String("upstream", defaultUpstream(), "Upstream forwarding target URL: direct:// | socks5://[user:pass@]host:port")

		users     = pflag.StringArray("user", nil, "Static credential name:password (repeatable)")
		usersFile = pflag.String("users-file", "", "File of name:scrypt-hash lines, as printed by --hash-password")
		usersDB   = pflag.String("users-db", "", "SQLite database of users. Created if missing.")
		hashPass  = pflag.Bool("hash-password", false, "Read a password from stdin, print its hash and exit")
		addUser   = pflag.String("add-user", "", "Add NAME to --users-db with a password read from stdin, then exit")
		enableU   = pflag.String("enable-user", "", "Enable NAME in --users-db, then exit")
		disableU  = pflag.String("disable-user", "", "Disable NAME in --users-db, then exit")

		debugListen        = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound DNS lookup and TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 10*time.Second, "Timeout for protocol negotiation to set up connection")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		reusePort          = pflag.Bool("reuse-port", false, "Set SO_REUSEPORT on the listener")
		logLevel           = pflag.String("log-level", "info", "Log level: debug|info|warn|error")
		verbose            = pflag.Bool("verbose", false, "Enable per-connection error logging (same as --log-level=debug)")
	)

	if !conn.ReusePortSupported {
		_ = pflag.CommandLine.MarkHidden("reuse-port")
	}

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	if *hashPass {
		return printPasswordHash(os.Stdin, os.Stdout)
	}

	if *addUser != "" || *enableU != "" || *disableU != "" {
		return manageUser(context.Background(), *usersDB, userOp{
			add:     *addUser,
			enable:  *enableU,
			disable: *disableU,
		}, os.Stdin)
	}

	logger, err := newLogger(*logLevel, *verbose)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	slog.SetDefault(logger)

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	cfg := proxy.Config{
		NegotiationTimeout: *negotiationTimeout,
	}

	cfg.Dialer, err = dialer.New(dialer.Config{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: *negotiationTimeout,
		KeepAlive:          ka,
	}, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}

	chain, closeAuth, err := buildAuth(*users, *usersFile, *usersDB)
	if err != nil {
		return err
	}
	defer closeAuth()
	if len(chain) > 0 {
		cfg.Authenticator = chain
	} else {
		logger.Warn("no credentials configured; accepting unauthenticated clients")
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *debugListen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		debugLn, err := conn.ListenTCP(ctx, "tcp", *debugListen, conn.ListenOptions{KeepAlive: ka})
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		logger.Info("debug listening", "addr", *debugListen)
	}

	ln, err := conn.ListenTCP(ctx, "tcp", *socksListen, conn.ListenOptions{KeepAlive: ka, ReusePort: *reusePort})
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	s5 := proxy.NewSOCKS5Server(ctx, cfg, logger)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := s5.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	logger.Info("socks5 proxy listening", "addr", ln.Addr().String(), "upstream", *upstream, "auth", len(chain) > 0)

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	logger.Info("shutting down")
	return err
}

func newLogger(level string, verbose bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.DateTime,
	})), nil
}

// buildAuth assembles the credential stores in flag order: static users,
// then the users file, then the database. The returned func closes the
// database if one was opened.
func buildAuth(users []string, file, db string) (auth.Chain, func(), error) {
	var chain auth.Chain
	closeFn := func() {}

	if len(users) > 0 {
		s, err := auth.NewStatic(users)
		if err != nil {
			return nil, closeFn, fmt.Errorf("invalid --user: %w", err)
		}
		chain = append(chain, s)
	}

	if file != "" {
		fs, err := auth.LoadFile(file)
		if err != nil {
			return nil, closeFn, fmt.Errorf("invalid --users-file: %w", err)
		}
		chain = append(chain, fs)
		slog.Info("loaded users file", "path", file, "users", fs.Len())
	}

	if db != "" {
		store, err := auth.OpenDB(db)
		if err != nil {
			return nil, closeFn, fmt.Errorf("invalid --users-db: %w", err)
		}
		chain = append(chain, store)
		closeFn = func() { _ = store.Close() }
	}

	return chain, closeFn, nil
}

// userOp names the users-db change requested on the command line. Exactly
// one field may be set.
type userOp struct {
	add     string
	enable  string
	disable string
}

func manageUser(ctx context.Context, dbPath string, op userOp, stdin io.Reader) error {
	set := 0
	for _, name := range []string{op.add, op.enable, op.disable} {
		if name != "" {
			set++
		}
	}
	if set != 1 {
		return errors.New("use only one of --add-user, --enable-user, --disable-user")
	}
	if dbPath == "" {
		return errors.New("--users-db is required to manage users")
	}

	var password string
	if op.add != "" {
		if _, _, err := auth.ParseUserSpec(op.add + ":"); err != nil {
			return fmt.Errorf("invalid --add-user: %w", err)
		}
		var err error
		if password, err = readPassword(stdin); err != nil {
			return err
		}
		if len(password) > 255 {
			return errors.New("read password: longer than 255 bytes")
		}
	}

	store, err := auth.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case op.add != "":
		return store.CreateUser(ctx, op.add, password)
	case op.enable != "":
		return store.SetEnabled(ctx, op.enable, true)
	default:
		return store.SetEnabled(ctx, op.disable, false)
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("read password: empty")
	}
	return password, nil
}

func printPasswordHash(r io.Reader, w io.Writer) error {
	password, err := readPassword(r)
	if err != nil {
		return err
	}

	hash, err := auth.NewPasswordHash(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return net.KeepAliveConfig{}, errors.New("empty")
	case "on":
		return net.KeepAliveConfig{Enable: true}, nil
	case "off":
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositive(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositive(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositive(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     time.Duration(keepIdle) * time.Second,
		Interval: time.Duration(keepIntvl) * time.Second,
		Count:    keepCnt,
	}, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}

	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}

	return "direct://"
}
