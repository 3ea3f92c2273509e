// Package main provides dinid, the Dini P2P node daemon. A single binary
// runs as one of three roles — bootstrap, miner, or user — selected by
// config or the -role flag, adapted from the teacher's cmd/klingond/main.go.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/paper-piper/Dini/internal/config"
	"github.com/paper-piper/Dini/internal/keys"
	"github.com/paper-piper/Dini/internal/node"
	"github.com/paper-piper/Dini/internal/role/bootstrap"
	"github.com/paper-piper/Dini/internal/role/miner"
	"github.com/paper-piper/Dini/internal/role/user"
	"github.com/paper-piper/Dini/internal/storage"
	"github.com/paper-piper/Dini/pkg/logging"
)

var version = "0.1.0-dev"

// shutdowner is the lifecycle half every role implements: Start launches
// its background work once attached to a transport, Shutdown releases it.
type shutdowner interface {
	Start() error
	Shutdown() error
}

func main() {
	var (
		dataDir        = flag.String("data-dir", "~/.dini", "Data directory")
		configFile     = flag.String("config", "", "Config file path; config.yaml is read from this path's directory, the file name itself is not used (default: <data-dir>/config.yaml)")
		listenAddr     = flag.String("listen", "", "Listen address ip:port, overrides config")
		roleFlag       = flag.String("role", "", "Node role: bootstrap, miner, or user, overrides config")
		nameFlag       = flag.String("name", "", "Node name, overrides config")
		logLevel       = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		bootstrapPeers = flag.String("bootstrap", "", "Comma-separated ip:port peers to connect to on startup")
		showVersion    = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("dinid %s", version)
		os.Exit(0)
	}

	configDir := *dataDir
	if *configFile != "" {
		configDir = filepath.Dir(*configFile)
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *listenAddr != "" {
		ip, port, err := splitHostPort(*listenAddr)
		if err != nil {
			log.Fatal("invalid -listen address", "error", err)
		}
		cfg.Network.ListenIP, cfg.Network.ListenPort = ip, port
	}
	if *roleFlag != "" {
		cfg.Role = config.Role(*roleFlag)
	}
	if *nameFlag != "" {
		cfg.Identity.Name = *nameFlag
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *bootstrapPeers != "" {
		cfg.Network.ConnectAddrs = splitAddrList(*bootstrapPeers)
	}
	cfg.Storage.DataDir = *dataDir

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("config loaded", "path", config.ConfigPath(configDir), "role", cfg.Role)

	store, err := storage.New(&storage.Config{DataDir: cfg.Storage.DataDir})
	if err != nil {
		log.Fatal("failed to initialize storage", "error", err)
	}
	defer store.Close()

	dataPath := expandPath(cfg.Storage.DataDir)
	selfKey, err := keys.LoadOrCreate(filepath.Join(dataPath, cfg.Identity.KeyFile))
	if err != nil {
		log.Fatal("failed to load node identity key", "error", err)
	}

	bundlePath := filepath.Join(dataPath, cfg.Identity.BundleFile)
	if cfg.Identity.BundlePassphrase != "" {
		err = keys.InitGlobalEncrypted(bundlePath, cfg.Identity.BundlePassphrase)
	} else {
		err = keys.InitGlobal(bundlePath)
	}
	if err != nil {
		log.Fatal("failed to load well-known key bundle", "error", err)
	}
	bundle := keys.Global()

	addr := node.Address{IP: cfg.Network.ListenIP, Port: cfg.Network.ListenPort}
	identity := node.Identity{Addr: addr, Name: cfg.Identity.Name}
	if cfg.Role != config.RoleBootstrap {
		identity.PublicKey = selfKey.Public
	}

	var (
		handler node.Handler
		lc      shutdowner
	)

	switch cfg.Role {
	case config.RoleBootstrap:
		dirPath := filepath.Join(dataPath, cfg.Network.BootstrapDirFile)
		b := bootstrap.New(dirPath, log)
		handler, lc = b, b

	case config.RoleMiner:
		m, err := miner.New(store, bundle, selfKey, miner.Config{
			Difficulty:    cfg.Miner.Difficulty,
			Workers:       cfg.Miner.Workers,
			BlockBudget:   cfg.Miner.BlockBudget,
			MempoolSelect: cfg.Miner.MempoolSelect,
		}, log)
		if err != nil {
			log.Fatal("failed to initialize miner role", "error", err)
		}
		handler, lc = m, m

	case config.RoleUser:
		u, err := user.New(store, bundle, selfKey, log)
		if err != nil {
			log.Fatal("failed to initialize user role", "error", err)
		}
		handler, lc = u, u

	default:
		log.Fatal("unknown role", "role", cfg.Role)
	}

	n := node.New(identity, handler, log)
	attachTransport(handler, n)
	n.AttachPeerStore(store)

	if err := n.Start(); err != nil {
		log.Fatal("failed to start node", "error", err)
	}
	log.Info("node started", "addr", n.ListenAddr().String(), "role", cfg.Role)

	for _, raw := range cfg.Network.ConnectAddrs {
		ip, port, err := splitHostPort(raw)
		if err != nil {
			log.Warn("skipping invalid connect address", "addr", raw, "error", err)
			continue
		}
		if err := n.ConnectToNode(node.Address{IP: ip, Port: port}); err != nil {
			log.Warn("failed to connect to configured peer, will retry", "addr", raw, "error", err)
			n.ScheduleReconnect(node.Address{IP: ip, Port: port})
		}
	}

	if err := lc.Start(); err != nil {
		log.Fatal("failed to start role", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if err := lc.Shutdown(); err != nil {
		log.Error("error during role shutdown", "error", err)
	}
	if err := n.Stop(); err != nil {
		log.Error("error during node shutdown", "error", err)
	}
	log.Info("goodbye")
}

// attacher is implemented by every role; kept separate from shutdowner so
// main can hold the role behind node.Handler while still calling Attach.
type attacher interface {
	Attach(n *node.Node)
}

func attachTransport(handler node.Handler, n *node.Node) {
	if a, ok := handler.(attacher); ok {
		a.Attach(n)
	}
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

func splitAddrList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
