package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/jwtauth"

	"migrator/app/auth"
	"migrator/app/collectibles"
	"migrator/app/config"
	"migrator/app/keywallet"
	"migrator/app/migration"
	"migrator/app/notifier"
	"migrator/app/server"
	"migrator/app/storage/database"
	"migrator/app/wallet"
	"migrator/pkg/eth"
	"migrator/pkg/log"
	"migrator/pkg/web"
	webware "migrator/pkg/web/middleware"
)

const (
	maxRequestsAllowed    = 10000
	serverShutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		panic(err)
	}

	zlog := log.ConfigureLogger(cfg.Logging)
	defer func() {
		_ = zlog.Sync() // flush the logger
	}()

	// connect to the database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = db.Close()
	}()

	// connect to the node
	ethClient, err := eth.Dial(cfg.Ethereum.NodeUrl)
	if err != nil {
		log.Fatal("failed connection to node: ", err)
	}
	defer ethClient.Close()

	// the configured chain id is used for signing, refuse to start against
	// the wrong network
	chainID, err := ethClient.ChainID(context.Background())
	if err != nil {
		log.Fatal("failed to read the node chain id: ", err)
	}
	if chainID.Int64() != cfg.Ethereum.ChainID {
		log.Fatalf("node chain id %s does not match the configured %d", chainID, cfg.Ethereum.ChainID)
	}

	collectiblesSvc := collectibles.NewManager(cfg.Collectibles, &http.Client{
		Timeout: time.Second * 30,
	})

	keyWalletSvc := &keywallet.Manager{
		EthConfig: cfg.Ethereum,
		EthClient: ethClient,
	}

	notifierSvc := notifier.NewManager()

	migrationSvc := &migration.Manager{
		Config:       cfg.Migration,
		DB:           db,
		KeyWallet:    keyWalletSvc,
		Collectibles: collectiblesSvc,
		Notifier:     notifierSvc,
		GasOracle:    ethClient,
		GasEstimator: ethClient,
		Broadcaster:  ethClient,
		ChainReader:  ethClient,
		Balances:     ethClient,
	}

	// poll in-flight transfers in the background
	watcherStop := make(chan struct{})
	go migrationSvc.Watch(watcherStop)
	defer close(watcherStop)

	router := newRouter()
	authSvc := &auth.Manager{
		JWTAuth: jwtauth.New("HS256", []byte(cfg.Secrets.Token), nil),
	}
	walletSvc := &wallet.Manager{
		DB:        db,
		Secrets:   cfg.Secrets,
		Auth:      authSvc,
		EthClient: ethClient,
	}
	rest := server.Rest{
		Router:    router,
		Wallet:    walletSvc,
		Notifier:  notifierSvc,
		Auth:      authSvc,
		Migration: migrationSvc,
	}
	rest.Route() // handle http requests

	// start notifier an http server and remember to shut it down
	srv := &http.Server{
		Addr:    cfg.RestAddr,
		Handler: router,
	}
	go notifierSvc.Start()
	go web.Start(srv)
	defer web.Shutdown(srv, serverShutdownTimeout)

	// wait for the program exit
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
}

func newRouter() chi.Router {
	router := chi.NewRouter()

	// add middleware
	router.Use(
		middleware.Throttle(maxRequestsAllowed),
		middleware.RealIP,
		webware.ZapLogger,
		webware.Recoverer,
	)

	return router
}
