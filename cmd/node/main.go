// Command node starts a tolchain node: a DAG-ledger account-chain store,
// the four election schedulers, the request aggregator, P2P gossip and
// bootstrap sync, and a JSON-RPC server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tolelom/tolchain/config"
	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto/certgen"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/indexer"
	"github.com/tolelom/tolchain/ledger"
	"github.com/tolelom/tolchain/network"
	"github.com/tolelom/tolchain/rpc"
	"github.com/tolelom/tolchain/storage"
	"github.com/tolelom/tolchain/wallet"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "validator.key", "path to representative keystore file")
	genKey := flag.Bool("genkey", false, "generate a new representative key and exit")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("TOL_PASSWORD")
	if password == "" {
		log.Println("WARNING: TOL_PASSWORD not set — keystore will use an empty password")
	}

	// ---- generate key mode ----
	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated key. Representative account: %s\n", w.AccountString())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	// ---- generate certs mode ----
	if *genCerts != "" {
		cfgForCerts, err := loadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if err := certgen.GenerateAll(*genCerts, cfgForCerts.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfgForCerts.NodeID)
		return
	}

	// ---- load config ----
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- load representative key ----
	privKey, err := wallet.LoadKey(*keyPath, password)
	if err != nil {
		log.Fatalf("load key: %v", err)
	}
	w := wallet.New(privKey)
	log.Printf("Representative account: %s", w.AccountString())

	// ---- open DB ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}
	db, err := storage.NewLevelDB(cfg.DataDir + "/chain")
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := ledger.NewStore(db)
	weights, err := ledger.NewRepWeights(store)
	if err != nil {
		log.Fatalf("load representative weights: %v", err)
	}

	// ---- genesis (no-op once every allocation is already seeded) ----
	if err := config.SeedGenesis(store, weights, cfg); err != nil {
		log.Fatalf("genesis: %v", err)
	}

	// ---- events and secondary indexes ----
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	// ---- ledger machinery ----
	epochs := core.NewEpochs()
	thresholds := core.DefaultWorkThresholds()
	queue := ledger.NewWriteQueue()

	onlineMin, err := core.AmountFromDecimalString(cfg.OnlineWeightMinimum)
	if err != nil {
		log.Fatalf("online_weight_minimum: %v", err)
	}
	onlineReps := consensus.NewOnlineReps(weights, onlineMin)
	router := consensus.NewRouter(weights, onlineReps)
	recentlyConfirmed := consensus.NewRecentlyConfirmed()
	recentlyCemented := consensus.NewRecentlyCemented()
	finalVotes := consensus.NewFinalVotes()

	adapter := newLedgerAdapter(store, weights, queue, epochs, thresholds, emitter, idx, router)
	aggregator := consensus.NewAggregator(router, recentlyCemented, adapter, w, finalVotes)

	priority := consensus.NewPriorityScheduler(router, adapter)
	optimistic := consensus.NewOptimisticScheduler(router, adapter)
	hinted := consensus.NewHintedScheduler(router, adapter)
	manual := consensus.NewManualScheduler(router)
	adapter.schedulers = []consensus.Scheduler{priority, optimistic, hinted, manual}

	// ---- TLS ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	if tlsCfg != nil {
		log.Println("mTLS enabled for P2P")
	}

	// ---- network ----
	p2pAddr := fmt.Sprintf(":%d", cfg.P2PPort)
	node := network.NewNode(cfg.NodeID, p2pAddr, tlsCfg)
	threads := cfg.MessageProcessor.Threads
	if threads <= 0 {
		threads = config.DefaultMessageProcessorThreads
	}
	maxQueue := cfg.MessageProcessor.MaxQueue
	if maxQueue <= 0 {
		maxQueue = config.DefaultMessageProcessorMaxQueue
	}
	processor := network.NewMessageProcessor(node, adapter, adapter, aggregator, threads, maxQueue)
	syncer := network.NewSyncer(node, adapter, adapter)

	if err := node.Start(); err != nil {
		log.Fatalf("p2p start: %v", err)
	}
	defer node.Stop()
	log.Printf("P2P listening on %s", p2pAddr)

	procCtx, procCancel := context.WithCancel(context.Background())
	go func() {
		if err := processor.Run(procCtx); err != nil {
			log.Printf("[network] message processor stopped: %v", err)
		}
	}()

	for _, sp := range cfg.SeedPeers {
		if err := node.AddPeer(sp.ID, sp.Addr); err != nil {
			log.Printf("seed peer %s (%s): %v", sp.ID, sp.Addr, err)
			continue
		}
		log.Printf("Connected to seed peer %s (%s)", sp.ID, sp.Addr)

		if peer := node.Peer(sp.ID); peer != nil {
			for _, alloc := range cfg.Genesis.Alloc {
				account, err := core.DecodeAccount(alloc.Account)
				if err != nil {
					continue
				}
				if err := syncer.RequestChain(peer, account, core.BlockHash{}); err != nil {
					log.Printf("request chain for %s: %v", alloc.Account, err)
				}
			}
		}
	}

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(store, weights, adapter, idx, cfg.Genesis.ChainID)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", rpcAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}

	// ---- schedulers and maintenance ----
	priority.Start()
	optimistic.Start()
	hinted.Start()
	manual.Start()

	weightPeriod, err := time.ParseDuration(cfg.WeightPeriod)
	if err != nil {
		log.Fatalf("weight_period: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		runOnlineRepsSampler(onlineReps, weightPeriod, done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runMaintenance(store, queue, router, recentlyConfirmed, recentlyCemented, emitter, node, cfg.MaxBlocks, done)
	}()

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	close(done)
	priority.Stop()
	optimistic.Stop()
	hinted.Stop()
	manual.Stop()
	procCancel()
	wg.Wait()

	// Deferred calls run in LIFO: rpcServer.Stop → node.Stop → db.Close
	log.Println("Shutdown complete.")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
