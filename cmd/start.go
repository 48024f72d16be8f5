package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/meshlab/meshcluster/cluster"
	"github.com/meshlab/meshcluster/logger"
	"github.com/meshlab/meshcluster/node"
	"github.com/meshlab/meshcluster/sched"
	"github.com/meshlab/meshcluster/transport"
	"github.com/meshlab/meshcluster/wsviz"
)

var (
	startNodeID    int
	startBackend   string
	startGroup     string
	startVizAddr   string
	startSeed      int64
	startHello     float64
	startHelloJit  float64
	startTimeout   float64
	startMaint     float64
	startData      float64
	startDataJit   float64
	startTTL       int
	startLocalPort int
	startDestPort  int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start one live protocol node",
	Long: `Start a single protocol node on a real transport.

Broker-backed transports read their contact info from the environment
(or a .env file): REDIS_ADDR / REDIS_PASSWORD for redis, MQTT_BROKER
for mqtt.

Examples:
  # UDP multicast on the LAN
  meshcluster start --node-id=3 --local-port=40503

  # Redis pub/sub as the radio medium
  meshcluster start --node-id=3 --transport=redis`,
	Run: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().IntVarP(&startNodeID, "node-id", "n", 0, "Unique non-negative node identifier")
	startCmd.Flags().StringVarP(&startBackend, "transport", "t", "udp", "Transport backend (udp, redis, mqtt)")
	startCmd.Flags().StringVar(&startGroup, "group", transport.DefaultGroup, "UDP multicast group address")
	startCmd.Flags().StringVar(&startVizAddr, "viz-addr", "", "Serve websocket state stream on this address (e.g. :8080)")
	startCmd.Flags().Int64Var(&startSeed, "seed", time.Now().UnixNano(), "Jitter RNG seed")
	startCmd.Flags().Float64Var(&startHello, "hello-interval", cluster.DefaultHelloInterval, "Seconds between advertisements")
	startCmd.Flags().Float64Var(&startHelloJit, "hello-jitter", cluster.DefaultHelloJitter, "Random spread on the advertisement schedule")
	startCmd.Flags().Float64Var(&startTimeout, "neighbor-timeout", cluster.DefaultNeighborTimeout, "Seconds of silence before evicting a neighbor")
	startCmd.Flags().Float64Var(&startMaint, "maintenance-interval", cluster.DefaultMaintenanceInterval, "Seconds between prune+recolor cycles")
	startCmd.Flags().Float64Var(&startData, "data-interval", cluster.DefaultDataInterval, "Seconds between synthetic data units (0 disables)")
	startCmd.Flags().Float64Var(&startDataJit, "data-jitter", cluster.DefaultDataJitter, "Random spread on the data schedule")
	startCmd.Flags().IntVar(&startTTL, "ttl", cluster.DefaultInitialTTL, "Hop budget for originated data units")
	startCmd.Flags().IntVar(&startLocalPort, "local-port", cluster.DefaultLocalPort, "UDP unicast listen port")
	startCmd.Flags().IntVar(&startDestPort, "dest-port", cluster.DefaultDestPort, "UDP multicast port")
}

func startConfig() cluster.Config {
	cfg := cluster.DefaultConfig()
	cfg.HelloInterval = startHello
	cfg.HelloJitter = startHelloJit
	cfg.NeighborTimeout = startTimeout
	cfg.MaintenanceInterval = startMaint
	cfg.DataInterval = startData
	cfg.DataJitter = startDataJit
	cfg.InitialTTL = startTTL
	cfg.LocalPort = startLocalPort
	cfg.DestPort = startDestPort
	return cfg
}

func buildTransport(backend string, nodeID int) (transport.Transport, error) {
	// .env is optional; the environment itself wins either way.
	_ = godotenv.Load()

	name := "node-" + strconv.Itoa(nodeID)
	switch backend {
	case "udp":
		return transport.NewUDP(startLocalPort, startDestPort, startGroup)
	case "redis":
		addr, found := os.LookupEnv("REDIS_ADDR")
		if !found {
			return nil, fmt.Errorf("REDIS_ADDR not set")
		}
		return transport.NewRedis(addr, os.Getenv("REDIS_PASSWORD"), "mesh.", name)
	case "mqtt":
		broker, found := os.LookupEnv("MQTT_BROKER")
		if !found {
			return nil, fmt.Errorf("MQTT_BROKER not set")
		}
		return transport.NewMQTT(broker, "mesh", name)
	default:
		return nil, fmt.Errorf("unknown transport backend %q", backend)
	}
}

func runStart(cmd *cobra.Command, args []string) {
	logger.Init("", true)

	tr, err := buildTransport(startBackend, startNodeID)
	if err != nil {
		log.Fatalf("failed to build transport: %v", err)
	}

	runner, err := node.NewRunner(cluster.NodeID(startNodeID), startConfig(), sched.NewWall(), tr, startSeed)
	if err != nil {
		log.Fatalf("failed to create node: %v", err)
	}
	if err := runner.Start(); err != nil {
		log.Fatalf("failed to start node: %v", err)
	}

	if startVizAddr != "" {
		hub := wsviz.NewHub()
		go hub.Run()
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			start := time.Now()
			for range ticker.C {
				hub.Publish(wsviz.Update{
					Time:     time.Since(start).Seconds(),
					Nodes:    []cluster.NodeSnapshot{runner.Node().Snapshot()},
					Counters: []cluster.CounterSnapshot{runner.Counters()},
				})
			}
		}()
		http.HandleFunc("/ws", hub.ServeWS)
		go func() {
			logger.Infof("state stream on ws://%s/ws", startVizAddr)
			if err := http.ListenAndServe(startVizAddr, nil); err != nil {
				logger.Errorf("viz server: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if err := runner.Stop(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
