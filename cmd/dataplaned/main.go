// Command dataplaned is the dataplane engine's entrypoint. It loads an
// IR configuration, assembles the processor chain and traffic
// managers described by it, binds a UDP loopback dataplane (one socket
// per front-panel port, the host hookup the engine package's
// Dataplane interface expects), starts the switch's ingress poll loop,
// and serves the control-plane HTTP API until SIGINT/SIGTERM.
package main

import (
	"context"
	"crypto/rsa"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/packetpath/dataplane/controlplane"
	"github.com/packetpath/dataplane/ir"
)

func main() {
	var (
		configFiles   = flag.String("config", "", "comma-separated list of IR YAML files (required)")
		switchName    = flag.String("switch-name", "dataplaned0", "name reported for this switch instance")
		httpAddr      = flag.String("http-addr", ":8080", "control-plane HTTP API listen address")
		jwtPubKeyPath = flag.String("jwt-pubkey", "", "PEM RSA public key for control-plane JWT validation (optional)")
		dpHost        = flag.String("dataplane-host", "127.0.0.1", "host address the per-port UDP sockets bind to")
		dpBasePort    = flag.Int("dataplane-base-port", 9000, "first UDP port bound; port N listens on base+N")
		dpPortCount   = flag.Int("dataplane-ports", 4, "number of front-panel ports to bind")
	)
	flag.Parse()

	loggerConfig := zap.NewProductionConfig()
	logger, err := loggerConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *configFiles == "" {
		logger.Error("--config is required")
		os.Exit(1)
	}

	doc, err := ir.Load(strings.Split(*configFiles, ","), func(path string) (string, error) {
		b, err := os.ReadFile(path)
		return string(b), err
	})
	if err != nil {
		logger.Error("failed to load IR configuration", zap.Error(err))
		os.Exit(1)
	}

	var pubKey *rsa.PublicKey
	if *jwtPubKeyPath != "" {
		pem, err := os.ReadFile(*jwtPubKeyPath)
		if err != nil {
			logger.Error("failed to read JWT public key", zap.Error(err))
			os.Exit(1)
		}
		pubKey, err = controlplane.ParseRSAPublicKey(pem)
		if err != nil {
			logger.Error("failed to parse JWT public key", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("control-plane JWT validation enabled")
	} else {
		logger.Warn("--jwt-pubkey not set; control-plane API authentication disabled")
	}

	dp, err := newUDPDataplane(logger, *dpHost, *dpBasePort, *dpPortCount)
	if err != nil {
		logger.Error("failed to bind dataplane ports", zap.Error(err))
		os.Exit(1)
	}

	result, err := ir.Build(doc, *switchName, dp, logger)
	if err != nil {
		logger.Error("failed to build switch from IR", zap.Error(err))
		os.Exit(1)
	}

	sw := result.Switch
	sw.Enable()
	sw.Start()
	logger.Info("switch started", zap.String("name", *switchName), zap.Int("ports", *dpPortCount))

	srv := controlplane.NewServer(result.Tables)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      controlplane.NewRouter(srv, pubKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("control-plane HTTP API listening", zap.String("addr", *httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
		close(httpErrCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("control-plane HTTP server error", zap.Error(err))
		}
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("control-plane HTTP server shutdown error", zap.Error(err))
	}

	sw.Kill()
	logger.Info("dataplaned exited cleanly")
}

// udpDataplane implements engine.Dataplane over one UDP socket per
// front-panel port. No raw-packet or pcap library appears anywhere in
// the retrieval pack, so the host hookup uses net, the stdlib's own
// socket layer, rather than the declarative engine's own codec and
// match logic above it. Each port records the sender of every datagram
// it receives and replies to the most recent one on Send,
// which suits both a loopback test harness and a pair of dataplaned
// instances bridged over a real network.
type udpDataplane struct {
	logger *zap.Logger

	mu    sync.Mutex
	ports []*udpPort

	inbox   chan inboundPacket
	stopped chan struct{}
	wg      sync.WaitGroup
}

type udpPort struct {
	conn *net.UDPConn
	peer *net.UDPAddr
}

type inboundPacket struct {
	port int
	buf  []byte
	ts   int64
}

func newUDPDataplane(logger *zap.Logger, host string, basePort, portCount int) (*udpDataplane, error) {
	if portCount <= 0 {
		return nil, fmt.Errorf("dataplane: --dataplane-ports must be positive, got %d", portCount)
	}

	dp := &udpDataplane{
		logger:  logger,
		inbox:   make(chan inboundPacket, 256),
		stopped: make(chan struct{}),
	}

	for i := 0; i < portCount; i++ {
		addr := &net.UDPAddr{IP: net.ParseIP(host), Port: basePort + i}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			dp.Kill()
			return nil, fmt.Errorf("dataplane: listen on port %d (%s): %w", i, addr, err)
		}
		dp.ports = append(dp.ports, &udpPort{conn: conn})

		dp.wg.Add(1)
		go dp.readLoop(i, conn)
	}

	return dp, nil
}

func (dp *udpDataplane) readLoop(port int, conn *net.UDPConn) {
	defer dp.wg.Done()

	buf := make([]byte, 65536)
	for {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, peer, err := conn.ReadFromUDP(buf)

		select {
		case <-dp.stopped:
			return
		default:
		}

		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}

		dp.mu.Lock()
		dp.ports[port].peer = peer
		dp.mu.Unlock()

		pkt := make([]byte, n)
		copy(pkt, buf[:n])

		select {
		case dp.inbox <- inboundPacket{port: port, buf: pkt, ts: time.Now().UnixNano()}:
		case <-dp.stopped:
			return
		}
	}
}

// Poll implements engine.Dataplane.
func (dp *udpDataplane) Poll(timeout time.Duration) (port int, pkt []byte, timestamp int64, ok bool) {
	select {
	case p := <-dp.inbox:
		return p.port, p.buf, p.ts, true
	case <-time.After(timeout):
		return 0, nil, 0, false
	}
}

// Send implements engine.Dataplane. A port with no learned peer yet
// (nothing received on it since startup) silently drops the packet.
func (dp *udpDataplane) Send(port int, pkt []byte) {
	dp.mu.Lock()
	var p *udpPort
	var peer *net.UDPAddr
	if port >= 0 && port < len(dp.ports) {
		p = dp.ports[port]
		peer = p.peer
	}
	dp.mu.Unlock()

	if p == nil {
		dp.logger.Warn("dataplane: send to unbound port", zap.Int("port", port))
		return
	}
	if peer == nil {
		dp.logger.Warn("dataplane: no peer learned for port yet", zap.Int("port", port))
		return
	}
	if _, err := p.conn.WriteToUDP(pkt, peer); err != nil {
		dp.logger.Warn("dataplane: send failed", zap.Int("port", port), zap.Error(err))
	}
}

// Kill implements engine.Dataplane.
func (dp *udpDataplane) Kill() {
	select {
	case <-dp.stopped:
		return
	default:
		close(dp.stopped)
	}
	for _, p := range dp.ports {
		p.conn.Close()
	}
	dp.wg.Wait()
}
