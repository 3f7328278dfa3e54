// Copyright 2024 The xln Authors
// This file is part of the xln library.
//
// The xln library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The xln library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the xln library. If not, see <http://www.gnu.org/licenses/>.

// Command xlnnode boots a simulated multi-node network from a TOML node
// list: it wires an Orchestrator per the configured topology, serves each
// node's gossip endpoint over HTTP, and, when --metrics is set, exposes a
// Prometheus /metrics scrape endpoint.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/adimov-eth/xln/dashboard"
	"github.com/adimov-eth/xln/eventbus"
	"github.com/adimov-eth/xln/log"
	"github.com/adimov-eth/xln/metrics"
	"github.com/adimov-eth/xln/orchestrator"
)

var logger = log.NewModuleLogger(log.ModuleCmd)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML file describing the node list and topology",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "listen address for the Prometheus /metrics endpoint",
		Value: ":9090",
	}
	metricsEnabledFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "enable metrics collection",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "xlnnode"
	app.Usage = "run a simulated xln multi-node network"
	app.Flags = []cli.Flag{configFileFlag, metricsAddrFlag, metricsEnabledFlag}
	app.Commands = []cli.Command{dumpConfigCommand}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var dumpConfigCommand = cli.Command{
	Name:   "dumpconfig",
	Usage:  "print the default node-list configuration as TOML",
	Action: dumpConfig,
	Flags:  []cli.Flag{configFileFlag},
}

func dumpConfig(ctx *cli.Context) error {
	fc := defaultFileConfig()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &fc); err != nil {
			return err
		}
	}
	out, err := tomlSettings.Marshal(&fc)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// run is the default action: load config, build the Orchestrator, serve
// each node's gossip endpoint, and block until terminated.
func run(ctx *cli.Context) error {
	file := ctx.GlobalString(configFileFlag.Name)
	if file == "" {
		return cli.NewExitError("xlnnode: -config is required", 1)
	}

	fc := defaultFileConfig()
	if err := loadConfig(file, &fc); err != nil {
		return cli.NewExitError(fmt.Sprintf("xlnnode: loading config: %v", err), 1)
	}

	cfg, err := toOrchestratorConfig(fc)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	metrics.Enabled = ctx.GlobalBool(metricsEnabledFlag.Name)

	mempool := newStdinMempool()
	orch, err := orchestrator.New(cfg, mempool.next)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("xlnnode: network initialization failed: %v", err), 2)
	}
	orch.SetFeed(dashboard.NewMemoryFeed(256))

	mux := http.NewServeMux()
	for _, n := range cfg.Nodes {
		nm := orch.Node(n.ID)
		if nm == nil {
			continue
		}
		nm.Serve(mux)
	}
	if metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	addr := ctx.GlobalString(metricsAddrFlag.Name)
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "err", err)
		}
	}()

	orch.Start()
	logger.Info("xlnnode started", "nodes", len(cfg.Nodes), "topology", cfg.Topology, "addr", addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("xlnnode shutting down")
	orch.Stop()
	return nil
}

// stdinMempool is a placeholder MempoolSource: it never produces a
// transaction on its own, leaving block production idle until a real
// transaction source (e.g. an RPC front-end) is wired in. It exists so
// the orchestrator can be started without a nil source.
type stdinMempool struct{}

func newStdinMempool() *stdinMempool { return &stdinMempool{} }

func (m *stdinMempool) next() (eventbus.Message, bool) {
	return eventbus.Message{}, false
}
