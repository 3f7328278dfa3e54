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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/naoina/toml"

	"github.com/adimov-eth/xln/common"
	"github.com/adimov-eth/xln/orchestrator"
)

// tomlSettings ensures TOML keys match Go struct field names verbatim,
// matching cmd/ranger's config loader.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see godoc %s#%s", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// nodeSpec is one [[Nodes]] table entry of the TOML node-list config.
type nodeSpec struct {
	ID            string
	Type          string
	PrivateKeyHex string
	Peers         []string
	Host          string
	Port          int
	IsBootstrap   bool
}

// fileConfig mirrors orchestrator.Config, but with TOML-friendly field
// types (string durations, a nodeSpec slice instead of NodeConfig).
type fileConfig struct {
	Nodes                   []nodeSpec
	Topology                string
	BlockProductionInterval string
	HealthCheckInterval     string
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Topology:                string(orchestrator.TopologyMesh),
		BlockProductionInterval: "1s",
		HealthCheckInterval:     "5s",
	}
}

func loadConfig(path string, cfg *fileConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

// toOrchestratorConfig validates and converts the TOML-shaped fileConfig
// into orchestrator.Config, resolving each node's Role and peer-id list.
func toOrchestratorConfig(fc fileConfig) (orchestrator.Config, error) {
	if len(fc.Nodes) == 0 {
		return orchestrator.Config{}, errors.New("xlnnode: config defines no [[Nodes]]")
	}

	blockInterval, err := time.ParseDuration(fc.BlockProductionInterval)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("xlnnode: invalid BlockProductionInterval: %w", err)
	}
	healthInterval, err := time.ParseDuration(fc.HealthCheckInterval)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("xlnnode: invalid HealthCheckInterval: %w", err)
	}

	nodes := make([]orchestrator.NodeConfig, 0, len(fc.Nodes))
	for _, n := range fc.Nodes {
		if n.ID == "" {
			return orchestrator.Config{}, errors.New("xlnnode: a [[Nodes]] entry is missing ID")
		}
		role := orchestrator.RoleOther
		switch n.Type {
		case "signer", "SIGNER", "":
			role = orchestrator.RoleSigner
		case "entity", "ENTITY":
			role = orchestrator.RoleEntity
		}
		peers := make([]common.MachineId, 0, len(n.Peers))
		for _, p := range n.Peers {
			peers = append(peers, common.MachineId(p))
		}
		host := n.Host
		if host == "" {
			host = "127.0.0.1"
		}
		nodes = append(nodes, orchestrator.NodeConfig{
			ID:            common.MachineId(n.ID),
			Type:          role,
			PrivateKeyHex: n.PrivateKeyHex,
			Peers:         peers,
			Host:          host,
			Port:          n.Port,
			IsBootstrap:   n.IsBootstrap,
		})
	}

	return orchestrator.Config{
		Nodes:                   nodes,
		Topology:                orchestrator.Topology(fc.Topology),
		BlockProductionInterval: blockInterval,
		HealthCheckInterval:     healthInterval,
	}, nil
}
