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

// Package metrics is the process-wide counters/gauges/timers surface: the
// teacher's rcrowley/go-metrics registry convention (metrics.NewRegisteredX
// against a single DefaultRegistry) plus a prometheus/client_golang
// exporter for §6's observability surface.
package metrics

import (
	gometrics "github.com/rcrowley/go-metrics"
)

// Enabled gates metric collection the way the teacher's metrics.Enabled
// flag does, so a node can run with zero collection overhead when no
// dashboard/prometheus consumer is attached.
var Enabled = true

// DefaultRegistry is the process-wide registry every NewRegisteredX call
// below registers into, mirroring the teacher's single shared registry.
var DefaultRegistry = gometrics.DefaultRegistry

// NewRegisteredCounter returns (creating if absent) a named counter in
// DefaultRegistry. A no-op counter is returned when metrics are disabled.
func NewRegisteredCounter(name string) gometrics.Counter {
	if !Enabled {
		return gometrics.NilCounter{}
	}
	return gometrics.GetOrRegisterCounter(name, DefaultRegistry)
}

// NewRegisteredGauge returns (creating if absent) a named gauge.
func NewRegisteredGauge(name string) gometrics.Gauge {
	if !Enabled {
		return gometrics.NilGauge{}
	}
	return gometrics.GetOrRegisterGauge(name, DefaultRegistry)
}

// NewRegisteredMeter returns (creating if absent) a named meter.
func NewRegisteredMeter(name string) gometrics.Meter {
	if !Enabled {
		return gometrics.NilMeter{}
	}
	return gometrics.GetOrRegisterMeter(name, DefaultRegistry)
}

// NewRegisteredTimer returns (creating if absent) a named timer.
func NewRegisteredTimer(name string) gometrics.Timer {
	if !Enabled {
		return gometrics.NilTimer{}
	}
	return gometrics.GetOrRegisterTimer(name, DefaultRegistry)
}

// Names used across the node (§4.10 health metrics, §4.9 relay counters,
// §4.4 block production).
const (
	MetricBlocksProduced   = "server/blocksProduced"
	MetricBlockProduceTime = "server/blockProduceTime"
	MetricMempoolSize      = "server/mempoolSize"
	MetricPeersConnected   = "gossip/peersConnected"
	MetricBlocksRelayed    = "gossip/blocksRelayed"
	MetricBlocksDropped    = "gossip/blocksDeduped"
	MetricNodesHealthy     = "orchestrator/nodesHealthy"
	MetricNodesUnhealthy   = "orchestrator/nodesUnhealthy"
)
