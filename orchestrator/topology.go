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

package orchestrator

import "github.com/adimov-eth/xln/common"

// Topology names a test-network connection pattern (§4.10).
type Topology string

const (
	TopologyMesh Topology = "MESH"
	TopologyRing Topology = "RING"
	TopologyStar Topology = "STAR"
)

// GenerateTopology returns, for each id in order, the set of peer ids it
// should dial per the chosen pattern: MESH connects every pair, RING
// connects each node to its immediate predecessor/successor mod N, STAR
// connects node 0 to every other node (and vice versa).
func GenerateTopology(ids []common.MachineId, topology Topology) map[common.MachineId][]common.MachineId {
	out := make(map[common.MachineId][]common.MachineId, len(ids))
	n := len(ids)
	for _, id := range ids {
		out[id] = nil
	}
	if n < 2 {
		return out
	}

	switch topology {
	case TopologyRing:
		for i, id := range ids {
			prev := ids[(i-1+n)%n]
			next := ids[(i+1)%n]
			out[id] = append(out[id], prev, next)
		}
	case TopologyStar:
		hub := ids[0]
		for i := 1; i < n; i++ {
			out[hub] = append(out[hub], ids[i])
			out[ids[i]] = append(out[ids[i]], hub)
		}
	case TopologyMesh:
		fallthrough
	default:
		for i, id := range ids {
			for j, other := range ids {
				if i == j {
					continue
				}
				out[id] = append(out[id], other)
			}
		}
	}
	return out
}
