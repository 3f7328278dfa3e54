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

package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gometrics "github.com/rcrowley/go-metrics"
)

// namespace prefixes every exported series, the way the teacher's
// cmd/kcn bootstrap names its Prometheus provider "klaytn".
const namespace = "xln"

// collector adapts DefaultRegistry to prometheus.Collector by walking its
// metrics on every scrape — simpler than the teacher's push-based
// NewPrometheusProvider/UpdatePrometheusMetrics loop, and sufficient since
// this module has no separate bridge dependency to a klaytn-specific
// adapter package.
type collector struct{}

var _ prometheus.Collector = collector{}

func (collector) Describe(ch chan<- *prometheus.Desc) {
	// Metric set is dynamic (new named counters appear as machines start),
	// so Describe is intentionally unchecked, matching prometheus client's
	// documented pattern for dynamically-registered collectors.
}

func (collector) Collect(ch chan<- prometheus.Metric) {
	DefaultRegistry.Each(func(name string, i interface{}) {
		fqName := namespace + "_" + sanitize(name)
		desc := prometheus.NewDesc(fqName, "xln metric "+name, nil, nil)

		switch m := i.(type) {
		case gometrics.Counter:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(m.Count()))
		case gometrics.Gauge:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(m.Value()))
		case gometrics.GaugeFloat64:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, m.Value())
		case gometrics.Meter:
			snap := m.Snapshot()
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, snap.Rate1())
		case gometrics.Timer:
			snap := m.Snapshot()
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, snap.Mean())
		}
	})
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

var registered = false

// Handler returns the http.Handler serving /metrics (§6 observability
// surface), registering the dynamic collector on first call.
func Handler() http.Handler {
	if !registered {
		prometheus.MustRegister(collector{})
		registered = true
	}
	return promhttp.Handler()
}
