// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus collectors for function invocations
// and outbound calls.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapin_invocations_total",
			Help: "Total number of function invocations",
		},
		[]string{"function", "outcome"},
	)

	OutboundRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapin_outbound_requests_total",
			Help: "Total number of outbound HTTP requests",
		},
		[]string{"target", "status"},
	)

	OutboundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapin_outbound_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target"},
	)

	LifecycleEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapin_lifecycle_events_total",
			Help: "Total number of lifecycle events emitted",
		},
		[]string{"event_type"},
	)

	ItemsPushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapin_items_pushed_total",
			Help: "Total number of records pushed to Airdrop repos",
		},
		[]string{"repo"},
	)
)

// ObserveOutbound records one outbound request. status 0 means the request
// never produced a response.
func ObserveOutbound(target string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	OutboundRequestsTotal.WithLabelValues(target, label).Inc()
	OutboundDuration.WithLabelValues(target).Observe(time.Since(started).Seconds())
}
