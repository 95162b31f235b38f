// Package monitoring 提供预测服务的进程内指标
package monitoring

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeSummary MetricType = "summary"
)

// Metric 指标快照
type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Help   string            `json:"help,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
	// 仅 summary 使用
	Count uint64  `json:"count,omitempty"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
}

type series struct {
	name   string
	typ    MetricType
	labels map[string]string
	value  float64
	count  uint64
	min    float64
	max    float64
}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	mu        sync.RWMutex
	series    map[string]*series
	help      map[string]string
	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		series:    make(map[string]*series),
		help:      make(map[string]string),
		startTime: time.Now(),
	}
}

// Describe 设置指标说明
func (mc *MetricsCollector) Describe(name, help string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.help[name] = help
}

func (mc *MetricsCollector) get(name string, typ MetricType, labels map[string]string) *series {
	key := name + formatLabels(labels)
	s, ok := mc.series[key]
	if !ok {
		copied := make(map[string]string, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
		s = &series{name: name, typ: typ, labels: copied, min: math.Inf(1), max: math.Inf(-1)}
		mc.series[key] = s
	}
	return s
}

// IncrCounter 增加计数器
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.get(name, MetricTypeCounter, labels).value += value
}

// SetGauge 设置仪表
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.get(name, MetricTypeGauge, labels).value = value
}

// Observe 记录一次观测值（summary：总和、次数、最小、最大）
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	s := mc.get(name, MetricTypeSummary, labels)
	s.value += value
	s.count++
	s.min = math.Min(s.min, value)
	s.max = math.Max(s.max, value)
}

// Snapshot 返回所有指标的副本，按名称和标签排序
func (mc *MetricsCollector) Snapshot() []Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	keys := make([]string, 0, len(mc.series))
	for k := range mc.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]Metric, 0, len(keys))
	for _, k := range keys {
		s := mc.series[k]
		m := Metric{Name: s.name, Type: s.typ, Help: mc.help[s.name], Value: s.value}
		if len(s.labels) > 0 {
			m.Labels = make(map[string]string, len(s.labels))
			for lk, lv := range s.labels {
				m.Labels[lk] = lv
			}
		}
		if s.typ == MetricTypeSummary && s.count > 0 {
			m.Count, m.Min, m.Max = s.count, s.min, s.max
		}
		result = append(result, m)
	}
	return result
}

// ExportPrometheus 导出Prometheus文本格式
func (mc *MetricsCollector) ExportPrometheus() string {
	var b strings.Builder
	described := map[string]bool{}
	for _, m := range mc.Snapshot() {
		if !described[m.Name] {
			help := m.Help
			if help == "" {
				help = fmt.Sprintf("Metric %s", m.Name)
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, m.Type)
			described[m.Name] = true
		}
		labels := formatLabels(m.Labels)
		if m.Type == MetricTypeSummary {
			fmt.Fprintf(&b, "%s_sum%s %g\n", m.Name, labels, m.Value)
			fmt.Fprintf(&b, "%s_count%s %d\n", m.Name, labels, m.Count)
			continue
		}
		fmt.Fprintf(&b, "%s%s %g\n", m.Name, labels, m.Value)
	}
	return b.String()
}

// formatLabels 生成稳定顺序的标签串，如 {outcome="Heart Disease"}
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// GetSystemStats 获取系统统计
func (mc *MetricsCollector) GetSystemStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":     mc.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"alloc":      m.Alloc,
			"sys":        m.Sys,
			"heap_alloc": m.HeapAlloc,
			"heap_inuse": m.HeapInuse,
			"gc_count":   m.NumGC,
		},
		"num_cpu": runtime.NumCPU(),
	}
}
