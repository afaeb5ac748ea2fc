package core

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RecoveryAshes/pricewatch/internal/models"
	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

// Metrics 采集运行的Prometheus指标
// 所有方法对nil接收者安全,指标未启用时直接传nil
type Metrics struct {
	registry *prometheus.Registry

	acquisitions *prometheus.CounterVec
	duration     prometheus.Histogram
	lastPrice    *prometheus.GaugeVec
}

// NewMetrics 创建独立注册表的指标集
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricewatch",
			Name:      "acquisitions_total",
			Help:      "按终态与平台统计的采集次数",
		}, []string{"status", "platform"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricewatch",
			Name:      "acquisition_duration_seconds",
			Help:      "单商品采集耗时分布",
			Buckets:   []float64{5, 15, 30, 60, 120, 240},
		}),
		lastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pricewatch",
			Name:      "last_price",
			Help:      "最近一次成功采集的价格",
		}, []string{"product", "platform", "currency"}),
	}

	registry.MustRegister(m.acquisitions, m.duration, m.lastPrice)
	return m
}

// ObserveResult 记录一条采集终态
func (m *Metrics) ObserveResult(res *models.Result) {
	if m == nil || res == nil {
		return
	}

	m.acquisitions.WithLabelValues(string(res.Status), res.Product.Platform).Inc()
	m.duration.Observe(res.Duration)

	if res.Price != nil {
		m.lastPrice.WithLabelValues(res.Product.Name, res.Product.Platform, res.Currency).Set(*res.Price)
	}
}

// Serve 在listen地址上暴露/metrics,采集结束不等待其退出
func (m *Metrics) Serve(listen string) {
	if m == nil || listen == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.Infof("指标服务已启动: http://%s/metrics", listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Warnf("指标服务退出: %v", err)
		}
	}()
}
