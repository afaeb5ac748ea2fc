package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/pricewatch/internal/browser"
	"github.com/RecoveryAshes/pricewatch/internal/core"
	"github.com/RecoveryAshes/pricewatch/internal/store"
	"github.com/RecoveryAshes/pricewatch/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 采集参数
	concurrency  int
	headless     bool
	catalogPath  string
	observations string

	// 观测落地参数
	mongoURI      string
	metricsEnable bool
	metricsListen string
)

var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "电商价格监控工具",
	Long: `PriceWatch - 多平台电商价格监控工具 (Go版本)

按商品目录驱动真实浏览器逐个采集价格,支持:
  • Amazon UK / Fnac / Darty / Boulanger 平台策略
  • 缺失链接自动搜索与死链自动恢复
  • 反爬验证检测与会话逃逸
  • 多币种价格文本规范化
  • 价格历史CSV追加,可选MongoDB双写

使用示例:
  # 使用默认目录 products.csv
  pricewatch

  # 指定目录与输出
  pricewatch --catalog data/products.csv --output data/prices.csv

  # 同步写入MongoDB
  pricewatch --mongo-uri mongodb://localhost:27017

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateFlags(concurrency, mongoURI, logLevel); err != nil {
			return err
		}

		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.MergeCLIFlags(concurrency, headless, catalogPath, observations, mongoURI)
		if metricsEnable {
			config.Metrics.Enabled = true
		}
		if metricsListen != "" {
			config.Metrics.Listen = metricsListen
		}

		// Ctrl+C优雅退出: 取消context,在途任务收敛后落地已完成的结果
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			utils.Warnf("收到中断信号: %v, 正在优雅关闭...", sig)
			cancel()
		}()

		// 浏览器工厂
		factory := browser.NewFactory(config.Monitor.Headless)
		if err := factory.Start(); err != nil {
			return fmt.Errorf("启动浏览器失败: %w", err)
		}
		defer factory.Close()

		// 观测落地端: CSV必选,MongoDB可选
		sinks := []store.ObservationSink{store.NewCSVObservations(config.Files.Observations)}
		if config.Mongo.URI != "" {
			mongoSink, err := store.NewMongoObservations(config.Mongo.URI, config.Mongo.Database, config.Mongo.Collection)
			if err != nil {
				return fmt.Errorf("连接MongoDB失败: %w", err)
			}
			defer mongoSink.Close()
			sinks = append(sinks, mongoSink)
			utils.Infof("MongoDB观测端已启用: %s/%s", config.Mongo.Database, config.Mongo.Collection)
		}

		// Prometheus指标
		var metrics *core.Metrics
		if config.Metrics.Enabled {
			metrics = core.NewMetrics()
			metrics.Serve(config.Metrics.Listen)
		}

		catalog := store.NewCSVCatalog(config.Files.Catalog)
		monitor := core.NewMonitor(config, catalog, sessionFactory{factory}, sinks, metrics, core.NewResourceGuard())

		stats, err := monitor.Run(ctx)
		if err != nil {
			return fmt.Errorf("采集失败: %w", err)
		}

		fmt.Println("\n==================================================")
		fmt.Println("📊 价格采集统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 商品总数: %d\n", stats.Total)
		fmt.Printf("✅ 成功: %d\n", stats.Success)
		fmt.Printf("📦 缺货: %d\n", stats.OutOfStock)
		fmt.Printf("❌ 失败: %d\n", stats.Failed)
		fmt.Println("==================================================")

		utils.Info("✨ 采集任务完成!")
		return nil
	},
}

// sessionFactory 把browser.Factory适配为core.SessionFactory
type sessionFactory struct {
	factory *browser.Factory
}

func (f sessionFactory) Open() (core.Session, error) {
	return f.factory.Open()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("PriceWatch %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 多平台电商价格监控工具")
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// 采集参数
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "同时采集的商品数 (默认取配置文件,上限20)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "商品目录CSV路径")
	rootCmd.Flags().StringVarP(&observations, "output", "o", "", "价格观测CSV路径")

	// 观测落地参数
	rootCmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB连接URI (为空时禁用)")
	rootCmd.Flags().BoolVar(&metricsEnable, "metrics", false, "启用Prometheus指标服务")
	rootCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "指标服务监听地址 (默认:9090)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
