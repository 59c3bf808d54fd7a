// Package app 提供 labctl 的子命令
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/pkg/database"
	applogger "github.com/Seanzed08/SmartLab/pkg/logger"
)

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "labctl",
		Short:         "SmartLab 运维工具",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("config", "", "配置文件路径（默认 ./config/config.yaml）")
	if err := viper.BindPFlag("config", root.PersistentFlags().Lookup("config")); err != nil {
		panic(err)
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newHoursCmd())
	return root
}

// runtime 子命令共享的运行环境
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}

// openRuntime 加载配置、日志并连接数据库，调用方负责 close
func openRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, db: db}, nil
}

func (r *runtime) close() {
	if sqlDB, err := r.db.DB(); err == nil {
		sqlDB.Close()
	}
	r.logger.Sync()
}
