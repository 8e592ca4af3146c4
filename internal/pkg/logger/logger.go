// Package logger 按配置构建 zap 日志。
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qs3c/needvox_server/config"
)

// New json 格式使用生产配置，console 使用开发配置
func New(cfg *config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
