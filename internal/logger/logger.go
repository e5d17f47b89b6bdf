package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志器构建参数
type Options struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式使用彩色控制台编码
	LogFile     string // 日志文件路径，留空只输出到控制台
	MaxSizeMB   int    // 单个日志文件最大体积 (MB)
	MaxBackups  int    // 最多保留的轮转文件数
	MaxAgeDays  int    // 日志文件最长保留天数
	Compress    bool   // 轮转文件是否压缩
}

// New 根据选项构建 zap 日志器
//
// 生产模式输出 JSON 编码日志，开发模式输出控制台编码。
// 配置了 LogFile 时通过 lumberjack 做日志轮转，并同时
// 写到标准输出方便容器环境采集。
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if opts.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var writeSyncer zapcore.WriteSyncer
	if opts.LogFile != "" {
		// 确保日志目录存在
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
			return nil, err
		}

		rotator := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}

		writeSyncer = zapcore.NewMultiWriteSyncer(
			zapcore.AddSync(rotator),
			zapcore.AddSync(os.Stdout),
		)
	} else {
		writeSyncer = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	zapOpts := []zap.Option{zap.AddCaller()}
	if opts.Development {
		zapOpts = append(zapOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, zapOpts...), nil
}

// NewDevelopment 创建开发环境日志器，构建失败时退化为空日志器
func NewDevelopment() *zap.Logger {
	logger, err := New(Options{Level: "debug", Development: true})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewProduction 创建生产环境日志器，带默认轮转策略
func NewProduction(level, logFile string) *zap.Logger {
	logger, err := New(Options{
		Level:      level,
		LogFile:    logFile,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
