/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package zlog builds the zap.SugaredLogger the CLI commands hand to
// session.Options.Logger: a timestamp, level, and a caller tag naming the
// command instead of zap's default full source path.
package zlog

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func zapTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000"))
}

func callerEncoder(name string) zapcore.CallerEncoder {
	return func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("%s:%s:%d", name, filepath.Base(caller.File), caller.Line))
	}
}

// New returns a sugared logger tagging every line with name, e.g.:
//
//	2018/11/15 14:35:44.123  INFO  zk-import:main.go:42  import complete
func New(name string) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapTimeEncoder
	cfg.EncoderConfig.EncodeCaller = callerEncoder(name)

	logger, err := cfg.Build()
	if err != nil {
		log.Panicf("zlog: can't build logger: %v", err)
	}
	return logger.Sugar()
}
