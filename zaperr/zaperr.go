/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package zaperr implements a structured error type carrying zap-style
// key/value context, so a single failed reconnect, restore, or reconcile
// step can be logged with its full context in one nested zap field instead
// of flattening everything into the outer log line.
package zaperr

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapError is a structured error: a message plus key/value pairs, logged
// through zap the same way zap.SugaredLogger sweetens its own arguments.
type ZapError struct {
	msg string
	kv  []interface{}
}

func (ze ZapError) Error() string {
	return ze.msg
}

// MarshalLogObject lets zap expand a ZapError's key/value pairs as nested
// fields instead of a flat string, including when one ZapError's kv
// contains another (nested failures, e.g. a reconcile step wrapping a
// create failure wrapping a marshal failure).
func (ze ZapError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	var invalid invalidPairs

	enc.AddString("msg", ze.msg)
	for i := 0; i < len(ze.kv); {
		if field, ok := ze.kv[i].(zapcore.Field); ok {
			field.AddTo(enc)
			i++
			continue
		}

		if i == len(ze.kv)-1 {
			zap.Any("ignored", ze.kv[i]).AddTo(enc)
			break
		}

		key, val := ze.kv[i], ze.kv[i+1]
		if keyStr, ok := key.(string); !ok {
			if cap(invalid) == 0 {
				invalid = make(invalidPairs, 0, len(ze.kv)/2)
			}
			invalid = append(invalid, invalidPair{i, key, val})
		} else {
			zap.Any(keyStr, val).AddTo(enc)
		}

		i += 2
	}

	if len(invalid) > 0 {
		enc.AddArray("invalid", invalid)
	}

	return nil
}

// ZapErrorArray lets a slice of ZapErrors marshal as a proper nested array;
// zap's built-in []error support doesn't expand ZapError's structured
// fields.
type ZapErrorArray []ZapError

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (zea ZapErrorArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for i := range zea {
		if err := enc.AppendObject(zea[i]); err != nil {
			return err
		}
	}
	return nil
}

type invalidPair struct {
	position   int
	key, value interface{}
}

func (p invalidPair) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("position", int64(p.position))
	zap.Any("key", p.key).AddTo(enc)
	zap.Any("value", p.value).AddTo(enc)
	return nil
}

type invalidPairs []invalidPair

func (ps invalidPairs) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for i := range ps {
		if err := enc.AppendObject(ps[i]); err != nil {
			return err
		}
	}
	return nil
}

// Errorw builds a ZapError carrying msg and the given key/value pairs.
func Errorw(msg string, args ...interface{}) ZapError {
	return ZapError{msg: msg, kv: args}
}
