//go:build !linux

package scheduler

import logx "postbot/pkg/logx"

func sdNotifyReady(logx.Logger)    {}
func sdNotifyStopping(logx.Logger) {}
