//go:build linux

package scheduler

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "postbot/pkg/logx"
)

// sdNotifyReady tells systemd the scheduler finished startup (lock held,
// schedule loaded). No-op outside a systemd unit.
func sdNotifyReady(log logx.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify: READY")
	}
}

func sdNotifyStopping(log logx.Logger) {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
	}
}
