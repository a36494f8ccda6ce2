// internal/receiver/builder.go
package receiver

import (
	"fmt"
	"net"
	"strconv"
	"time"

	cfg "github.com/ManiacDC/receiver-power-sync/internal/config"
	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
	reiscp "github.com/ManiacDC/receiver-power-sync/internal/receiver/eiscp"
	rserial "github.com/ManiacDC/receiver-power-sync/internal/receiver/serial"
	rtcp "github.com/ManiacDC/receiver-power-sync/internal/receiver/tcp"
)

// Build constructs the handle for one receiver config. No dialing
// happens here: a receiver that is down at startup must not be fatal.
//
// notify receives unsolicited power notifications (nil when nobody
// consumes them). Serial carries no notifications at all; that
// transport is poll-only.
func Build(rc cfg.ReceiverConfig, notify func(iscp.State)) (*Handle, error) {
	timeout := time.Duration(rc.TimeoutMs) * time.Millisecond

	var tr Transport
	switch rc.Mode {
	case cfg.ModeEISCP:
		tr = reiscp.New(reiscp.Config{
			Addr:    net.JoinHostPort(rc.IP, strconv.Itoa(iscp.Port)),
			Timeout: timeout,
			Notify:  notify,
		})

	case cfg.ModeTCP:
		tr = rtcp.New(rtcp.Config{
			Addr:    net.JoinHostPort(rc.IP, strconv.Itoa(rc.TCPPort)),
			Timeout: timeout,
			Notify:  notify,
		})

	case cfg.ModeSerial:
		tr = rserial.New(rserial.Config{
			Port:    rc.SerialPort,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("receiver %s: invalid mode %q", rc.Name, rc.Mode)
	}

	return NewHandle(rc.Name, tr), nil
}
