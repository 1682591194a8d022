package device

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-ping/ping"
)

const probeTimeout = 5 * time.Second

// ProbeServer checks that the widget service is reachable before the
// machine spends radio time on real requests. An unprivileged ICMP ping is
// tried first; where that is blocked, a plain TCP dial to the service port
// settles it.
func ProbeServer(ctx context.Context, baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("device: bad server url: %w", err)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	if pingHost(host) {
		return nil
	}

	d := net.Dialer{Timeout: probeTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("device: server unreachable: %w", err)
	}
	conn.Close()
	return nil
}

func pingHost(host string) bool {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return false
	}
	// Unprivileged UDP ping; no root needed.
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = probeTimeout
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
