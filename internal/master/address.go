package master

import (
	"fmt"
	"strings"
)

// BuildAddress reconstructs a dialable "scheme://host:port" address from a
// bare hostname (as announced by a secondary's NodeState.Host, or a
// SECONDARY_HOSTS bootstrap entry) and a port. If host already carries a
// scheme it is preserved; if it already carries a port that port wins over
// defaultPort. defaultPort is the master's configured RPC port
// (config.Config.RPCPort), used when the announcing node didn't supply its
// own port.
//
// This exists because the two-port model (a separate RPC_DEF_PORT) was
// collapsed into a single HTTP listener per node: the master cannot assume
// port 80, so every dial address needs an explicit port, reconstructed the
// way the original's join_listener.rs builds http://{host}:{RPC_DEF_PORT}.
func BuildAddress(host string, port, defaultPort int) string {
	if host == "" {
		return ""
	}

	scheme := "http://"
	rest := host
	if idx := strings.Index(rest, "://"); idx >= 0 {
		scheme = rest[:idx+3]
		rest = rest[idx+3:]
	}

	if strings.Contains(rest, ":") {
		// host already names its own port; leave it alone.
		return scheme + rest
	}

	p := port
	if p <= 0 {
		p = defaultPort
	}
	if p <= 0 {
		return scheme + rest
	}
	return fmt.Sprintf("%s%s:%d", scheme, rest, p)
}
