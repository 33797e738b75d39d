package extractor

import (
	"strings"

	"github.com/ternarybob/sellersync/internal/models"
)

var faultPatterns = []struct {
	kind    models.NetworkFaultKind
	markers []string
}{
	{models.NetworkFaultProxyDead, []string{"ERR_PROXY_CONNECTION_FAILED", "ERR_TUNNEL_CONNECTION_FAILED", "ERR_SOCKS_CONNECTION_FAILED", "ERR_PROXY_AUTH"}},
	{models.NetworkFaultDNS, []string{"ERR_NAME_NOT_RESOLVED", "ERR_NAME_RESOLUTION_FAILED"}},
	{models.NetworkFaultConnectionRefused, []string{"ERR_CONNECTION_REFUSED", "ERR_CONNECTION_RESET", "ERR_CONNECTION_CLOSED"}},
	{models.NetworkFaultTimeout, []string{"ERR_TIMED_OUT", "ERR_CONNECTION_TIMED_OUT"}},
}

// ClassifyNetworkFault maps a browser transport error text to a named fault.
// Unrecognised text returns nil.
func ClassifyNetworkFault(text string) *models.NetworkFaultError {
	if text == "" {
		return nil
	}
	upper := strings.ToUpper(text)
	for _, p := range faultPatterns {
		for _, marker := range p.markers {
			if strings.Contains(upper, marker) {
				return &models.NetworkFaultError{Kind: p.kind, Detail: text}
			}
		}
	}
	if strings.Contains(upper, "TIMEOUT") {
		return &models.NetworkFaultError{Kind: models.NetworkFaultTimeout, Detail: text}
	}
	return nil
}
