package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/sellersync/internal/models"
)

func TestClassifyNetworkFault(t *testing.T) {
	tests := []struct {
		text string
		want models.NetworkFaultKind
	}{
		{"net::ERR_PROXY_CONNECTION_FAILED", models.NetworkFaultProxyDead},
		{"net::ERR_TUNNEL_CONNECTION_FAILED", models.NetworkFaultProxyDead},
		{"net::ERR_SOCKS_CONNECTION_FAILED", models.NetworkFaultProxyDead},
		{"net::ERR_TIMED_OUT", models.NetworkFaultTimeout},
		{"net::ERR_CONNECTION_TIMED_OUT", models.NetworkFaultTimeout},
		{"navigation timeout", models.NetworkFaultTimeout},
		{"net::ERR_CONNECTION_REFUSED", models.NetworkFaultConnectionRefused},
		{"net::ERR_CONNECTION_RESET", models.NetworkFaultConnectionRefused},
		{"net::ERR_CONNECTION_CLOSED", models.NetworkFaultConnectionRefused},
		{"net::ERR_NAME_NOT_RESOLVED", models.NetworkFaultDNS},
		{"net::err_name_resolution_failed", models.NetworkFaultDNS},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			fault := ClassifyNetworkFault(tt.text)
			if assert.NotNil(t, fault) {
				assert.Equal(t, tt.want, fault.Kind)
				assert.Equal(t, tt.text, fault.Detail)
			}
		})
	}
}

func TestClassifyNetworkFault_Unknown(t *testing.T) {
	assert.Nil(t, ClassifyNetworkFault(""))
	assert.Nil(t, ClassifyNetworkFault("net::ERR_ABORTED"))
	assert.Nil(t, ClassifyNetworkFault("context deadline exceeded"))
}
