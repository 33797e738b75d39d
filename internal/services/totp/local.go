package totp

import (
	"context"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
)

// LocalProvider computes RFC 6238 codes in-process
type LocalProvider struct {
	now    func() time.Time
	logger arbor.ILogger
}

var _ interfaces.TOTPProvider = (*LocalProvider)(nil)

func NewLocalProvider(logger arbor.ILogger) *LocalProvider {
	return &LocalProvider{now: time.Now, logger: logger}
}

func (p *LocalProvider) Code(ctx context.Context, secret string) (string, bool) {
	secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	if secret == "" {
		return "", false
	}

	code, err := totp.GenerateCode(secret, p.now())
	if err != nil {
		p.logger.Warn().Err(err).Msg("TOTP code generation failed")
		return "", false
	}
	return code, true
}
