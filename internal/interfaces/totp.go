package interfaces

import "context"

// TOTPProvider turns a shared secret into a current 6-digit code.
// ok is false when no code could be produced.
type TOTPProvider interface {
	Code(ctx context.Context, secret string) (code string, ok bool)
}
