package reactz

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger replaces the logger used by channels and operators.
// The library is silent by default.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// Logger returns the logger currently used by the library.
func Logger() *zerolog.Logger {
	return logger.Load()
}
