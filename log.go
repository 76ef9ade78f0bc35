package ptl

import (
	"io"
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// newLogger builds the structured logger used for the fatal/diagnostic
// path: a logiface.Logger backed by zerolog, via this monorepo's own
// izerolog adapter. This is off the trace ring's path — it fires on init
// validation failures, on each overrun-policy application (a warning per
// SKIP/KILL/CATCH_UP), and on the "fatal: halt forever" condition.
func newLogger(w io.Writer) *logiface.Logger[*izerolog.Event] {
	if w == nil {
		w = os.Stderr
	}
	return logiface.New[*izerolog.Event](
		izerolog.L.WithZerolog(zerolog.New(w).With().Timestamp().Logger()),
		logiface.WithLevel[*izerolog.Event](logiface.LevelTrace),
	)
}
