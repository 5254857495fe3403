//go:build !linux

package uring

import (
	"errors"
	"time"

	"github.com/ringloop/ringloop/internal/driver"
	"github.com/ringloop/ringloop/internal/lifecycle"
)

// ErrUnsupported is returned by New on platforms other than Linux, where
// io_uring doesn't exist; the runtime falls back to internal/driver/legacy.
var ErrUnsupported = errors.New("uring: io_uring is only available on linux")

type Config struct {
	Entries uint32
	SQPoll  bool
}

type Ring struct{}

func New(Config) (*Ring, error) { return nil, ErrUnsupported }

func (r *Ring) Submit(driver.Op) (int, error)                   { return 0, ErrUnsupported }
func (r *Ring) Poll(int, lifecycle.Waker) lifecycle.PollResult { return lifecycle.PollResult{} }
func (r *Ring) Drop(int, any)                                   {}
func (r *Ring) Flush() error                                    { return ErrUnsupported }
func (r *Ring) Park(time.Duration) error                        { return ErrUnsupported }
func (r *Ring) Close() error                                    { return nil }

var _ driver.Driver = (*Ring)(nil)
