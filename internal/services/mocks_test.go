package services

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// fixedClock pins Now for deterministic references and dates.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// seqIDSource hands out predictable ids and references.
type seqIDSource struct {
	ids  int
	refs int
}

func (s *seqIDSource) NewID() string {
	s.ids++
	return fmt.Sprintf("id-%d", s.ids)
}

func (s *seqIDSource) Reference(prefix string) string {
	s.refs++
	return fmt.Sprintf("%s-%d", prefix, s.refs)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
