package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time so tests can pin "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}

// IDSource produces entity identifiers and human-facing reference codes.
// Injected so tests control both.
type IDSource interface {
	NewID() string
	Reference(prefix string) string
}

// Reference code prefixes, one per operation kind.
const (
	RefDeposit    = "DEP"
	RefWithdrawal = "WIT"
	RefTransfer   = "TRF"
	RefRepayment  = "REP"
	RefCredit     = "CRD"
	RefSavings    = "SAV"
)

type uuidSource struct {
	clock Clock
}

// NewIDSource returns a UUID-backed IDSource stamping references with the
// given clock.
func NewIDSource(clock Clock) IDSource {
	return &uuidSource{clock: clock}
}

func (s *uuidSource) NewID() string { return uuid.NewString() }

func (s *uuidSource) Reference(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s%d%s", prefix, s.clock.Now().UnixMilli(), suffix)
}
