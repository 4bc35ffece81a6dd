package ingest

import (
	"time"

	"github.com/google/uuid"
)

// messageNamespace scopes derived message ids to this pipeline.
var messageNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DeriveMessageID derives the dedup ledger key from the order and the
// instrument run's performed timestamp. Redeliveries of the same run
// always collide on the same id; a new run for the same order (a later
// performed date) gets a fresh one.
func DeriveMessageID(orderID uuid.UUID, performedDate time.Time) uuid.UUID {
	seed := orderID.String() + "|" + performedDate.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(messageNamespace, []byte(seed))
}
