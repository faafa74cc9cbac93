// Package classifier holds the external intent-classification capability and
// its providers. The router treats a Classifier as a black box returning
// scored intent candidates and extracted slots; any provider can be swapped in,
// including the deterministic rules classifier used in tests.
package classifier

import (
	"context"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// Classifier classifies one customer message given a serialized snapshot of
// the conversation context. Implementations must honor ctx cancellation; the
// router enforces the configured timeout around every call.
type Classifier interface {
	Classify(ctx context.Context, message, contextSnapshot string) (*model.Classification, error)
}
