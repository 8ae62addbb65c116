package signature

import (
	"encoding/json"

	"github.com/gowebpki/jcs"

	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Canonicalize renders a document as RFC 8785 canonical JSON. Two documents
// that are semantically equal always canonicalize to the same bytes, which is
// what makes signatures stable across field reordering.
func Canonicalize(doc any) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "document is not serializable")
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "document cannot be canonicalized")
	}
	return canonical, nil
}
