package collectibles

import (
	"context"

	"migrator/app/models"
)

// Service looks up the collectibles a wallet owns. A nil slice with an error
// means the registry could not answer; an empty slice means the wallet owns
// none.
type Service interface {
	OwnedCollectibles(ctx context.Context, address string) ([]*models.Collectible, error)
}
