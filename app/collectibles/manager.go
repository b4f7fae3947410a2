package collectibles

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"migrator/app/config"
	"migrator/app/models"
	"migrator/pkg/log"
)

const (
	apiKeyHeader = "x-api-key"

	ownedPath = "/collectibles/owned/"

	cacheExpiration = 5 * time.Minute
	cleanupInterval = 10 * time.Minute
)

type ownedResponse struct {
	Data []*models.Collectible `json:"data"`
}

// Manager queries the collectible registry sidecar and caches per-wallet
// answers for a short while to keep eligibility checks cheap.
type Manager struct {
	Config     config.Collectibles
	HttpClient *http.Client

	cache *cache.Cache
}

func NewManager(cfg config.Collectibles, client *http.Client) *Manager {
	return &Manager{
		Config:     cfg,
		HttpClient: client,
		cache:      cache.New(cacheExpiration, cleanupInterval),
	}
}

func (m *Manager) OwnedCollectibles(ctx context.Context, address string) ([]*models.Collectible, error) {
	if cached, found := m.cache.Get(address); found {
		if owned, ok := cached.([]*models.Collectible); ok {
			return owned, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.Config.BasePath+ownedPath+address, nil)
	if err != nil {
		return nil, errors.New("failed to create a get request")
	}
	req.Header.Set(apiKeyHeader, m.Config.ApiKey)

	resp, err := m.HttpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform a get request to the collectible registry")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("response has status code with error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read a response body from the collectible registry")
	}

	owned := new(ownedResponse)
	if err = json.Unmarshal(body, owned); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal a response from the collectible registry")
	}

	// an empty list is a valid answer, cache it too
	if owned.Data == nil {
		owned.Data = []*models.Collectible{}
	}

	log.AddFields(ctx, "collectibles owned", len(owned.Data))
	m.cache.Set(address, owned.Data, cache.DefaultExpiration)
	return owned.Data, nil
}
