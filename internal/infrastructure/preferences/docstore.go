package preferences

import (
	"context"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/docstore"
)

// ProfileClient is the subset of the document store client used here
type ProfileClient interface {
	GetPreferences(ctx context.Context, userID string) (*docstore.ProfileDocument, error)
	PutPreferences(ctx context.Context, doc *docstore.ProfileDocument) error
}

// DocstoreRepository keeps profiles in the remote document service
type DocstoreRepository struct {
	client ProfileClient
}

var _ domain.PreferenceRepository = (*DocstoreRepository)(nil)

// NewDocstoreRepository creates a repository on top of client
func NewDocstoreRepository(client ProfileClient) *DocstoreRepository {
	return &DocstoreRepository{client: client}
}

// Get fetches and maps the profile document of userID
func (r *DocstoreRepository) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	doc, err := r.client.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs := docstore.MapToPreferences(doc)
	return &prefs, nil
}

// Put maps and stores the profile of userID
func (r *DocstoreRepository) Put(ctx context.Context, userID string, prefs *domain.UserPreferences) error {
	if err := validatePut(userID, prefs); err != nil {
		return err
	}
	return r.client.PutPreferences(ctx, docstore.MapFromPreferences(userID, *prefs))
}
