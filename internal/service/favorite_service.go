package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/internal/localstore"
	"github.com/pwendlys/viaja-mais/internal/models"
)

const maxFavoritesPerUser = 20

type FavoriteService interface {
	List(ctx context.Context, userID string) ([]models.FavoriteLocation, error)
	Add(ctx context.Context, userID string, req *models.CreateFavoriteRequest) (*models.FavoriteLocation, error)
	Remove(ctx context.Context, userID, favoriteID string) error
}

type favoriteService struct {
	store *localstore.Store
}

func NewFavoriteService(store *localstore.Store) FavoriteService {
	return &favoriteService{store: store}
}

func (s *favoriteService) List(ctx context.Context, userID string) ([]models.FavoriteLocation, error) {
	favs, err := localstore.GetJSON[[]models.FavoriteLocation](ctx, s.store, localstore.FavoritesKey(userID))
	if err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []models.FavoriteLocation{}
	}
	return favs, nil
}

func (s *favoriteService) Add(ctx context.Context, userID string, req *models.CreateFavoriteRequest) (*models.FavoriteLocation, error) {
	fav := models.FavoriteLocation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Category:  req.Category,
		Address:   req.Address,
		Lat:       req.Lat,
		Lng:       req.Lng,
		CreatedAt: time.Now(),
	}

	err := localstore.UpdateJSON(ctx, s.store, localstore.FavoritesKey(userID), func(favs *[]models.FavoriteLocation) error {
		if len(*favs) >= maxFavoritesPerUser {
			return apperrors.BadRequest("limite de locais favoritos atingido")
		}
		for _, f := range *favs {
			if f.Name == fav.Name {
				return apperrors.Conflict("já existe um favorito com este nome")
			}
		}
		*favs = append(*favs, fav)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &fav, nil
}

func (s *favoriteService) Remove(ctx context.Context, userID, favoriteID string) error {
	found := false
	err := localstore.UpdateJSON(ctx, s.store, localstore.FavoritesKey(userID), func(favs *[]models.FavoriteLocation) error {
		kept := (*favs)[:0]
		for _, f := range *favs {
			if f.ID == favoriteID {
				found = true
				continue
			}
			kept = append(kept, f)
		}
		*favs = kept
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound("local favorito")
	}
	return nil
}
