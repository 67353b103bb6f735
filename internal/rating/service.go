package rating

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"foodhub-be/internal/db"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/order"
	"foodhub-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minContentLen    = 10
	maxContentLen    = 500
	maxImageURLLen   = 500
	defaultPageSize  = 10
	maxPageSize      = 100
	filterAll        = "all"
	filterHasImages  = "has_images"
	sortCreatedAsc   = "create_at_asc"
	sortCreatedDesc  = "create_at_desc"
	starFilterSuffix = "_star"
)

// Catalog folds a new rating into the menu item's running average.
type Catalog interface {
	RecomputeAverageRating(ctx context.Context, id uuid.UUID, rating int) error
}

type Service interface {
	CreateRating(ctx context.Context, caller utils.Identity, req CreateRatingRequest) (*Rating, error)
	ListForMenuItem(ctx context.Context, menuItemID uuid.UUID, q ListQuery) (*PagedResult, error)
}

type service struct {
	repo    Repository
	catalog Catalog
	tx      db.Transactor
}

func NewService(repo Repository, catalog Catalog, tx db.Transactor) Service {
	return &service{repo: repo, catalog: catalog, tx: tx}
}

// CreateRating rates one delivered line item owned by the caller. The
// line is locked and flipped to rated in the same transaction that
// stores the rating, so a line is rated at most once.
func (s *service) CreateRating(ctx context.Context, caller utils.Identity, req CreateRatingRequest) (*Rating, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateRating"),
		zap.String("order_item_id", req.OrderItemID.String()),
	)

	if caller.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if err := validate(&req); err != nil {
		return nil, err
	}

	rt := &Rating{
		UserID:      caller.UserID,
		MenuItemID:  req.MenuItemID,
		OrderItemID: req.OrderItemID,
		Content:     req.Content,
		Rating:      req.Rating,
		Images:      req.Images,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.LockItem(ctx, req.OrderItemID)
		if err != nil {
			return err
		}
		if item.OwnerID != caller.UserID {
			return ErrOrderItemNotFound
		}
		if item.OrderStatus != string(order.StatusDelivered) {
			return ErrNotDelivered
		}
		if item.MenuItemID != req.MenuItemID {
			return ErrMenuItemMismatch
		}
		if item.IsRated {
			return ErrAlreadyRated
		}

		flipped, err := s.repo.MarkRated(ctx, req.OrderItemID)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyRated
		}

		rt.OptionItemNames = item.OptionItemNames
		if err := s.repo.Insert(ctx, rt); err != nil {
			return err
		}
		return s.catalog.RecomputeAverageRating(ctx, req.MenuItemID, req.Rating)
	})
	if err != nil {
		log.Warn("rating rejected", zap.Error(err))
		return nil, err
	}

	log.Info("rating created",
		zap.String("rating_id", rt.ID.String()),
		zap.Int("rating", rt.Rating),
	)
	return rt, nil
}

func validate(req *CreateRatingRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return ErrInvalidRating
	}
	req.Content = strings.TrimSpace(req.Content)
	if n := utf8.RuneCountInString(req.Content); n < minContentLen || n > maxContentLen {
		return ErrInvalidContent
	}
	if req.Images == nil {
		req.Images = []string{}
	}
	for _, img := range req.Images {
		u, err := url.Parse(img)
		if err != nil || !u.IsAbs() || u.Host == "" || len(img) > maxImageURLLen {
			return ErrInvalidImage
		}
	}
	return nil
}

// ListForMenuItem pages the reviews of one menu item. filterBy accepts
// all, has_images or N_star; sortBy accepts create_at_asc and create_at_desc.
func (s *service) ListForMenuItem(ctx context.Context, menuItemID uuid.UUID, q ListQuery) (*PagedResult, error) {
	page, limit := q.Page, q.Limit
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	f := ListFilter{MenuItemID: menuItemID, Limit: limit, Offset: page * limit}

	switch filter := strings.ToLower(strings.TrimSpace(q.FilterBy)); {
	case filter == "" || filter == filterAll:
	case filter == filterHasImages:
		f.HasImages = true
	case strings.HasSuffix(filter, starFilterSuffix) && len(filter) == len(starFilterSuffix)+1:
		stars := int(filter[0] - '0')
		if stars < 1 || stars > 5 {
			return nil, ErrInvalidFilter
		}
		f.Stars = stars
	default:
		return nil, ErrInvalidFilter
	}

	switch strings.ToLower(strings.TrimSpace(q.SortBy)) {
	case sortCreatedAsc:
		f.OrderBy = "r.created_at ASC"
	case sortCreatedDesc, "":
		f.OrderBy = "r.created_at DESC"
	default:
		return nil, ErrInvalidFilter
	}

	items, total, err := s.repo.ListByMenuItem(ctx, f)
	if err != nil {
		return nil, err
	}
	return newPagedResult(items, total, page, limit), nil
}

