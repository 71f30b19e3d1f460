package service

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/aggregate"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

const CartType = "cart"

type CatalogReader interface {
	GetProduct(ctx context.Context, catalogID, productID string) (*domain.Product, error)
}

type CartService struct {
	carts     *aggregate.Type[domain.CartState]
	catalog   CatalogReader
	catalogID string
	logger    *zap.Logger
}

func NewCartService(store aggregate.Store, catalog CatalogReader, catalogID string, logger *zap.Logger, opts ...aggregate.Option) *CartService {
	opts = append([]aggregate.Option{aggregate.WithLogger(logger)}, opts...)
	return &CartService{
		carts:     aggregate.NewType[domain.CartState](CartType, store, opts...),
		catalog:   catalog,
		catalogID: catalogID,
		logger:    logger,
	}
}

func (s *CartService) CreateCart(ctx context.Context, cartID string) error {
	created, err := s.carts.Create(ctx, cartID, func(st *domain.CartState) {
		st.Items = []domain.CartItem{}
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("cart created", zap.String("cart_id", cartID))
	}
	return nil
}

// AddItem snapshots the product from the catalog and adds it to the cart.
// The catalog read happens before the cart lock is taken, so a price change
// racing with this call may or may not be reflected in the new line. An
// existing line only has its quantity increased.
func (s *CartService) AddItem(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, s.catalogID, productID)
	if err != nil {
		return err
	}
	return s.addLine(ctx, cartID, product, quantity)
}

// AddItemCreatingCart is AddItem for a cart that may not exist yet. The cart
// is only created once the product is known to be in the catalog.
func (s *CartService) AddItemCreatingCart(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, s.catalogID, productID)
	if err != nil {
		return err
	}
	if err := s.CreateCart(ctx, cartID); err != nil {
		return err
	}
	return s.addLine(ctx, cartID, product, quantity)
}

func (s *CartService) addLine(ctx context.Context, cartID string, product *domain.Product, quantity int) error {
	return s.carts.Write(ctx, cartID, func(st *domain.CartState) error {
		if i := st.Find(product.ID); i >= 0 {
			st.Items[i].Quantity += quantity
			return nil
		}

		now := time.Now().UTC()
		st.Items = append(st.Items, domain.CartItem{
			ProductID:  product.ID,
			Quantity:   quantity,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Picture:    product.Picture,
			AddedAt:    &now,
		})
		return nil
	})
}

func (s *CartService) GetItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	items := make([]domain.CartItem, 0)
	err := s.carts.Read(ctx, cartID, func(st domain.CartState) error {
		items = append(items, st.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateItemQuantity sets the quantity of an existing line; a missing line is left alone.
func (s *CartService) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	return s.carts.Write(ctx, cartID, func(st *domain.CartState) error {
		if i := st.Find(productID); i >= 0 {
			st.Items[i].Quantity = quantity
		}
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string) error {
	return s.carts.Write(ctx, cartID, func(st *domain.CartState) error {
		if i := st.Find(productID); i >= 0 {
			st.Items = append(st.Items[:i], st.Items[i+1:]...)
		}
		return nil
	})
}

func (s *CartService) EmptyCart(ctx context.Context, cartID string) error {
	return s.carts.Write(ctx, cartID, func(st *domain.CartState) error {
		st.Items = []domain.CartItem{}
		return nil
	})
}
