package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/aggregate"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orderedmap"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	CatalogType = "catalog"

	// ListPageSize bounds list and get-orders responses; there is no
	// pagination beyond the first page.
	ListPageSize = 300
)

type CatalogService struct {
	catalogs *aggregate.Type[domain.CatalogState]
	db       repository.Querier
	logger   *zap.Logger
}

func NewCatalogService(store aggregate.Store, logger *zap.Logger, opts ...aggregate.Option) *CatalogService {
	opts = append([]aggregate.Option{aggregate.WithLogger(logger)}, opts...)
	return &CatalogService{
		catalogs: aggregate.NewType[domain.CatalogState](CatalogType, store, opts...),
		db:       store.DB(),
		logger:   logger,
	}
}

func (s *CatalogService) CreateCatalog(ctx context.Context, catalogID string) error {
	created, err := s.catalogs.Create(ctx, catalogID, func(st *domain.CatalogState) {
		st.OrderedMapID = "catalog/" + catalogID
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("catalog created", zap.String("catalog_id", catalogID))
	}
	return nil
}

// AddProduct inserts product into the catalog's ordered map. A product id
// that already exists is rejected and the stored product is kept.
func (s *CatalogService) AddProduct(ctx context.Context, catalogID string, product *domain.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	return s.catalogs.Transact(ctx, catalogID, func(ctx context.Context, q repository.Querier, st *domain.CatalogState) error {
		inserted, err := orderedmap.New(q, st.OrderedMapID).InsertIfAbsent(ctx, product.ID, data)
		if err != nil {
			return err
		}
		if !inserted {
			return status.Errorf(codes.AlreadyExists, "product %s already exists in catalog %s", product.ID, catalogID)
		}
		return nil
	})
}

func (s *CatalogService) GetProduct(ctx context.Context, catalogID, productID string) (*domain.Product, error) {
	if productID == "" {
		return nil, invalidArgument("product id is required")
	}

	var product *domain.Product
	err := s.catalogs.Read(ctx, catalogID, func(st domain.CatalogState) error {
		data, found, err := orderedmap.New(s.db, st.OrderedMapID).Search(ctx, productID)
		if err != nil {
			return err
		}
		if !found {
			return status.Errorf(codes.NotFound, "product %s not found", productID)
		}
		product, err = decodeProduct(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts returns the first ListPageSize products in id order.
func (s *CatalogService) ListProducts(ctx context.Context, catalogID string) ([]*domain.Product, error) {
	var products []*domain.Product
	err := s.catalogs.Read(ctx, catalogID, func(st domain.CatalogState) error {
		entries, err := orderedmap.New(s.db, st.OrderedMapID).Range(ctx, orderedmap.RangeRequest{Limit: ListPageSize})
		if err != nil {
			return err
		}
		products, err = decodeProducts(entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// SearchProducts matches products whose name, description or categories
// contain any whitespace-separated term of query, ignoring case. An empty
// query or "all" matches every product.
func (s *CatalogService) SearchProducts(ctx context.Context, catalogID, query string) ([]*domain.Product, error) {
	terms := strings.Fields(strings.ToLower(query))
	matchAll := len(terms) == 0 || (len(terms) == 1 && terms[0] == "all")

	products := make([]*domain.Product, 0)
	err := s.catalogs.Read(ctx, catalogID, func(st domain.CatalogState) error {
		m := orderedmap.New(s.db, st.OrderedMapID)
		req := orderedmap.RangeRequest{Limit: ListPageSize}
		for {
			entries, err := m.Range(ctx, req)
			if err != nil {
				return err
			}

			page, err := decodeProducts(entries)
			if err != nil {
				return err
			}
			for _, p := range page {
				if matchAll || p.Matches(terms) {
					products = append(products, p)
				}
			}

			if len(entries) < req.Limit {
				return nil
			}
			req.StartAfter = entries[len(entries)-1].Key
		}
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func validateProduct(p *domain.Product) error {
	if p == nil || p.ID == "" {
		return invalidArgument("product id is required")
	}
	if p.PriceCents < 0 {
		return invalidArgument("product %s: price must not be negative", p.ID)
	}
	if p.StockQuantity < 0 {
		return invalidArgument("product %s: stock quantity must not be negative", p.ID)
	}
	return nil
}

func decodeProduct(data []byte) (*domain.Product, error) {
	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

func decodeProducts(entries []orderedmap.Entry) ([]*domain.Product, error) {
	products := make([]*domain.Product, 0, len(entries))
	for _, e := range entries {
		p, err := decodeProduct(e.Value)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}
