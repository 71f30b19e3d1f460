package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/aggregate"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orderedmap"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"go.uber.org/zap"
)

const OrdersType = "orders"

type OrdersService struct {
	orders *aggregate.Type[domain.OrdersState]
	db     repository.Querier
	logger *zap.Logger
}

func NewOrdersService(store aggregate.Store, logger *zap.Logger, opts ...aggregate.Option) *OrdersService {
	opts = append([]aggregate.Option{aggregate.WithLogger(logger)}, opts...)
	return &OrdersService{
		orders: aggregate.NewType[domain.OrdersState](OrdersType, store, opts...),
		db:     store.DB(),
		logger: logger,
	}
}

func (s *OrdersService) CreateOrders(ctx context.Context, ordersID string) error {
	created, err := s.orders.Create(ctx, ordersID, func(st *domain.OrdersState) {
		st.OrderedMapID = "orders/" + ordersID
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("orders ledger created", zap.String("orders_id", ordersID))
	}
	return nil
}

// AddOrder stores order under its id. Adding an id that is already stored is
// a no-op that reports false; the first stored order wins. A new order also
// enqueues an order.placed outbox event in the same transaction.
func (s *OrdersService) AddOrder(ctx context.Context, ordersID string, order *domain.Order) (bool, error) {
	if order == nil || order.OrderID == "" {
		return false, invalidArgument("order id is required")
	}
	if !order.TotalsConsistent() {
		return false, invalidArgument("order %s: total %d does not equal subtotal %d plus shipping %d",
			order.OrderID, order.TotalCents, order.SubtotalCents, order.ShippingCostCents)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(order)
	if err != nil {
		return false, fmt.Errorf("marshal order: %w", err)
	}

	var inserted bool
	err = s.orders.Transact(ctx, ordersID, func(ctx context.Context, q repository.Querier, st *domain.OrdersState) error {
		var err error
		inserted, err = orderedmap.New(q, st.OrderedMapID).InsertIfAbsent(ctx, order.OrderID, data)
		if err != nil || !inserted {
			return err
		}

		payload, err := json.Marshal(domain.OrderPlacedEvent{
			OrdersID:      ordersID,
			OrderID:       order.OrderID,
			TransactionID: order.TransactionID,
			TotalCents:    order.TotalCents,
			ItemCount:     len(order.Items),
			CreatedAt:     order.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal order event: %w", err)
		}
		return repository.EnqueueEvent(ctx, q, ordersID, domain.EventTypeOrderPlaced, payload)
	})
	if err != nil {
		return false, err
	}

	if inserted {
		s.logger.Info("order recorded", zap.String("orders_id", ordersID), zap.String("order_id", order.OrderID))
	} else {
		s.logger.Info("order already recorded", zap.String("orders_id", ordersID), zap.String("order_id", order.OrderID))
	}
	return inserted, nil
}

// GetOrders returns up to ListPageSize orders in order id order.
func (s *OrdersService) GetOrders(ctx context.Context, ordersID string) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := s.orders.Read(ctx, ordersID, func(st domain.OrdersState) error {
		entries, err := orderedmap.New(s.db, st.OrderedMapID).Range(ctx, orderedmap.RangeRequest{Limit: ListPageSize})
		if err != nil {
			return err
		}

		orders = make([]*domain.Order, 0, len(entries))
		for _, e := range entries {
			var o domain.Order
			if err := json.Unmarshal(e.Value, &o); err != nil {
				return fmt.Errorf("unmarshal order: %w", err)
			}
			orders = append(orders, &o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
