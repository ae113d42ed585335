package loyalty

import (
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/saveup/marketplace/internal/domain"
	"github.com/saveup/marketplace/internal/messaging/kafka"
)

// ItemAward — эко-баллы, начисленные за одну подтверждённую позицию.
type ItemAward struct {
	OrderItemID string `json:"order_item_id"`
	ProductID   string `json:"product_id"`
	Qty         int32  `json:"qty"`
	Points      int    `json:"points"`
}

// Award — итог начисления эко-баллов по подтверждённому заказу.
type Award struct {
	OrderID       string      `json:"order_id"`
	CustomerEmail string      `json:"customer_email"`
	TotalPoints   int         `json:"total_points"`
	Items         []ItemAward `json:"items"`
}

// Service начисляет эко-баллы за подтверждённые позиции. Баллы считаются по
// сроку годности и категории товара на момент подтверждения, умноженные на
// количество единиц в позиции.
type Service struct {
	products domain.ProductRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
}

// NewService создаёт сервис начисления эко-баллов.
func NewService(products domain.ProductRepository, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "loyalty")
	}
	return &Service{products: products, outbox: outbox, logger: logger}
}

// AwardForConfirmation начисляет баллы за каждую подтверждённую позицию
// заказа. Позиция без товара в каталоге (снят с продажи, удалён) приносит
// ноль баллов, но не ломает начисление остальных.
func (s *Service) AwardForConfirmation(order domain.Order, result domain.ConfirmationResult) (Award, error) {
	award := Award{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		Items:         make([]ItemAward, 0, len(result.ConfirmedItemIDs)),
	}

	confirmed := make(map[string]struct{}, len(result.ConfirmedItemIDs))
	for _, id := range result.ConfirmedItemIDs {
		confirmed[id] = struct{}{}
	}

	now := time.Now().UTC()
	for _, item := range order.Items {
		if _, ok := confirmed[item.ID]; !ok {
			continue
		}

		points := 0
		product, err := s.products.Get(item.ProductID)
		switch {
		case err == nil:
			points = domain.CalculateEcoPointsAt(product.ExpirationDate, product.Category, now) * int(item.Qty)
		case errors.Is(err, domain.ErrProductNotFound):
			s.logger.WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
			}).Warn("product missing, eco points default to zero")
		default:
			return Award{}, err
		}

		award.Items = append(award.Items, ItemAward{
			OrderItemID: item.ID,
			ProductID:   item.ProductID,
			Qty:         item.Qty,
			Points:      points,
		})
		award.TotalPoints += points
	}

	s.emitAwarded(award)

	s.logger.WithFields(log.Fields{
		"order_id":     award.OrderID,
		"total_points": award.TotalPoints,
	}).Info("eco points awarded")

	return award, nil
}

// emitAwarded публикует событие начисления через outbox. Ошибка публикации
// логируется и не отменяет начисление.
func (s *Service) emitAwarded(award Award) {
	if s.outbox == nil || award.TotalPoints == 0 {
		return
	}

	payload, err := json.Marshal(award)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", award.OrderID).Error("marshal award failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeLoyalty,
		AggregateID:   award.OrderID,
		EventType:     string(kafka.EventTypeEcoPointsAwarded),
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithField("order_id", award.OrderID).Error("enqueue award event failed")
	}
}
