package confirmation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/saveup/marketplace/internal/domain"
	"github.com/saveup/marketplace/internal/messaging/kafka"
	"github.com/saveup/marketplace/internal/metrics"
)

// Engine превращает решения персонала по позициям заказа в финансовый итог:
// сумму подтверждённых позиций, сумму возврата и терминальный статус заказа.
// Платёжный I/O делегируется шлюзу, персистентность — репозиторию; сам движок
// не держит состояния между вызовами.
//
// Атомарность: валидационные ошибки не имеют побочных эффектов, отказ шлюза
// откатывает операцию целиком. Частично применённое подтверждение оставило бы
// долг перед покупателем без записанного обоснования.
type Engine struct {
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	gateway  domain.RefundGateway
	logger   *log.Entry
	metrics  *metrics.ConfirmationMetrics
}

// NewEngine создаёт рабочий экземпляр движка подтверждения.
func NewEngine(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	gateway domain.RefundGateway,
	logger *log.Entry,
) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "confirmation")
	}
	return &Engine{
		orders:   orders,
		outbox:   outbox,
		timeline: timeline,
		gateway:  gateway,
		logger:   logger,
		metrics:  metrics.NewConfirmationMetrics(),
	}
}

// NewEngineWithoutMetrics создаёт движок без метрик (для тестов).
func NewEngineWithoutMetrics(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	gateway domain.RefundGateway,
	logger *log.Entry,
) *Engine {
	engine := NewEngine(orders, outbox, timeline, gateway, logger)
	engine.metrics = nil
	return engine
}

// Confirm обрабатывает решения персонала по заказу.
//
// Предусловия: заказ существует и находится в подтверждаемом статусе, решения
// покрывают ровно все позиции заказа. Нарушение — ValidationError без side
// effects. Если среди решений есть отказ и у заказа зафиксирован платёж,
// шлюзу отправляется инструкция возврата; её провал — RefundFailedError, и
// ничего не сохраняется. Успешный вызов переводит заказ в терминальный статус,
// поэтому повторный Confirm того же заказа падает на валидации.
func (e *Engine) Confirm(orderID string, decisions []domain.ConfirmationDecision) (domain.ConfirmationResult, error) {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordStarted()
		defer func() {
			e.metrics.RecordDuration(time.Since(start))
		}()
	}

	order, err := e.orders.Get(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			e.logger.WithError(err).WithField("order_id", orderID).Warn("order not found for confirmation")
			e.recordRejected()
			return domain.ConfirmationResult{}, domain.NewValidationError(err)
		}
		e.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order for confirmation")
		e.recordFailed()
		return domain.ConfirmationResult{}, fmt.Errorf("load order: %w", err)
	}

	if !order.Status.Confirmable() {
		e.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Warn("confirmation rejected: order is not confirmable")
		e.recordRejected()
		return domain.ConfirmationResult{}, domain.NewValidationError(domain.ErrOrderNotConfirmable)
	}

	decisionByItem, err := indexDecisions(order, decisions)
	if err != nil {
		e.recordRejected()
		return domain.ConfirmationResult{}, domain.NewValidationError(err)
	}

	result := computeResult(&order, decisionByItem)

	if result.RefundRequired {
		if err := e.issueRefund(&order, result.RefundAmount); err != nil {
			e.recordFailed()
			return domain.ConfirmationResult{}, err
		}
	}

	if err := e.persist(&order, decisionByItem, result.Status); err != nil {
		e.recordFailed()
		return domain.ConfirmationResult{}, err
	}

	e.emitResultEvents(&order, result)
	e.recordOutcome(result)

	e.logger.WithFields(log.Fields{
		"order_id":        order.ID,
		"status":          result.Status,
		"confirmed_total": result.ConfirmedTotal,
		"refund_amount":   result.RefundAmount,
		"refund_required": result.RefundRequired,
	}).Info("order confirmation processed")

	return result, nil
}

// indexDecisions проверяет, что решения покрывают ровно все позиции заказа,
// без дублей и без ссылок на чужие позиции.
func indexDecisions(order domain.Order, decisions []domain.ConfirmationDecision) (map[string]bool, error) {
	byItem := make(map[string]bool, len(decisions))
	for _, decision := range decisions {
		if _, ok := order.ItemByID(decision.OrderItemID); !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDecisionUnknownItem, decision.OrderItemID)
		}
		if _, dup := byItem[decision.OrderItemID]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDecisionDuplicate, decision.OrderItemID)
		}
		byItem[decision.OrderItemID] = decision.Confirmed
	}
	if len(byItem) != len(order.Items) {
		return nil, domain.ErrDecisionIncomplete
	}
	return byItem, nil
}

// computeResult раскладывает позиции по решениям и сводит суммы.
// ConfirmedTotal + RefundAmount всегда равны сумме позиций заказа.
func computeResult(order *domain.Order, decisionByItem map[string]bool) domain.ConfirmationResult {
	result := domain.ConfirmationResult{
		ConfirmedItemIDs: make([]string, 0, len(order.Items)),
		DeniedItemIDs:    make([]string, 0),
		ConfirmedTotal:   decimal.Zero,
		RefundAmount:     decimal.Zero,
	}

	for _, item := range order.Items {
		if decisionByItem[item.ID] {
			result.ConfirmedItemIDs = append(result.ConfirmedItemIDs, item.ID)
			result.ConfirmedTotal = result.ConfirmedTotal.Add(item.Subtotal())
		} else {
			result.DeniedItemIDs = append(result.DeniedItemIDs, item.ID)
			result.RefundAmount = result.RefundAmount.Add(item.Subtotal())
		}
	}

	// Возврат возможен только по захваченному платежу: неоплаченный заказ
	// просто теряет отклонённые позиции без инструкции возврата.
	result.RefundRequired = len(result.DeniedItemIDs) > 0 && order.Paid()

	switch {
	case len(result.DeniedItemIDs) == 0:
		result.Status = domain.OrderStatusConfirmed
	case len(result.ConfirmedItemIDs) == 0:
		result.Status = domain.OrderStatusCancelled
	default:
		result.Status = domain.OrderStatusPartiallyConfirmed
	}

	return result
}

func (e *Engine) issueRefund(order *domain.Order, amount decimal.Decimal) error {
	instruction := domain.RefundInstruction{
		PaymentReference: order.PaymentReference,
		OrderID:          order.ID,
		Amount:           amount,
	}

	status, err := e.gateway.Refund(instruction)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id":          order.ID,
			"payment_reference": order.PaymentReference,
			"amount":            amount,
		}).Warn("refund instruction failed")
		return &domain.RefundFailedError{
			PaymentReference: order.PaymentReference,
			Amount:           amount,
			Err:              err,
		}
	}
	if status != domain.RefundStatusProcessed {
		e.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   status,
		}).Warn("unexpected refund status")
		return &domain.RefundFailedError{
			PaymentReference: order.PaymentReference,
			Amount:           amount,
			Err:              fmt.Errorf("gateway returned status %q", status),
		}
	}

	if e.metrics != nil {
		amountFloat, _ := amount.Float64()
		e.metrics.RecordRefundInstruction(amountFloat)
	}

	return nil
}

// persist сохраняет статусы позиций и терминальный статус заказа одним Save.
// Конфликт версий отдаётся наверх: конкурирующее подтверждение уже перевело
// заказ в терминальный статус, и повтор упадёт на валидации.
func (e *Engine) persist(order *domain.Order, decisionByItem map[string]bool, status domain.OrderStatus) error {
	for i := range order.Items {
		if decisionByItem[order.Items[i].ID] {
			order.Items[i].ConfirmationStatus = domain.ItemConfirmationConfirmed
		} else {
			order.Items[i].ConfirmationStatus = domain.ItemConfirmationDenied
		}
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()

	if err := e.orders.Save(*order); err != nil {
		e.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist confirmation")
		return err
	}
	order.Version++

	return nil
}

func (e *Engine) emitResultEvents(order *domain.Order, result domain.ConfirmationResult) {
	payload := map[string]interface{}{
		"status":          string(result.Status),
		"confirmed_items": result.ConfirmedItemIDs,
		"denied_items":    result.DeniedItemIDs,
		"confirmed_total": result.ConfirmedTotal.String(),
		"refund_amount":   result.RefundAmount.String(),
		"ts":              order.UpdatedAt.Format(time.RFC3339Nano),
	}
	e.emitEvent(order, kafka.EventTypeForStatus(result.Status), payload)

	if result.RefundRequired {
		e.emitEvent(order, kafka.EventTypeRefundIssued, map[string]interface{}{
			"payment_reference": order.PaymentReference,
			"amount":            result.RefundAmount.String(),
			"ts":                order.UpdatedAt.Format(time.RFC3339Nano),
		})
	}
}

func (e *Engine) emitEvent(order *domain.Order, eventType kafka.EventType, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if e.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: kafka.AggregateTypeOrder,
			AggregateID:   order.ID,
			EventType:     string(eventType),
			Payload:       data,
		}
		if _, err := e.outbox.Enqueue(msg); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("enqueue event failed")
		} else if e.metrics != nil {
			e.metrics.RecordOutboxEvent()
		}
	}

	if e.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     string(eventType),
			Occurred: order.UpdatedAt,
		}
		if err := e.timeline.Append(event); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if e.metrics != nil {
			e.metrics.RecordTimelineEvent()
		}
	}
}

func (e *Engine) recordOutcome(result domain.ConfirmationResult) {
	if e.metrics == nil {
		return
	}
	switch result.Status {
	case domain.OrderStatusConfirmed:
		e.metrics.RecordConfirmed()
	case domain.OrderStatusPartiallyConfirmed:
		e.metrics.RecordPartial()
	case domain.OrderStatusCancelled:
		e.metrics.RecordCancelled()
	}
}

func (e *Engine) recordRejected() {
	if e.metrics != nil {
		e.metrics.RecordRejected()
	}
}

func (e *Engine) recordFailed() {
	if e.metrics != nil {
		e.metrics.RecordFailed()
	}
}
