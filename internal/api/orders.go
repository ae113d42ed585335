package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/saveup/marketplace/internal/domain"
	"github.com/saveup/marketplace/internal/messaging/kafka"
	"github.com/saveup/marketplace/internal/service/loyalty"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour

	defaultListOrdersLimit = 100
)

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

type createOrderRequest struct {
	CustomerName     string                   `json:"customer_name"`
	CustomerEmail    string                   `json:"customer_email"`
	CustomerPhone    string                   `json:"customer_phone"`
	DeliveryFee      decimal.Decimal          `json:"delivery_fee"`
	PaymentReference string                   `json:"payment_reference"`
	Items            []createOrderItemRequest `json:"items"`
}

type orderItemResponse struct {
	ID                 string          `json:"id"`
	ProductID          string          `json:"product_id"`
	Name               string          `json:"name"`
	Qty                int32           `json:"qty"`
	PriceAtTime        decimal.Decimal `json:"price_at_time"`
	ConfirmationStatus string          `json:"confirmation_status"`
}

type orderResponse struct {
	ID               string              `json:"id"`
	CustomerName     string              `json:"customer_name"`
	CustomerEmail    string              `json:"customer_email"`
	CustomerPhone    string              `json:"customer_phone,omitempty"`
	Status           string              `json:"status"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	DeliveryFee      decimal.Decimal     `json:"delivery_fee"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	Items            []orderItemResponse `json:"items"`
	Version          int64               `json:"version"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			Name:               item.Name,
			Qty:                item.Qty,
			PriceAtTime:        item.PriceAtTime,
			ConfirmationStatus: string(item.ConfirmationStatus),
		})
	}

	return orderResponse{
		ID:               order.ID,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		CustomerPhone:    order.CustomerPhone,
		Status:           string(order.Status),
		TotalAmount:      order.TotalAmount,
		DeliveryFee:      order.DeliveryFee,
		PaymentReference: order.PaymentReference,
		Items:            items,
		Version:          order.Version,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

// createOrder оформляет заказ на чекауте. Цены позиций снимаются с текущей
// цены со скидкой и фиксируются в заказе. Если покупатель уже оплатил заказ
// (payment_reference передан сразу), заказ создаётся в статусе pending, иначе
// в awaiting_payment.
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		product, err := s.products.Get(reqItem.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("product %s is not available: %v", reqItem.ProductID, err),
			})
			return
		}
		items = append(items, domain.OrderItem{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			Name:        product.Name,
			Qty:         reqItem.Qty,
			PriceAtTime: product.DiscountPrice,
			CreatedAt:   now,
		})
	}

	status := domain.OrderStatusAwaitingPayment
	if req.PaymentReference != "" {
		status = domain.OrderStatusPending
	}

	order := domain.Order{
		ID:               uuid.NewString(),
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		Status:           status,
		DeliveryFee:      req.DeliveryFee,
		PaymentReference: req.PaymentReference,
		Items:            items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	order.TotalAmount = order.ItemsSubtotal().Add(order.DeliveryFee)

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": joinErrors(errs)})
		return
	}

	if err := s.orders.Create(order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to create order")
		s.writeError(c, err)
		return
	}

	s.appendTimelineEvent(order.ID, string(kafka.EventTypeOrderCreated), string(order.Status), now)
	s.emitOrderEvent(order, kafka.EventTypeOrderCreated, map[string]interface{}{
		"status": string(order.Status),
		"total":  order.TotalAmount.String(),
	})

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

type registerPaymentRequest struct {
	PaymentReference string `json:"payment_reference"`
}

// registerPayment фиксирует захваченный платёж за заказ. Ссылка на платёж
// устанавливается один раз: повторный вызов с той же ссылкой идемпотентен,
// с другой завершается конфликтом.
func (s *Server) registerPayment(c *gin.Context) {
	var req registerPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.PaymentReference) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrPaymentReferenceRequired.Error()})
		return
	}

	order, err := s.orders.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	if order.PaymentReference == req.PaymentReference {
		c.JSON(http.StatusOK, toOrderResponse(order))
		return
	}
	if order.PaymentReference != "" {
		s.writeError(c, domain.ErrPaymentAlreadyCaptured)
		return
	}
	if !order.Status.Confirmable() {
		s.writeError(c, domain.ErrOrderNotConfirmable)
		return
	}

	order.PaymentReference = req.PaymentReference
	if order.Status == domain.OrderStatusAwaitingPayment {
		order.Status = domain.OrderStatusPending
	}
	order.UpdatedAt = time.Now().UTC()

	if err := s.orders.Save(order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to register payment")
		s.writeError(c, err)
		return
	}
	order.Version++

	s.appendTimelineEvent(order.ID, string(kafka.EventTypeOrderPaymentCapture), string(order.Status), order.UpdatedAt)
	s.emitOrderEvent(order, kafka.EventTypeOrderPaymentCapture, map[string]interface{}{
		"payment_reference": order.PaymentReference,
	})

	c.JSON(http.StatusOK, toOrderResponse(order))
}

type confirmDecisionRequest struct {
	OrderItemID string `json:"order_item_id"`
	Confirmed   bool   `json:"confirmed"`
}

type confirmRequest struct {
	Decisions []confirmDecisionRequest `json:"decisions"`
}

type confirmResponse struct {
	OrderID          string          `json:"order_id"`
	Status           string          `json:"status"`
	ConfirmedItemIDs []string        `json:"confirmed_item_ids"`
	DeniedItemIDs    []string        `json:"denied_item_ids"`
	ConfirmedTotal   decimal.Decimal `json:"confirmed_total"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundRequired   bool            `json:"refund_required"`
	EcoPoints        *loyalty.Award  `json:"eco_points,omitempty"`
}

// confirmOrder принимает решения персонала по позициям заказа и прогоняет их
// через движок подтверждения. Заголовок Idempotency-Key обязателен: повторный
// запрос с тем же ключом и телом получает сохранённый ответ, с другим телом
// завершается конфликтом.
func (s *Server) confirmOrder(c *gin.Context) {
	orderID := c.Param("id")

	idemKey := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	if idemKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrIdempotencyKeyRequired.Error()})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var req confirmRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqHash := confirmRequestHash(orderID, body)
	record, err := s.idem.CreateProcessing(idemKey, reqHash, time.Now().UTC().Add(idempotencyTTL))
	if err != nil {
		s.replayIdempotency(c, idemKey, record, err)
		return
	}

	decisions := make([]domain.ConfirmationDecision, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		decisions = append(decisions, domain.ConfirmationDecision{
			OrderItemID: d.OrderItemID,
			Confirmed:   d.Confirmed,
		})
	}

	result, err := s.engine.Confirm(orderID, decisions)
	if err != nil {
		status := statusForError(err)
		payload := mustMarshal(gin.H{"error": err.Error()})
		if markErr := s.idem.MarkFailed(idemKey, payload, status); markErr != nil {
			s.logger.WithError(markErr).WithField("idempotency_key", idemKey).Warn("failed to store idempotent failure")
		}
		c.Data(status, "application/json", payload)
		return
	}

	resp := confirmResponse{
		OrderID:          orderID,
		Status:           string(result.Status),
		ConfirmedItemIDs: result.ConfirmedItemIDs,
		DeniedItemIDs:    result.DeniedItemIDs,
		ConfirmedTotal:   result.ConfirmedTotal,
		RefundAmount:     result.RefundAmount,
		RefundRequired:   result.RefundRequired,
	}

	if s.loyalty != nil {
		if order, getErr := s.orders.Get(orderID); getErr == nil {
			award, awardErr := s.loyalty.AwardForConfirmation(order, result)
			if awardErr != nil {
				s.logger.WithError(awardErr).WithField("order_id", orderID).Warn("failed to award eco-points")
			} else {
				resp.EcoPoints = &award
			}
		}
	}

	payload := mustMarshal(resp)
	if markErr := s.idem.MarkDone(idemKey, payload, http.StatusOK); markErr != nil {
		s.logger.WithError(markErr).WithField("idempotency_key", idemKey).Warn("failed to store idempotent response")
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// replayIdempotency обрабатывает повторное использование ключа: готовый ответ
// проигрывается из кеша как есть, параллельная обработка и другое тело запроса
// оборачиваются конфликтом.
func (s *Server) replayIdempotency(c *gin.Context, key string, record domain.IdempotencyRecord, createErr error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrIdempotencyHashMismatch.Error()})
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			if len(record.ResponseBody) == 0 {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency cache is empty"})
				return
			}
			status := record.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			c.Data(status, "application/json", record.ResponseBody)
		case domain.IdempotencyStatusProcessing:
			c.JSON(http.StatusConflict, gin.H{"error": "request with the same idempotency key is already processing"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown idempotency record status"})
		}
	default:
		s.logger.WithError(createErr).WithField("idempotency_key", key).Error("failed to create idempotency record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initialize idempotent request"})
	}
}

// getOrder возвращает заказ вместе с его timeline.
func (s *Server) getOrder(c *gin.Context) {
	order, err := s.orders.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":    toOrderResponse(order),
		"timeline": s.buildTimeline(order.ID),
	})
}

// listOrders возвращает заказы покупателя, новые первыми.
func (s *Server) listOrders(c *gin.Context) {
	email := strings.TrimSpace(c.Query("customer_email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_email is required"})
		return
	}

	limit := defaultListOrdersLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	orders, err := s.orders.ListByCustomer(email, limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list orders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}

	result := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderResponse(order))
	}

	c.JSON(http.StatusOK, gin.H{"orders": result})
}

func (s *Server) buildTimeline(orderID string) []timelineEventResponse {
	if s.timeline == nil {
		return nil
	}
	events, err := s.timeline.List(orderID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to list timeline events")
		return nil
	}
	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	return result
}

func (s *Server) appendTimelineEvent(orderID, eventType, reason string, occurred time.Time) {
	if s.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: occurred,
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Warn("failed to append timeline event")
	}
}

func (s *Server) emitOrderEvent(order domain.Order, eventType kafka.EventType, metadata map[string]interface{}) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, string(order.Status), metadata)
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to marshal order event")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("failed to enqueue order event")
	}
}

func confirmRequestHash(orderID string, body []byte) string {
	payload := make([]byte, 0, len(orderID)+1+len(body))
	payload = append(payload, orderID...)
	payload = append(payload, ':')
	payload = append(payload, body...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

func mustMarshal(value interface{}) []byte {
	data, err := json.Marshal(value)
	if err != nil {
		// gin.H и confirmResponse сериализуемы всегда, попасть сюда можно
		// только при порче типов ответа.
		return []byte(`{"error":"failed to encode response"}`)
	}
	return data
}
