package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/saveup/marketplace/internal/api/middleware"
	"github.com/saveup/marketplace/internal/domain"
	"github.com/saveup/marketplace/internal/service/confirmation"
	"github.com/saveup/marketplace/internal/service/loyalty"
)

// Server собирает HTTP JSON API панели персонала: чекаут заказов, фиксация
// оплаты, подтверждение с частичным возвратом, каталог уценённых товаров.
// Персистентность и платёжный I/O приходят снаружи через репозитории и движок.
type Server struct {
	orders   domain.OrderRepository
	products domain.ProductRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	idem     domain.IdempotencyRepository
	engine   *confirmation.Engine
	loyalty  *loyalty.Service
	logger   *log.Entry
}

// NewServer создаёт API-сервер поверх готовых зависимостей.
func NewServer(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	idem domain.IdempotencyRepository,
	engine *confirmation.Engine,
	loyalty *loyalty.Service,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "api")
	}
	return &Server{
		orders:   orders,
		products: products,
		timeline: timeline,
		outbox:   outbox,
		idem:     idem,
		engine:   engine,
		loyalty:  loyalty,
		logger:   logger,
	}
}

// Router строит gin-движок со всеми маршрутами API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(s.logger))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/orders", s.createOrder)
		v1.GET("/orders", s.listOrders)
		v1.GET("/orders/:id", s.getOrder)
		v1.POST("/orders/:id/payment", s.registerPayment)
		v1.POST("/orders/:id/confirm", s.confirmOrder)

		v1.POST("/products", s.createProduct)
		v1.GET("/products", s.listProducts)
		v1.GET("/products/:id", s.getProduct)
		v1.GET("/products/:id/eco-points", s.previewEcoPoints)
	}

	return r
}

// statusForError отображает доменные ошибки в HTTP-статусы. Ошибки валидации
// разворачиваются до первопричины: отсутствующий заказ остаётся 404, а
// терминальный статус или конфликт версий дают 409.
func statusForError(err error) int {
	switch {
	case domain.IsRefundFailed(err):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOrderNotConfirmable),
		errors.Is(err, domain.ErrPaymentAlreadyCaptured),
		errors.Is(err, domain.ErrOrderVersionConflict),
		errors.Is(err, domain.ErrOrderAlreadyExists),
		errors.Is(err, domain.ErrProductAlreadyExists):
		return http.StatusConflict
	case domain.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}
