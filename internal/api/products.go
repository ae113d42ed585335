package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saveup/marketplace/internal/domain"
)

const defaultListProductsLimit = 100

type createProductRequest struct {
	ID             string          `json:"id"`
	SupermarketID  string          `json:"supermarket_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	DiscountPrice  decimal.Decimal `json:"discount_price"`
	Quantity       int32           `json:"quantity"`
	ExpirationDate time.Time       `json:"expiration_date"`
}

type productResponse struct {
	ID             string          `json:"id"`
	SupermarketID  string          `json:"supermarket_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	DiscountPrice  decimal.Decimal `json:"discount_price"`
	Quantity       int32           `json:"quantity"`
	ExpirationDate time.Time       `json:"expiration_date"`
	EcoPoints      int             `json:"eco_points"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:             product.ID,
		SupermarketID:  product.SupermarketID,
		Name:           product.Name,
		Category:       product.Category,
		OriginalPrice:  product.OriginalPrice,
		DiscountPrice:  product.DiscountPrice,
		Quantity:       product.Quantity,
		ExpirationDate: product.ExpirationDate,
		EcoPoints:      domain.CalculateEcoPoints(product.ExpirationDate, product.Category),
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}
}

// createProduct добавляет уценённый товар в каталог супермаркета.
func (s *Server) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:             req.ID,
		SupermarketID:  req.SupermarketID,
		Name:           req.Name,
		Category:       req.Category,
		OriginalPrice:  req.OriginalPrice,
		DiscountPrice:  req.DiscountPrice,
		Quantity:       req.Quantity,
		ExpirationDate: req.ExpirationDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	if errs := product.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": joinErrors(errs)})
		return
	}

	if err := s.products.Create(product); err != nil {
		s.logger.WithError(err).WithField("product_id", product.ID).Error("failed to create product")
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProductResponse(product))
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.products.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

// listProducts возвращает товары супермаркета, ближайший срок годности первым.
func (s *Server) listProducts(c *gin.Context) {
	supermarketID := strings.TrimSpace(c.Query("supermarket_id"))
	if supermarketID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "supermarket_id is required"})
		return
	}

	limit := defaultListProductsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	products, err := s.products.ListBySupermarket(supermarketID, limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list products")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	result := make([]productResponse, 0, len(products))
	for _, product := range products {
		result = append(result, toProductResponse(product))
	}

	c.JSON(http.StatusOK, gin.H{"products": result})
}

// previewEcoPoints показывает, сколько эко-баллов принесёт одна единица
// товара, если подтвердить её прямо сейчас.
func (s *Server) previewEcoPoints(c *gin.Context) {
	product, err := s.products.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	now := time.Now().UTC()
	c.JSON(http.StatusOK, gin.H{
		"product_id":        product.ID,
		"category":          product.Category,
		"days_until_expiry": domain.DaysUntilExpiry(product.ExpirationDate, now),
		"eco_points":        domain.CalculateEcoPointsAt(product.ExpirationDate, product.Category, now),
	})
}
