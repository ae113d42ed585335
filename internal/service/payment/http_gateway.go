package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/saveup/marketplace/internal/domain"
)

// GatewayConfig настраивает HTTP-клиент платёжного шлюза.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPGateway отправляет инструкции возврата внешнему платёжному шлюзу по
// HTTP. Шлюз адресует возврат по ссылке захваченного платежа, сумма передаётся
// строкой, чтобы не терять копейки на float.
type HTTPGateway struct {
	cfg        GatewayConfig
	httpClient *http.Client
	logger     *log.Entry
}

// NewHTTPGateway создаёт клиента шлюза с разумными таймаутами соединения.
func NewHTTPGateway(cfg GatewayConfig, logger *log.Entry) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.New().WithField("component", "payment-gateway")
	}

	return &HTTPGateway{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

type refundRequest struct {
	PaymentReference string `json:"payment_reference"`
	OrderID          string `json:"order_id"`
	Amount           string `json:"amount"`
}

type refundResponse struct {
	Status string `json:"status"`
}

// Refund вызывает POST /refunds на шлюзе. Любой ответ кроме 200 с валидным
// статусом означает провал инструкции.
func (g *HTTPGateway) Refund(instruction domain.RefundInstruction) (domain.RefundStatus, error) {
	payload, err := json.Marshal(refundRequest{
		PaymentReference: instruction.PaymentReference,
		OrderID:          instruction.OrderID,
		Amount:           instruction.Amount.String(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal refund request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, g.cfg.BaseURL+"/refunds", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call refund gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refund gateway returned status %d", resp.StatusCode)
	}

	var body refundResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode refund response: %w", err)
	}

	switch domain.RefundStatus(body.Status) {
	case domain.RefundStatusProcessed:
		return domain.RefundStatusProcessed, nil
	case domain.RefundStatusDeclined:
		return domain.RefundStatusDeclined, nil
	default:
		return "", fmt.Errorf("unknown refund status %q", body.Status)
	}
}
