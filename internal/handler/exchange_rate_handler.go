package handler

import (
	"fmt"
	"net/http"
	"time"

	"nbp-rates-service/internal/apperrors"
	"nbp-rates-service/internal/entity"
	"nbp-rates-service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StatusClientClosedRequest is reported when the caller aborted the request.
const StatusClientClosedRequest = 499

const cacheControl = "public, max-age=3600"

type ExchangeRateHandler struct {
	usecase usecase.RateUsecase
	logger  *logrus.Logger
}

func NewExchangeRateHandler(usecase usecase.RateUsecase, logger *logrus.Logger) *ExchangeRateHandler {
	return &ExchangeRateHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// GetExchangeRate serves GET /api/exchangeRates/:currencyCode/:effectiveDate.
func (h *ExchangeRateHandler) GetExchangeRate(c *gin.Context) {
	code := c.Param("currencyCode")
	dateStr := c.Param("effectiveDate")

	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		h.logger.WithError(err).Debugf("Invalid date format: %s", dateStr)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "EffectiveDate: Must be a date in YYYY-MM-DD format."})
		return
	}

	result, err := h.usecase.GetExchangeRate(c.Request.Context(), entity.ExchangeRateQuery{
		CurrencyCode:  code,
		EffectiveDate: date,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Cache-Control", cacheControl)
	c.JSON(http.StatusOK, toExchangeRateResponse(result))
}

func (h *ExchangeRateHandler) writeError(c *gin.Context, err error) {
	if apperrors.IsCancelled(err) || c.Request.Context().Err() != nil {
		h.logger.WithError(err).Info("Request aborted by client")
		c.AbortWithStatusJSON(StatusClientClosedRequest, ErrorResponse{Error: "request aborted"})
		return
	}

	kind, mixed, ok := apperrors.KindOf(err)
	if mixed {
		panic(fmt.Sprintf("failure mixes error kinds: %v", err))
	}
	if !ok {
		h.logger.WithError(err).Error("Unexpected failure while resolving exchange rate")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusBadRequest
	if kind == apperrors.KindNotFound {
		status = http.StatusNotFound
	}

	h.logger.WithError(err).WithField("kind", kind.String()).Warn("Exchange rate request failed")
	c.JSON(status, ErrorResponse{Error: apperrors.Message(err)})
}
