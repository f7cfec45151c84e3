package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/lodgeworks/ms-go-booking-payments/app/booking"
	"github.com/lodgeworks/ms-go-booking-payments/app/factory"
	"github.com/lodgeworks/ms-go-booking-payments/app/gateway"
	"github.com/lodgeworks/ms-go-booking-payments/app/mapper"
	"github.com/lodgeworks/ms-go-booking-payments/app/service"
	"github.com/lodgeworks/ms-go-booking-payments/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePaymentIntent(ctx echo.Context) error {
	req, err := types.NewCreatePaymentIntentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CreatePaymentIntent(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrBookingNotPayable):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, booking.ErrBookingNotFound):
			return c.writeError(ctx, http.StatusNotFound, "booking not found")
		case errors.Is(err, service.ErrDuplicateActiveIntent):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, gateway.ErrUnavailable):
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			var backendErr *gateway.BackendError
			if errors.As(err, &backendErr) {
				return c.writeError(ctx, http.StatusBadGateway, backendErr.Error())
			}
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create payment intent failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentIntentEnvelopeResponse{PaymentIntent: mapper.IntentToView(item)})
}

func (c *PaymentController) GetPaymentIntent(ctx echo.Context) error {
	req, err := types.NewGetPaymentIntentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, refunds, err := c.paymentService.GetPaymentIntent(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrIntentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment intent not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get payment intent failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentIntentEnvelopeResponse{
		PaymentIntent: mapper.IntentToView(item),
		Refunds:       mapper.RefundsToView(refunds),
	})
}

func (c *PaymentController) ListPaymentIntents(ctx echo.Context) error {
	req, err := types.NewListPaymentIntentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPaymentIntents(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List payment intents failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentIntentsResponse{PaymentIntents: mapper.IntentsToView(items)})
}

func (c *PaymentController) InitiateRefund(ctx echo.Context) error {
	req, err := types.NewInitiateRefundRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.InitiateRefund(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrIntentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment intent not found")
		case errors.Is(err, service.ErrNotRefundable),
			errors.Is(err, service.ErrAmountExceedsRemainder):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, gateway.ErrUnavailable):
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			var backendErr *gateway.BackendError
			if errors.As(err, &backendErr) {
				return c.writeError(ctx, http.StatusBadGateway, backendErr.Error())
			}
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Initiate refund failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.RefundEnvelopeResponse{Refund: mapper.RefundToView(item)})
}

// HandleGatewayCallback acknowledges business rejections with 200 so the
// gateway stops redelivering a payload that will never verify. Only transport
// and storage failures surface as non-2xx, which the gateway retries.
func (c *PaymentController) HandleGatewayCallback(ctx echo.Context) error {
	req, err := types.NewGatewayCallbackRequestFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Callback discarded"})
	}

	err = c.paymentService.HandleGatewayCallback(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest),
			errors.Is(err, service.ErrUnknownTransaction),
			errors.Is(err, service.ErrAuthenticationFailed):
			return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Callback discarded"})
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle gateway callback failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Callback processed"})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
