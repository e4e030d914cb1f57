package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
	"github.com/abhirupbose899-web/orephia/internal/domain/loyalty"
	"github.com/abhirupbose899-web/orephia/internal/domain/order"
	"github.com/abhirupbose899-web/orephia/internal/domain/product"
)

const maxBodySize = 1 << 20

// badRequestError is a malformed or incomplete request body.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// decodeObject reads the request body as a JSON object and calls fn for
// each field.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return &badRequestError{msg: "read body", err: err}
	}
	if err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		var bre *badRequestError
		if errors.As(err, &bre) {
			return bre
		}
		return &badRequestError{msg: "invalid JSON body", err: err}
	}
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &badRequestError{msg: "invalid amount " + raw}
	}
	return v, nil
}

// decodeOptionalStr returns "" for a JSON null.
func decodeOptionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.ObjEnd()
	})
}

// writeError maps err to a status code and writes {"message": ...}.
// Unexpected errors are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeMessage(w, status, msg)
}

// mapError converts domain errors to HTTP status codes.
func mapError(err error) (int, string) {
	var (
		bre  *badRequestError
		iqe  *order.InvalidQuantityError
		pnfe *order.ProductNotFoundError
		tre  *order.TransitionError
		ise  *order.InvalidStatusError
		cde  *coupon.DefinitionError
	)
	switch {
	case errors.As(err, &bre):
		return http.StatusBadRequest, bre.Error()
	case errors.As(err, &iqe):
		return http.StatusBadRequest, iqe.Error()
	case errors.As(err, &pnfe):
		return http.StatusBadRequest, pnfe.Error()
	case errors.As(err, &ise):
		return http.StatusBadRequest, ise.Error()
	case errors.As(err, &cde):
		return http.StatusBadRequest, cde.Error()
	case errors.As(err, &tre):
		return http.StatusConflict, tre.Error()
	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, "order must contain at least one item"
	case errors.Is(err, loyalty.ErrInsufficientPoints),
		errors.Is(err, loyalty.ErrInvalidPoints):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrInvalidPayment):
		return http.StatusBadRequest, "payment could not be verified"
	case errors.Is(err, coupon.ErrCouponNotFound):
		return http.StatusNotFound, "invalid coupon code"
	case errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponExhausted),
		errors.Is(err, coupon.ErrCouponMinimumNotMet):
		return http.StatusBadRequest, couponMessage(err)
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func couponMessage(err error) string {
	switch {
	case errors.Is(err, coupon.ErrCouponInactive):
		return "coupon is not active"
	case errors.Is(err, coupon.ErrCouponExpired):
		return "coupon has expired"
	case errors.Is(err, coupon.ErrCouponExhausted):
		return "coupon usage limit reached"
	case errors.Is(err, coupon.ErrCouponMinimumNotMet):
		return "order does not meet the coupon's minimum purchase"
	default:
		return "invalid coupon code"
	}
}
