package handler

import (
	"strings"

	"github.com/go-faster/jx"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
	"github.com/abhirupbose899-web/orephia/internal/domain/loyalty"
	"github.com/abhirupbose899-web/orephia/internal/domain/order"
	"github.com/abhirupbose899-web/orephia/internal/domain/product"
)

func encodeStrings(e *jx.Encoder, vs []string) {
	e.ArrStart()
	for _, v := range vs {
		e.Str(v)
	}
	e.ArrEnd()
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(h.imageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
	e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
	e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
	e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
	e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
	e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
	if p.Subcategory != "" {
		e.Field("subcategory", func(e *jx.Encoder) { e.Str(p.Subcategory) })
	}
	e.Field("sizes", func(e *jx.Encoder) { encodeStrings(e, p.Sizes) })
	e.Field("colors", func(e *jx.Encoder) { encodeStrings(e, p.Colors) })
	e.Field("tags", func(e *jx.Encoder) { encodeStrings(e, p.Tags) })
	e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(p.ImageURL)) })
	e.ObjEnd()
}

func (h *Handler) encodeItems(e *jx.Encoder, items []order.Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(it.Title) })
		e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(it.ImageURL)) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		if it.Size != "" {
			e.Field("size", func(e *jx.Encoder) { e.Str(it.Size) })
		}
		if it.Color != "" {
			e.Field("color", func(e *jx.Encoder) { e.Str(it.Color) })
		}
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, it.UnitPrice) })
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.ObjStart()
	e.Field("fullName", func(e *jx.Encoder) { e.Str(a.FullName) })
	e.Field("addressLine1", func(e *jx.Encoder) { e.Str(a.AddressLine1) })
	if a.AddressLine2 != "" {
		e.Field("addressLine2", func(e *jx.Encoder) { e.Str(a.AddressLine2) })
	}
	e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
	e.Field("state", func(e *jx.Encoder) { e.Str(a.State) })
	e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
	e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
	e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
	e.ObjEnd()
}

func (h *Handler) encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
	e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
	e.Field("items", func(e *jx.Encoder) { h.encodeItems(e, o.Items) })
	e.Field("shippingAddress", func(e *jx.Encoder) { encodeAddress(e, o.ShippingAddress) })
	e.Field("currency", func(e *jx.Encoder) { e.Str(o.Currency) })
	e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, o.Subtotal) })
	e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, o.Discount) })
	e.Field("pointsDiscount", func(e *jx.Encoder) { encodeDecimal(e, o.PointsDiscount) })
	e.Field("shipping", func(e *jx.Encoder) { encodeDecimal(e, o.Shipping) })
	e.Field("tax", func(e *jx.Encoder) { encodeDecimal(e, o.Tax) })
	e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, o.Total) })
	if o.CouponCode != "" {
		e.Field("couponCode", func(e *jx.Encoder) { e.Str(o.CouponCode) })
	}
	e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
	e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
	e.Field("pointsRedeemed", func(e *jx.Encoder) { e.Int64(o.PointsRedeemed) })
	e.Field("pointsEarned", func(e *jx.Encoder) { e.Int64(o.PointsEarned) })
	if o.ChargeID != "" {
		e.Field("chargeId", func(e *jx.Encoder) { e.Str(o.ChargeID) })
	}
	if o.PaymentID != "" {
		e.Field("paymentId", func(e *jx.Encoder) { e.Str(o.PaymentID) })
	}
	e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
	e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
	e.ObjEnd()
}

func (h *Handler) encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		h.encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

func (h *Handler) encodeQuote(e *jx.Encoder, q *order.Quote) {
	e.ObjStart()
	e.Field("currency", func(e *jx.Encoder) { e.Str(q.Currency) })
	e.Field("items", func(e *jx.Encoder) { h.encodeItems(e, q.Items) })
	e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, q.Subtotal) })
	e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, q.Discount) })
	e.Field("pointsDiscount", func(e *jx.Encoder) { encodeDecimal(e, q.PointsDiscount) })
	e.Field("shipping", func(e *jx.Encoder) { encodeDecimal(e, q.Shipping) })
	e.Field("tax", func(e *jx.Encoder) { encodeDecimal(e, q.Tax) })
	e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, q.Total) })
	if q.CouponCode != "" {
		e.Field("couponCode", func(e *jx.Encoder) { e.Str(q.CouponCode) })
	}
	if q.CouponErr != nil {
		e.Field("couponError", func(e *jx.Encoder) { e.Str(couponMessage(q.CouponErr)) })
	}
	e.Field("pointsRequested", func(e *jx.Encoder) { e.Int64(q.PointsRequested) })
	e.Field("pointsRedeemed", func(e *jx.Encoder) { e.Int64(q.PointsRedeemed) })
	e.Field("pointsEarnable", func(e *jx.Encoder) { e.Int64(q.PointsEarnable) })
	e.ObjEnd()
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
	e.Field("discountType", func(e *jx.Encoder) { e.Str(string(c.DiscountType)) })
	e.Field("discountValue", func(e *jx.Encoder) { encodeDecimal(e, c.Value) })
	if c.Description != "" {
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
	}
	if c.MinPurchase.Valid {
		e.Field("minPurchase", func(e *jx.Encoder) { encodeDecimal(e, c.MinPurchase.Decimal) })
	}
	if c.MaxDiscount.Valid {
		e.Field("maxDiscount", func(e *jx.Encoder) { encodeDecimal(e, c.MaxDiscount.Decimal) })
	}
	if c.UsageLimit != nil {
		e.Field("usageLimit", func(e *jx.Encoder) { e.Int(*c.UsageLimit) })
	}
	e.Field("usedCount", func(e *jx.Encoder) { e.Int(c.UsedCount) })
	if c.ExpiresAt != nil {
		e.Field("expiresAt", func(e *jx.Encoder) { encodeTime(e, *c.ExpiresAt) })
	}
	e.Field("active", func(e *jx.Encoder) { e.Bool(c.Active) })
	e.ObjEnd()
}

func encodeTransaction(e *jx.Encoder, tx *loyalty.Transaction) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(tx.ID) })
	e.Field("type", func(e *jx.Encoder) { e.Str(string(tx.Type)) })
	e.Field("points", func(e *jx.Encoder) { e.Int64(tx.Points) })
	e.Field("description", func(e *jx.Encoder) { e.Str(tx.Description) })
	if tx.OrderID != "" {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(tx.OrderID) })
	}
	e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, tx.CreatedAt) })
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u *auth.User) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(u.ID) })
	e.Field("email", func(e *jx.Encoder) { e.Str(u.Email) })
	e.Field("name", func(e *jx.Encoder) { e.Str(u.Name) })
	e.ObjEnd()
}
