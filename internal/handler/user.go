package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/metrics"
	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/queue"
	"github.com/iliyamo/apparel-storefront/internal/repository"
	"github.com/iliyamo/apparel-storefront/internal/service"
)

// UserHandler serves the signed-in customer: addresses, orders, checkout
// and reviews.
type UserHandler struct {
	Cfg    config.Config
	Repos  Repos
	Events service.Publisher
	Now    func() time.Time
}

func NewUserHandler(cfg config.Config, repos Repos, events service.Publisher) *UserHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &UserHandler{Cfg: cfg, Repos: repos, Events: events, Now: time.Now}
}

func (h *UserHandler) now() time.Time { return h.Now().UTC() }

// ----- addresses -----

var (
	errBadAddress = errors.New("fullName, line1, city and postalCode are required")
	errBadCountry = errors.New("country must be a two-letter code")
)

type addressReq struct {
	Label      *string `json:"label"`
	FullName   string  `json:"fullName"`
	Phone      *string `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2"`
	City       string  `json:"city"`
	State      *string `json:"state"`
	PostalCode string  `json:"postalCode"`
	Country    string  `json:"country"`
	IsDefault  bool    `json:"isDefault"`
}

func (r addressReq) toModel(userID uint64) (*model.Address, error) {
	a := &model.Address{
		UserID:     userID,
		Label:      trimmed(r.Label),
		FullName:   strings.TrimSpace(r.FullName),
		Phone:      trimmed(r.Phone),
		Line1:      strings.TrimSpace(r.Line1),
		Line2:      trimmed(r.Line2),
		City:       strings.TrimSpace(r.City),
		State:      trimmed(r.State),
		PostalCode: strings.TrimSpace(r.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(r.Country)),
		IsDefault:  r.IsDefault,
	}
	switch {
	case a.FullName == "" || a.Line1 == "" || a.City == "" || a.PostalCode == "":
		return nil, errBadAddress
	case len(a.Country) != 2:
		return nil, errBadCountry
	}
	return a, nil
}

// ListAddresses handles GET /api/user/addresses.
func (h *UserHandler) ListAddresses(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Repos.Addresses.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"addresses": list})
}

// CreateAddress handles POST /api/user/addresses.
func (h *UserHandler) CreateAddress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	a, err := req.toModel(uid)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Addresses.Create(ctx, a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"address": a})
}

// UpdateAddress handles PUT /api/user/addresses?id=, replacing every field.
func (h *UserHandler) UpdateAddress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	a, err := req.toModel(uid)
	if err != nil {
		return badRequest(c, err.Error())
	}
	a.ID = id
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Addresses.Update(ctx, a); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"address": a})
}

// SetDefaultAddress handles PATCH /api/user/addresses?id=.
func (h *UserHandler) SetDefaultAddress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Addresses.SetDefault(ctx, id, uid); err != nil {
		return respondError(c, err)
	}
	list, err := h.Repos.Addresses.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"addresses": list})
}

// DeleteAddress handles DELETE /api/user/addresses?id=.
func (h *UserHandler) DeleteAddress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Addresses.Delete(ctx, id, uid); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ----- orders -----

// ListOrders handles GET /api/user/orders, newest first with line items.
// With ?id= it returns that one order.
func (h *UserHandler) ListOrders(c echo.Context) error {
	if c.QueryParam("id") != "" {
		return h.GetOrder(c)
	}
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	orders, err := h.Repos.Orders.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// GetOrder handles GET /api/user/orders?id=. Another customer's order is
// reported as not found.
func (h *UserHandler) GetOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	o, err := h.Repos.Orders.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if o.UserID != uid {
		return respondError(c, repository.ErrNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o})
}

type checkoutReq struct {
	Items []struct {
		VariantID uint64 `json:"variantId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	AddressID     uint64  `json:"addressId"`
	CouponCode    string  `json:"couponCode"`
	PaymentMethod string  `json:"paymentMethod"`
	Notes         *string `json:"notes"`
}

// Checkout handles POST /api/checkout. Prices come from the catalog, never
// from the request.
func (h *UserHandler) Checkout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Items) == 0 {
		return badRequest(c, "items are required")
	}
	if req.AddressID == 0 {
		return badRequest(c, "addressId is required")
	}
	method := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	if method == "" {
		method = model.MethodCard
	}
	if !model.ValidPaymentMethod(method) {
		return badRequest(c, "unsupported payment method")
	}
	in := repository.CheckoutInput{
		UserID:     uid,
		AddressID:  req.AddressID,
		CouponCode: req.CouponCode,
		Method:     method,
		Notes:      trimmed(req.Notes),
		Pricing:    h.Cfg.Pricing(),
		Now:        h.now(),
	}
	for _, it := range req.Items {
		if it.Quantity < 1 || it.Quantity > repository.MaxLineQuantity {
			return badRequest(c, fmt.Sprintf("quantity must be between 1 and %d", repository.MaxLineQuantity))
		}
		in.Lines = append(in.Lines, repository.CheckoutLine{VariantID: it.VariantID, Quantity: it.Quantity})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	o, err := h.Repos.Orders.Checkout(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	metrics.OrdersPlaced.Inc()
	metrics.OrderRevenue.Add(o.Total.InexactFloat64())
	service.Emit(ctx, h.Events, queue.NewOrderEvent(queue.OrderCreated, o, o.CreatedAt))
	return c.JSON(http.StatusCreated, echo.Map{"order": o})
}

// ----- reviews -----

type reviewReq struct {
	ProductID uint64  `json:"productId"`
	Rating    int     `json:"rating"`
	Title     *string `json:"title"`
	Comment   *string `json:"comment"`
}

// CreateReview handles POST /api/products/reviews. The review waits for
// moderation before it shows on the product page.
func (h *UserHandler) CreateReview(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ProductID == 0 {
		return badRequest(c, "productId is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return badRequest(c, "rating must be between 1 and 5")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Repos.Products.GetByID(ctx, req.ProductID); err != nil {
		return respondError(c, err)
	}
	rv := &model.Review{ProductID: req.ProductID, UserID: uid, Rating: req.Rating, Title: trimmed(req.Title), Comment: trimmed(req.Comment)}
	if err := h.Repos.Reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "you have already reviewed this product"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"review": rv})
}
